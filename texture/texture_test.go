package texture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
	"go.viam.com/utils/pexec"

	"go.viam.com/stereomesh/camposes"
	"go.viam.com/stereomesh/tools"
	"go.viam.com/stereomesh/undistort"
)

func TestWriteCameraFiles(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()

	listPath := filepath.Join(dir, "poses.txt")
	test.That(t, os.WriteFile(listPath,
		[]byte("data/nav_cam/1.jpg 1 0 0 0 1 0 0 0 1 10 20 30\n"), 0o644), test.ShouldBeNil)
	poses, err := camposes.Parse(listPath, "nav_cam")
	test.That(t, err, test.ShouldBeNil)

	image := filepath.Join(dir, "1.jpg")
	intr := &NormalizedIntrinsics{Focal: 0.5, PixelAspect: 1, Cx: 0.5, Cy: 0.25}
	test.That(t, WriteCameraFiles([]string{image}, poses, intr, logger), test.ShouldBeNil)

	data, err := os.ReadFile(filepath.Join(dir, "1.cam"))
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldEqual, "10 20 30 1 0 0 0 1 0 0 0 1")
	test.That(t, lines[1], test.ShouldEqual, "0.5 0 0 1 0.5 0.25")

	// image and camera counts must agree
	err = WriteCameraFiles([]string{image, "extra.jpg"}, poses, intr, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "as many images as cameras")
}

func TestRun(t *testing.T) {
	logger := golog.NewTestLogger(t)
	dir := t.TempDir()

	rigPath := filepath.Join(dir, "rig.json")
	test.That(t, os.WriteFile(rigPath, []byte(`{
		"ref_sensor": "sci_cam",
		"sensors": [{
			"name": "sci_cam",
			"intrinsics": {"width_px": 1400, "height_px": 1100, "fx": 900, "fy": 900, "ppx": 700, "ppy": 550}
		}]
	}`), 0o644), test.ShouldBeNil)

	var list strings.Builder
	for i := 0; i < 2; i++ {
		fmt.Fprintf(&list, "%s/data/sci_cam/%d.png 1 0 0 0 1 0 0 0 1 %d 0 0\n", dir, i, i)
	}
	listPath := filepath.Join(dir, "list.txt")
	test.That(t, os.WriteFile(listPath, []byte(list.String()), 0o644), test.ShouldBeNil)

	prev := tools.RunProcess
	defer func() {
		tools.RunProcess = prev
	}()
	var toolRuns []string
	var texreconArgs []string
	tools.RunProcess = func(ctx context.Context, cfg pexec.ProcessConfig, _ golog.Logger) error {
		toolRuns = append(toolRuns, cfg.ID)
		switch cfg.ID {
		case undistort.ToolName:
			// the real tool writes the undistorted intrinsics file
			for i, a := range cfg.Args {
				if a == "--undistorted_intrinsics" {
					test.That(t, os.WriteFile(cfg.Args[i+1], []byte("1250 1000 900 625 500\n"), 0o644),
						test.ShouldBeNil)
				}
			}
		case ToolName:
			texreconArgs = cfg.Args
		}
		return nil
	}

	outDir := filepath.Join(dir, "out")
	texturedMesh, err := Run(context.Background(), Params{
		RigConfig:          rigPath,
		RigSensor:          "sci_cam",
		ImageList:          listPath,
		Mesh:               filepath.Join(dir, "fused_mesh.ply"),
		OutDir:             outDir,
		UndistortedCropWin: "1250 1000",
		ToolsDir:           filepath.Join(dir, "bin"),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, toolRuns, test.ShouldResemble, []string{undistort.ToolName, ToolName})

	textureDir := filepath.Join(outDir, "sci_cam", "texture")
	test.That(t, texturedMesh, test.ShouldEqual, textureDir+".obj")
	test.That(t, texreconArgs, test.ShouldResemble, []string{
		filepath.Join(outDir, "sci_cam", "undistorted_images"),
		filepath.Join(dir, "fused_mesh.ply"),
		textureDir,
		"-o", "gauss_clamping",
		"-d", "view_dir_dot_face_dir",
		"--keep_unseen_faces",
	})

	// a .cam file was written next to each undistorted image, carrying the
	// normalized focal length
	for i := 0; i < 2; i++ {
		camFile := filepath.Join(outDir, "sci_cam", "undistorted_images", fmt.Sprintf("%d.cam", i))
		data, err := os.ReadFile(camFile)
		test.That(t, err, test.ShouldBeNil)
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		test.That(t, lines, test.ShouldHaveLength, 2)
		test.That(t, strings.Fields(lines[1])[0], test.ShouldEqual, "0.71999999999999997")
	}
}

func TestRunValidation(t *testing.T) {
	logger := golog.NewTestLogger(t)
	_, err := Run(context.Background(), Params{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rig_config")

	_, err = Run(context.Background(), Params{RigConfig: "rig.json"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "rig_sensor")
}
