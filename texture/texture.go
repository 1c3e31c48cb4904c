// Package texture drapes image texture over a reconstructed mesh. It
// undistorts the selected sensor's images, rewrites their camera poses and
// intrinsics in the form the external texturing tool expects, and runs that
// tool over the mesh.
package texture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/stereomesh/camposes"
	"go.viam.com/stereomesh/rig"
	"go.viam.com/stereomesh/tools"
	"go.viam.com/stereomesh/undistort"
)

// ToolName is the external texturing binary.
const ToolName = "texrecon"

// Params configures one texturing run.
type Params struct {
	RigConfig          string
	RigSensor          string
	ImageList          string
	Mesh               string
	OutDir             string
	UndistortedCropWin string
	ToolsDir           string
	DryRun             bool
}

// Validate ensures all required settings are present.
func (p *Params) Validate(path string) error {
	if p.RigConfig == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "rig_config")
	}
	if p.RigSensor == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "rig_sensor")
	}
	if p.ImageList == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "image_list")
	}
	if p.Mesh == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "mesh")
	}
	if p.OutDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "out_dir")
	}
	if p.UndistortedCropWin == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "undistorted_crop_win")
	}
	return nil
}

// Run textures the mesh and returns the textured mesh path.
func Run(ctx context.Context, p Params, logger golog.Logger) (string, error) {
	if err := p.Validate(""); err != nil {
		return "", err
	}
	rigCfg, err := rig.ReadConfig(p.RigConfig)
	if err != nil {
		return "", err
	}
	if _, err := rigCfg.Sensor(p.RigSensor); err != nil {
		return "", err
	}
	toolsDir := p.ToolsDir
	if toolsDir == "" {
		toolsDir, err = tools.DefaultDir()
		if err != nil {
			return "", err
		}
	}
	runner := tools.NewRunner(toolsDir, p.DryRun, logger)

	poses, err := camposes.Parse(p.ImageList, p.RigSensor)
	if err != nil {
		return "", err
	}
	if len(poses) == 0 {
		return "", errors.Errorf("no images for sensor %q in %s", p.RigSensor, p.ImageList)
	}
	if err := os.MkdirAll(p.OutDir, 0o755); err != nil {
		return "", errors.Wrap(err, "cannot create output directory")
	}

	images := make([]string, 0, len(poses))
	for _, pose := range poses {
		images = append(images, pose.Image)
	}
	res, err := undistort.Run(ctx, runner, undistort.Params{
		RigConfig: p.RigConfig,
		Sensor:    p.RigSensor,
		OutDir:    p.OutDir,
		CropWin:   p.UndistortedCropWin,
		Images:    images,
	}, logger)
	if err != nil {
		return "", err
	}

	if !p.DryRun {
		intr, err := ReadNormalizedIntrinsics(res.IntrinsicsFile)
		if err != nil {
			return "", err
		}
		if err := WriteCameraFiles(res.Images, poses, intr, logger); err != nil {
			return "", err
		}
	}

	textureDir := filepath.Join(p.OutDir, p.RigSensor, "texture")
	if err := os.MkdirAll(textureDir, 0o755); err != nil {
		return "", errors.Wrap(err, "cannot create texture directory")
	}
	args := []string{
		res.Dir, p.Mesh, textureDir,
		"-o", "gauss_clamping",
		"-d", "view_dir_dot_face_dir",
		"--keep_unseen_faces",
	}
	logFile := filepath.Join(textureDir, "texrecon_log.txt")
	logger.Infof("texturing mesh, writing the output log to %s", logFile)
	if err := runner.Run(ctx, ToolName, args, logFile); err != nil {
		return "", err
	}

	texturedMesh := textureDir + ".obj"
	logger.Infof("wrote: %s", texturedMesh)
	return texturedMesh, nil
}

// WriteCameraFiles writes a .cam file next to every undistorted image:
// camera translation and row-major rotation on the first line, normalized
// intrinsics on the second.
func WriteCameraFiles(images []string, poses []*camposes.Pose, intr *NormalizedIntrinsics, logger golog.Logger) error {
	if len(images) != len(poses) {
		return errors.Errorf("expecting as many images as cameras, got %d images and %d cameras",
			len(images), len(poses))
	}
	for i, image := range images {
		camFile := strings.TrimSuffix(image, filepath.Ext(image)) + ".cam"
		logger.Debugf("writing: %s", camFile)
		if err := writeCameraFile(camFile, poses[i], intr); err != nil {
			return err
		}
	}
	return nil
}

func writeCameraFile(path string, pose *camposes.Pose, intr *NormalizedIntrinsics) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create camera file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	t := pose.Translation()
	rot := pose.Rotation()
	if _, err := fmt.Fprintf(f, "%0.17g %0.17g %0.17g ", t.X, t.Y, t.Z); err != nil {
		return errors.Wrap(err, "cannot write camera file")
	}
	if _, err := fmt.Fprintf(f, "%0.17g %0.17g %0.17g %0.17g %0.17g %0.17g %0.17g %0.17g %0.17g\n",
		rot.At(0, 0), rot.At(0, 1), rot.At(0, 2),
		rot.At(1, 0), rot.At(1, 1), rot.At(1, 2),
		rot.At(2, 0), rot.At(2, 1), rot.At(2, 2)); err != nil {
		return errors.Wrap(err, "cannot write camera file")
	}
	if _, err := fmt.Fprintf(f, "%0.17g %0.17g %0.17g %0.17g %0.17g %0.17g\n",
		intr.Focal, intr.D0, intr.D1, intr.PixelAspect, intr.Cx, intr.Cy); err != nil {
		return errors.Wrap(err, "cannot write camera file")
	}
	return nil
}
