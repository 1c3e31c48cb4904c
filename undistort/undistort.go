// Package undistort drives the external undistortion tool and keeps the
// index file bookkeeping around it: the distorted and undistorted image
// lists live under <out_dir>/<sensor>/ and the undistorted images in a
// directory of their own, wiped on every run.
package undistort

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/stereomesh/tools"
)

// ToolName is the external undistortion binary.
const ToolName = "undistort_image_texrecon"

// Params configures one undistortion run.
type Params struct {
	RigConfig string
	Sensor    string
	OutDir    string
	CropWin   string
	Images    []string
}

// Result reports where the undistortion run put its outputs.
type Result struct {
	// Dir holds the undistorted images.
	Dir string
	// Images are the undistorted image paths, parallel to the input list.
	Images []string
	// IntrinsicsFile is the undistorted intrinsics file written by the tool.
	IntrinsicsFile string
}

// SensorDir returns the per-sensor output directory.
func (p Params) SensorDir() string {
	return filepath.Join(p.OutDir, p.Sensor)
}

// UndistortedDir returns the directory the undistorted images go to.
func (p Params) UndistortedDir() string {
	return filepath.Join(p.SensorDir(), "undistorted_images")
}

// UndistortedImages maps the input images to their undistorted paths. The
// undistorted images are always written as jpg, which is what the texturing
// tool wants.
func (p Params) UndistortedImages() []string {
	dir := p.UndistortedDir()
	out := make([]string, 0, len(p.Images))
	for _, image := range p.Images {
		name := filepath.Base(image)
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
		out = append(out, filepath.Join(dir, name))
	}
	return out
}

// Run writes the image index files, wipes any stale undistorted image
// directory, and invokes the undistortion tool over the input images. In
// dry-run mode nothing on disk is touched; only the tool command is logged.
func Run(ctx context.Context, runner *tools.Runner, p Params, logger golog.Logger) (*Result, error) {
	if len(p.Images) == 0 {
		return nil, errors.Errorf("no images to undistort for sensor %q", p.Sensor)
	}
	sensorDir := p.SensorDir()
	undistDir := p.UndistortedDir()
	undistImages := p.UndistortedImages()
	distortedIndex := filepath.Join(sensorDir, "distorted_index.txt")
	undistortedIndex := filepath.Join(sensorDir, "undistorted_index.txt")

	if !runner.DryRun() {
		if err := os.MkdirAll(sensorDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "cannot create sensor output directory")
		}
		logger.Infof("writing: %s", distortedIndex)
		if err := writeIndex(distortedIndex, p.Images); err != nil {
			return nil, err
		}

		if _, err := os.Stat(undistDir); err == nil {
			// stray files from an earlier run would end up in the texturing input
			logger.Infof("removing old directory: %s", undistDir)
			if err := os.RemoveAll(undistDir); err != nil {
				return nil, errors.Wrap(err, "cannot remove old undistorted image directory")
			}
		}
		if err := os.MkdirAll(undistDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "cannot create undistorted image directory")
		}

		logger.Infof("writing: %s", undistortedIndex)
		if err := writeIndex(undistortedIndex, undistImages); err != nil {
			return nil, err
		}
	}

	intrinsicsFile := filepath.Join(undistDir, "undistorted_intrinsics.txt")
	args := []string{
		"--save_bgr",
		"--image_list", distortedIndex,
		"--output_list", undistortedIndex,
		"--rig_config", p.RigConfig,
		"--rig_sensor", p.Sensor,
		"--undistorted_crop_win", p.CropWin,
		"--undistorted_intrinsics", intrinsicsFile,
	}
	logFile := filepath.Join(p.OutDir, "undist_"+p.Sensor+"_log.txt")
	logger.Infof("undistorting %s images, writing the output log to %s", p.Sensor, logFile)
	if err := runner.Run(ctx, ToolName, args, logFile); err != nil {
		return nil, err
	}
	return &Result{
		Dir:            undistDir,
		Images:         undistImages,
		IntrinsicsFile: intrinsicsFile,
	}, nil
}

func writeIndex(path string, images []string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create index file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	for _, image := range images {
		if _, err := f.WriteString(image + "\n"); err != nil {
			return errors.Wrap(err, "cannot write index file")
		}
	}
	return nil
}
