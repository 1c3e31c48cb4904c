package pipeline

import (
	"path/filepath"
	"strconv"

	"go.viam.com/utils"
)

// Config holds the settings of one pipeline run.
type Config struct {
	// RigConfig is the rig configuration file.
	RigConfig string
	// RigSensor names the rig sensor whose images to reconstruct.
	RigSensor string
	// CameraPoses is the list of images and camera poses.
	CameraPoses string
	// OutDir is where all intermediate and final outputs go.
	OutDir string
	// ToolsDir is the directory holding the external tool binaries. Empty
	// means the conventional location next to the running executable.
	ToolsDir string

	// StereoOptions, PCFilterOptions and MeshGenOptions are extra
	// whitespace-separated flags passed through to the respective tools.
	StereoOptions   string
	PCFilterOptions string
	MeshGenOptions  string

	// UndistortedCropWin is the central image region to keep after
	// undistortion, as "width height".
	UndistortedCropWin string

	// FirstStep and LastStep bound the stages to run. Empty means the full
	// pipeline.
	FirstStep string
	LastStep  string

	// FirstImageIndex and LastImageIndex select an inclusive subrange of the
	// sensor's images. Negative values mean the start and end of the list.
	FirstImageIndex int
	LastImageIndex  int

	// PairMesh also writes a per-pair debug mesh from each filtered cloud.
	PairMesh bool
	// DryRun logs the tool command lines without executing them.
	DryRun bool
}

// Validate ensures all required settings are present.
func (c *Config) Validate(path string) error {
	if c.RigConfig == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "rig_config")
	}
	if c.RigSensor == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "rig_sensor")
	}
	if c.CameraPoses == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "camera_poses")
	}
	if c.OutDir == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "out_dir")
	}
	if c.UndistortedCropWin == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "undistorted_crop_win")
	}
	return nil
}

// layout computes the on-disk naming convention of a run. All stages agree
// on these paths so that a later invocation can resume from what an earlier
// one left on disk.
type layout struct {
	outDir string
	sensor string
}

func (l layout) sensorDir() string {
	return filepath.Join(l.outDir, l.sensor)
}

func (l layout) pairName(i, j int) string {
	return strconv.Itoa(i) + "_" + strconv.Itoa(j)
}

func (l layout) stereoDir(i, j int) string {
	return filepath.Join(l.sensorDir(), "stereo", l.pairName(i, j))
}

func (l layout) stereoRunPrefix(i, j int) string {
	return filepath.Join(l.stereoDir(i, j), "run")
}

func (l layout) stereoCloud(i, j int) string {
	return l.stereoRunPrefix(i, j) + "-PC.tif"
}

func (l layout) stereoLog(i, j int) string {
	return filepath.Join(l.stereoDir(i, j), "stereo_log.txt")
}

func (l layout) filteredDir() string {
	return filepath.Join(l.sensorDir(), "filtered")
}

func (l layout) filteredCloud(i, j int) string {
	return filepath.Join(l.filteredDir(), l.pairName(i, j)+".pcd")
}

func (l layout) pairMesh(i, j int) string {
	return filepath.Join(l.filteredDir(), l.pairName(i, j)+".ply")
}

func (l layout) filterLog(i, j int) string {
	return filepath.Join(l.filteredDir(), l.pairName(i, j)+"_filter_log.txt")
}

func (l layout) pairMeshLog(i, j int) string {
	return filepath.Join(l.filteredDir(), l.pairName(i, j)+"_mesh_log.txt")
}

func (l layout) fusedDir() string {
	return filepath.Join(l.sensorDir(), "fused")
}

func (l layout) cloudIndex() string {
	return filepath.Join(l.fusedDir(), "cloud_index.txt")
}

func (l layout) fusedMesh() string {
	return filepath.Join(l.fusedDir(), "fused_mesh.ply")
}

func (l layout) fusionLog() string {
	return filepath.Join(l.fusedDir(), "fusion_log.txt")
}
