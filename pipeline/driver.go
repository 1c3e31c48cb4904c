package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/stereomesh/camposes"
	"go.viam.com/stereomesh/cloud"
	"go.viam.com/stereomesh/mesh"
	"go.viam.com/stereomesh/rig"
	"go.viam.com/stereomesh/tools"
	"go.viam.com/stereomesh/undistort"
)

// External tool binaries invoked by the pipeline.
const (
	StereoToolName   = "parallel_stereo"
	FilterToolName   = "pc_filter"
	PairMeshToolName = "mesh_from_cloud"
	FusionToolName   = "voxblox_mesh"
)

// Driver runs the stereo reconstruction pipeline: undistort the selected
// sensor's images, run the stereo matcher over each consecutive image pair,
// filter each pair's point cloud, and fuse the filtered clouds into one
// mesh. All heavy lifting happens in external tools; the driver owns
// argument construction, file naming, and stage sequencing.
type Driver struct {
	cfg    Config
	stages StageRange
	runner *tools.Runner
	lay    layout
	logger golog.Logger
}

// NewDriver validates the configuration, loads the rig, and prepares a
// pipeline run. No tool runs until Run is called.
func NewDriver(cfg Config, logger golog.Logger) (*Driver, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	stages, err := NewStageRange(cfg.FirstStep, cfg.LastStep)
	if err != nil {
		return nil, err
	}
	rigCfg, err := rig.ReadConfig(cfg.RigConfig)
	if err != nil {
		return nil, err
	}
	if _, err := rigCfg.Sensor(cfg.RigSensor); err != nil {
		return nil, err
	}
	toolsDir := cfg.ToolsDir
	if toolsDir == "" {
		toolsDir, err = tools.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return &Driver{
		cfg:    cfg,
		stages: stages,
		runner: tools.NewRunner(toolsDir, cfg.DryRun, logger),
		lay:    layout{outDir: cfg.OutDir, sensor: cfg.RigSensor},
		logger: logger,
	}, nil
}

// Run executes the configured stage range. Per-pair stereo and filtering
// failures are logged and the pair is skipped; a failure of the final fusion
// step aborts the run.
func (d *Driver) Run(ctx context.Context) error {
	if err := os.MkdirAll(d.cfg.OutDir, 0o755); err != nil {
		return errors.Wrap(err, "cannot create output directory")
	}

	poses, err := camposes.Parse(d.cfg.CameraPoses, d.cfg.RigSensor)
	if err != nil {
		return err
	}
	if len(poses) == 0 {
		return errors.Errorf("no images for sensor %q in %s", d.cfg.RigSensor, d.cfg.CameraPoses)
	}
	first := d.cfg.FirstImageIndex
	if first < 0 {
		first = 0
	}
	selected := camposes.Window(poses, d.cfg.FirstImageIndex, d.cfg.LastImageIndex)
	d.logger.Infof("selected %d of %d %s images", len(selected), len(poses), d.cfg.RigSensor)

	var images []string
	if d.stages.Includes(StageStereo) {
		if len(selected) < 2 {
			return errors.Errorf("need at least two images to run stereo, have %d", len(selected))
		}
		distorted := make([]string, 0, len(selected))
		for _, p := range selected {
			distorted = append(distorted, p.Image)
		}
		res, err := undistort.Run(ctx, d.runner, undistort.Params{
			RigConfig: d.cfg.RigConfig,
			Sensor:    d.cfg.RigSensor,
			OutDir:    d.cfg.OutDir,
			CropWin:   d.cfg.UndistortedCropWin,
			Images:    distorted,
		}, d.logger)
		if err != nil {
			return err
		}
		images = res.Images
	}

	var clouds []string
	if d.stages.Includes(StageStereo) || d.stages.Includes(StagePCFilter) {
		// TODO: pairs are independent of each other, this loop could run them in parallel
		for k := 0; k+1 < len(selected); k++ {
			i, j := first+k, first+k+1
			cloudFile, err := d.runPair(ctx, i, j, images, k)
			if err != nil {
				d.logger.Errorw("pair failed, skipping its cloud", "pair", d.lay.pairName(i, j), "error", err)
				continue
			}
			if cloudFile != "" {
				clouds = append(clouds, cloudFile)
			}
		}
	}

	if !d.stages.Includes(StageMeshGen) {
		return nil
	}
	if !d.stages.Includes(StagePCFilter) {
		clouds, err = d.discoverClouds()
		if err != nil {
			return err
		}
	}
	return d.fuse(ctx, clouds)
}

// runPair runs the in-range per-pair stages for images i and j and returns
// the pair's filtered cloud, or "" when the filter stage is out of range.
func (d *Driver) runPair(ctx context.Context, i, j int, images []string, k int) (string, error) {
	if d.stages.Includes(StageStereo) {
		args := append(strings.Fields(d.cfg.StereoOptions),
			"--rig_config", d.cfg.RigConfig,
			"--rig_sensor", d.cfg.RigSensor,
			"--out_prefix", d.lay.stereoRunPrefix(i, j),
			images[k], images[k+1],
		)
		if err := d.runner.Run(ctx, StereoToolName, args, d.lay.stereoLog(i, j)); err != nil {
			return "", err
		}
	}
	if !d.stages.Includes(StagePCFilter) {
		return "", nil
	}

	cloudFile := d.lay.filteredCloud(i, j)
	args := append(strings.Fields(d.cfg.PCFilterOptions),
		"--input_cloud", d.lay.stereoCloud(i, j),
		"--output_cloud", cloudFile,
	)
	if err := d.runner.Run(ctx, FilterToolName, args, d.lay.filterLog(i, j)); err != nil {
		return "", err
	}
	if d.cfg.PairMesh {
		// a per-pair mesh is a debugging aid, not pipeline input; losing it
		// does not invalidate the pair's cloud
		if err := d.runner.Run(ctx, PairMeshToolName,
			[]string{cloudFile, d.lay.pairMesh(i, j)}, d.lay.pairMeshLog(i, j)); err != nil {
			d.logger.Warnw("pair mesh failed", "pair", d.lay.pairName(i, j), "error", err)
		}
	}
	if !d.cfg.DryRun {
		stats, err := cloud.ReadStatsFromFile(cloudFile)
		if err != nil {
			return "", err
		}
		if stats.Points == 0 {
			return "", errors.Errorf("filtered cloud %s is empty", cloudFile)
		}
		d.logger.Infow("filtered cloud", "pair", d.lay.pairName(i, j),
			"points", stats.Points, "min", stats.Min, "max", stats.Max)
	}
	return cloudFile, nil
}

// discoverClouds finds previously filtered clouds on disk when resuming at
// the fusion stage.
func (d *Driver) discoverClouds() ([]string, error) {
	clouds, err := filepath.Glob(filepath.Join(d.lay.filteredDir(), "*.pcd"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot list filtered clouds")
	}
	sort.SliceStable(clouds, func(a, b int) bool {
		ai, aj := cloudSortKey(clouds[a])
		bi, bj := cloudSortKey(clouds[b])
		if ai != bi {
			return ai < bi
		}
		return aj < bj
	})
	return clouds, nil
}

// cloudSortKey orders filtered clouds by their image pair indices so that
// 9_10.pcd comes before 10_11.pcd. Unparsable indices sort as zero.
func cloudSortKey(path string) (int, int) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	first, second, _ := strings.Cut(name, "_")
	i, err := strconv.Atoi(first)
	if err != nil {
		i = 0
	}
	j, err := strconv.Atoi(second)
	if err != nil {
		j = 0
	}
	return i, j
}

func (d *Driver) fuse(ctx context.Context, clouds []string) error {
	if len(clouds) == 0 && !d.cfg.DryRun {
		return errors.New("no filtered clouds to fuse")
	}
	indexFile := d.lay.cloudIndex()
	if !d.cfg.DryRun {
		if err := os.MkdirAll(d.lay.fusedDir(), 0o755); err != nil {
			return errors.Wrap(err, "cannot create fusion directory")
		}
		d.logger.Infof("writing: %s", indexFile)
		if err := writeLines(indexFile, clouds); err != nil {
			return err
		}
	}

	fusedMesh := d.lay.fusedMesh()
	args := append([]string{indexFile, fusedMesh}, strings.Fields(d.cfg.MeshGenOptions)...)
	if err := d.runner.Run(ctx, FusionToolName, args, d.lay.fusionLog()); err != nil {
		return errors.Wrap(err, "mesh fusion failed")
	}
	if d.cfg.DryRun {
		return nil
	}

	m, err := mesh.ReadPLYFile(fusedMesh)
	if err != nil {
		return errors.Wrap(err, "mesh fusion produced no readable mesh")
	}
	if len(m.Triangles()) == 0 {
		return errors.Errorf("fused mesh %s has no faces", fusedMesh)
	}
	d.logger.Infow("fused mesh", "path", fusedMesh,
		"vertices", m.VertexCount(), "faces", len(m.Triangles()), "area", m.Area())
	return nil
}

func writeLines(path string, lines []string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "cannot create index file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return errors.Wrap(err, "cannot write index file")
		}
	}
	return nil
}
