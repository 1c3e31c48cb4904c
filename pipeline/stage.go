package pipeline

import "github.com/pkg/errors"

// Stage is one of the pipeline's sequential stages.
type Stage string

const (
	// StageStereo runs the dense stereo matcher over consecutive image pairs.
	StageStereo = Stage("stereo")
	// StagePCFilter filters each pair's stereo point cloud.
	StagePCFilter = Stage("pc_filter")
	// StageMeshGen fuses the filtered clouds into a single mesh.
	StageMeshGen = Stage("mesh_gen")
)

var stageOrder = []Stage{StageStereo, StagePCFilter, StageMeshGen}

// Ordinal returns the position of the stage in the pipeline.
func (s Stage) Ordinal() (int, error) {
	for i, known := range stageOrder {
		if s == known {
			return i, nil
		}
	}
	return 0, errors.Errorf("unknown stage %q, must be one of %v", string(s), stageOrder)
}

// StageRange is a contiguous range of pipeline stages to run, letting a user
// resume from an intermediate stage or stop early.
type StageRange struct {
	first, last int
}

// NewStageRange builds a stage range from the first and last stage names.
// Empty names default to the full pipeline.
func NewStageRange(first, last string) (StageRange, error) {
	if first == "" {
		first = string(stageOrder[0])
	}
	if last == "" {
		last = string(stageOrder[len(stageOrder)-1])
	}
	firstOrd, err := Stage(first).Ordinal()
	if err != nil {
		return StageRange{}, errors.Wrap(err, "first_step")
	}
	lastOrd, err := Stage(last).Ordinal()
	if err != nil {
		return StageRange{}, errors.Wrap(err, "last_step")
	}
	if firstOrd > lastOrd {
		return StageRange{}, errors.Errorf("first_step %q comes after last_step %q", first, last)
	}
	return StageRange{first: firstOrd, last: lastOrd}, nil
}

// Includes reports whether the stage is part of the range.
func (r StageRange) Includes(s Stage) bool {
	ord, err := s.Ordinal()
	if err != nil {
		return false
	}
	return ord >= r.first && ord <= r.last
}
