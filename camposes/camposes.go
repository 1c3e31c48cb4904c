// Package camposes parses image and camera pose lists. Each record in a pose
// list is an image path followed by a world-to-camera transform given as a
// row-major 3x3 rotation and a translation, twelve floats in all. Records
// belong to the sensor named by the image's parent directory.
package camposes

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// poseFieldCount is the image path plus the twelve transform values.
const poseFieldCount = 13

// Pose is one image and its world-to-camera transform as a 4x4 homogeneous
// matrix.
type Pose struct {
	Image      string
	WorldToCam *mat.Dense
}

// Sensor returns the sensor the image belongs to, named by the image's
// parent directory.
func (p *Pose) Sensor() string {
	return filepath.Base(filepath.Dir(p.Image))
}

// Rotation returns the 3x3 rotation block of the transform.
func (p *Pose) Rotation() *mat.Dense {
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, p.WorldToCam.At(i, j))
		}
	}
	return rot
}

// Translation returns the translation block of the transform.
func (p *Pose) Translation() r3.Vector {
	return r3.Vector{
		X: p.WorldToCam.At(0, 3),
		Y: p.WorldToCam.At(1, 3),
		Z: p.WorldToCam.At(2, 3),
	}
}

// Parse reads a pose list and returns the poses belonging to the given
// sensor, in file order. Text after a '#' is a comment and blank lines are
// skipped.
func Parse(path, sensor string) ([]*Pose, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening pose list")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	var poses []*Pose
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pose, err := parseLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, lineNum)
		}
		if sensor != "" && pose.Sensor() != sensor {
			continue
		}
		poses = append(poses, pose)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading pose list")
	}
	return poses, nil
}

func parseLine(line string) (*Pose, error) {
	vals := strings.Fields(line)
	if len(vals) < poseFieldCount {
		return nil, errors.Errorf("expected an image and 12 transform values, got %d fields", len(vals))
	}
	m := mat.NewDense(4, 4, nil)
	m.Set(3, 3, 1)
	count := 1
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			v, err := strconv.ParseFloat(vals[count], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "bad rotation value %q", vals[count])
			}
			m.Set(row, col, v)
			count++
		}
	}
	for row := 0; row < 3; row++ {
		v, err := strconv.ParseFloat(vals[count], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad translation value %q", vals[count])
		}
		m.Set(row, 3, v)
		count++
	}
	return &Pose{Image: vals[0], WorldToCam: m}, nil
}

// Window clips poses to the inclusive image index range [first, last]. A
// negative last index means the end of the list. Indices outside the list
// are clamped.
func Window(poses []*Pose, first, last int) []*Pose {
	if first < 0 {
		first = 0
	}
	if last < 0 || last >= len(poses) {
		last = len(poses) - 1
	}
	if first > last {
		return nil
	}
	return poses[first : last+1]
}
