package texture

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// NormalizedIntrinsics are pinhole intrinsics in the normalized form the
// texturing tool expects: focal length divided by the larger image
// dimension, principal point divided by the image dimensions, no distortion,
// square pixels.
type NormalizedIntrinsics struct {
	Focal       float64
	D0, D1      float64
	PixelAspect float64
	Cx, Cy      float64
}

// ReadNormalizedIntrinsics reads the undistorted intrinsics file the
// undistortion tool writes (one line: width height focal cx cy) and
// normalizes it.
func ReadNormalizedIntrinsics(path string) (*NormalizedIntrinsics, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "missing undistorted intrinsics %s", path)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		vals := strings.Fields(line)
		if len(vals) < 5 {
			return nil, errors.Errorf("expecting 5 intrinsics values in %s, got %d", path, len(vals))
		}
		nums := make([]float64, 5)
		for i := 0; i < 5; i++ {
			nums[i], err = strconv.ParseFloat(vals[i], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "bad intrinsics value %q in %s", vals[i], path)
			}
		}
		width, height, focal, cx, cy := nums[0], nums[1], nums[2], nums[3], nums[4]
		if width <= 0 || height <= 0 || focal <= 0 {
			return nil, errors.Errorf("could not parse valid intrinsics from %s", path)
		}
		maxDim := width
		if height > maxDim {
			maxDim = height
		}
		return &NormalizedIntrinsics{
			Focal:       focal / maxDim,
			PixelAspect: 1.0,
			Cx:          cx / width,
			Cy:          cy / height,
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	return nil, errors.Errorf("could not parse the undistorted intrinsics from %s", path)
}
