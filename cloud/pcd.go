// Package cloud reads the point cloud files the filtering stage produces,
// enough to sanity check them between pipeline stages: point counts and
// spatial bounds, not a full point cloud data structure.
package cloud

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

type pcdDataType int

const (
	pcdAscii  pcdDataType = 0
	pcdBinary pcdDataType = 1
)

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

type pcdHeader struct {
	fields []string
	size   []uint64
	width  uint64
	height uint64
	points uint64
	data   pcdDataType
}

// Stats summarizes one point cloud file.
type Stats struct {
	Points   int
	Min, Max r3.Vector
}

// Center returns the center of the cloud's bounding box.
func (s *Stats) Center() r3.Vector {
	return s.Min.Add(s.Max).Mul(0.5)
}

// ReadStatsFromFile reads a PCD file and summarizes it.
func ReadStatsFromFile(path string) (*Stats, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening point cloud")
	}
	defer utils.UncheckedErrorFunc(f.Close)
	stats, err := ReadStats(f)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading point cloud %s", path)
	}
	return stats, nil
}

// ReadStats reads PCD data and summarizes it. Ascii and binary data with at
// least x y z fields are supported.
func ReadStats(inRaw io.Reader) (*Stats, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parseHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case pcdAscii:
		return readAscii(in, header)
	case pcdBinary:
		return readBinary(in, header)
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func parseHeaderLine(line string, index int, header *pcdHeader) error {
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}
	var err error
	switch name {
	case "FIELDS":
		header.fields = tokens
		if len(tokens) < 3 || tokens[0] != "x" || tokens[1] != "y" || tokens[2] != "z" {
			return errors.Errorf("unsupported pcd fields %q", value)
		}
	case "SIZE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid HEIGHT field %s", value)
		}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Errorf("invalid POINTS field %s", value)
		}
		if header.points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d",
				header.points, header.width*header.height)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = pcdAscii
		case "binary":
			header.data = pcdBinary
		default:
			return errors.Errorf("unsupported pcd data format %q", value)
		}
	}
	return nil
}

func readAscii(in *bufio.Reader, header pcdHeader) (*Stats, error) {
	acc := newAccumulator()
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		tokens := strings.Fields(strings.TrimSpace(line))
		if len(tokens) != len(header.fields) {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		var xyz [3]float64
		for j := 0; j < 3; j++ {
			xyz[j], err = strconv.ParseFloat(tokens[j], 64)
			if err != nil {
				return nil, errors.Errorf("invalid point %d field %s", i, tokens[j])
			}
		}
		acc.add(r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return acc.stats(), nil
}

func readBinary(in *bufio.Reader, header pcdHeader) (*Stats, error) {
	acc := newAccumulator()
	for i := 0; i < int(header.points); i++ {
		var xyz [3]float64
		for j := range header.fields {
			buf := make([]byte, header.size[j])
			if _, err := io.ReadFull(in, buf); err != nil {
				return nil, errors.Wrapf(err, "truncated binary data at point %d", i)
			}
			if j < 3 {
				if header.size[j] != 4 {
					return nil, errors.Errorf("unsupported %s field size %d", header.fields[j], header.size[j])
				}
				xyz[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
			}
		}
		acc.add(r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}
	return acc.stats(), nil
}

type accumulator struct {
	count    int
	min, max r3.Vector
}

func newAccumulator() *accumulator {
	inf := math.Inf(1)
	return &accumulator{
		min: r3.Vector{X: inf, Y: inf, Z: inf},
		max: r3.Vector{X: -inf, Y: -inf, Z: -inf},
	}
}

func (a *accumulator) add(p r3.Vector) {
	a.count++
	a.min.X = math.Min(a.min.X, p.X)
	a.min.Y = math.Min(a.min.Y, p.Y)
	a.min.Z = math.Min(a.min.Z, p.Z)
	a.max.X = math.Max(a.max.X, p.X)
	a.max.Y = math.Max(a.max.Y, p.Y)
	a.max.Z = math.Max(a.max.Z, p.Z)
}

func (a *accumulator) stats() *Stats {
	if a.count == 0 {
		return &Stats{}
	}
	return &Stats{Points: a.count, Min: a.min, Max: a.max}
}
