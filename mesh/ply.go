package mesh

import (
	"os"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadPLYFile reads a triangle mesh from a PLY file.
func ReadPLYFile(path string) (*Mesh, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "error opening mesh")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	ply := goply.New(f)
	vertices := ply.Elements("vertex")
	faces := ply.Elements("face")

	points := make([]r3.Vector, 0, len(vertices))
	for i, vertex := range vertices {
		x, err := asFloat64(vertex["x"])
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		y, err := asFloat64(vertex["y"])
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		z, err := asFloat64(vertex["z"])
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
		points = append(points, r3.Vector{X: x, Y: y, Z: z})
	}

	triangles := make([]*Triangle, 0, len(faces))
	for i, face := range faces {
		indices, err := faceIndices(face)
		if err != nil {
			return nil, errors.Wrapf(err, "face %d", i)
		}
		if len(indices) != 3 {
			return nil, errors.Errorf("face %d has %d vertices, only triangle meshes are supported", i, len(indices))
		}
		for _, idx := range indices {
			if idx < 0 || idx >= len(points) {
				return nil, errors.Errorf("face %d references vertex %d of %d", i, idx, len(points))
			}
		}
		triangles = append(triangles, NewTriangle(points[indices[0]], points[indices[1]], points[indices[2]]))
	}
	return NewMesh(len(points), triangles), nil
}

func faceIndices(face map[string]interface{}) ([]int, error) {
	raw, ok := face["vertex_indices"]
	if !ok {
		raw, ok = face["vertex_index"]
	}
	if !ok {
		return nil, errors.New("face has no vertex index list")
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Errorf("unexpected vertex index list type %T", raw)
	}
	indices := make([]int, 0, len(list))
	for _, v := range list {
		idx, err := asInt(v)
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

func asFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	default:
		return 0, errors.Errorf("unexpected numeric type %T", v)
	}
}

func asInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int8:
		return int(val), nil
	case int16:
		return int(val), nil
	case int32:
		return int(val), nil
	case int64:
		return int(val), nil
	case uint8:
		return int(val), nil
	case uint16:
		return int(val), nil
	case uint32:
		return int(val), nil
	case float64:
		return int(val), nil
	case float32:
		return int(val), nil
	default:
		return 0, errors.Errorf("unexpected index type %T", v)
	}
}
