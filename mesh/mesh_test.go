package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestTriangle(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 1, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 1, Z: 0},
	)
	test.That(t, tri.Area(), test.ShouldAlmostEqual, 0.5)
	test.That(t, tri.Normal(), test.ShouldResemble, r3.Vector{X: 0, Y: 0, Z: 1})
	test.That(t, tri.Points(), test.ShouldHaveLength, 3)
	test.That(t, tri.Points()[1], test.ShouldResemble, r3.Vector{X: 1, Y: 0, Z: 0})
}

func TestMeshArea(t *testing.T) {
	tri := NewTriangle(
		r3.Vector{X: 0, Y: 0, Z: 0},
		r3.Vector{X: 2, Y: 0, Z: 0},
		r3.Vector{X: 0, Y: 2, Z: 0},
	)
	m := NewMesh(3, []*Triangle{tri, tri})
	test.That(t, m.VertexCount(), test.ShouldEqual, 3)
	test.That(t, m.Triangles(), test.ShouldHaveLength, 2)
	test.That(t, m.Area(), test.ShouldAlmostEqual, 4)
}

const asciiPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 2
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
3 0 1 2
3 0 2 3
`

const quadPLY = `ply
format ascii 1.0
element vertex 4
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
4 0 1 2 3
`

const badIndexPLY = `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
3 0 1 7
`

func writePLY(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mesh.ply")
	test.That(t, os.WriteFile(path, []byte(content), 0o644), test.ShouldBeNil)
	return path
}

func TestReadPLYFile(t *testing.T) {
	m, err := ReadPLYFile(writePLY(t, asciiPLY))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.VertexCount(), test.ShouldEqual, 4)
	test.That(t, m.Triangles(), test.ShouldHaveLength, 2)
	// unit square split into two triangles
	test.That(t, m.Area(), test.ShouldAlmostEqual, 1)
}

func TestReadPLYFileErrors(t *testing.T) {
	_, err := ReadPLYFile(filepath.Join(t.TempDir(), "nope.ply"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error opening mesh")

	_, err = ReadPLYFile(writePLY(t, quadPLY))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "only triangle meshes")

	_, err = ReadPLYFile(writePLY(t, badIndexPLY))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "references vertex")
}
