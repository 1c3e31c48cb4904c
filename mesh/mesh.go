// Package mesh reads the triangle meshes the fusion and texturing stages
// work with, in the PLY format the external tools exchange.
package mesh

import (
	"github.com/golang/geo/r3"
)

// Triangle is a triangle face of a mesh.
type Triangle struct {
	p0 r3.Vector
	p1 r3.Vector
	p2 r3.Vector

	normal r3.Vector
}

// NewTriangle creates a new triangle from three points.
func NewTriangle(p0, p1, p2 r3.Vector) *Triangle {
	return &Triangle{
		p0:     p0,
		p1:     p1,
		p2:     p2,
		normal: p1.Sub(p0).Cross(p2.Sub(p0)).Normalize(),
	}
}

// Points returns the three points of the triangle.
func (t *Triangle) Points() []r3.Vector {
	return []r3.Vector{t.p0, t.p1, t.p2}
}

// Normal returns the triangle's normal vector.
func (t *Triangle) Normal() r3.Vector {
	return t.normal
}

// Area returns the area of the triangle.
func (t *Triangle) Area() float64 {
	return t.p1.Sub(t.p0).Cross(t.p2.Sub(t.p0)).Norm() / 2.
}

// Mesh is a triangle mesh.
type Mesh struct {
	vertices  int
	triangles []*Triangle
}

// NewMesh creates a mesh from its triangles.
func NewMesh(vertices int, triangles []*Triangle) *Mesh {
	return &Mesh{vertices: vertices, triangles: triangles}
}

// VertexCount returns the number of vertices in the mesh.
func (m *Mesh) VertexCount() int {
	return m.vertices
}

// Triangles returns the triangles of the mesh.
func (m *Mesh) Triangles() []*Triangle {
	return m.triangles
}

// Area returns the total surface area of the mesh.
func (m *Mesh) Area() float64 {
	var area float64
	for _, t := range m.triangles {
		area += t.Area()
	}
	return area
}
