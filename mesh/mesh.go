package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gossm/geometry"
)

// TriangleMesh is a surface mesh. Meshes derived from one another by moving
// vertices share the Triangles slice, which must be treated as read only.
type TriangleMesh struct {
	Name      string
	Vertices  []geometry.Point3
	Triangles [][3]int
}

func NewTriangleMesh(name string, vertices []geometry.Point3, triangles [][3]int) (*TriangleMesh, error) {
	nv := len(vertices)
	for t, tri := range triangles {
		for _, v := range tri {
			if v < 0 || v >= nv {
				return nil, fmt.Errorf("mesh %q: triangle %d references vertex %d, have %d vertices", name, t, v, nv)
			}
		}
	}
	return &TriangleMesh{Name: name, Vertices: vertices, Triangles: triangles}, nil
}

func (m *TriangleMesh) NumVertices() int { return len(m.Vertices) }

func (m *TriangleMesh) NumTriangles() int { return len(m.Triangles) }

func (m *TriangleMesh) Centroid() geometry.Point3 { return geometry.Centroid(m.Vertices) }

// SameTopology reports whether other has the same vertex count and triangle
// connectivity, which is what a shared point domain requires.
func (m *TriangleMesh) SameTopology(other *TriangleMesh) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	if len(m.Vertices) != len(other.Vertices) || len(m.Triangles) != len(other.Triangles) {
		return false
	}
	if len(m.Triangles) > 0 && &m.Triangles[0] == &other.Triangles[0] {
		return true
	}
	for i := range m.Triangles {
		if m.Triangles[i] != other.Triangles[i] {
			return false
		}
	}
	return true
}

// WithVertices returns a mesh with new vertex positions sharing the receiver's connectivity.
func (m *TriangleMesh) WithVertices(name string, vertices []geometry.Point3) *TriangleMesh {
	if len(vertices) != len(m.Vertices) {
		panic(fmt.Errorf("mesh %q: WithVertices got %d vertices, want %d", m.Name, len(vertices), len(m.Vertices)))
	}
	return &TriangleMesh{Name: name, Vertices: vertices, Triangles: m.Triangles}
}

func (m *TriangleMesh) ApplyRigid(t geometry.RigidTransform) *TriangleMesh {
	return m.WithVertices(m.Name, t.ApplyAll(m.Vertices))
}

func (m *TriangleMesh) TriangleArea(i int) float64 {
	var (
		tri = m.Triangles[i]
		a   = m.Vertices[tri[1]].Sub(m.Vertices[tri[0]])
		b   = m.Vertices[tri[2]].Sub(m.Vertices[tri[0]])
	)
	return 0.5 * a.Cross(b).Norm()
}

func (m *TriangleMesh) TriangleAreas() (areas []float64) {
	areas = make([]float64, len(m.Triangles))
	for i := range m.Triangles {
		areas[i] = m.TriangleArea(i)
	}
	return
}

func (m *TriangleMesh) SurfaceArea() (area float64) {
	for i := range m.Triangles {
		area += m.TriangleArea(i)
	}
	return
}

// PointOnTriangle maps barycentric coordinates (u, v) with u+v <= 1 onto triangle i.
func (m *TriangleMesh) PointOnTriangle(i int, u, v float64) geometry.Point3 {
	var (
		tri = m.Triangles[i]
		p0  = m.Vertices[tri[0]]
		e1  = m.Vertices[tri[1]].Sub(p0)
		e2  = m.Vertices[tri[2]].Sub(p0)
	)
	return p0.Add(e1.Scale(u)).Add(e2.Scale(v))
}

// BoundingBoxDiagonal is used to pick scale-aware defaults such as kernel widths.
func (m *TriangleMesh) BoundingBoxDiagonal() float64 {
	if len(m.Vertices) == 0 {
		return 0
	}
	lo, hi := m.Vertices[0], m.Vertices[0]
	for _, p := range m.Vertices {
		for d := 0; d < 3; d++ {
			lo[d] = math.Min(lo[d], p[d])
			hi[d] = math.Max(hi[d], p[d])
		}
	}
	return hi.Distance(lo)
}
