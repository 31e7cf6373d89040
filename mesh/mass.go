package mesh

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// MassMatrix assembles the piecewise linear finite element mass matrix of the
// surface: ∫ φi φj dA. The consistent matrix carries A/6 on the diagonal and
// A/12 between triangle neighbours; the lumped matrix puts A/3 on the diagonal.
func MassMatrix(m *TriangleMesh, lumped bool) (*sparse.CSR, error) {
	if len(m.Triangles) == 0 {
		return nil, fmt.Errorf("mesh %q: mass matrix needs triangles", m.Name)
	}
	var (
		nv  = m.NumVertices()
		dok = sparse.NewDOK(nv, nv)
		add = func(i, j int, v float64) {
			dok.Set(i, j, dok.At(i, j)+v)
		}
	)
	for t, tri := range m.Triangles {
		area := m.TriangleArea(t)
		if lumped {
			for _, v := range tri {
				add(v, v, area/3)
			}
			continue
		}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				if a == b {
					add(tri[a], tri[b], area/6)
				} else {
					add(tri[a], tri[b], area/12)
				}
			}
		}
	}
	return dok.ToCSR(), nil
}
