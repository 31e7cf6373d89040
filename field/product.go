package field

import (
	"fmt"
	"strings"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gossm/mesh"
)

// InnerProduct acts on point-major flattened fields. Apply computes dst = W u
// for the symmetric positive definite weight W defining the product.
type InnerProduct interface {
	Apply(dst, u []float64)
	Dot(u, v []float64) float64
}

// Euclidean treats every point as equally weighted.
type Euclidean struct{}

func (Euclidean) Apply(dst, u []float64) { copy(dst, u) }

func (Euclidean) Dot(u, v []float64) (s float64) {
	for i := range u {
		s += u[i] * v[i]
	}
	return
}

// AreaWeighted integrates over the surface with the FEM mass matrix, so that
// densely sampled regions do not dominate the statistics.
type AreaWeighted struct {
	Lumped            bool
	M                 *sparse.CSR // per-vertex mass matrix, applied to each coordinate
	normalizingFactor float64
}

// NewAreaWeighted builds the product from the surface mass matrix, normalised
// by the total area so that constant fields keep their Euclidean magnitude
// per point.
func NewAreaWeighted(domain *mesh.TriangleMesh, lumped bool) (*AreaWeighted, error) {
	M, err := mesh.MassMatrix(domain, lumped)
	if err != nil {
		return nil, err
	}
	var total float64
	M.DoNonZero(func(_, _ int, v float64) { total += v })
	return &AreaWeighted{
		Lumped:            lumped,
		M:                 M,
		normalizingFactor: float64(domain.NumVertices()) / total,
	}, nil
}

// Apply multiplies the x, y and z components separately; the point-major
// layout puts each component at stride 3.
func (aw *AreaWeighted) Apply(dst, u []float64) {
	n, _ := aw.M.Dims()
	for i := range dst[:3*n] {
		dst[i] = 0
	}
	for c := 0; c < 3; c++ {
		blas.Dusmv(false, aw.normalizingFactor, aw.M.RawMatrix(), u[c:], 3, dst[c:], 3)
	}
}

func (aw *AreaWeighted) Dot(u, v []float64) float64 {
	wv := make([]float64, len(v))
	aw.Apply(wv, v)
	return floats.Dot(u, wv)
}

// ProductKind is the configuration name of p: euclidean, area or area-lumped.
func ProductKind(p InnerProduct) string {
	switch pt := p.(type) {
	case nil, Euclidean:
		return "euclidean"
	case *AreaWeighted:
		if pt.Lumped {
			return "area-lumped"
		}
		return "area"
	}
	return fmt.Sprintf("%T", p)
}

// NewInnerProduct builds the product named by kind over domain.
func NewInnerProduct(kind string, domain *mesh.TriangleMesh) (InnerProduct, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "euclidean":
		return Euclidean{}, nil
	case "area":
		return NewAreaWeighted(domain, false)
	case "area-lumped", "arealumped":
		return NewAreaWeighted(domain, true)
	}
	return nil, fmt.Errorf("unknown inner product %q", kind)
}
