package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
)

// BasisElement is one principal direction with its variance.
type BasisElement struct {
	Eigenvector *field.DeformationField
	Variance    float64
}

// LowRankModel is a Gaussian over deformation fields: a mean plus a basis of
// directions orthonormal under Product, ordered by descending variance.
type LowRankModel struct {
	Reference *mesh.TriangleMesh
	Mean      *field.DeformationField
	Basis     []BasisElement
	Product   field.InnerProduct
}

func (m *LowRankModel) product() field.InnerProduct {
	if m.Product == nil {
		return field.Euclidean{}
	}
	return m.Product
}

func (m *LowRankModel) Rank() int { return len(m.Basis) }

// Dim is the number of degrees of freedom of the domain, 3 per vertex.
func (m *LowRankModel) Dim() int { return 3 * m.Reference.NumVertices() }

func (m *LowRankModel) Variances() (variances []float64) {
	variances = make([]float64, len(m.Basis))
	for k, b := range m.Basis {
		variances[k] = b.Variance
	}
	return
}

// Instance returns mean + Σ αₖ √λₖ uₖ for standard normal coordinates α.
func (m *LowRankModel) Instance(coefficients []float64) (*field.DeformationField, error) {
	if len(coefficients) != m.Rank() {
		return nil, types.NewDomainMismatch("model coefficients", m.Rank(), len(coefficients))
	}
	out := m.Mean.Flatten()
	for k, b := range m.Basis {
		floats.AddScaled(out, coefficients[k]*math.Sqrt(b.Variance), b.Eigenvector.Flatten())
	}
	return field.FromFlat(m.Reference, out)
}

// Coefficients projects f onto the basis, returning standard normal
// coordinates. Directions with zero variance get a zero coordinate.
func (m *LowRankModel) Coefficients(f *field.DeformationField) ([]float64, error) {
	if err := f.DefinedOn(m.Reference); err != nil {
		return nil, err
	}
	var (
		residual = f.Flatten()
		weighted = make([]float64, len(residual))
		alpha    = make([]float64, m.Rank())
	)
	floats.Sub(residual, m.Mean.Flatten())
	m.product().Apply(weighted, residual)
	for k, b := range m.Basis {
		if b.Variance <= 0 {
			continue
		}
		alpha[k] = floats.Dot(weighted, b.Eigenvector.Flatten()) / math.Sqrt(b.Variance)
	}
	return alpha, nil
}

// Project returns the closest field in the model span, in the model's norm.
func (m *LowRankModel) Project(f *field.DeformationField) (*field.DeformationField, error) {
	alpha, err := m.Coefficients(f)
	if err != nil {
		return nil, err
	}
	return m.Instance(alpha)
}

// Reconstruct projects a shape in correspondence with the reference and
// returns the reconstructed shape.
func (m *LowRankModel) Reconstruct(shape *mesh.TriangleMesh) (*mesh.TriangleMesh, error) {
	f, err := field.FromMeshes(m.Reference, shape)
	if err != nil {
		return nil, err
	}
	p, err := m.Project(f)
	if err != nil {
		return nil, err
	}
	return p.Warp(shape.Name), nil
}

// Sample draws a random instance. rng is the only source of randomness.
func (m *LowRankModel) Sample(rng *rand.Rand) *field.DeformationField {
	alpha := make([]float64, m.Rank())
	for k := range alpha {
		alpha[k] = rng.NormFloat64()
	}
	f, _ := m.Instance(alpha)
	return f
}

// Truncate keeps the leading rank directions. The basis is shared.
func (m *LowRankModel) Truncate(rank int) *LowRankModel {
	if rank < 0 {
		rank = 0
	}
	if rank > m.Rank() {
		rank = m.Rank()
	}
	return &LowRankModel{Reference: m.Reference, Mean: m.Mean, Basis: m.Basis[:rank:rank], Product: m.Product}
}

func (m *LowRankModel) TotalVariance() float64 {
	return floats.Sum(m.Variances())
}

// VarianceExplained returns the cumulative fraction of the total variance
// captured by the leading k+1 directions, for every k.
func (m *LowRankModel) VarianceExplained() (cumulative []float64) {
	cumulative = m.Variances()
	floats.CumSum(cumulative, cumulative)
	if total := m.TotalVariance(); total > 0 {
		floats.Scale(1/total, cumulative)
	}
	return
}

// CheckOrthonormal verifies ⟨uᵢ, uⱼ⟩ = δᵢⱼ within tol and that variances are
// non-negative.
func (m *LowRankModel) CheckOrthonormal(tol float64) error {
	var (
		p    = m.product()
		flat = make([][]float64, m.Rank())
	)
	for k, b := range m.Basis {
		if b.Variance < 0 {
			return fmt.Errorf("basis %d has negative variance %g", k, b.Variance)
		}
		flat[k] = b.Eigenvector.Flatten()
	}
	for i := range flat {
		for j := i; j < len(flat); j++ {
			want := 0.
			if i == j {
				want = 1
			}
			if got := p.Dot(flat[i], flat[j]); math.Abs(got-want) > tol {
				return fmt.Errorf("basis not orthonormal: <u%d, u%d> = %g", i, j, got)
			}
		}
	}
	return nil
}
