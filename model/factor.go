package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/types"
	"github.com/notargets/gossm/utils"
)

// DefaultRelativeTolerance drops directions whose variance is below this
// fraction of the largest one.
const DefaultRelativeTolerance = 1e-10

// FromFactor builds the model with covariance B Bᵀ. B is d×q with flattened
// fields as columns. The q×q Gram matrix BᵀWB is factored instead of the d×d
// covariance; every kept eigenpair (λ, w) gives the W-orthonormal direction
// B w / √λ with variance λ. Round-off negatives are clamped to zero.
func FromFactor(reference *mesh.TriangleMesh, mean *field.DeformationField, B *mat.Dense,
	product field.InnerProduct, relTol float64) (*LowRankModel, error) {
	if product == nil {
		product = field.Euclidean{}
	}
	if err := mean.DefinedOn(reference); err != nil {
		return nil, err
	}
	d, q := B.Dims()
	if d != 3*reference.NumVertices() {
		return nil, types.NewDomainMismatch("factor rows", 3*reference.NumVertices(), d)
	}
	m := &LowRankModel{Reference: reference, Mean: mean, Product: product}
	if q == 0 {
		return m, nil
	}
	var (
		WB  = mat.NewDense(d, q, nil)
		col = make([]float64, d)
		dst = make([]float64, d)
		G   mat.Dense
	)
	for j := 0; j < q; j++ {
		mat.Col(col, j, B)
		product.Apply(dst, col)
		WB.SetCol(j, dst)
	}
	G.Mul(B.T(), WB)
	if utils.IsNan(&G) {
		return nil, fmt.Errorf("factor gram matrix: %w", types.ErrNotFinite)
	}
	values, vectors, err := utils.SymEigenDescending(utils.Symmetrize(&G))
	if err != nil {
		return nil, fmt.Errorf("factor gram matrix: %w", err)
	}
	rank := utils.NumericalRank(values, relTol)
	if rank > d {
		rank = d
	}
	m.Basis = make([]BasisElement, rank)
	var u mat.VecDense
	for k := 0; k < rank; k++ {
		u.MulVec(B, vectors.ColView(k))
		u.ScaleVec(1/math.Sqrt(values[k]), &u)
		ev, err := field.FromFlat(reference, u.RawVector().Data)
		if err != nil {
			return nil, err
		}
		m.Basis[k] = BasisElement{Eigenvector: ev, Variance: values[k]}
	}
	return m, nil
}

// fromCovariance factors the d×d covariance B Bᵀ directly. It is used when
// there are more samples than degrees of freedom and the product is
// Euclidean.
func fromCovariance(reference *mesh.TriangleMesh, mean *field.DeformationField, B *mat.Dense,
	relTol float64) (*LowRankModel, error) {
	var C mat.SymDense
	C.SymOuterK(1, B)
	if utils.IsNan(&C) {
		return nil, fmt.Errorf("factor covariance: %w", types.ErrNotFinite)
	}
	values, vectors, err := utils.SymEigenDescending(&C)
	if err != nil {
		return nil, fmt.Errorf("factor covariance: %w", err)
	}
	var (
		rank = utils.NumericalRank(values, relTol)
		m    = &LowRankModel{Reference: reference, Mean: mean, Product: field.Euclidean{},
			Basis: make([]BasisElement, rank)}
		d, _ = B.Dims()
		col  = make([]float64, d)
	)
	for k := 0; k < rank; k++ {
		mat.Col(col, k, vectors)
		ev, err := field.FromFlat(reference, append([]float64(nil), col...))
		if err != nil {
			return nil, err
		}
		m.Basis[k] = BasisElement{Eigenvector: ev, Variance: values[k]}
	}
	return m, nil
}

// Factor returns the d×r matrix with columns √λₖ uₖ, so that Factor·Factorᵀ
// is the model covariance.
func (m *LowRankModel) Factor() *mat.Dense {
	if m.Rank() == 0 {
		return nil
	}
	F := mat.NewDense(m.Dim(), m.Rank(), nil)
	for k, b := range m.Basis {
		col := b.Eigenvector.Flatten()
		s := math.Sqrt(b.Variance)
		for i := range col {
			col[i] *= s
		}
		F.SetCol(k, col)
	}
	return F
}
