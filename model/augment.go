package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gossm/types"
)

// Augment combines a sample model with an independent zero mean bias model.
// The result has the sample model's mean and the covariance Σ₁ + Σ₂,
// re-orthonormalised through a Gram factorization of the stacked bases.
func Augment(pca, bias *LowRankModel) (*LowRankModel, error) {
	if !pca.Reference.SameTopology(bias.Reference) {
		return nil, types.NewDomainMismatch("bias model vertices",
			pca.Reference.NumVertices(), bias.Reference.NumVertices())
	}
	d := pca.Dim()
	q := pca.Rank() + bias.Rank()
	if q == 0 {
		return &LowRankModel{Reference: pca.Reference, Mean: pca.Mean, Product: pca.Product}, nil
	}
	B := mat.NewDense(d, q, nil)
	if F := pca.Factor(); F != nil {
		B.Slice(0, d, 0, pca.Rank()).(*mat.Dense).Copy(F)
	}
	if F := bias.Factor(); F != nil {
		B.Slice(0, d, pca.Rank(), q).(*mat.Dense).Copy(F)
	}
	return FromFactor(pca.Reference, pca.Mean, B, pca.Product, DefaultRelativeTolerance)
}
