package utils

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// SymEigenDescending factors the symmetric matrix S and returns its
// eigenvalues in descending order with the matching eigenvectors as columns.
// Negative eigenvalues are round-off on a PSD input and are clamped to zero.
func SymEigenDescending(S mat.Symmetric) (values []float64, vectors *mat.Dense, err error) {
	var (
		eigen mat.EigenSym
		raw   mat.Dense
		n     = S.SymmetricDim()
	)
	if n == 0 {
		return nil, nil, fmt.Errorf("eigendecomposition of an empty matrix")
	}
	if ok := eigen.Factorize(S, true); !ok {
		return nil, nil, fmt.Errorf("symmetric eigendecomposition failed to converge (dim %d)", n)
	}
	rawValues := eigen.Values(nil)
	eigen.VectorsTo(&raw)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// gonum returns ascending values; stable sort keeps ties deterministic
	sort.SliceStable(order, func(a, b int) bool {
		return rawValues[order[a]] > rawValues[order[b]]
	})
	values = make([]float64, n)
	vectors = mat.NewDense(n, n, nil)
	for j, idx := range order {
		values[j] = ClampNonNegative(rawValues[idx])
		for i := 0; i < n; i++ {
			vectors.Set(i, j, raw.At(i, idx))
		}
	}
	return
}

// NumericalRank counts the leading descending values above relTol times the
// largest value.
func NumericalRank(descending []float64, relTol float64) (rank int) {
	if len(descending) == 0 || descending[0] <= 0 {
		return 0
	}
	cutoff := relTol * descending[0]
	for _, v := range descending {
		if v <= cutoff {
			break
		}
		rank++
	}
	return
}

// Symmetrize returns (G + Gᵀ)/2 as a SymDense. G must be square.
func Symmetrize(G mat.Matrix) (S *mat.SymDense) {
	nr, nc := G.Dims()
	if nr != nc {
		panic(fmt.Errorf("symmetrize: non-square matrix %dx%d", nr, nc))
	}
	S = mat.NewSymDense(nr, nil)
	for i := 0; i < nr; i++ {
		for j := i; j < nr; j++ {
			S.SetSym(i, j, 0.5*(G.At(i, j)+G.At(j, i)))
		}
	}
	return
}

func ClampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// SingularValues returns the extreme singular values of M, useful for checking
// the conditioning of a Gram matrix before factoring it.
func SingularValues(M mat.Matrix) (min, max float64) {
	var svd mat.SVD
	if !svd.Factorize(M, mat.SVDNone) {
		return 0, 1e16
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0, 1e16
	}
	return values[len(values)-1], values[0]
}
