package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestIsNan(t *testing.T) {
	assert.False(t, IsNan(1.))
	assert.True(t, IsNan(math.NaN()))
	assert.True(t, IsNan([]float64{0, math.NaN()}))
	assert.False(t, IsNan(mat.NewSymDense(2, []float64{1, 2, 2, 1})))
	assert.True(t, IsNan(mat.NewSymDense(2, []float64{1, math.NaN(), math.NaN(), 1})))
	assert.True(t, IsNan(mat.NewDense(1, 2, []float64{0, math.NaN()})))
	assert.False(t, IsNan(mat.NewVecDense(2, []float64{0, 1})))
	assert.Contains(t, GetMemUsage(), "MiB")
}
