package gp

import (
	"fmt"
	"math"

	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/types"
)

// ScalarKernel is a symmetric positive semi-definite covariance function.
type ScalarKernel interface {
	Eval(x, y geometry.Point3) float64
}

// MatrixValuedKernel is the covariance between the 3-vector values of a
// field at two points.
type MatrixValuedKernel interface {
	Eval(x, y geometry.Point3) geometry.Mat3
}

// GaussianKernel is exp(-|x-y|²/σ²).
type GaussianKernel struct {
	Sigma float64
}

func (k GaussianKernel) Eval(x, y geometry.Point3) float64 {
	return math.Exp(-x.Distance2(y) / (k.Sigma * k.Sigma))
}

// ExponentialKernel is exp(-|x-y|/σ), rougher than the Gaussian.
type ExponentialKernel struct {
	Sigma float64
}

func (k ExponentialKernel) Eval(x, y geometry.Point3) float64 {
	return math.Exp(-x.Distance(y) / k.Sigma)
}

type ScaledKernel struct {
	Factor float64
	Kernel ScalarKernel
}

func (k ScaledKernel) Eval(x, y geometry.Point3) float64 { return k.Factor * k.Kernel.Eval(x, y) }

type SumKernel []ScalarKernel

func (k SumKernel) Eval(x, y geometry.Point3) (s float64) {
	for _, kk := range k {
		s += kk.Eval(x, y)
	}
	return
}

// DiagonalKernel uses the same scalar kernel for each component, without
// cross-covariance between components.
type DiagonalKernel struct {
	Kernel ScalarKernel
}

func (k DiagonalKernel) Eval(x, y geometry.Point3) geometry.Mat3 {
	return geometry.Identity3().Scale(k.Kernel.Eval(x, y))
}

// AnisotropicDiagonalKernel has one scalar kernel per axis.
type AnisotropicDiagonalKernel [3]ScalarKernel

func (k AnisotropicDiagonalKernel) Eval(x, y geometry.Point3) (m geometry.Mat3) {
	for d := 0; d < 3; d++ {
		m[d][d] = k[d].Eval(x, y)
	}
	return
}

type SumMatrixKernel []MatrixValuedKernel

func (k SumMatrixKernel) Eval(x, y geometry.Point3) (m geometry.Mat3) {
	for _, kk := range k {
		m = m.Add(kk.Eval(x, y))
	}
	return
}

// NewKernel builds the diagonal kernel scale·k_σ for a named scalar kernel.
func NewKernel(kind types.KernelType, sigma, scale float64) (MatrixValuedKernel, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("kernel width must be positive, got %g", sigma)
	}
	if scale < 0 {
		return nil, fmt.Errorf("kernel scale must be non-negative, got %g", scale)
	}
	var base ScalarKernel
	switch kind {
	case types.Gaussian:
		base = GaussianKernel{Sigma: sigma}
	case types.Exponential:
		base = ExponentialKernel{Sigma: sigma}
	default:
		return nil, fmt.Errorf("unsupported kernel %v", kind)
	}
	return DiagonalKernel{Kernel: ScaledKernel{Factor: scale, Kernel: base}}, nil
}
