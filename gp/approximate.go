package gp

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/geometry"
	"github.com/notargets/gossm/mesh"
	"github.com/notargets/gossm/model"
	"github.com/notargets/gossm/types"
	"github.com/notargets/gossm/utils"
)

type Config struct {
	Product           field.InnerProduct // nil means Euclidean
	RelativeTolerance float64            // 0 means model.DefaultRelativeTolerance
	Parallelism       int                // 0 means GOMAXPROCS
	Logger            *zap.Logger
}

// LowRankGP is a zero mean Gaussian process truncated to rank r. The sample
// points and Gram eigenpairs are fixed at construction so that everything
// derived from it is reproducible without touching a random source again.
type LowRankGP struct {
	Kernel           MatrixValuedKernel
	SamplePoints     []geometry.Point3
	GramEigenvalues  []float64  // descending, clamped at zero
	GramEigenvectors *mat.Dense // 3m×r
	Model            *model.LowRankModel
}

func (g *LowRankGP) Rank() int { return len(g.GramEigenvalues) }

// EvaluateEigenfunction is the Nyström extension of the i-th Gram
// eigenvector, K(x, X) vᵢ / √λᵢ. Summing φᵢ(x)φᵢ(y)ᵀ over i recovers the
// kernel at the sample points.
func (g *LowRankGP) EvaluateEigenfunction(i int, x geometry.Point3) geometry.Vector3 {
	return g.eigenfunction(i, g.kernelRow(x))
}

func (g *LowRankGP) kernelRow(x geometry.Point3) (row []geometry.Mat3) {
	row = make([]geometry.Mat3, len(g.SamplePoints))
	for j, xj := range g.SamplePoints {
		row[j] = g.Kernel.Eval(x, xj)
	}
	return
}

func (g *LowRankGP) eigenfunction(i int, row []geometry.Mat3) (v geometry.Vector3) {
	if g.GramEigenvalues[i] <= 0 {
		return
	}
	for j, K := range row {
		w := geometry.Vector3{
			g.GramEigenvectors.At(3*j, i),
			g.GramEigenvectors.At(3*j+1, i),
			g.GramEigenvectors.At(3*j+2, i),
		}
		v = v.Add(K.MulVec(w))
	}
	return v.Scale(1 / math.Sqrt(g.GramEigenvalues[i]))
}

// Approximate samples the domain once with rng, factors the 3m×3m kernel
// Gram matrix at the samples, keeps the leading rank eigenpairs and extends
// them over every vertex of domain. The discrete model is orthonormalised
// under cfg.Product.
func Approximate(domain *mesh.TriangleMesh, kernel MatrixValuedKernel, sampler Sampler, rank int,
	rng *rand.Rand, cfg Config) (*LowRankGP, error) {
	if rank < 1 {
		return nil, fmt.Errorf("gp approximation rank must be positive, got %d", rank)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	relTol := cfg.RelativeTolerance
	if relTol <= 0 {
		relTol = model.DefaultRelativeTolerance
	}
	points, err := sampler.Sample(domain, rng)
	if err != nil {
		return nil, err
	}
	m := len(points)
	if m < 1 {
		return nil, types.NewInsufficientData("gp sample points", 1, m)
	}

	K := mat.NewSymDense(3*m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			block := kernel.Eval(points[i], points[j])
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					if i == j && b < a {
						continue
					}
					K.SetSym(3*i+a, 3*j+b, block[a][b])
				}
			}
		}
	}
	if utils.IsNan(K) {
		return nil, fmt.Errorf("gp gram matrix: %w", types.ErrNotFinite)
	}
	values, vectors, err := utils.SymEigenDescending(K)
	if err != nil {
		return nil, fmt.Errorf("gp gram matrix: %w", err)
	}
	r := utils.NumericalRank(values, relTol)
	if r > rank {
		r = rank
	}
	if r == 0 {
		logger.Warn("gp kernel has no variance at the sample points", zap.Int("samples", m))
		return &LowRankGP{
			Kernel:       kernel,
			SamplePoints: points,
			Model:        &model.LowRankModel{Reference: domain, Mean: field.Zero(domain), Product: cfg.Product},
		}, nil
	}
	g := &LowRankGP{
		Kernel:           kernel,
		SamplePoints:     points,
		GramEigenvalues:  append([]float64(nil), values[:r]...),
		GramEigenvectors: mat.DenseCopyOf(vectors.Slice(0, 3*m, 0, r)),
	}

	B, err := g.extend(domain, cfg.Parallelism)
	if err != nil {
		return nil, err
	}
	if g.Model, err = model.FromFactor(domain, field.Zero(domain), B, cfg.Product, relTol); err != nil {
		return nil, err
	}
	logger.Info("gp approximation built",
		zap.Int("samples", m),
		zap.Int("gram_rank", r),
		zap.Int("model_rank", g.Model.Rank()),
		zap.Float64("leading_variance", values[0]))
	return g, nil
}

// extend evaluates every eigenfunction at every vertex. Vertex buckets are
// filled concurrently; each goroutine owns a disjoint block of rows.
func (g *LowRankGP) extend(domain *mesh.TriangleMesh, parallelism int) (*mat.Dense, error) {
	var (
		nv = domain.NumVertices()
		B  = mat.NewDense(3*nv, g.Rank(), nil)
	)
	if nv == 0 {
		return nil, types.NewInsufficientData("gp domain vertices", 1, 0)
	}
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism > nv {
		parallelism = nv
	}
	pm := utils.NewPartitionMap(parallelism, nv)
	var eg errgroup.Group
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		eg.Go(func() error {
			for p := kMin; p < kMax; p++ {
				row := g.kernelRow(domain.Vertices[p])
				for i := 0; i < g.Rank(); i++ {
					v := g.eigenfunction(i, row)
					for a := 0; a < 3; a++ {
						B.Set(3*p+a, i, v[a])
					}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return B, nil
}
