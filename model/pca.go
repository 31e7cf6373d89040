package model

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/types"
	"github.com/notargets/gossm/utils"
)

type PCAConfig struct {
	Product           field.InnerProduct // nil means Euclidean
	MaxRank           int                // 0 keeps every direction with non-zero variance
	RelativeTolerance float64            // 0 means DefaultRelativeTolerance
	Logger            *zap.Logger
}

// BuildPCA computes the mean and principal directions of the collection's
// fields. The rank is at most n-1 for n items.
func BuildPCA(dc *data.DataCollection, cfg PCAConfig) (*LowRankModel, error) {
	n := dc.Size()
	if n < 2 {
		return nil, types.NewInsufficientData("pca items", 2, n)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	relTol := cfg.RelativeTolerance
	if relTol <= 0 {
		relTol = DefaultRelativeTolerance
	}
	product := cfg.Product
	if product == nil {
		product = field.Euclidean{}
	}
	mean, err := dc.MeanField()
	if err != nil {
		return nil, err
	}
	var (
		d        = 3 * dc.Reference.NumVertices()
		B        = mat.NewDense(d, n, nil)
		meanFlat = mean.Flatten()
		col      = make([]float64, d)
		norm     = 1 / math.Sqrt(float64(n-1))
	)
	for i, item := range dc.Items {
		item.Transformation.FlattenTo(col)
		for r := range col {
			col[r] = (col[r] - meanFlat[r]) * norm
		}
		B.SetCol(i, col)
	}

	if ce := logger.Check(zap.DebugLevel, "pca factor conditioning"); ce != nil {
		smin, smax := utils.SingularValues(B)
		ce.Write(zap.Float64("min_singular", smin), zap.Float64("max_singular", smax))
	}

	var m *LowRankModel
	_, euclidean := product.(field.Euclidean)
	if n > d && euclidean {
		logger.Debug("pca via covariance", zap.Int("items", n), zap.Int("dof", d))
		m, err = fromCovariance(dc.Reference, mean, B, relTol)
	} else {
		logger.Debug("pca via gram matrix", zap.Int("items", n), zap.Int("dof", d))
		m, err = FromFactor(dc.Reference, mean, B, product, relTol)
	}
	if err != nil {
		return nil, err
	}
	rank := m.Rank()
	if rank > n-1 {
		rank = n - 1
	}
	if cfg.MaxRank > 0 && rank > cfg.MaxRank {
		rank = cfg.MaxRank
	}
	m = m.Truncate(rank)
	logger.Info("pca model built",
		zap.Int("items", n),
		zap.Int("rank", m.Rank()),
		zap.String("product", field.ProductKind(product)),
		zap.Float64("total_variance", m.TotalVariance()))
	return m, nil
}
