package validation

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/model"
)

// ModelBuilder fits a model to one fold's training data.
type ModelBuilder func(training *data.DataCollection) (*model.LowRankModel, error)

// PCABuilder fits a plain PCA model.
func PCABuilder(cfg model.PCAConfig) ModelBuilder {
	return func(training *data.DataCollection) (*model.LowRankModel, error) {
		return model.BuildPCA(training, cfg)
	}
}

// AugmentedBuilder fits PCA and adds a fixed bias model. The bias is built
// once, before cross validation, so every fold sees the same one.
func AugmentedBuilder(cfg model.PCAConfig, bias *model.LowRankModel) ModelBuilder {
	return func(training *data.DataCollection) (*model.LowRankModel, error) {
		pca, err := model.BuildPCA(training, cfg)
		if err != nil {
			return nil, err
		}
		return model.Augment(pca, bias)
	}
}

type CVConfig struct {
	Score       ScoreConfig
	Parallelism int // Concurrent folds, 0 means GOMAXPROCS
	Logger      *zap.Logger
}

type FoldResult struct {
	Fold       int
	Rank       int
	Score      float64
	ItemScores []float64
	TestingIDs []string
}

type CVReport struct {
	Folds  []FoldResult // Ordered by fold index
	Mean   float64
	StdDev float64
}

// CrossValidate builds and scores every fold concurrently. Folds share no
// mutable state, so the report does not depend on scheduling.
func CrossValidate(ctx context.Context, dc *data.DataCollection, folds []data.Fold, builder ModelBuilder,
	cfg CVConfig) (*CVReport, error) {
	if len(folds) == 0 {
		return nil, fmt.Errorf("cross validation needs at least one fold")
	}
	for i, f := range folds {
		if err := f.Validate(dc.Size()); err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.Parallelism
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}
	var (
		report = &CVReport{Folds: make([]FoldResult, len(folds))}
		eg, gc = errgroup.WithContext(ctx)
	)
	eg.SetLimit(limit)
	for i := range folds {
		i := i
		eg.Go(func() error {
			if err := gc.Err(); err != nil {
				return err
			}
			m, err := builder(folds[i].TrainingData)
			if err != nil {
				return fmt.Errorf("fold %d build: %w", i, err)
			}
			scores, err := ItemScores(m, folds[i].TestingData, cfg.Score)
			if err != nil {
				return fmt.Errorf("fold %d score: %w", i, err)
			}
			res := FoldResult{
				Fold:       i,
				Rank:       m.Rank(),
				Score:      stat.Mean(scores, nil),
				ItemScores: scores,
				TestingIDs: folds[i].TestingData.IDs(),
			}
			report.Folds[i] = res
			logger.Debug("fold scored", zap.Int("fold", i), zap.Int("rank", res.Rank),
				zap.Float64("score", res.Score))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	foldScores := make([]float64, len(folds))
	for i, r := range report.Folds {
		foldScores[i] = r.Score
	}
	if len(foldScores) == 1 {
		report.Mean = foldScores[0]
	} else {
		report.Mean, report.StdDev = stat.MeanStdDev(foldScores, nil)
	}
	logger.Info("cross validation finished",
		zap.Int("folds", len(folds)),
		zap.String("discrepancy", cfg.Score.Discrepancy.String()),
		zap.Float64("mean", report.Mean),
		zap.Float64("stddev", report.StdDev))
	return report, nil
}
