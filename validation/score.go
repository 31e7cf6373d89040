package validation

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/field"
	"github.com/notargets/gossm/model"
	"github.com/notargets/gossm/types"
)

type ScoreConfig struct {
	Discrepancy types.DiscrepancyType
}

func discrepancy(kind types.DiscrepancyType) func(a, b *field.DeformationField) float64 {
	switch kind {
	case types.MeanSquaredError:
		return field.MeanSquaredError
	default:
		return field.MeanDistance
	}
}

// ItemScores projects every testing item onto the model and returns the
// discrepancy between each item and its reconstruction. Scoring uses no
// randomness: the same model and collection always give the same values.
func ItemScores(m *model.LowRankModel, testing *data.DataCollection, cfg ScoreConfig) (scores []float64, err error) {
	if testing.Size() == 0 {
		return nil, types.NewInsufficientData("testing items", 1, 0)
	}
	if !testing.Reference.SameTopology(m.Reference) {
		return nil, types.NewDomainMismatch("testing reference vertices",
			m.Reference.NumVertices(), testing.Reference.NumVertices())
	}
	var (
		measure = discrepancy(cfg.Discrepancy)
		f, rec  *field.DeformationField
	)
	scores = make([]float64, testing.Size())
	for i, item := range testing.Items {
		if f = item.Transformation; f.Domain != m.Reference {
			f = f.Rebase(m.Reference)
		}
		if rec, err = m.Project(f); err != nil {
			return nil, fmt.Errorf("testing item %q: %w", item.ID, err)
		}
		scores[i] = measure(rec, f)
	}
	return
}

// Generalization is the mean reconstruction discrepancy over the testing
// items. Lower is better.
func Generalization(m *model.LowRankModel, testing *data.DataCollection, cfg ScoreConfig) (float64, error) {
	scores, err := ItemScores(m, testing, cfg)
	if err != nil {
		return 0, err
	}
	return stat.Mean(scores, nil), nil
}

// Specificity draws n instances from the model and averages, over the
// instances, the discrepancy to the closest training item. Lower means the
// model only generates plausible shapes.
func Specificity(m *model.LowRankModel, training *data.DataCollection, n int, rng *rand.Rand,
	cfg ScoreConfig) (float64, error) {
	if training.Size() == 0 {
		return 0, types.NewInsufficientData("training items", 1, 0)
	}
	if n < 1 {
		return 0, types.NewInsufficientData("specificity samples", 1, n)
	}
	if rng == nil {
		return 0, fmt.Errorf("specificity needs a random source")
	}
	if !training.Reference.SameTopology(m.Reference) {
		return 0, types.NewDomainMismatch("training reference vertices",
			m.Reference.NumVertices(), training.Reference.NumVertices())
	}
	var (
		measure = discrepancy(cfg.Discrepancy)
		items   = make([]*field.DeformationField, training.Size())
		sum     float64
	)
	for i, item := range training.Items {
		if items[i] = item.Transformation; items[i].Domain != m.Reference {
			items[i] = items[i].Rebase(m.Reference)
		}
	}
	for s := 0; s < n; s++ {
		sample := m.Sample(rng)
		best := math.Inf(1)
		for _, f := range items {
			best = math.Min(best, measure(sample, f))
		}
		sum += best
	}
	return sum / float64(n), nil
}

// Compactness is the variance captured by the leading rank directions.
func Compactness(m *model.LowRankModel, rank int) float64 {
	return m.Truncate(rank).TotalVariance()
}
