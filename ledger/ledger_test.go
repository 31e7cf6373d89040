package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gossm/validation"
)

func TestLedger(t *testing.T) {
	var (
		ctx  = context.Background()
		path = filepath.Join(t.TempDir(), "runs.db")
	)
	l, err := Open(path)
	require.NoError(t, err)

	report := &validation.CVReport{
		Folds: []validation.FoldResult{
			{Fold: 0, Rank: 3, Score: 0.25, ItemScores: []float64{0.2, 0.3}, TestingIDs: []string{"a", "b"}},
			{Fold: 1, Rank: 3, Score: 0.5, ItemScores: []float64{0.5}, TestingIDs: []string{"c"}},
		},
		Mean:   0.375,
		StdDev: 0.17677669529663687,
	}
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := l.RecordRun(ctx, Run{Name: "pca", Started: started, Items: 3, Discrepancy: "AverageDistance",
		Params: "Folds: 2\n"}, report)
	require.NoError(t, err)
	id2, err := l.RecordRun(ctx, Run{Name: "augmented", Items: 3, Discrepancy: "AverageDistance"}, report)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
	require.NoError(t, l.Close())

	// Reopening keeps the history
	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "pca", runs[0].Name)
	assert.True(t, started.Equal(runs[0].Started))
	assert.Equal(t, 2, runs[0].Folds)
	assert.Equal(t, "Folds: 2\n", runs[0].Params)
	assert.Equal(t, 0.375, runs[0].Mean)
	assert.Equal(t, "", runs[1].Params)

	folds, err := l.FoldScores(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, report.Folds, folds)

	none, err := l.FoldScores(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = New(nil)
	assert.Error(t, err)
}
