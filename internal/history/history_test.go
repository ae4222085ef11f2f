package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/triage/internal/engine/metrics"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		id, err := s.Record(ctx, Run{
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			TrainPath:  "Data/issues_train.tsv",
			TestPath:   "Data/issues_test.tsv",
			ModelPath:  "Models/model.bin",
			Seed:       int64(i),
			Metrics: metrics.Metrics{
				MicroAccuracy: 0.5 + float64(i)/10,
				LogLoss:       1.25,
				TopK:          3,
				Rows:          10,
				Skipped:       i,
			},
			Prediction: "area-System.Data",
		})
		require.NoError(t, err)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, int64(2), runs[0].Seed)
	assert.Equal(t, int64(1), runs[1].Seed)
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))
	assert.InDelta(t, 0.7, runs[0].Metrics.MicroAccuracy, 1e-9)
	assert.Equal(t, 2, runs[0].Metrics.Skipped)
	assert.Equal(t, 3, runs[0].Metrics.TopK)
	assert.Equal(t, "area-System.Data", runs[0].Prediction)
}

func TestRecordKeepsExplicitID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now()

	id, err := s.Record(ctx, Run{ID: "fixed", StartedAt: now, FinishedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)

	_, err = s.Record(ctx, Run{ID: "fixed", StartedAt: now, FinishedAt: now})
	assert.Error(t, err, "duplicate id")
}

func TestRecentEmpty(t *testing.T) {
	runs, err := openStore(t).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
