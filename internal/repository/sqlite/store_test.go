package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/pse-price-backend/internal/models"
)

var base = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	period := "13:45 - 14:00"
	require.NoError(t, s.Insert(context.Background(),
		// complete, older
		models.PriceRecord{DTime: base.Add(-3 * time.Hour), CENCost: f64(420), CORCost: f64(400), CEBPPCost: f64(390)},
		// only cen: counts as "previous" but not complete
		models.PriceRecord{DTime: base.Add(-2 * time.Hour), CENCost: f64(410)},
		// complete, newest complete, with stored period
		models.PriceRecord{DTime: base.Add(-time.Hour), Period: &period, CENCost: f64(500), CORCost: f64(400), CEBPPCost: f64(380), CSDACPLN: f64(470)},
		// forecasts
		models.PriceRecord{DTime: base.Add(15 * time.Minute), CSDACPLN: f64(450)},
		models.PriceRecord{DTime: base.Add(30 * time.Minute), CSDACPLN: f64(460)},
	))
}

func TestLatestComplete(t *testing.T) {
	s := openMemory(t)
	seed(t, s)

	rec, err := s.LatestComplete(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.DTime.Equal(base.Add(-time.Hour)))
	assert.True(t, rec.IsComplete())
	p, ok := rec.StoredPeriod()
	assert.True(t, ok)
	assert.Equal(t, "13:45 - 14:00", p)
}

func TestNextAndLatestForecast(t *testing.T) {
	s := openMemory(t)
	seed(t, s)
	ctx := context.Background()

	next, err := s.NextForecast(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.DTime.Equal(base.Add(15*time.Minute)))

	none, err := s.NextForecast(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, none)

	latest, err := s.LatestForecast(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 460.0, *latest.CSDACPLN)
}

func TestPreviousCompleteChecksOnlyPrimary(t *testing.T) {
	s := openMemory(t)
	seed(t, s)

	prev, err := s.PreviousComplete(context.Background(), base.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, 410.0, *prev.CENCost)
	assert.False(t, prev.IsComplete())
}

func TestEmptyStoreReturnsAbsent(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	rec, err := s.LatestComplete(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = s.LatestForecast(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	recs, err := s.Window(ctx, base.Add(-24*time.Hour), base)
	require.NoError(t, err)
	assert.Empty(t, recs)

	st, err := s.WindowStats(ctx, base.Add(-24*time.Hour), base)
	require.NoError(t, err)
	assert.Zero(t, st.Count)
}

func TestWindowOrderedDescendingAndBounded(t *testing.T) {
	s := openMemory(t)
	seed(t, s)

	recs, err := s.Window(context.Background(), base.Add(-150*time.Minute), base)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].DTime.After(recs[1].DTime))
	for _, r := range recs {
		assert.False(t, r.DTime.Before(base.Add(-150*time.Minute)))
		assert.False(t, r.DTime.After(base))
	}
}

func TestWindowStatsTieBreaksOnMostRecent(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx,
		models.PriceRecord{DTime: base.Add(-4 * time.Hour), CENCost: f64(100)},
		models.PriceRecord{DTime: base.Add(-3 * time.Hour), CENCost: f64(300)},
		models.PriceRecord{DTime: base.Add(-2 * time.Hour), CENCost: f64(100)},
		models.PriceRecord{DTime: base.Add(-time.Hour), CENCost: f64(300)},
		models.PriceRecord{DTime: base.Add(-30 * time.Minute), CSDACPLN: f64(999)},
	))

	st, err := s.WindowStats(ctx, base.Add(-24*time.Hour), base)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 100.0, st.Min)
	assert.Equal(t, 300.0, st.Max)
	assert.InDelta(t, 200.0, st.Avg, 1e-9)
	assert.True(t, st.MinTime.Equal(base.Add(-2*time.Hour)))
	assert.True(t, st.MaxTime.Equal(base.Add(-time.Hour)))
}

func TestInsertReplacesSameTimestamp(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, models.PriceRecord{DTime: base, CSDACPLN: f64(1)}))
	require.NoError(t, s.Insert(ctx, models.PriceRecord{DTime: base, CSDACPLN: f64(2)}))

	rec, err := s.LatestForecast(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *rec.CSDACPLN)
}

func TestPing(t *testing.T) {
	assert.NoError(t, openMemory(t).Ping(context.Background()))
}
