// Package pricing reconciles the slow tariff series and the fast CSDAC
// forecast series into a single current-price view, and serves it through
// a read-through cache.
package pricing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kjannette/pse-price-backend/internal/clock"
	"github.com/kjannette/pse-price-backend/internal/models"
)

// ForecastLead skips the forecast period currently elapsing: CSDAC is
// published ahead, so the next period is the relevant one.
const ForecastLead = time.Minute

// Engine is stateless; it owns no data between calls.
type Engine struct {
	store Store
	clock *clock.Resolver
}

func NewEngine(store Store, clk *clock.Resolver) *Engine {
	return &Engine{store: store, clock: clk}
}

// Current builds the current-price view as of now. It returns ErrNotFound
// when neither a complete record nor any forecast exists.
func (e *Engine) Current(ctx context.Context, now time.Time) (*models.CurrentPrice, error) {
	var (
		complete *models.PriceRecord
		previous *models.PriceRecord
		forecast *models.PriceRecord
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := e.store.LatestComplete(gctx)
		if err != nil {
			return fmt.Errorf("latest complete: %w", err)
		}
		if rec == nil {
			return nil
		}
		complete = rec

		prev, err := e.store.PreviousComplete(gctx, rec.DTime)
		if err != nil {
			return fmt.Errorf("previous complete: %w", err)
		}
		previous = prev
		return nil
	})

	g.Go(func() error {
		rec, err := e.store.NextForecast(gctx, now.Add(ForecastLead))
		if err != nil {
			return fmt.Errorf("next forecast: %w", err)
		}
		if rec == nil {
			rec, err = e.store.LatestForecast(gctx)
			if err != nil {
				return fmt.Errorf("latest forecast: %w", err)
			}
		}
		forecast = rec
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if complete == nil && forecast == nil {
		return nil, ErrNotFound
	}

	view := &models.CurrentPrice{}
	if complete != nil {
		ts := complete.DTime
		view.DTime = &ts
		view.Period = e.period(complete)
		view.CENCost = complete.CENCost
		view.CORCost = complete.CORCost
		view.CEBPPCost = complete.CEBPPCost
		view.CENChange = PercentChange(complete, previous)
	}
	if forecast != nil {
		ts := forecast.DTime
		view.CSDACDTime = &ts
		view.CSDACPeriod = e.period(forecast)
		view.CSDACPLN = forecast.CSDACPLN
	}
	return view, nil
}

// History returns the records of the trailing window ending at now, newest
// first.
func (e *Engine) History(ctx context.Context, now time.Time, window time.Duration) ([]models.PriceRecord, error) {
	recs, err := e.store.Window(ctx, now.Add(-window), now)
	if err != nil {
		return nil, fmt.Errorf("history window: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs, nil
}

// Stats aggregates cen_cost over the trailing window ending at now.
func (e *Engine) Stats(ctx context.Context, now time.Time, window time.Duration) (*models.Stats, error) {
	st, err := e.store.WindowStats(ctx, now.Add(-window), now)
	if err != nil {
		return nil, fmt.Errorf("stats window: %w", err)
	}
	if st == nil || st.Count == 0 {
		return nil, ErrNotFound
	}
	st.WindowHours = int(window / time.Hour)
	st.Timestamp = now
	return st, nil
}

func (e *Engine) period(rec *models.PriceRecord) *string {
	if p, ok := rec.StoredPeriod(); ok {
		return &p
	}
	label := e.clock.PeriodLabel(rec.DTime)
	return &label
}

// PercentChange compares cur's cen_cost with prev's. It is 0 when either
// value is missing or prev is zero.
func PercentChange(cur, prev *models.PriceRecord) float64 {
	if cur == nil || cur.CENCost == nil || prev == nil || prev.CENCost == nil || *prev.CENCost == 0 {
		return 0
	}
	c, p := *cur.CENCost, *prev.CENCost
	return (c - p) / p * 100
}
