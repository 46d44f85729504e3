package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/kjannette/pse-price-backend/internal/models"
)

// ErrNotFound means the query legitimately matched no rows. It is a
// reportable outcome, not a failure of the store.
var ErrNotFound = errors.New("no data available")

// Store is the read-only query surface over pse_energy_prices. Single-row
// lookups return (nil, nil) when nothing matches.
type Store interface {
	// LatestComplete returns the newest record with cen, cor and ceb_pp set.
	LatestComplete(ctx context.Context) (*models.PriceRecord, error)
	// NextForecast returns the earliest forecast-bearing record at or after from.
	NextForecast(ctx context.Context, from time.Time) (*models.PriceRecord, error)
	// LatestForecast returns the newest forecast-bearing record.
	LatestForecast(ctx context.Context) (*models.PriceRecord, error)
	// PreviousComplete returns the newest record strictly before `before` with a
	// non-null cen_cost. The other components are not checked.
	PreviousComplete(ctx context.Context, before time.Time) (*models.PriceRecord, error)
	// Window returns records with from <= dtime <= to, newest first.
	Window(ctx context.Context, from, to time.Time) ([]models.PriceRecord, error)
	// WindowStats aggregates non-null cen_cost over from <= dtime <= to.
	// Count is zero when the window holds no values.
	WindowStats(ctx context.Context, from, to time.Time) (*models.Stats, error)
	Ping(ctx context.Context) error
}
