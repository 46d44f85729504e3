package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/pse-price-backend/internal/models"
)

// Numeric columns are cast so they scan straight into *float64.
const priceColumns = `dtime, period, cen_cost::float8, csdac_pln::float8, cor_cost::float8,
	ceb_pp_cost::float8, ceb_sr_cost::float8, balance::float8, balance_power::float8`

// PriceRepo reads pse_energy_prices. It is populated by the ingestion
// workflow; nothing here writes.
type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

func (r *PriceRepo) LatestComplete(ctx context.Context) (*models.PriceRecord, error) {
	return r.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE cen_cost IS NOT NULL
		   AND cor_cost IS NOT NULL
		   AND ceb_pp_cost IS NOT NULL
		 ORDER BY dtime DESC
		 LIMIT 1`,
	)
}

func (r *PriceRepo) NextForecast(ctx context.Context, from time.Time) (*models.PriceRecord, error) {
	return r.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE csdac_pln IS NOT NULL AND dtime >= $1
		 ORDER BY dtime ASC
		 LIMIT 1`,
		from,
	)
}

func (r *PriceRepo) LatestForecast(ctx context.Context) (*models.PriceRecord, error) {
	return r.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE csdac_pln IS NOT NULL
		 ORDER BY dtime DESC
		 LIMIT 1`,
	)
}

func (r *PriceRepo) PreviousComplete(ctx context.Context, before time.Time) (*models.PriceRecord, error) {
	return r.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE dtime < $1 AND cen_cost IS NOT NULL
		 ORDER BY dtime DESC
		 LIMIT 1`,
		before,
	)
}

func (r *PriceRepo) Window(ctx context.Context, from, to time.Time) ([]models.PriceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE dtime >= $1 AND dtime <= $2
		 ORDER BY dtime DESC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPrices(rows)
}

// WindowStats picks the most recent timestamp when an extreme repeats.
func (r *PriceRepo) WindowStats(ctx context.Context, from, to time.Time) (*models.Stats, error) {
	var (
		s                models.Stats
		minV, maxV, avgV *float64
		minT, maxT       *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`WITH w AS (
			SELECT dtime, cen_cost FROM pse_energy_prices
			WHERE dtime >= $1 AND dtime <= $2 AND cen_cost IS NOT NULL
		)
		SELECT
			COUNT(*),
			MIN(cen_cost)::float8,
			MAX(cen_cost)::float8,
			AVG(cen_cost)::float8,
			(SELECT dtime FROM w WHERE cen_cost = (SELECT MIN(cen_cost) FROM w) ORDER BY dtime DESC LIMIT 1),
			(SELECT dtime FROM w WHERE cen_cost = (SELECT MAX(cen_cost) FROM w) ORDER BY dtime DESC LIMIT 1)
		FROM w`,
		from, to,
	).Scan(&s.Count, &minV, &maxV, &avgV, &minT, &maxT)
	if err != nil {
		return nil, err
	}
	if s.Count == 0 {
		return &s, nil
	}
	s.Min, s.Max, s.Avg = deref(minV), deref(maxV), deref(avgV)
	if minT != nil {
		s.MinTime = *minT
	}
	if maxT != nil {
		s.MaxTime = *maxT
	}
	return &s, nil
}

func (r *PriceRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PriceRepo) one(ctx context.Context, query string, args ...any) (*models.PriceRecord, error) {
	p, err := scanPrice(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanPrice(row scannable) (*models.PriceRecord, error) {
	var p models.PriceRecord
	err := row.Scan(
		&p.DTime, &p.Period, &p.CENCost, &p.CSDACPLN, &p.CORCost,
		&p.CEBPPCost, &p.CEBSRCost, &p.Balance, &p.BalancePower,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectPrices(rows rowsIter) ([]models.PriceRecord, error) {
	var out []models.PriceRecord
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
