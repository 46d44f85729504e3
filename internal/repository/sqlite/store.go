// Package sqlite is a file-backed gateway over the same pse_energy_prices
// layout, for single-node deployments and tests. Timestamps are stored as
// unix milliseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kjannette/pse-price-backend/internal/models"
)

const MemoryPath = ":memory:"

const priceColumns = `dtime, period, cen_cost, csdac_pln, cor_cost, ceb_pp_cost, ceb_sr_cost, balance, balance_power`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. MemoryPath gives a private in-memory database pinned to a
// single connection.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	if path == MemoryPath {
		dsn = MemoryPath
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite store opened", slog.String("component", "sqlite"), slog.String("path", path))
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pse_energy_prices (
			dtime         INTEGER NOT NULL PRIMARY KEY,
			period        TEXT,
			cen_cost      REAL,
			csdac_pln     REAL,
			cor_cost      REAL,
			ceb_pp_cost   REAL,
			ceb_sr_cost   REAL,
			balance       REAL,
			balance_power REAL
		);
		CREATE INDEX IF NOT EXISTS idx_pse_energy_prices_dtime
			ON pse_energy_prices(dtime DESC);
	`)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LatestComplete(ctx context.Context) (*models.PriceRecord, error) {
	return s.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE cen_cost IS NOT NULL AND cor_cost IS NOT NULL AND ceb_pp_cost IS NOT NULL
		 ORDER BY dtime DESC LIMIT 1`,
	)
}

func (s *Store) NextForecast(ctx context.Context, from time.Time) (*models.PriceRecord, error) {
	return s.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE csdac_pln IS NOT NULL AND dtime >= ?
		 ORDER BY dtime ASC LIMIT 1`,
		from.UnixMilli(),
	)
}

func (s *Store) LatestForecast(ctx context.Context) (*models.PriceRecord, error) {
	return s.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE csdac_pln IS NOT NULL
		 ORDER BY dtime DESC LIMIT 1`,
	)
}

func (s *Store) PreviousComplete(ctx context.Context, before time.Time) (*models.PriceRecord, error) {
	return s.one(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE dtime < ? AND cen_cost IS NOT NULL
		 ORDER BY dtime DESC LIMIT 1`,
		before.UnixMilli(),
	)
}

func (s *Store) Window(ctx context.Context, from, to time.Time) ([]models.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+priceColumns+` FROM pse_energy_prices
		 WHERE dtime >= ? AND dtime <= ?
		 ORDER BY dtime DESC`,
		from.UnixMilli(), to.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite query window: %w", err)
	}
	defer rows.Close()

	var out []models.PriceRecord
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan window: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) WindowStats(ctx context.Context, from, to time.Time) (*models.Stats, error) {
	var (
		st               models.Stats
		minV, maxV, avgV sql.NullFloat64
		minT, maxT       sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`WITH w AS (
			SELECT dtime, cen_cost FROM pse_energy_prices
			WHERE dtime >= ? AND dtime <= ? AND cen_cost IS NOT NULL
		)
		SELECT
			COUNT(*), MIN(cen_cost), MAX(cen_cost), AVG(cen_cost),
			(SELECT dtime FROM w WHERE cen_cost = (SELECT MIN(cen_cost) FROM w) ORDER BY dtime DESC LIMIT 1),
			(SELECT dtime FROM w WHERE cen_cost = (SELECT MAX(cen_cost) FROM w) ORDER BY dtime DESC LIMIT 1)
		FROM w`,
		from.UnixMilli(), to.UnixMilli(),
	).Scan(&st.Count, &minV, &maxV, &avgV, &minT, &maxT)
	if err != nil {
		return nil, fmt.Errorf("sqlite window stats: %w", err)
	}
	if st.Count == 0 {
		return &st, nil
	}
	st.Min, st.Max, st.Avg = minV.Float64, maxV.Float64, avgV.Float64
	if minT.Valid {
		st.MinTime = time.UnixMilli(minT.Int64).UTC()
	}
	if maxT.Valid {
		st.MaxTime = time.UnixMilli(maxT.Int64).UTC()
	}
	return &st, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert upserts records. The server never calls it; it backs local
// fixtures and tests, since ingestion belongs to the external workflow.
func (s *Store) Insert(ctx context.Context, recs ...models.PriceRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO pse_energy_prices (`+priceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx,
			r.DTime.UnixMilli(), r.Period, r.CENCost, r.CSDACPLN, r.CORCost,
			r.CEBPPCost, r.CEBSRCost, r.Balance, r.BalancePower,
		); err != nil {
			return fmt.Errorf("sqlite insert %s: %w", r.DTime.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

func (s *Store) one(ctx context.Context, query string, args ...any) (*models.PriceRecord, error) {
	p, err := scanPrice(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	return p, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPrice(row scannable) (*models.PriceRecord, error) {
	var (
		p  models.PriceRecord
		ms int64
	)
	if err := row.Scan(
		&ms, &p.Period, &p.CENCost, &p.CSDACPLN, &p.CORCost,
		&p.CEBPPCost, &p.CEBSRCost, &p.Balance, &p.BalancePower,
	); err != nil {
		return nil, err
	}
	p.DTime = time.UnixMilli(ms).UTC()
	return &p, nil
}
