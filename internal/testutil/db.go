package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// SetupPool connects to TEST_DATABASE_URL and skips the test when it is not
// set. The pse_energy_prices table is created if missing and emptied when the
// test ends.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env.test")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE pse_energy_prices"); err != nil {
		pool.Close()
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "TRUNCATE pse_energy_prices")
		pool.Close()
	})
	return pool
}

// Schema mirrors the table the n8n collector writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS pse_energy_prices (
	dtime         TIMESTAMPTZ PRIMARY KEY,
	period        TEXT,
	cen_cost      NUMERIC,
	csdac_pln     NUMERIC,
	cor_cost      NUMERIC,
	ceb_pp_cost   NUMERIC,
	ceb_sr_cost   NUMERIC,
	balance       NUMERIC,
	balance_power NUMERIC
)`
