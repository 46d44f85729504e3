package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kjannette/pse-price-backend/internal/models"
	"github.com/kjannette/pse-price-backend/internal/repository/sqlite"
)

func f64(v float64) *float64 { return &v }

func seededSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.db")
	s, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Now().UTC()
	err = s.Insert(context.Background(),
		models.PriceRecord{DTime: now.Add(-2 * time.Hour), CENCost: f64(410), CORCost: f64(400), CEBPPCost: f64(380)},
		models.PriceRecord{DTime: now.Add(-time.Hour), CENCost: f64(500), CORCost: f64(400), CEBPPCost: f64(380)},
	)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	s.Close()
	return path
}

func runApp(t *testing.T, args ...string) (stdout, stderr string) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", seededSQLite(t))
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("REFRESH_INTERVAL_MINUTES", "0")
	t.Setenv("N8N_WEBHOOK_URL", "")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	if err := app.Run(append([]string{"pse-price-backend", "--env-file", ""}, args...)); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out.String(), errOut.String()
}

func TestStatsCommand_PrintsOnlyJSON(t *testing.T) {
	stdout, stderr := runApp(t, "stats")

	var st models.Stats
	dec := json.NewDecoder(strings.NewReader(stdout))
	if err := dec.Decode(&st); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if dec.More() {
		t.Fatalf("unexpected trailing output on stdout:\n%s", stdout)
	}
	if st.Count != 2 || st.Max != 500 || st.Min != 410 {
		t.Fatalf("stats: %+v", st)
	}
	if !strings.Contains(stderr, "sqlite store opened") {
		t.Fatalf("logs should go to stderr, got:\n%s", stderr)
	}
	t.Logf("Stats output: %s", strings.TrimSpace(stdout))
}

func TestCurrentCommand_PrintsOnlyJSON(t *testing.T) {
	stdout, _ := runApp(t, "current")

	var view models.CurrentPrice
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("stdout is not a single JSON document: %v\n%s", err, stdout)
	}
	if view.CENCost == nil || *view.CENCost != 500 {
		t.Fatalf("current: %+v", view)
	}
	if strings.Contains(stdout, `"level"`) {
		t.Fatalf("log lines leaked into stdout:\n%s", stdout)
	}
}
