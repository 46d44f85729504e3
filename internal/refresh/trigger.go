// Package refresh asks the external collection workflow (an n8n webhook) to
// fetch fresh prices, and optionally does so on a fixed interval.
package refresh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kjannette/pse-price-backend/internal/httputil"
	"github.com/kjannette/pse-price-backend/internal/metrics"
)

const SuccessMessage = "Data collection triggered. Refresh dashboard in a few seconds."

var ErrNotConfigured = errors.New("refresh webhook not configured")

const maxResponseBytes = 1 << 20

type Config struct {
	WebhookURL string
	AuthHeader string
	AuthValue  string
	Timeout    time.Duration
	Retry      httputil.RetryConfig
	// OnSuccess runs after the workflow accepted the trigger. Its error is
	// logged, not returned.
	OnSuccess func(ctx context.Context) error
}

// Result is the body returned to the dashboard.
type Result struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	WorkflowResponse json.RawMessage `json:"workflow_response"`
}

type Trigger struct {
	cfg        Config
	httpClient *http.Client
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewTrigger(cfg Config, m *metrics.Metrics) *Trigger {
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = "Authorization"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    5 * time.Second,
			Jitter:      0.2,
		}
	}
	return &Trigger{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		metrics:    m,
		now:        time.Now,
	}
}

func (t *Trigger) Enabled() bool {
	return t.cfg.WebhookURL != ""
}

type payload struct {
	Trigger   string `json:"trigger"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Trigger posts a manual trigger to the workflow webhook.
func (t *Trigger) Trigger(ctx context.Context) (*Result, error) {
	return t.fire(ctx, "dashboard")
}

func (t *Trigger) fire(ctx context.Context, source string) (*Result, error) {
	log := slog.With(slog.String("component", "refresh"), slog.String("source", source))

	if !t.Enabled() {
		t.metrics.RefreshTriggered("not_configured")
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(payload{
		Trigger:   "manual",
		Source:    source,
		Timestamp: t.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal trigger: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	resp, err := httputil.Do(ctx, t.httpClient, t.cfg.Retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if t.cfg.AuthValue != "" {
			req.Header.Set(t.cfg.AuthHeader, t.cfg.AuthValue)
		}
		return req, nil
	})
	if err != nil {
		t.metrics.RefreshTriggered("error")
		return nil, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		t.metrics.RefreshTriggered("error")
		return nil, fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.metrics.RefreshTriggered("error")
		return nil, fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, truncate(raw, 512))
	}

	workflow := json.RawMessage(`{"success":true}`)
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && json.Valid(trimmed) {
		workflow = json.RawMessage(trimmed)
	}

	t.metrics.RefreshTriggered("success")
	log.Info("refresh triggered", slog.Int("status", resp.StatusCode))

	if t.cfg.OnSuccess != nil {
		if err := t.cfg.OnSuccess(ctx); err != nil {
			log.Warn("post-refresh hook failed", slog.Any("error", err))
		}
	}

	return &Result{Success: true, Message: SuccessMessage, WorkflowResponse: workflow}, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
