package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kjannette/pse-price-backend/internal/api"
	"github.com/kjannette/pse-price-backend/internal/config"
	"github.com/kjannette/pse-price-backend/internal/logger"
	"github.com/kjannette/pse-price-backend/internal/metrics"
	"github.com/kjannette/pse-price-backend/internal/refresh"
)

var version = "dev"

const banner = `
╔══════════════════════════════════════╗
║      PSE Energy Price Backend        ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pse-price-backend",
		Usage:   "Serve reconciled PSE energy prices from the collected price table",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Dotenv file to load before reading the environment",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, text)",
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			currentCommand(),
			historyCommand(),
			statsCommand(),
		},
		DefaultCommand: "serve",
	}
}

// loadConfig reads the env file named on the command line, applies flag
// overrides and sends logs to logOut.
func loadConfig(c *cli.Context, logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.InitTo(logOut, "pse-price-backend", cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the REST API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   3001,
				Usage:   "HTTP listen port",
				EnvVars: []string{"PORT"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	fmt.Print(banner)

	cfg, err := loadConfig(c, c.App.Writer)
	if err != nil {
		return err
	}
	cfg.Print()
	for _, w := range cfg.Warnings() {
		slog.Warn(w, slog.String("component", "config"))
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	svc, cleanup, err := buildService(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	trigger := refresh.NewTrigger(refresh.Config{
		WebhookURL: cfg.N8NWebhookURL,
		AuthHeader: cfg.N8NWebhookAuthHeader,
		AuthValue:  cfg.N8NWebhookAuthValue,
		OnSuccess:  svc.FlushCache,
	}, m)

	var sched *refresh.Scheduler
	if cfg.RefreshIntervalMinutes > 0 {
		sched = refresh.NewScheduler(trigger, refresh.SchedulerConfig{Interval: cfg.RefreshInterval()})
		sched.Start()
	}

	srv := api.NewServer(svc, trigger, api.Options{
		Port:            cfg.Port,
		APIKey:          cfg.APIKey,
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Metrics:         m,
	})
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("all services started", slog.Int("port", cfg.Port))

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	slog.Info("shutting down gracefully")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", slog.Any("error", err))
	}
	slog.Info("shutdown complete")

	if serveErr != nil {
		return fmt.Errorf("api server: %w", serveErr)
	}
	return nil
}

func currentCommand() *cli.Command {
	return &cli.Command{
		Name:  "current",
		Usage: "Print the reconciled current price as JSON",
		Action: func(c *cli.Context) error {
			return oneShot(c, func(ctx context.Context, svc api.PriceService) (any, error) {
				return svc.Current(ctx)
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print price history for a trailing window as JSON",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "hours",
				Value: 24,
				Usage: "Window length in hours (24, 168, 720)",
			},
		},
		Action: func(c *cli.Context) error {
			return oneShot(c, func(ctx context.Context, svc api.PriceService) (any, error) {
				return svc.History(ctx, c.Int("hours"))
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Print cen_cost statistics as JSON",
		Action: func(c *cli.Context) error {
			return oneShot(c, func(ctx context.Context, svc api.PriceService) (any, error) {
				return svc.Stats(ctx)
			})
		},
	}
}

// oneShot prints run's result as JSON on the app writer. Logs go to the
// error writer so the output stays parseable.
func oneShot(c *cli.Context, run func(context.Context, api.PriceService) (any, error)) error {
	cfg, err := loadConfig(c, c.App.ErrWriter)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	svc, cleanup, err := buildService(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := run(ctx, svc)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
