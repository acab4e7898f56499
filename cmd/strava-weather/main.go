package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/strava-weather/internal/api/http"
	"github.com/i474232898/strava-weather/internal/annotate"
	"github.com/i474232898/strava-weather/internal/config"
	"github.com/i474232898/strava-weather/internal/scheduler"
	"github.com/i474232898/strava-weather/internal/sentry"
	"github.com/i474232898/strava-weather/internal/store"
	"github.com/i474232898/strava-weather/internal/strava"
	"github.com/i474232898/strava-weather/internal/weather/providers"
	"github.com/i474232898/strava-weather/internal/worker"
)

const usage = `usage:
  strava-weather [serve]                              run the webhook server
  strava-weather annotate -athlete ID -activity ID    annotate a single activity now`

type app struct {
	cfg      *config.AppConfig
	logger   *slog.Logger
	db       *store.SQLiteStore
	strava   *strava.Client
	runs     *store.RunLog
	pool     *worker.Pool
	reporter *sentry.Reporter
}

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	a, err := build(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	switch cmd {
	case "serve":
		err = a.serve()
	case "annotate":
		err = a.annotateOnce(args)
	case "-h", "--help", "help":
		fmt.Println(usage)
	default:
		err = fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	a.close()
	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func build(cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	reporter, err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		return nil, err
	}

	db, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	stravaClient := strava.NewClient(strava.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURL:  cfg.StravaRedirectURL,
	}, httpClient, db, logger)

	// OpenWeather with a client-side rate limit and circuit breaker.
	ow := providers.NewOpenWeatherProvider(providers.HTTPClientConfig{
		Client:  httpClient,
		Limiter: rate.NewLimiter(rate.Limit(cfg.WeatherRPS), cfg.WeatherBurst),
	}, cfg.WeatherAPIKey)

	svc := annotate.NewService(stravaClient, db, ow, ow, logger)

	runs := store.NewRunLog(cfg.RunLogMaxHistory, cfg.RunLogMaxAge)
	pool := worker.New(svc, runs, logger,
		worker.WithConcurrency(cfg.WorkerConcurrency),
		worker.WithQueueSize(cfg.WorkerQueueSize),
		worker.WithTimeout(cfg.AnnotateTimeout),
		worker.WithReporter(reporter),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		strava:   stravaClient,
		runs:     runs,
		pool:     pool,
		reporter: reporter,
	}, nil
}

func (a *app) serve() error {
	sched := scheduler.New(a.strava, a.runs, a.cfg.SubscriptionCheckInterval, a.logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Basic app configuration
	srv := fiber.New(fiber.Config{
		AppName:               "strava-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	srv.Use(logger.New())
	srv.Use(recover.New())

	httpapi.RegisterRoutes(srv, httpapi.Deps{
		Queue:       a.pool,
		Athletes:    a.db,
		Runs:        a.runs,
		Auth:        a.strava,
		VerifyToken: a.cfg.StravaVerifyToken,
		SessionKey:  a.cfg.SessionKey,
		Logger:      a.logger,
	})

	go func() {
		a.logger.Info("listening", "port", a.cfg.Port)
		if err := srv.Listen(":" + a.cfg.Port); err != nil {
			a.logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("error during shutdown", "error", err)
	}
	if err := a.pool.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("annotation runs still in flight at shutdown", "error", err)
	}
	return nil
}

func (a *app) annotateOnce(args []string) error {
	fs := flag.NewFlagSet("annotate", flag.ContinueOnError)
	athleteID := fs.Int64("athlete", 0, "athlete id")
	activityID := fs.Int64("activity", 0, "activity id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *athleteID <= 0 || *activityID <= 0 {
		return fmt.Errorf("both -athlete and -activity are required")
	}

	run, err := a.pool.Run(worker.Job{AthleteID: *athleteID, ActivityID: *activityID})
	if err != nil {
		return err
	}

	switch run.Outcome {
	case store.OutcomeAnnotated:
		fmt.Printf("annotated activity %d\n%s\n%s\n", run.ActivityID, run.Name, run.Description)
	case store.OutcomeSkipped:
		fmt.Printf("skipped activity %d: %s\n", run.ActivityID, run.Reason)
	default:
		return fmt.Errorf("annotation failed: %s", run.Error)
	}
	return nil
}

func (a *app) close() {
	a.reporter.Flush(2 * time.Second)
	if err := a.db.Close(); err != nil {
		a.logger.Error("close database", "error", err)
	}
}
