package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"

	"github.com/i474232898/strava-weather/internal/store"
	"github.com/i474232898/strava-weather/internal/weather"
	"github.com/i474232898/strava-weather/internal/worker"
)

var validate = validator.New()

// Enqueuer schedules annotation runs.
type Enqueuer interface {
	Submit(job worker.Job) (string, error)
}

// AthleteStore holds athlete settings and subscriptions.
type AthleteStore interface {
	GetSettings(ctx context.Context, athleteID int64) (weather.Settings, error)
	SaveSettings(ctx context.Context, s weather.Settings) error
	DeleteAthlete(ctx context.Context, athleteID int64) error
	CountSubscribers(ctx context.Context) (int, error)
}

// RunHistory exposes recorded annotation runs.
type RunHistory interface {
	GetLatest(athleteID int64) (store.RunRecord, error)
	GetRange(athleteID int64, from, to time.Time) ([]store.RunRecord, error)
}

// Authorizer drives the Strava OAuth flow.
type Authorizer interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (store.Tokens, error)
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Queue       Enqueuer
	Athletes    AthleteStore
	Runs        RunHistory
	Auth        Authorizer
	VerifyToken string

	// SessionKey is the base64 AES key that seals every cookie.
	SessionKey string
	Logger     *slog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	app.Use(encryptcookie.New(encryptcookie.Config{Key: deps.SessionKey}))

	app.Get("/health", func(c *fiber.Ctx) error {
		n, err := deps.Athletes.CountSubscribers(c.UserContext())
		if err != nil {
			deps.Logger.Error("health: count subscribers", "error", err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"status": "ok", "subscribers": n})
	})

	registerWebhook(app, deps)
	registerAuth(app, deps)

	v1 := app.Group("/api/v1")
	athletes := v1.Group("/athletes/:id")

	athletes.Get("/settings", func(c *fiber.Ctx) error {
		id, err := authorizedAthlete(c)
		if err != nil {
			return err
		}
		settings, err := deps.Athletes.GetSettings(c.UserContext(), id)
		if err != nil {
			deps.Logger.Error("get settings", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load settings")
		}
		return c.JSON(settings)
	})

	athletes.Put("/settings", func(c *fiber.Ctx) error {
		id, err := authorizedAthlete(c)
		if err != nil {
			return err
		}
		settings, err := deps.Athletes.GetSettings(c.UserContext(), id)
		if err != nil {
			deps.Logger.Error("get settings", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load settings")
		}

		// Fields missing from the body keep their current values.
		if err := c.BodyParser(&settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid settings body")
		}
		settings.UserID = id

		if err := validate.Struct(settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := deps.Athletes.SaveSettings(c.UserContext(), settings); err != nil {
			deps.Logger.Error("save settings", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save settings")
		}
		return c.JSON(settings)
	})

	athletes.Get("/runs/latest", func(c *fiber.Ctx) error {
		id, err := authorizedAthlete(c)
		if err != nil {
			return err
		}
		run, err := deps.Runs.GetLatest(id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs for athlete")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch runs")
		}
		return c.JSON(run)
	})

	athletes.Get("/runs", func(c *fiber.Ctx) error {
		id, err := authorizedAthlete(c)
		if err != nil {
			return err
		}

		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := deps.Runs.GetRange(id, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no runs for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch runs")
		}

		return c.JSON(fiber.Map{
			"athleteId": id,
			"from":      req.From,
			"to":        req.To,
			"runs":      runs,
		})
	})
}

// historyQuery holds query parameters for the run history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
