package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/strava-weather/internal/worker"
)

// webhookEvent is a Strava push notification.
type webhookEvent struct {
	AspectType     string            `json:"aspect_type" validate:"required,oneof=create update delete"`
	EventTime      int64             `json:"event_time"`
	ObjectID       int64             `json:"object_id" validate:"required"`
	ObjectType     string            `json:"object_type" validate:"required,oneof=activity athlete"`
	OwnerID        int64             `json:"owner_id" validate:"required"`
	SubscriptionID int64             `json:"subscription_id"`
	Updates        map[string]string `json:"updates"`
}

func registerWebhook(app *fiber.App, deps Deps) {
	// Subscription handshake.
	app.Get("/webhook", func(c *fiber.Ctx) error {
		mode := c.Query("hub.mode")
		token := c.Query("hub.verify_token")
		challenge := c.Query("hub.challenge")

		if mode != "subscribe" || challenge == "" {
			return fiber.NewError(fiber.StatusBadRequest, "invalid subscription request")
		}
		if token != deps.VerifyToken {
			deps.Logger.Warn("webhook: verify token mismatch")
			return fiber.NewError(fiber.StatusForbidden, "verify token mismatch")
		}

		deps.Logger.Info("webhook: subscription verified")
		return c.JSON(fiber.Map{"hub.challenge": challenge})
	})

	app.Post("/webhook", func(c *fiber.Ctx) error {
		var ev webhookEvent
		if err := c.BodyParser(&ev); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid event body")
		}
		if err := validate.Struct(ev); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		logger := deps.Logger.With("aspect_type", ev.AspectType, "object_type", ev.ObjectType,
			"object_id", ev.ObjectID, "owner_id", ev.OwnerID)

		switch {
		case ev.ObjectType == "activity" && ev.AspectType == "create":
			runID, err := deps.Queue.Submit(worker.Job{AthleteID: ev.OwnerID, ActivityID: ev.ObjectID})
			if err != nil {
				logger.Error("webhook: enqueue annotation", "error", err)
				return fiber.NewError(fiber.StatusServiceUnavailable, "not accepting events")
			}
			logger.Info("webhook: annotation queued", "run_id", runID)

		case ev.ObjectType == "athlete" && ev.AspectType == "update" && ev.Updates["authorized"] == "false":
			if err := deps.Athletes.DeleteAthlete(c.UserContext(), ev.OwnerID); err != nil {
				logger.Error("webhook: delete athlete", "error", err)
				return fiber.NewError(fiber.StatusInternalServerError, "failed to delete athlete")
			}
			logger.Info("webhook: athlete deauthorized")

		default:
			logger.Debug("webhook: event ignored")
		}

		return c.SendStatus(fiber.StatusOK)
	})
}
