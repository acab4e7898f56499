package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	stateCookie   = "oauth_state"
	requiredScope = "activity:write"
)

func registerAuth(app *fiber.App, deps Deps) {
	auth := app.Group("/auth")

	auth.Get("/login", func(c *fiber.Ctx) error {
		state := uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     stateCookie,
			Value:    state,
			Expires:  time.Now().Add(10 * time.Minute),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.Redirect(deps.Auth.AuthCodeURL(state), fiber.StatusFound)
	})

	auth.Get("/callback", func(c *fiber.Ctx) error {
		if msg := c.Query("error"); msg != "" {
			return fiber.NewError(fiber.StatusForbidden, "authorization denied: "+msg)
		}

		state := c.Query("state")
		if state == "" || state != c.Cookies(stateCookie) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid oauth state")
		}
		c.ClearCookie(stateCookie)

		code := c.Query("code")
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing authorization code")
		}
		if !strings.Contains(c.Query("scope"), requiredScope) {
			return fiber.NewError(fiber.StatusForbidden, "activity write permission is required")
		}

		tokens, err := deps.Auth.Exchange(c.UserContext(), code)
		if err != nil {
			deps.Logger.Error("auth: exchange code", "error", err)
			return fiber.NewError(fiber.StatusBadGateway, "failed to authorize with strava")
		}

		startSession(c, tokens.AthleteID)
		return c.JSON(fiber.Map{"athleteId": tokens.AthleteID, "authorized": true})
	})

	auth.Post("/logout", func(c *fiber.Ctx) error {
		c.ClearCookie(sessionCookie)
		return c.SendStatus(fiber.StatusNoContent)
	})
}
