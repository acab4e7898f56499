package httpapi

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	sessionCookie = "athlete_session"
	sessionTTL    = 30 * 24 * time.Hour
)

// The session cookie holds "<athlete id>:<expiry unix>". The encryptcookie
// middleware seals it, so a client can neither read nor forge it.
func sessionValue(athleteID int64, expires time.Time) string {
	return fmt.Sprintf("%d:%d", athleteID, expires.Unix())
}

func startSession(c *fiber.Ctx, athleteID int64) {
	expires := time.Now().Add(sessionTTL)
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sessionValue(athleteID, expires),
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// sessionAthlete returns the athlete the request is signed in as.
func sessionAthlete(c *fiber.Ctx, now time.Time) (int64, bool) {
	idStr, expStr, ok := strings.Cut(c.Cookies(sessionCookie), ":")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || !now.Before(time.Unix(exp, 0)) {
		return 0, false
	}
	return id, true
}

// authorizedAthlete resolves the :id route parameter and requires the
// session to belong to that athlete.
func authorizedAthlete(c *fiber.Ctx) (int64, error) {
	sessionID, ok := sessionAthlete(c, time.Now())
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, "sign in with strava first")
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid athlete id")
	}
	if id != sessionID {
		return 0, fiber.NewError(fiber.StatusForbidden, "session belongs to another athlete")
	}
	return id, nil
}
