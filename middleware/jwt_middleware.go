package middleware

import (
	"context"
	"errors"
	"strings"

	"launchpad/command"
	"launchpad/models"
	"launchpad/store"
	"launchpad/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	localProfile = "profile"
	localActor   = "actor"
)

// ProfileSource loads the profile a token's subject refers to.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

// Protected verifies the identity provider's token and loads the caller's
// profile. The token is read from the Authorization header, the access_token
// cookie, or a token query parameter (websocket upgrades cannot set headers).
func Protected(profiles ProfileSource, secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if authHeader := c.Get("Authorization"); authHeader != "" {
			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
				return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid authorization format", nil)
			}
			token = tokenParts[1]
		} else if cookie := c.Cookies("access_token"); cookie != "" {
			token = cookie
		} else {
			token = c.Query("token")
		}
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
		}

		claims, err := utils.ParseToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}

		profile, err := profiles.GetProfile(c.UserContext(), claims.Subject)
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Profile not found", nil)
		}
		if err != nil {
			utils.LogError("profile_lookup_failed", err, map[string]interface{}{"profile_id": claims.Subject})
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Could not load your profile", nil)
		}

		c.Locals(localProfile, profile)
		c.Locals(localActor, command.ActorFromProfile(profile))
		return c.Next()
	}
}

// CurrentProfile returns the profile stored by Protected.
func CurrentProfile(c *fiber.Ctx) (models.Profile, bool) {
	p, ok := c.Locals(localProfile).(models.Profile)
	return p, ok
}

// CurrentActor returns the actor stored by Protected.
func CurrentActor(c *fiber.Ctx) (command.Actor, bool) {
	a, ok := c.Locals(localActor).(command.Actor)
	return a, ok
}
