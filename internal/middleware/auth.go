package middleware

import (
	"strings"

	"newsboard/internal/auth"
	"newsboard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// LegacyTokenHeader carries a bare token for clients that predate the
// Authorization header.
const LegacyTokenHeader = "token"

// AuthRequired rejects requests without a valid token and stores the
// authenticated user id in c.Locals("userID") and the request context.
func AuthRequired(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := extractToken(c)
		if err != nil {
			return models.RespondWithError(c, err)
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			return models.RespondWithError(c, models.NewInvalidTokenError(err))
		}
		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, models.NewInvalidTokenError(err))
		}

		c.Locals("userID", userID)
		c.Locals("username", claims.Username)
		c.SetUserContext(WithUserID(c.UserContext(), userID))

		return c.Next()
	}
}

// WebSocketAuthRequired is AuthRequired for upgrade requests, which may
// carry the token in the query string.
func WebSocketAuthRequired(tokens TokenVerifier) fiber.Handler {
	required := AuthRequired(tokens)
	return func(c *fiber.Ctx) error {
		if token := c.Query("token"); token != "" && c.Get(fiber.HeaderAuthorization) == "" {
			c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		return required(c)
	}
}

func extractToken(c *fiber.Ctx) (string, error) {
	if header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", models.NewInvalidTokenError(nil)
		}
		return token, nil
	}
	if token := strings.TrimSpace(c.Get(LegacyTokenHeader)); token != "" {
		return token, nil
	}
	return "", models.NewMissingTokenError()
}
