package server

import (
	"errors"
	"strings"
	"unicode"

	"newsboard/internal/middleware"
	"newsboard/internal/models"
	"newsboard/internal/pagination"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// dataResponse is the envelope for single entities.
type dataResponse struct {
	Data any `json:"data"`
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(dataResponse{Data: data})
}

// respondError writes err and logs it when it is an internal failure.
func respondError(c *fiber.Ctx, err error) error {
	if models.KindOf(err) == models.KindInternal {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "method", c.Method(), "error", err)
	}
	return models.RespondWithError(c, err)
}

// paginationFromQuery resolves the page and limit query values. On failure it
// writes a 400 response and returns errResponseWritten.
func paginationFromQuery(c *fiber.Ctx) (pagination.Params, error) {
	p, err := pagination.Resolve(c.Query("page"), c.Query("limit"))
	if err != nil {
		_ = respondError(c, err)
		return pagination.Params{}, errResponseWritten
	}
	return p, nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "postId" -> "Invalid post ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewFieldError(param, "Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// currentUserID returns the authenticated user id, or 0 on public routes.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// parseBody decodes the JSON body into dst. On failure it writes a 400
// response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "postId" -> "post ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok {
		return strings.ToLower(strings.Join(splitCamel(prefix), " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
