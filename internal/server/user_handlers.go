package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{data=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetMe(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, user)
}

// ListUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.User,pagination=pagination.Meta}
// @Failure 400 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.userService.ListUsers(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// ListPostsByUsername handles GET /api/users/:username/posts
// @Summary Posts by author
// @Tags users
// @Produce json
// @Param username path string true "Author username"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10)"
// @Success 200 {object} object{data=[]models.Post,pagination=pagination.Meta}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{username}/posts [get]
func (s *Server) ListPostsByUsername(c *fiber.Ctx) error {
	p, err := paginationFromQuery(c)
	if err != nil {
		return nil
	}
	page, err := s.postService.ListPostsByUsername(c.UserContext(), c.Params("username"), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Feature flags evaluated for the current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{data=map[string]bool}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return respondData(c, fiber.StatusOK, s.featureFlags.Snapshot(currentUserID(c)))
}
