package server

import (
	"newsboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignUp handles POST /api/auth/sign-up
// @Summary User sign-up
// @Description Register a new account and receive an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "Sign-up request"
// @Success 201 {object} object{data=service.AuthResult}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/sign-up [post]
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.authService.SignUp(c.UserContext(), service.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, result)
}

// LogIn handles POST /api/auth/log-in
// @Summary User log-in
// @Description Exchange credentials for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body credentialsRequest true "Log-in request"
// @Success 200 {object} object{data=service.AuthResult}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/log-in [post]
func (s *Server) LogIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	result, err := s.authService.LogIn(c.UserContext(), service.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, result)
}
