package server

import (
	"strings"

	"connector/internal/middleware"
	"connector/internal/models"
	"connector/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired returns the authentication middleware. The token is read from
// x-auth-token, falling back to "Authorization: Bearer <token>".
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := strings.TrimSpace(c.Get("x-auth-token"))
		if tokenString == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
		}

		if tokenString == "" {
			return respondError(c, models.NewUnauthenticatedError("No token, authorization denied"), nil)
		}

		userID, err := s.tokens.Verify(tokenString)
		if err != nil {
			return respondError(c, models.NewInvalidTokenError(err), nil)
		}

		c.Locals("userID", userID)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// Register handles POST /api/users
// @Summary Register user
// @Description Create an account and return a token
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string} true "Registration"
// @Success 200 {object} object{token=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"), nil)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	token, err := s.authService.Register(ctx, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(fiber.Map{"token": token})
}

// Login handles POST /api/auth
// @Summary Log in
// @Description Authenticate with email and password and return a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} object{token=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"), nil)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	token, err := s.authService.Authenticate(ctx, service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(fiber.Map{"token": token})
}

// GetCurrentUser handles GET /api/auth
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /auth [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	user, err := s.authService.GetProfile(ctx, currentUserID(c))
	if err != nil {
		return respondError(c, err, nil)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:id
// @Summary Public profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "User")
	if err != nil {
		return respondError(c, err, nil)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	user, err := s.authService.GetProfile(ctx, id)
	if err != nil {
		return respondError(c, err, nil)
	}
	// Anonymous route: ids are sequential, so the email stays private.
	return c.JSON(user.PublicProfile())
}
