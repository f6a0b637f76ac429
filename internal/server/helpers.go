package server

import (
	"context"
	"errors"

	"connector/internal/middleware"
	"connector/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusByCode is the default mapping from error code to HTTP status.
var statusByCode = map[string]int{
	models.CodeValidation:         fiber.StatusBadRequest,
	models.CodeDuplicateUser:      fiber.StatusBadRequest,
	models.CodeInvalidCredentials: fiber.StatusBadRequest,
	models.CodeAlreadyLiked:       fiber.StatusBadRequest,
	models.CodeNotLiked:           fiber.StatusBadRequest,
	models.CodeUnauthenticated:    fiber.StatusUnauthorized,
	models.CodeInvalidToken:       fiber.StatusUnauthorized,
	models.CodeForbidden:          fiber.StatusForbidden,
	models.CodeNotFound:           fiber.StatusNotFound,
	models.CodeTimeout:            fiber.StatusGatewayTimeout,
	models.CodeInternal:           fiber.StatusInternalServerError,
}

// Post routes report a missing post as 400.
var postRouteStatus = map[string]int{
	models.CodeNotFound: fiber.StatusBadRequest,
}

// Comment deletion reports a non-author as 401.
var deleteCommentStatus = map[string]int{
	models.CodeForbidden: fiber.StatusUnauthorized,
}

// respondError writes err as the standard error payload. overrides replaces
// the default status for specific codes on one route.
func respondError(c *fiber.Ctx, err error, overrides map[string]int) error {
	if errors.Is(err, context.DeadlineExceeded) && !models.IsCode(err, models.CodeTimeout) {
		err = models.NewTimeoutError(err)
	}

	code := models.ErrorCode(err)
	status, ok := overrides[code]
	if !ok {
		status = statusByCode[code]
	}
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request error",
			"code", code, "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// requestContext derives the per-request deadline from the configured timeout.
func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
}

// parseID extracts a route parameter as a positive id. A malformed id is
// reported as NotFound for resource, the same as an unknown one.
func parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError(resource)
	}
	return uint(id), nil
}

// currentUserID returns the id stored by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// bindText parses a {"text": ...} body.
func bindText(c *fiber.Ctx) (string, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return "", models.NewValidationError("Invalid request body")
	}
	return req.Text, nil
}
