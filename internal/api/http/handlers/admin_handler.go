package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-desk/internal/api/dto"
	"github.com/spec-kit/intake-desk/internal/observability"
	"github.com/spec-kit/intake-desk/internal/service"
	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

// AdminHandler serves admin login and operational endpoints.
type AdminHandler struct {
	auth    *service.AdminAuthService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AdminAuthService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{auth: authService, metrics: metrics}
}

// Login POST /admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}
	token, exp, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{Token: token, ExpiresAt: exp})
}

// Metrics GET /admin/api/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
