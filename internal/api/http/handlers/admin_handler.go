package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/dto"
	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/service"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

// AdminHandler exposes super-admin endpoints over agency accounts.
type AdminHandler struct {
	agencies *service.AgencyService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(agencies *service.AgencyService) *AdminHandler {
	return &AdminHandler{agencies: agencies}
}

// ListAgencies handles GET /admin/agencies?status=PENDING.
func (h *AdminHandler) ListAgencies(c *fiber.Ctx) error {
	status := domain.AccountStatus(c.Query("status", string(domain.AccountStatusPending)))
	limit, offset := pagination(c)

	agencies, err := h.agencies.ListByStatus(c.Context(), status, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	out := make([]dto.AccountResponse, 0, len(agencies))
	for _, agency := range agencies {
		out = append(out, accountResponse(agency))
	}
	return c.JSON(fiber.Map{"data": out})
}

// ApproveAgency handles POST /admin/agencies/:id/approve.
func (h *AdminHandler) ApproveAgency(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	agency, err := h.agencies.Approve(c.Context(), principal.Account.ID, c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": accountResponse(agency)})
}

// SuspendAgency handles POST /admin/agencies/:id/suspend.
func (h *AdminHandler) SuspendAgency(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	agency, err := h.agencies.Suspend(c.Context(), principal.Account.ID, c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": accountResponse(agency)})
}
