package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/dto"
	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/service"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

// PackagesHandler exposes the public catalog and agency package management.
type PackagesHandler struct {
	packages *service.PackageService
}

// NewPackagesHandler constructs handler.
func NewPackagesHandler(packages *service.PackageService) *PackagesHandler {
	return &PackagesHandler{packages: packages}
}

// ListPublished handles GET /packages.
func (h *PackagesHandler) ListPublished(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	packages, err := h.packages.ListPublished(c.Context(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": packageResponses(packages)})
}

// Get handles GET /packages/:id.
func (h *PackagesHandler) Get(c *fiber.Ctx) error {
	pkg, err := h.packages.Get(c.Context(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": packageResponse(pkg)})
}

// Create handles POST /agency/packages.
func (h *PackagesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input, err := parsePackageRequest(c)
	if err != nil {
		return err
	}

	pkg, err := h.packages.Create(c.Context(), principal.Account.ID, input)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": packageResponse(pkg)})
}

// Update handles PATCH /agency/packages/:id.
func (h *PackagesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input, err := parsePackageRequest(c)
	if err != nil {
		return err
	}

	pkg, err := h.packages.Update(c.Context(), principal.Account.ID, c.Params("id"), input)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": packageResponse(pkg)})
}

// ListForAgency handles GET /agency/packages.
func (h *PackagesHandler) ListForAgency(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	limit, offset := pagination(c)
	packages, err := h.packages.ListForAgency(c.Context(), principal.Account.ID, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": packageResponses(packages)})
}

func parsePackageRequest(c *fiber.Ctx) (service.PackageInput, error) {
	var req dto.PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return service.PackageInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	status := domain.PackageStatus(req.Status)
	if req.Status == "" {
		status = domain.PackageStatusDraft
	}
	return service.PackageInput{
		Title:         req.Title,
		Destination:   req.Destination,
		Description:   req.Description,
		PriceCents:    req.PriceCents,
		SeatsTotal:    req.SeatsTotal,
		DepartureDate: req.DepartureDate,
		Status:        status,
	}, nil
}

func packageResponse(pkg *domain.TravelPackage) dto.PackageResponse {
	return dto.PackageResponse{
		ID:             pkg.ID,
		AgencyID:       pkg.AgencyID,
		Title:          pkg.Title,
		Destination:    pkg.Destination,
		Description:    pkg.Description,
		PriceCents:     pkg.PriceCents,
		SeatsTotal:     pkg.SeatsTotal,
		SeatsAvailable: pkg.SeatsAvailable,
		DepartureDate:  pkg.DepartureDate,
		Status:         string(pkg.Status),
		CreatedAt:      pkg.CreatedAt,
	}
}

func packageResponses(packages []*domain.TravelPackage) []dto.PackageResponse {
	out := make([]dto.PackageResponse, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, packageResponse(pkg))
	}
	return out
}

func pagination(c *fiber.Ctx) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
