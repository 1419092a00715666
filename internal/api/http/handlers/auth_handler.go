package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/booking-service/internal/api/dto"
	"github.com/spec-kit/booking-service/internal/auth"
	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/service"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

// AuthHandler exposes registration, login and session endpoints for all roles.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// RegisterUser handles POST /auth/users/register.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	return h.register(c, domain.RoleUser)
}

// RegisterAgency handles POST /auth/agencies/register. New agencies stay
// pending until a super-admin approves them.
func (h *AuthHandler) RegisterAgency(c *fiber.Ctx) error {
	return h.register(c, domain.RoleAgency)
}

// LoginUser handles POST /auth/users/login.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	return h.login(c, domain.RoleUser)
}

// LoginAgency handles POST /auth/agencies/login.
func (h *AuthHandler) LoginAgency(c *fiber.Ctx) error {
	return h.login(c, domain.RoleAgency)
}

// LoginSuperAdmin handles POST /auth/superadmins/login.
func (h *AuthHandler) LoginSuperAdmin(c *fiber.Ctx) error {
	return h.login(c, domain.RoleSuperAdmin)
}

// Logout handles POST /auth/logout. Rotating the session id kills the token
// the client holds; clearing the cookie is cosmetic on top of that.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.Context(), principal.Role, principal.Account.ID); err != nil {
		return apperrors.MapError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "logged out"}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": accountResponse(principal.Account)})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current and new password required", nil)
	}

	if err := h.auth.ChangePassword(c.Context(), principal.Role, principal.Account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return mapAuthError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password changed"}})
}

// RequestPasswordReset handles POST /auth/password/reset/request. The response
// does not reveal whether the email exists.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}

	if _, err := h.auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
		// Intentionally identical response for unknown emails.
		return c.JSON(fiber.Map{"data": fiber.Map{"message": "reset requested"}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "reset requested"}})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new password required", nil)
	}

	if err := h.auth.ConfirmPasswordReset(c.Context(), req.Token, req.NewPassword); err != nil {
		return apperrors.NewValidationError("invalid or expired token", nil)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password reset"}})
}

func (h *AuthHandler) register(c *fiber.Ctx, role domain.Role) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return apperrors.NewValidationError("name, email, password required", nil)
	}

	account, err := h.auth.Register(c.Context(), role, req.Name, req.Email, req.Password)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": accountResponse(account)})
}

func (h *AuthHandler) login(c *fiber.Ctx, role domain.Role) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.Context(), role, req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
		MaxAge:   86400,
	})

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"account": accountResponse(result.Account),
			"auth":    dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		},
	})
}

// mapAuthError converts verifier errors into the two client-visible shapes:
// a lockout response with remaining minutes, or a generic invalid-credentials
// response. Wrong-password and unknown-email render identically.
func mapAuthError(err error) error {
	var locked *auth.LockedOutError
	if errors.As(err, &locked) {
		return apperrors.NewLocked("account temporarily locked", map[string]any{
			"retry_after_minutes": locked.RemainingMinutes(),
		})
	}

	var creds *auth.CredentialsError
	if errors.As(err, &creds) {
		return apperrors.NewDomainError("UNAUTHORIZED", "Invalid credentials", http.StatusUnauthorized, map[string]any{
			"attempts_remaining": creds.AttemptsRemaining,
		})
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return apperrors.NewDomainError("UNAUTHORIZED", "Invalid credentials", http.StatusUnauthorized, nil)
	}
	if errors.Is(err, auth.ErrAccountDisabled) {
		return apperrors.NewForbidden("account not active")
	}
	return apperrors.MapError(err)
}

func accountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Role:      string(account.Role),
		Status:    string(account.Status),
		LastLogin: account.LastLogin,
	}
}
