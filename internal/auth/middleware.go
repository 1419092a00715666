package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/observability"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

const principalKey = "auth_principal"

// CookieName is the cookie carrying the transport-encoded token.
const CookieName = "accessToken"

// Principal represents the authenticated caller attached to the request.
type Principal struct {
	Account   *domain.Account
	Role      domain.Role
	SessionID string
}

// AuthMiddleware is the authentication gate: it decodes the transportable
// token, resolves the role to its account store and enforces the liveness,
// activity and session-binding invariants before a request proceeds.
type AuthMiddleware struct {
	tokens  *TokenManager
	stores  map[domain.Role]repository.AccountStore
	clock   Clock
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs the gate over a closed role-to-store table.
func NewAuthMiddleware(tokens *TokenManager, stores map[domain.Role]repository.AccountStore, clock Clock, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if clock == nil {
		clock = SystemClock()
	}
	return &AuthMiddleware{tokens: tokens, stores: stores, clock: clock, logger: logger, metrics: metrics}
}

// Handle enforces authentication for protected routes. Every rejection
// surfaces to the client as a generic 401; the internal reason is only logged,
// so probes cannot learn which verification step failed.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.authenticate(c)
	if err != nil {
		m.metrics.RecordAuthRejection(err.Error())
		m.logger.Warn("authentication rejected",
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.Error(err),
		)
		return apperrors.NewUnauthorized("authentication failed")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*Principal, error) {
	token, err := extractToken(c)
	if err != nil {
		return nil, err
	}

	claims, err := m.tokens.Decode(token)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	if m.tokens.ExceedsMaxLifetime(claims, now) {
		return nil, ErrMaxLifetime
	}

	store, ok := m.stores[claims.Role]
	if !ok {
		return nil, ErrUnknownRole
	}

	account, err := store.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	// The stored session id is the single valid fingerprint per account; any
	// later login or logout rotated it, so a mismatch always fails closed.
	if account.SessionID == nil || *account.SessionID != claims.SessionID {
		return nil, ErrSessionMismatch
	}

	if !account.Active() {
		return nil, ErrAccountDisabled
	}

	return &Principal{Account: account, Role: claims.Role, SessionID: claims.SessionID}, nil
}

func extractToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", ErrMissingToken
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if cookie := c.Cookies(CookieName); cookie != "" {
		return cookie, nil
	}
	return "", ErrMissingToken
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
