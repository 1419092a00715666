package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/booking-service/internal/domain"
	"github.com/spec-kit/booking-service/internal/observability"
	"github.com/spec-kit/booking-service/internal/repository"
	apperrors "github.com/spec-kit/booking-service/pkg/util"
)

type stubAccountStore struct {
	getByID func(ctx context.Context, id string) (*domain.Account, error)
}

func (s *stubAccountStore) Create(ctx context.Context, account *domain.Account) error { return nil }
func (s *stubAccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubAccountStore) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return s.getByID(ctx, id)
}
func (s *stubAccountStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return nil
}
func (s *stubAccountStore) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	return nil
}
func (s *stubAccountStore) IncrementLoginAttempts(ctx context.Context, id string) (int, error) {
	return 0, nil
}
func (s *stubAccountStore) SetLockout(ctx context.Context, id string, until time.Time) error {
	return nil
}
func (s *stubAccountStore) ClearLockout(ctx context.Context, id string) error { return nil }
func (s *stubAccountStore) RecordLogin(ctx context.Context, id, sessionID string, at time.Time) error {
	return nil
}
func (s *stubAccountStore) RotateSession(ctx context.Context, id, sessionID string) error {
	return nil
}
func (s *stubAccountStore) ListByStatus(ctx context.Context, status domain.AccountStatus, limit, offset int) ([]*domain.Account, error) {
	return nil, nil
}

func gateApp(t *testing.T, mw *AuthMiddleware) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": de.Message})
		},
	})
	app.Get("/protected", mw.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"account_id": principal.Account.ID, "role": principal.Role})
	})
	return app
}

func activeAccount(sessionID string) *domain.Account {
	return &domain.Account{
		ID:        "acc-1",
		Email:     "user@example.com",
		Role:      domain.RoleUser,
		Status:    domain.AccountStatusActive,
		SessionID: &sessionID,
	}
}

func TestAuthMiddlewareAcceptsValidBearerToken(t *testing.T) {
	clock := newFakeClock()
	tm := newTestTokenManager(t, clock)
	store := &stubAccountStore{
		getByID: func(ctx context.Context, id string) (*domain.Account, error) {
			return activeAccount("sess-abc"), nil
		},
	}
	mw := NewAuthMiddleware(tm, map[domain.Role]repository.AccountStore{domain.RoleUser: store}, clock, zap.NewNop(), observability.NewMetrics())
	app := gateApp(t, mw)

	token, _, err := tm.Issue(domain.RoleUser, "acc-1", "user@example.com", "sess-abc")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareAcceptsCookieToken(t *testing.T) {
	clock := newFakeClock()
	tm := newTestTokenManager(t, clock)
	store := &stubAccountStore{
		getByID: func(ctx context.Context, id string) (*domain.Account, error) {
			return activeAccount("sess-abc"), nil
		},
	}
	mw := NewAuthMiddleware(tm, map[domain.Role]repository.AccountStore{domain.RoleUser: store}, clock, zap.NewNop(), observability.NewMetrics())
	app := gateApp(t, mw)

	token, _, err := tm.Issue(domain.RoleUser, "acc-1", "user@example.com", "sess-abc")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareRejections(t *testing.T) {
	clock := newFakeClock()
	tm := newTestTokenManager(t, clock)

	otherSession := "sess-rotated"
	disabled := activeAccount("sess-abc")
	disabled.Status = domain.AccountStatusSuspended

	tests := []struct {
		name    string
		request func(t *testing.T) *http.Request
		getByID func(ctx context.Context, id string) (*domain.Account, error)
	}{
		{
			name: "missing token",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/protected", nil)
			},
		},
		{
			name: "malformed authorization header",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set(fiber.HeaderAuthorization, "Basic abc123")
				return req
			},
		},
		{
			name: "garbage token",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set(fiber.HeaderAuthorization, "Bearer not-an-envelope")
				return req
			},
		},
		{
			name: "session superseded by later login",
			request: func(t *testing.T) *http.Request {
				token, _, err := tm.Issue(domain.RoleUser, "acc-1", "user@example.com", "sess-abc")
				require.NoError(t, err)
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
				return req
			},
			getByID: func(ctx context.Context, id string) (*domain.Account, error) {
				return activeAccount(otherSession), nil
			},
		},
		{
			name: "account deleted after issuance",
			request: func(t *testing.T) *http.Request {
				token, _, err := tm.Issue(domain.RoleUser, "acc-1", "user@example.com", "sess-abc")
				require.NoError(t, err)
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
				return req
			},
			getByID: func(ctx context.Context, id string) (*domain.Account, error) {
				return nil, pgx.ErrNoRows
			},
		},
		{
			name: "account suspended after issuance",
			request: func(t *testing.T) *http.Request {
				token, _, err := tm.Issue(domain.RoleUser, "acc-1", "user@example.com", "sess-abc")
				require.NoError(t, err)
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
				return req
			},
			getByID: func(ctx context.Context, id string) (*domain.Account, error) {
				return disabled, nil
			},
		},
		{
			name: "role claim with no store",
			request: func(t *testing.T) *http.Request {
				token, _, err := tm.Issue(domain.RoleAgency, "acc-1", "agency@example.com", "sess-abc")
				require.NoError(t, err)
				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
				return req
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubAccountStore{getByID: tc.getByID}
			metrics := observability.NewMetrics()
			mw := NewAuthMiddleware(tm, map[domain.Role]repository.AccountStore{domain.RoleUser: store}, clock, zap.NewNop(), metrics)
			app := gateApp(t, mw)

			resp, err := app.Test(tc.request(t))
			require.NoError(t, err)
			// Every rejection class looks identical to the client.
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			total := int64(0)
			for _, count := range metrics.AuthRejections() {
				total += count
			}
			assert.Equal(t, int64(1), total, "rejection kind must be counted internally")
		})
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	clock := newFakeClock()
	tm := newTestTokenManager(t, clock)
	store := &stubAccountStore{
		getByID: func(ctx context.Context, id string) (*domain.Account, error) {
			return activeAccount("sess-abc"), nil
		},
	}
	mw := NewAuthMiddleware(tm, map[domain.Role]repository.AccountStore{domain.RoleUser: store}, clock, zap.NewNop(), observability.NewMetrics())
	app := gateApp(t, mw)

	token, _, err := tm.Issue(domain.RoleUser, "acc-1", "user@example.com", "sess-abc")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequireRoles(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": de.Message})
		},
	})
	app.Get("/agency-only",
		func(c *fiber.Ctx) error {
			role := domain.Role(c.Get("X-Test-Role"))
			if role != "" {
				c.Locals(principalKey, &Principal{Account: &domain.Account{ID: "acc-1"}, Role: role})
			}
			return c.Next()
		},
		RequireAgency(),
		func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) },
	)

	tests := []struct {
		name   string
		role   string
		status int
	}{
		{"matching role", string(domain.RoleAgency), http.StatusOK},
		{"wrong role", string(domain.RoleUser), http.StatusForbidden},
		{"no principal", "", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/agency-only", nil)
			if tc.role != "" {
				req.Header.Set("X-Test-Role", tc.role)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
