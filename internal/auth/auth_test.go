package auth

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository/memstore"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	user := &domain.User{ID: "u-1", Username: "tech1", Role: domain.RoleTechnician}

	token, exp, err := tm.GenerateToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "tech1", claims.Username)
	assert.Equal(t, domain.RoleTechnician, claims.Role)

	_, err = NewTokenManager("other", 30).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken(&domain.User{ID: "u-1"})
	require.NoError(t, err)

	tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret"))
	assert.Error(t, ComparePassword(hash, "wrong"))

	_, err = HashPassword("s3cret", 99)
	assert.NoError(t, err)
}

func newAuthApp(t *testing.T) (*fiber.App, *TokenManager, *domain.User, *domain.User) {
	t.Helper()
	store := memstore.New()
	tm := NewTokenManager("secret", 30)
	admin := &domain.User{Username: "root", Role: domain.RoleSuperAdmin}
	tech := &domain.User{Username: "tech1", Role: domain.RoleTechnician}
	require.NoError(t, store.Users().Create(context.Background(), admin))
	require.NoError(t, store.Users().Create(context.Background(), tech))

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	mw := NewAuthMiddleware(tm, store.Users())
	app.Get("/me", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		return c.SendString(user.Username)
	})
	app.Get("/admin", mw.Handle, RequireSuperAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, tm, admin, tech
}

func errorCode(t *testing.T, app *fiber.App, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var body struct {
		Code string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body.Code
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, admin, tech := newAuthApp(t)

	status, code := errorCode(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", code)

	status, _ = errorCode(t, app, "/me", "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	techToken, _, err := tm.GenerateToken(tech)
	require.NoError(t, err)
	status, code = errorCode(t, app, "/admin", techToken)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", code)

	adminToken, _, err := tm.GenerateToken(admin)
	require.NoError(t, err)
	status, _ = errorCode(t, app, "/admin", adminToken)
	assert.Equal(t, fiber.StatusNoContent, status)

	resp, err := app.Test(httptest.NewRequest("GET", "/me?access_token="+techToken, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareDeletedUser(t *testing.T) {
	app, tm, _, _ := newAuthApp(t)
	ghost, _, err := tm.GenerateToken(&domain.User{ID: "missing", Username: "ghost"})
	require.NoError(t, err)

	status, code := errorCode(t, app, "/me", ghost)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", code)
}
