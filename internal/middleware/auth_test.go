package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/raglegal/api/internal/auth"
	"github.com/raglegal/api/internal/model"
	"github.com/raglegal/api/internal/store"
)

type stubUserFinder struct {
	user *model.User
}

func (s *stubUserFinder) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, store.ErrNotFound
	}
	return s.user, nil
}

func authTestApp(t *testing.T, finder *stubUserFinder, extra ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	m := NewAuthMiddleware("test-secret", finder)
	handlers := append([]fiber.Handler{m.Authenticate()}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/protected", handlers...)
	return app
}

func request(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func issueTestToken(t *testing.T, username string, role model.UserRole) string {
	t.Helper()
	token, err := auth.IssueToken("test-secret", username, role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestAuthenticateAcceptsValidToken(t *testing.T) {
	finder := &stubUserFinder{user: &model.User{Username: "ayse", Role: model.RoleReviewer, IsActive: true}}
	app := authTestApp(t, finder)

	resp := request(t, app, issueTestToken(t, "ayse", model.RoleReviewer))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	app := authTestApp(t, &stubUserFinder{})

	resp := request(t, app, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	app := authTestApp(t, &stubUserFinder{})

	resp := request(t, app, "not.a.token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticateRejectsUnknownSubject(t *testing.T) {
	app := authTestApp(t, &stubUserFinder{})

	resp := request(t, app, issueTestToken(t, "ghost", model.RoleReviewer))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticateRejectsDeactivatedAccount(t *testing.T) {
	finder := &stubUserFinder{user: &model.User{Username: "ayse", Role: model.RoleReviewer, IsActive: false}}
	app := authTestApp(t, finder)

	resp := request(t, app, issueTestToken(t, "ayse", model.RoleReviewer))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestRequireRole(t *testing.T) {
	finder := &stubUserFinder{user: &model.User{Username: "ayse", Role: model.RoleUploader, IsActive: true}}
	token := issueTestToken(t, "ayse", model.RoleUploader)

	allowed := authTestApp(t, finder, RequireRole(model.RoleUploader, model.RoleAdmin))
	if resp := request(t, allowed, token); resp.StatusCode != http.StatusOK {
		t.Errorf("uploader on uploader route: status = %d, want 200", resp.StatusCode)
	}

	denied := authTestApp(t, finder, RequireRole(model.RoleReviewer))
	if resp := request(t, denied, token); resp.StatusCode != http.StatusForbidden {
		t.Errorf("uploader on reviewer route: status = %d, want 403", resp.StatusCode)
	}
}
