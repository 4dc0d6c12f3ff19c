package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{Issuer: "clinic", SigningKey: []byte("0123456789abcdef0123456789abcdef")}

func serveJWT(t *testing.T, cfg JWTConfig, authHeader string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var captured echo.Context
	handler := func(c echo.Context) error {
		captured = c
		return c.String(http.StatusOK, "ok")
	}
	err := JWTMiddleware(cfg)(handler)(c)
	return captured, err
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, err := serveJWT(t, testCfg, "")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	for _, h := range []string{"Basic abc", "Bearer", "token-only"} {
		if _, err := serveJWT(t, testCfg, h); err == nil {
			t.Errorf("expected error for header %q", h)
		}
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testCfg, "staff-7", []string{RoleDoctor, RoleNurse}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	c, err := serveJWT(t, testCfg, "Bearer "+token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if UserIDFromContext(ctx) != "staff-7" {
		t.Errorf("expected subject staff-7, got %q", UserIDFromContext(ctx))
	}
	roles := RolesFromContext(ctx)
	if len(roles) != 2 || roles[0] != RoleDoctor {
		t.Errorf("unexpected roles %v", roles)
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	token, err := IssueToken(testCfg, "staff-7", []string{RoleDoctor}, time.Hour, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := serveJWT(t, testCfg, "Bearer "+token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	other := JWTConfig{Issuer: "clinic", SigningKey: []byte("another-key-another-key-another-k")}
	token, _ := IssueToken(other, "staff-7", []string{RoleDoctor}, time.Hour, time.Now())
	if _, err := serveJWT(t, testCfg, "Bearer "+token); err == nil {
		t.Fatal("expected token signed with another key to be rejected")
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	other := JWTConfig{Issuer: "elsewhere", SigningKey: testCfg.SigningKey}
	token, _ := IssueToken(other, "staff-7", []string{RoleDoctor}, time.Hour, time.Now())
	if _, err := serveJWT(t, testCfg, "Bearer "+token); err == nil {
		t.Fatal("expected token from another issuer to be rejected")
	}
}

func TestIssueToken_UnknownRole(t *testing.T) {
	if _, err := IssueToken(testCfg, "x", []string{"physician"}, time.Hour, time.Now()); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestDevAuthMiddleware_NoToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if UserIDFromContext(c.Request().Context()) != "dev-user" {
			t.Error("expected dev-user")
		}
		roles := RolesFromContext(c.Request().Context())
		if len(roles) != 1 || roles[0] != RoleAdmin {
			t.Errorf("expected admin role, got %v", roles)
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := DevAuthMiddleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
