package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phorium/phorium/internal/auth"
	"github.com/phorium/phorium/internal/middleware"
	"github.com/phorium/phorium/internal/model"
)

func newAccessHandler(t *testing.T) (*AccessHandler, *auth.SessionSigner) {
	t.Helper()

	signer, err := auth.NewSessionSigner(strings.Repeat("k", 32))
	if err != nil {
		t.Fatal(err)
	}
	codeHash, err := auth.HashSecret("open-sesame")
	if err != nil {
		t.Fatal(err)
	}
	adminHash, err := auth.HashSecret("root-pass")
	if err != nil {
		t.Fatal(err)
	}

	h := NewAccessHandler(signer, AccessConfig{
		AccessCodeHash:  codeHash,
		AdminSecretHash: adminHash,
		SessionTTL:      time.Hour,
	}, discardLogger())
	return h, signer
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAccessHandler_Access(t *testing.T) {
	h, signer := newAccessHandler(t)

	t.Run("valid code issues visitor cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Access(rec, httptest.NewRequest(http.MethodPost, "/access", strings.NewReader(`{"code":"open-sesame"}`)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		c := findCookie(rec, middleware.AccessCookieName)
		if c == nil || !c.HttpOnly {
			t.Fatalf("cookie = %+v", c)
		}
		sess, err := signer.Parse(c.Value)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if sess.Role != model.RoleVisitor {
			t.Errorf("role = %s", sess.Role)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Access(rec, httptest.NewRequest(http.MethodPost, "/access", strings.NewReader(`{"code":"guess"}`)))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
		if findCookie(rec, middleware.AccessCookieName) != nil {
			t.Error("cookie issued for a wrong code")
		}
	})
}

func TestAccessHandler_AdminSession(t *testing.T) {
	h, signer := newAccessHandler(t)

	rec := httptest.NewRecorder()
	h.AdminLogin(rec, httptest.NewRequest(http.MethodPost, "/admin/session", strings.NewReader(`{"secret":"open-sesame"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access code must not open the admin gate, status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.AdminLogin(rec, httptest.NewRequest(http.MethodPost, "/admin/session", strings.NewReader(`{"secret":"root-pass"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	c := findCookie(rec, middleware.AdminCookieName)
	if c == nil {
		t.Fatal("admin cookie missing")
	}
	sess, err := signer.Parse(c.Value)
	if err != nil || !sess.IsAdmin() {
		t.Fatalf("session = %+v, err = %v", sess, err)
	}

	rec = httptest.NewRecorder()
	h.AdminLogout(rec, httptest.NewRequest(http.MethodDelete, "/admin/session", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if c := findCookie(rec, middleware.AdminCookieName); c == nil || c.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want expired", c)
	}
}

func TestAccessHandler_Disabled(t *testing.T) {
	signer, err := auth.NewSessionSigner(strings.Repeat("k", 32))
	if err != nil {
		t.Fatal(err)
	}
	h := NewAccessHandler(signer, AccessConfig{SessionTTL: time.Hour}, discardLogger())

	rec := httptest.NewRecorder()
	h.Access(rec, httptest.NewRequest(http.MethodPost, "/access", strings.NewReader(`{"code":""}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("access status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.AdminLogin(rec, httptest.NewRequest(http.MethodPost, "/admin/session", strings.NewReader(`{"secret":""}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("admin status = %d, want 404", rec.Code)
	}
}
