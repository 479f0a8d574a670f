package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/user"
)

func TestAuthenticated(t *testing.T) {
	config.Instance().Authentication.JWTSecret = "test-secret"

	valid, _, err := user.IssueToken("admin", []byte("test-secret"), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	forged, _, err := user.IssueToken("admin", []byte("other-secret"), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	expired, _, err := user.IssueToken("admin", []byte("test-secret"), time.Now().Add(-time.Hour*24*365))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer " + valid, want: http.StatusOK},
		{name: "cookie", cookie: valid, want: http.StatusOK},
		{name: "wrong secret", cookie: forged, want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", want: http.StatusUnauthorized},
	}

	h := Authenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: user.CookieName, Value: tt.cookie})
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestApplyAuthenticationByConfigDisabled(t *testing.T) {
	config.Instance().Authentication.RequireAuth = false
	config.Instance().OpenId.UseOpenId = false

	h := ApplyAuthenticationByConfig(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/info", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}
