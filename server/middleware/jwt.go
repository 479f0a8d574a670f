package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/user"
)

// Authenticated lets a request through only when it carries a valid session
// token, either as cookie or as bearer token.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearer(r)
		if raw == "" {
			if c, err := r.Cookie(user.CookieName); err == nil {
				raw = c.Value
			}
		}

		if raw == "" {
			http.Error(w, "missing authentication token", http.StatusUnauthorized)
			return
		}

		secret := []byte(config.Instance().Authentication.JWTSecret)

		if _, err := user.ParseToken(raw, secret); err != nil {
			slog.Debug("rejected token", slog.Any("err", err))
			http.Error(w, "invalid authentication token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
