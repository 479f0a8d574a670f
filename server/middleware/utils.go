package middlewares

import (
	"net/http"

	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/openid"
)

func ApplyAuthenticationByConfig(next http.Handler) http.Handler {
	handler := next

	if config.Instance().Authentication.RequireAuth {
		handler = Authenticated(handler)
	}
	if config.Instance().OpenId.UseOpenId {
		handler = openid.Middleware(handler)
	}

	return handler
}
