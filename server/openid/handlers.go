package openid

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/mediahub-app/mediahub/server/config"
)

const (
	stateCookie = "oidc_state"
	tokenCookie = "oidc_token"
)

var ErrNotWhitelisted = errors.New("email not allowed")

type claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(time.Minute * 10),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, oauth2Config.AuthCodeURL(state), http.StatusFound)
}

// SignIn is the redirect target of the identity provider.
func SignIn(w http.ResponseWriter, r *http.Request) {
	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	token, err := oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "missing id_token", http.StatusUnauthorized)
		return
	}

	idToken, err := verify(r.Context(), rawIDToken)
	if err != nil {
		slog.Warn("openid sign in rejected", slog.Any("err", err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    rawIDToken,
		Path:     "/",
		Expires:  idToken.Expiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, config.Instance().Server.BaseURL+"/", http.StatusFound)
}

func Logout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{stateCookie, tokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	http.Redirect(w, r, config.Instance().Server.BaseURL+"/", http.StatusFound)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(tokenCookie)
		if err != nil || c.Value == "" {
			http.Error(w, "not signed in", http.StatusUnauthorized)
			return
		}

		if _, err := verify(r.Context(), c.Value); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	if verifier == nil {
		return nil, errors.New("openid is not configured")
	}

	idToken, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	var c claims
	if err := idToken.Claims(&c); err != nil {
		return nil, err
	}

	if !allowed(c.Email, config.Instance().OpenId.EmailWhitelist) {
		return nil, ErrNotWhitelisted
	}

	return idToken, nil
}

// allowed reports whether email may sign in. An empty whitelist allows
// everyone the provider authenticates.
func allowed(email string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}
	return slices.ContainsFunc(whitelist, func(e string) bool {
		return strings.EqualFold(strings.TrimSpace(e), email)
	})
}
