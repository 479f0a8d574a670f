package openid

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/mediahub-app/mediahub/server/config"
)

var (
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
)

// Configure discovers the identity provider. It is a no-op unless OpenID
// login is enabled.
func Configure(ctx context.Context) error {
	if !config.Instance().OpenId.UseOpenId {
		return nil
	}

	provider, err := oidc.NewProvider(ctx, config.Instance().OpenId.ProviderURL)
	if err != nil {
		return err
	}

	oauth2Config = oauth2.Config{
		ClientID:     config.Instance().OpenId.ClientId,
		ClientSecret: config.Instance().OpenId.ClientSecret,
		RedirectURL:  config.Instance().OpenId.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	verifier = provider.Verifier(&oidc.Config{
		ClientID: config.Instance().OpenId.ClientId,
	})

	return nil
}
