package configuration

import (
	"context"
	"fmt"
	"sort"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Provider struct {
	Name        string
	Type        models.ProviderType
	Order       int
	Provider    *oidc.Provider
	Verifier    *oidc.IDTokenVerifier
	OauthConfig *oauth2.Config
}

type Providers map[string]Provider

// LoadProviders resolves OIDC discovery documents for every configured provider.
// Providers whose discovery fails are skipped so that local login keeps working.
func LoadProviders(
	ctx context.Context,
	apiURL string,
	providersCfg map[string]models.ProviderConfiguration,
) Providers {
	keys := make([]string, 0, len(providersCfg))
	for key := range providersCfg {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	providers := Providers{}
	for _, key := range keys {
		cfg := providersCfg[key]

		switch cfg.Type {
		case models.LocalProviderType:
			providers[key] = Provider{Name: cfg.Name, Type: cfg.Type, Order: len(providers)}
		case models.OIDCProviderType:
			provider, err := oidc.NewProvider(ctx, cfg.OIDC.Issuer)
			if err != nil {
				zap.L().Error("Failed to load OIDC provider",
					zap.String("provider", key),
					zap.String("issuer", cfg.OIDC.Issuer),
					zap.Error(err))
				continue
			}

			scopes := cfg.OIDC.Scopes
			if len(scopes) == 0 {
				scopes = []string{oidc.ScopeOpenID, "profile", "email"}
			}

			providers[key] = Provider{
				Name:     cfg.Name,
				Type:     cfg.Type,
				Order:    len(providers),
				Provider: provider,
				Verifier: provider.Verifier(&oidc.Config{ClientID: cfg.OIDC.ClientID}),
				OauthConfig: &oauth2.Config{
					ClientID:     cfg.OIDC.ClientID,
					ClientSecret: cfg.OIDC.ClientSecret,
					Endpoint:     provider.Endpoint(),
					RedirectURL:  fmt.Sprintf("%s/api/auth/providers/%s/callback", apiURL, key),
					Scopes:       scopes,
				},
			}
			zap.L().Info("Loaded OIDC provider", zap.String("provider", key))
		}
	}

	return providers
}
