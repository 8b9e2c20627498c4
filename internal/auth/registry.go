package auth

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/hitoshi/studyplatform/internal/config"
	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/security"
)

// Registry はプロバイダー名からOAuthProviderを引く対応表。起動時に1回だけ構築する。
type Registry struct {
	providers map[model.ProviderName]OAuthProvider
}

// NewRegistry は与えられたプロバイダーでRegistryを生成する。
func NewRegistry(providers ...OAuthProvider) *Registry {
	r := &Registry{providers: make(map[model.ProviderName]OAuthProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// BuildRegistry は設定からOAuthClientを生成してRegistryを構築する。
// guardが指定された場合、全エンドポイントURLを事前に検証する。
func BuildRegistry(cfgs map[model.ProviderName]config.ProviderConfig, httpClient *http.Client, guard security.SSRFGuardService) (*Registry, error) {
	providers := make([]OAuthProvider, 0, len(cfgs))
	for name, cfg := range cfgs {
		client, err := NewOAuthClient(name, cfg, httpClient)
		if err != nil {
			return nil, err
		}
		if guard != nil {
			for _, endpoint := range client.Endpoints() {
				if err := guard.ValidateURL(endpoint); err != nil {
					return nil, fmt.Errorf("invalid endpoint for %s: %w", name, err)
				}
			}
		}
		providers = append(providers, client)
	}
	return NewRegistry(providers...), nil
}

// Get は指定プロバイダーを返す。未登録の場合はUNKNOWN_PROVIDERエラーを返す。
func (r *Registry) Get(name model.ProviderName) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, model.NewUnknownProviderError(string(name))
	}
	return p, nil
}

// Names は登録済みのプロバイダー名を昇順で返す。
func (r *Registry) Names() []model.ProviderName {
	names := make([]model.ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
