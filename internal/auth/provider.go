package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/hitoshi/studyplatform/internal/config"
	"github.com/hitoshi/studyplatform/internal/model"
)

// maxProfileSize はユーザー情報レスポンスの読み込み上限。
const maxProfileSize = 1 << 20

// providerDefaults はプロバイダーごとの既定エンドポイントと属性の位置。
type providerDefaults struct {
	AuthURI     string
	TokenURI    string
	UserInfoURI string
	Scopes      []string
	// AuthScheme はユーザー情報取得時のAuthorizationヘッダーのスキーム。
	AuthScheme string
	EmailPath  []string
	NamePath   []string
	// LoginKey はNameが空の場合に使うアカウント名のキー。
	LoginKey string
}

var defaultsByProvider = map[model.ProviderName]providerDefaults{
	model.ProviderGitHub: {
		AuthURI:     "https://github.com/login/oauth/authorize",
		TokenURI:    "https://github.com/login/oauth/access_token",
		UserInfoURI: "https://api.github.com/user",
		Scopes:      []string{"read:user", "user:email"},
		AuthScheme:  "token",
		EmailPath:   []string{"email"},
		NamePath:    []string{"name"},
		LoginKey:    "login",
	},
	model.ProviderKakao: {
		AuthURI:     "https://kauth.kakao.com/oauth/authorize",
		TokenURI:    "https://kauth.kakao.com/oauth/token",
		UserInfoURI: "https://kapi.kakao.com/v2/user/me",
		Scopes:      []string{"account_email", "profile_nickname"},
		AuthScheme:  "Bearer",
		EmailPath:   []string{"kakao_account", "email"},
		NamePath:    []string{"kakao_account", "profile", "nickname"},
	},
}

// Profile はプロバイダーのユーザー情報エンドポイントが返したキーと値の組。
// 形状の検証は行わない。
type Profile map[string]any

// lookupString はネストしたキーをたどって文字列値を返す。
// 途中のキーが存在しない、または値が文字列でない場合は空文字列を返す。
func (p Profile) lookupString(path []string) string {
	var cur any = map[string]any(p)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}

// OAuthClient は1つのOAuthプロバイダーとの認可コード交換とユーザー情報取得を行う。
type OAuthClient struct {
	name        model.ProviderName
	oauth       *oauth2.Config
	userInfoURL string
	defaults    providerDefaults
	httpClient  *http.Client
}

// NewOAuthClient はOAuthClientを生成する。
// cfgのURIが空の場合はプロバイダーの既定値を使う。
func NewOAuthClient(name model.ProviderName, cfg config.ProviderConfig, httpClient *http.Client) (*OAuthClient, error) {
	d, ok := defaultsByProvider[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	if cfg.AuthURI == "" {
		cfg.AuthURI = d.AuthURI
	}
	if cfg.TokenURI == "" {
		cfg.TokenURI = d.TokenURI
	}
	if cfg.UserInfoURI == "" {
		cfg.UserInfoURI = d.UserInfoURI
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OAuthClient{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       d.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURI,
				TokenURL:  cfg.TokenURI,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURI,
		defaults:    d,
		httpClient:  httpClient,
	}, nil
}

// Name はプロバイダー名を返す。
func (c *OAuthClient) Name() model.ProviderName {
	return c.name
}

// Endpoints は外部呼び出し先のURLを返す。起動時の検証に使用する。
func (c *OAuthClient) Endpoints() []string {
	return []string{c.oauth.Endpoint.AuthURL, c.oauth.Endpoint.TokenURL, c.userInfoURL}
}

// GetLoginURL はプロバイダーの同意画面URLを生成する。
func (c *OAuthClient) GetLoginURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// client_id, client_secret, redirect_uri, code をフォーム形式でPOSTする。
// リトライは行わない。
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", model.NewValidationError("認可コードが指定されていません")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", &model.IntegrationError{Provider: c.name, Op: "token_exchange", Err: err}
	}
	if tok.AccessToken == "" {
		return "", &model.IntegrationError{Provider: c.name, Op: "token_exchange", Err: fmt.Errorf("empty access_token in response")}
	}
	return tok.AccessToken, nil
}

// FetchProfile はアクセストークンでユーザー情報を取得する。
// レスポンスがJSONオブジェクトであることのみ検証する。
func (c *OAuthClient) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.userInfoURL, nil)
	if err != nil {
		return nil, c.profileError(fmt.Errorf("failed to create user info request: %w", err))
	}
	req.Header.Set("Authorization", c.defaults.AuthScheme+" "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.profileError(fmt.Errorf("user info request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return nil, c.profileError(fmt.Errorf("failed to read user info response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.profileError(fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, c.profileError(fmt.Errorf("failed to parse user info response: %w", err))
	}
	if profile == nil {
		return nil, c.profileError(fmt.Errorf("user info response is not a JSON object"))
	}
	return profile, nil
}

// Identity はプロフィールからemailと表示名を取り出す。
// 表示名が無い場合はアカウント名、それも無ければemailのローカル部を使う。
func (c *OAuthClient) Identity(p Profile) (email, name string) {
	email = p.lookupString(c.defaults.EmailPath)
	name = p.lookupString(c.defaults.NamePath)
	if name == "" && c.defaults.LoginKey != "" {
		name = p.lookupString([]string{c.defaults.LoginKey})
	}
	if name == "" {
		name = localPart(email)
	}
	return email, name
}

func (c *OAuthClient) profileError(err error) error {
	return &model.IntegrationError{Provider: c.name, Op: "profile_fetch", Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// compile-time interface check
var _ OAuthProvider = (*OAuthClient)(nil)
