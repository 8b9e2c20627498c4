// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/hitoshi/studyplatform/internal/model"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session token (JWT)
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// OAuth
	Providers        map[model.ProviderName]ProviderConfig
	OAuthHTTPTimeout time.Duration

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitLogin   int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigins []string
}

// ProviderConfig はOAuthプロバイダー1件分の設定。
// URIが空の場合はプロバイダーごとの既定値が使われる。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURI      string
	TokenURI     string
	UserInfoURI  string
}

type providerEnv struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI"`
	AuthURI      string `env:"AUTH_URI"`
	TokenURI     string `env:"TOKEN_URI"`
	UserInfoURI  string `env:"USER_INFO_URI"`
}

// rawEnv はパース直後の環境変数値を保持する。検証はLoad内で行う。
type rawEnv struct {
	DatabaseURL        string        `env:"DATABASE_URL"`
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTIssuer          string        `env:"JWT_ISSUER"          envDefault:"studyplatform"`
	JWTTTL             time.Duration `env:"JWT_TTL"             envDefault:"24h"`
	OAuthHTTPTimeout   time.Duration `env:"OAUTH_HTTP_TIMEOUT"  envDefault:"10s"`
	RateLimitGeneral   int           `env:"RATE_LIMIT_GENERAL"  envDefault:"120"`
	RateLimitLogin     int           `env:"RATE_LIMIT_LOGIN"    envDefault:"10"`
	LogLevel           string        `env:"LOG_LEVEL"           envDefault:"info"`
	ServerPort         string        `env:"SERVER_PORT"         envDefault:"8080"`
	BaseURL            string        `env:"BASE_URL"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	GitHub providerEnv `envPrefix:"OAUTH_GITHUB_"`
	Kakao  providerEnv `envPrefix:"OAUTH_KAKAO_"`
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	// .envは任意。存在しなくてもエラーにしない
	_ = godotenv.Load()

	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	var missing []string
	if strings.TrimSpace(raw.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(raw.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(raw.BaseURL) == "" {
		missing = append(missing, "BASE_URL")
	}

	providers := make(map[model.ProviderName]ProviderConfig)
	for name, p := range map[model.ProviderName]providerEnv{
		model.ProviderGitHub: raw.GitHub,
		model.ProviderKakao:  raw.Kakao,
	} {
		if p.ClientID == "" {
			continue
		}
		prefix := "OAUTH_" + string(name) + "_"
		if p.ClientSecret == "" {
			missing = append(missing, prefix+"CLIENT_SECRET")
		}
		if p.RedirectURI == "" {
			missing = append(missing, prefix+"REDIRECT_URI")
		}
		providers[name] = ProviderConfig(p)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one OAuth provider must be configured (OAUTH_GITHUB_CLIENT_ID or OAUTH_KAKAO_CLIENT_ID)")
	}
	origins, err := parseOrigins(raw.CORSAllowedOrigins)
	if err != nil {
		return nil, err
	}
	if raw.RateLimitGeneral <= 0 || raw.RateLimitLogin <= 0 {
		return nil, fmt.Errorf("rate limits must be positive: general=%d login=%d", raw.RateLimitGeneral, raw.RateLimitLogin)
	}

	return &Config{
		DatabaseURL:        raw.DatabaseURL,
		JWTSecret:          raw.JWTSecret,
		JWTIssuer:          raw.JWTIssuer,
		JWTTTL:             raw.JWTTTL,
		Providers:          providers,
		OAuthHTTPTimeout:   raw.OAuthHTTPTimeout,
		RateLimitGeneral:   raw.RateLimitGeneral,
		RateLimitLogin:     raw.RateLimitLogin,
		LogLevel:           raw.LogLevel,
		ServerPort:         raw.ServerPort,
		BaseURL:            raw.BaseURL,
		CORSAllowedOrigins: origins,
	}, nil
}

// parseOrigins はCORS_ALLOWED_ORIGINSの各要素を"scheme://host[:port]"形式に正規化する。
// パスやクエリを含む値、ワイルドカードはエラーとする。
func parseOrigins(raw []string) ([]string, error) {
	origins := make([]string, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" ||
			u.Path != "" || u.RawQuery != "" || u.User != nil || strings.Contains(u.Host, "*") {
			return nil, fmt.Errorf("invalid CORS_ALLOWED_ORIGINS entry: %q", o)
		}
		origins = append(origins, u.Scheme+"://"+strings.ToLower(u.Host))
	}
	return origins, nil
}
