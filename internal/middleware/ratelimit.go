package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/hitoshi/studyplatform/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate  rate.Limit    // API全般のレート（req/sec）
	GeneralBurst int           // API全般のバーストサイズ
	LoginRate    rate.Limit    // ログインのレート（req/sec）
	LoginBurst   int           // ログインのバーストサイズ
	MaxClients   int           // 保持するクライアント数の上限
	IdleTTL      time.Duration // 最終アクセスからエントリを破棄するまでの時間
}

// NewRateLimiterConfig は1分あたりのリクエスト数から設定を生成する。
func NewRateLimiterConfig(generalPerMin, loginPerMin int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:  rate.Limit(float64(generalPerMin) / 60.0),
		GeneralBurst: generalPerMin,
		LoginRate:    rate.Limit(float64(loginPerMin) / 60.0),
		LoginBurst:   loginPerMin,
		MaxClients:   10000,
		IdleTTL:      10 * time.Minute,
	}
}

// limiterSet はクライアントキーごとのリミッターを有効期限付きLRUで保持する。
type limiterSet struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *rate.Limiter]
	limit rate.Limit
	burst int
}

func newLimiterSet(limit rate.Limit, burst, size int, ttl time.Duration) *limiterSet {
	return &limiterSet{
		cache: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
		limit: limit,
		burst: burst,
	}
}

// get はキーのリミッターを取得または作成する。取得時に有効期限を延長する。
func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.cache.Get(key)
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
	}
	s.cache.Add(key, l)
	return l
}

// RateLimiter はクライアントごとのレート制限を管理する。
// 認証済みリクエストはユーザーID、それ以外はクライアントIPで識別する。
// API全般とログインの2種類のレート制限を提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterSet
	login   *limiterSet
}

// NewRateLimiter は新しいRateLimiterを生成する。
// 期限切れエントリはLRUが自動で破棄する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxClients <= 0 {
		config.MaxClients = 10000
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		config:  config,
		general: newLimiterSet(config.GeneralRate, config.GeneralBurst, config.MaxClients, config.IdleTTL),
		login:   newLimiterSet(config.LoginRate, config.LoginBurst, config.MaxClients, config.IdleTTL),
	}
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// 認証ミドルウェアの後に配置するとユーザー単位で制限する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, rl.config.GeneralRate, "general")
}

// LoginMiddleware はログイン専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) LoginMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.login, rl.config.LoginRate, "login")
}

func (rl *RateLimiter) middleware(set *limiterSet, limit rate.Limit, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !set.get(key).Allow() {
				writeRateLimitResponse(w, r, limit)
				slog.Warn("rate limit exceeded",
					slog.String("client", key),
					slog.String("limit_type", limitType),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey はレート制限の識別キーを返す。
func clientKey(r *http.Request) string {
	if userID, err := UserIDFromContext(r.Context()); err == nil {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r *http.Request, limit rate.Limit) {
	// Retry-Afterの算出: 1トークンが補充されるまでの秒数
	retryAfterSec := int(math.Ceil(1.0 / float64(limit)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, r, http.StatusTooManyRequests, &model.APIError{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
