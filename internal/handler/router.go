package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studyplatform/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	TokenVerifier      middleware.TokenVerifier
	StatusRecorder     middleware.StatusRecorder
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	// HSTS はHTTPSで公開する場合にStrict-Transport-Securityを付与する。
	HSTS bool

	// 運用
	DB             Pinger
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ドメイン
	UserService     UserServiceInterface
	StudyService    StudyServiceInterface
	CalendarService CalendarServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS
//	/auth/*: RateLimit(LoginMiddleware, IP単位)
//	/api/*:  Auth(JWT) → RateLimit(GeneralMiddleware, ユーザー単位)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	studyHandler := NewStudyHandler(deps.StudyService)
	calendarHandler := NewCalendarHandler(deps.CalendarService)

	// --- 認証不要のルート ---

	if deps.DB != nil {
		r.Get("/health", NewHealthHandler(deps.DB))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth/{provider}", func(r chi.Router) {
		r.Use(deps.RateLimiter.LoginMiddleware())
		r.Get("/login", authHandler.Login)
		r.Post("/login", authHandler.PostLogin)
		r.Get("/callback", authHandler.Callback)
	})

	// --- 認証が必要なルート ---
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Get("/me", userHandler.Me)
			r.Delete("/me", userHandler.Withdraw)
			r.Post("/me/activate", userHandler.Reactivate)
		})

		// スタディ
		r.Route("/studies", func(r chi.Router) {
			r.Post("/", studyHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", studyHandler.Get)
				r.Get("/calendars", calendarHandler.ListByStudy)
				r.Post("/calendars", calendarHandler.Create)
			})
		})

		// カレンダー
		r.Route("/calendars/{id}", func(r chi.Router) {
			r.Get("/", calendarHandler.Get)
			r.Put("/", calendarHandler.Update)
			r.Post("/deactivate", calendarHandler.Deactivate)
			r.Post("/activate", calendarHandler.Activate)
		})
	})

	return r
}
