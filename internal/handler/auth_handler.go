// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studyplatform/internal/model"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(provider model.ProviderName, state string) (string, error)
	Login(ctx context.Context, provider model.ProviderName, code string) (*model.LoginResponse, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
	StateMaxAge  int // stateCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.StateMaxAge <= 0 {
		config.StateMaxAge = 600
	}
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// loginRequest はSPAからのログインリクエストのボディ。
type loginRequest struct {
	Code string `json:"code"`
}

// Login はOAuthフローを開始する。
// GET /auth/{provider}/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerParam(w, r)
	if !ok {
		return
	}

	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		handleServiceError(w, r, err)
		return
	}

	url, err := h.service.GetLoginURL(provider, state)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/" + provider.Slug(),
		MaxAge:   h.config.StateMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッショントークンをJSONで返す。
// GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerParam(w, r)
	if !ok {
		return
	}

	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("provider", string(provider)))
		writeAPIErrorResponse(w, r, http.StatusBadRequest, model.NewValidationError("stateが一致しません"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/auth/" + provider.Slug(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.login(w, r, provider, r.URL.Query().Get("code"))
}

// PostLogin はSPAが取得した認可コードでログインする。
// POST /auth/{provider}/login
func (h *AuthHandler) PostLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := providerParam(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	h.login(w, r, provider, req.Code)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, provider model.ProviderName, code string) {
	resp, err := h.service.Login(r.Context(), provider, code)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// providerParam はURLパラメータ"provider"を解決する。未知の値には404を書き込む。
func providerParam(w http.ResponseWriter, r *http.Request) (model.ProviderName, bool) {
	raw := chi.URLParam(r, "provider")
	provider, err := model.ParseProviderName(raw)
	if err != nil {
		writeAPIErrorResponse(w, r, http.StatusNotFound, model.NewUnknownProviderError(raw))
		return "", false
	}
	return provider, true
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
