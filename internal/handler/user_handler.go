package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/studyplatform/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, userID int64) (*model.User, error)
	// Deactivate はユーザーを無効化する（退会）。
	// 同じメールアドレスとプロバイダーで再ログインすると新しいユーザーが作成される。
	Deactivate(ctx context.Context, userID int64) error
	// Activate は退会済みユーザーを再有効化する。
	Activate(ctx context.Context, userID int64) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	ProviderName string    `json:"providerName"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Me は現在のログインユーザー情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reactivate は退会済みユーザーを再有効化し、更新後のユーザー情報を返す。
// セッショントークンは有効期限まで使えるため、退会後も同じトークンで呼び出せる。
// POST /api/users/me/activate
func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Activate(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:           user.ID,
		Username:     user.Username,
		Nickname:     user.Nickname,
		Email:        user.Email,
		ProviderName: string(user.ProviderName),
		Status:       string(user.Status),
		CreatedAt:    user.CreatedAt,
	}
}
