package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studyplatform/internal/middleware"
	"github.com/hitoshi/studyplatform/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, r, statusCode, apiErr)
}

// writeInvalidBody はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidBody(w http.ResponseWriter, r *http.Request) {
	writeAPIErrorResponse(w, r, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// requireUserID はコンテキストのユーザーIDを返す。未認証なら401を書き込みfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, r, http.StatusUnauthorized, model.NewUnauthorizedError())
		return 0, false
	}
	return userID, true
}

// pathID はURLパラメータ"id"を正の整数として解析する。失敗時は400を書き込みfalseを返す。
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeAPIErrorResponse(w, r, http.StatusBadRequest, model.NewValidationError("IDは正の整数で指定してください"))
		return 0, false
	}
	return id, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, r, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())

	var integrationErr *model.IntegrationError
	if errors.As(err, &integrationErr) {
		slog.Warn("provider integration failed",
			slog.String("provider", string(integrationErr.Provider)),
			slog.String("op", integrationErr.Op),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		writeAPIErrorResponse(w, r, http.StatusBadGateway, model.NewLoginFailedError())
		return
	}

	// StorageErrorおよびその他のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.Bool("storage", model.IsStorageError(err)),
		slog.String("request_id", requestID),
	)
	middleware.WriteInternalServerError(w, r)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeCalendarForbidden:
		return http.StatusForbidden
	case model.ErrCodeUnknownProvider, model.ErrCodeUserNotFound,
		model.ErrCodeStudyNotFound, model.ErrCodeCalendarNotFound:
		return http.StatusNotFound
	case model.ErrCodeStudyInactive:
		return http.StatusConflict
	case model.ErrCodeLoginFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
