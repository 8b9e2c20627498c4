package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/studyplatform/internal/calendar"
	"github.com/hitoshi/studyplatform/internal/model"
)

// CalendarServiceInterface はカレンダーハンドラーが必要とするサービスインターフェース。
type CalendarServiceInterface interface {
	Create(ctx context.Context, userID, studyID int64, req calendar.Request) (*model.CalendarResponse, error)
	Get(ctx context.Context, id int64) (*model.CalendarResponse, error)
	ListByStudy(ctx context.Context, studyID int64, includeInactive bool) ([]*model.CalendarResponse, error)
	Update(ctx context.Context, userID, id int64, req calendar.Request) (*model.CalendarResponse, error)
	Deactivate(ctx context.Context, userID, id int64) error
	Activate(ctx context.Context, userID, id int64) error
}

// CalendarHandler はカレンダーのHTTPハンドラー。
type CalendarHandler struct {
	service CalendarServiceInterface
}

// NewCalendarHandler はCalendarHandlerを生成する。
func NewCalendarHandler(service CalendarServiceInterface) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// ListByStudy はスタディの予定一覧を返す。
// GET /api/studies/{id}/calendars?status=all
func (h *CalendarHandler) ListByStudy(w http.ResponseWriter, r *http.Request) {
	studyID, ok := pathID(w, r)
	if !ok {
		return
	}

	var includeInactive bool
	switch r.URL.Query().Get("status") {
	case "", "active":
	case "all":
		includeInactive = true
	default:
		writeAPIErrorResponse(w, r, http.StatusBadRequest, model.NewValidationError("statusはactiveまたはallで指定してください"))
		return
	}

	list, err := h.service.ListByStudy(r.Context(), studyID, includeInactive)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Create はスタディに予定を作成する。
// POST /api/studies/{id}/calendars
func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	studyID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req calendar.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	resp, err := h.service.Create(r.Context(), userID, studyID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get は予定を取得する。
// GET /api/calendars/{id}
func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update は予定を更新する。
// PUT /api/calendars/{id}
func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req calendar.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	resp, err := h.service.Update(r.Context(), userID, id, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Deactivate は予定を無効化する。
// POST /api/calendars/{id}/deactivate
func (h *CalendarHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Deactivate)
}

// Activate は無効化された予定を再有効化する。
// POST /api/calendars/{id}/activate
func (h *CalendarHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.service.Activate)
}

func (h *CalendarHandler) changeStatus(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id int64) error) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := fn(r.Context(), userID, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
