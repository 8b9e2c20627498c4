package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/studyplatform/internal/model"
	"github.com/hitoshi/studyplatform/internal/study"
)

// StudyServiceInterface はスタディハンドラーが必要とするサービスインターフェース。
type StudyServiceInterface interface {
	Create(ctx context.Context, req study.CreateRequest) (*model.Study, error)
	Get(ctx context.Context, id int64) (*model.Study, error)
}

// StudyHandler はスタディのHTTPハンドラー。
type StudyHandler struct {
	service StudyServiceInterface
}

// NewStudyHandler はStudyHandlerを生成する。
func NewStudyHandler(service StudyServiceInterface) *StudyHandler {
	return &StudyHandler{service: service}
}

type studyResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func toStudyResponse(s *model.Study) studyResponse {
	return studyResponse{
		ID:        s.ID,
		Title:     s.Title,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
	}
}

// Create はスタディを作成する。
// POST /api/studies
func (h *StudyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req study.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w, r)
		return
	}

	st, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudyResponse(st))
}

// Get はスタディを取得する。
// GET /api/studies/{id}
func (h *StudyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStudyResponse(st))
}
