package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/studyplatform/internal/model"
)

// requestWithID はリクエストIDを設定済みのリクエストを返す。
func requestWithID(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/calendars/1", nil)
	return req.WithContext(context.WithValue(req.Context(), requestIDContextKey, id))
}

func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, requestWithID("req-123"), http.StatusNotFound, model.NewCalendarNotFoundError(7))

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Code != model.ErrCodeCalendarNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeCalendarNotFound)
	}
	if body.Category != "calendar" {
		t.Errorf("category = %q, want %q", body.Category, "calendar")
	}
	if body.Message == "" || body.Action == "" {
		t.Errorf("message and action should be set, got %+v", body)
	}
	if body.RequestID != "req-123" {
		t.Errorf("request_id = %q, want %q", body.RequestID, "req-123")
	}
}

// TestWriteErrorResponse_OmitsEmptyRequestID はリクエストIDが無い場合にrequest_idを出力しないことを検証する。
func TestWriteErrorResponse_OmitsEmptyRequestID(t *testing.T) {
	for name, req := range map[string]*http.Request{
		"IDなし":    httptest.NewRequest(http.MethodGet, "/", nil),
		"リクエストなし": nil,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, req, http.StatusUnauthorized, model.NewUnauthorizedError())

			var raw map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			for _, field := range []string{"code", "message", "category", "action"} {
				if _, ok := raw[field]; !ok {
					t.Errorf("missing required field: %s", field)
				}
			}
			if _, ok := raw["request_id"]; ok {
				t.Errorf("request_id should be omitted, got %v", raw["request_id"])
			}
		})
	}
}

// TestWriteErrorResponse_ThroughRequestIDMiddleware はミドルウェアが発行したIDがボディとヘッダーで一致することを検証する。
func TestWriteErrorResponse_ThroughRequestIDMiddleware(t *testing.T) {
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteErrorResponse(w, r, http.StatusForbidden, model.NewCalendarForbiddenError())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/calendars/1", nil))

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.RequestID == "" || body.RequestID != w.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %q, header = %q", body.RequestID, w.Header().Get(RequestIDHeader))
	}
}

func TestWriteInternalServerError_ReturnsSystemError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w, requestWithID("req-500"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
	if body.RequestID != "req-500" {
		t.Errorf("request_id = %q, want %q", body.RequestID, "req-500")
	}
}
