package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadflow_backend/internal/sequence/dispatch"
	"leadflow_backend/internal/sequence/sendlog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var clock = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubDispatcher struct {
	runErr      error
	gotNow      time.Time
	hadDeadline bool
}

func (s *stubDispatcher) Run(ctx context.Context, now time.Time) (dispatch.Report, error) {
	s.gotNow = now
	_, s.hadDeadline = ctx.Deadline()
	if s.runErr != nil {
		return dispatch.Report{}, s.runErr
	}
	return dispatch.Report{RunID: "run-1", ReferenceTime: now}, nil
}

func (s *stubDispatcher) Preview(_ context.Context, now time.Time) (dispatch.PreviewReport, error) {
	s.gotNow = now
	return dispatch.PreviewReport{ReferenceTime: now}, nil
}

func (s *stubDispatcher) Now() time.Time { return clock }

type stubSendLog struct {
	entries []sendlog.Entry
	err     error
}

func (s *stubSendLog) ListByLead(context.Context, uuid.UUID) ([]sendlog.Entry, error) {
	return s.entries, s.err
}

func do(t *testing.T, h *Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
	return rec, body
}

func TestDispatchUsesClockAndDeadline(t *testing.T) {
	stub := &stubDispatcher{}
	rec, body := do(t, New(stub, &stubSendLog{}, time.Minute), http.MethodPost, "/api/v1/sequences/dispatch")

	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
	if !stub.gotNow.Equal(clock) {
		t.Fatalf("expected service clock, got %s", stub.gotNow)
	}
	if !stub.hadDeadline {
		t.Fatal("expected run context to carry a deadline")
	}
	data := body["data"].(map[string]interface{})
	if data["run_id"] != "run-1" {
		t.Fatalf("unexpected data %v", data)
	}
}

func TestDispatchNowOverride(t *testing.T) {
	stub := &stubDispatcher{}
	rec, _ := do(t, New(stub, &stubSendLog{}, 0), http.MethodPost, "/api/v1/sequences/dispatch?now=2026-01-02T15:04:05Z")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !stub.gotNow.Equal(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Fatalf("override not applied: %s", stub.gotNow)
	}

	rec, body := do(t, New(stub, &stubSendLog{}, 0), http.MethodPost, "/api/v1/sequences/dispatch?now=yesterday")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body["error"].(map[string]interface{})["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDispatchInProgress(t *testing.T) {
	stub := &stubDispatcher{runErr: dispatch.ErrRunInProgress}
	rec, body := do(t, New(stub, &stubSendLog{}, 0), http.MethodPost, "/api/v1/sequences/dispatch")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body["error"].(map[string]interface{})["code"] != "DISPATCH_IN_PROGRESS" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDispatchFailure(t *testing.T) {
	stub := &stubDispatcher{runErr: errors.New("redis unreachable")}
	rec, body := do(t, New(stub, &stubSendLog{}, 0), http.MethodPost, "/api/v1/sequences/dispatch")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body["error"].(map[string]interface{})["code"] != "INTERNAL_ERROR" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestPreview(t *testing.T) {
	stub := &stubDispatcher{}
	rec, body := do(t, New(stub, &stubSendLog{}, 0), http.MethodGet, "/api/v1/sequences/dispatch/preview")
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
}

func TestListSends(t *testing.T) {
	leadID := uuid.New()
	logs := &stubSendLog{entries: []sendlog.Entry{{ID: uuid.New(), LeadID: leadID, Template: "welcome", Status: sendlog.StatusSent}}}

	rec, body := do(t, New(&stubDispatcher{}, logs, 0), http.MethodGet, "/api/v1/leads/"+leadID.String()+"/sends")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	entries := body["data"].([]interface{})
	if len(entries) != 1 || entries[0].(map[string]interface{})["template_name"] != "welcome" {
		t.Fatalf("unexpected entries %v", entries)
	}

	rec, _ = do(t, New(&stubDispatcher{}, logs, 0), http.MethodGet, "/api/v1/leads/not-a-uuid/sends")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec, body = do(t, New(&stubDispatcher{}, &stubSendLog{err: errors.New("db")}, 0), http.MethodGet, "/api/v1/leads/"+leadID.String()+"/sends")
	if rec.Code != http.StatusInternalServerError || body["error"].(map[string]interface{})["code"] != "DATABASE_ERROR" {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
}
