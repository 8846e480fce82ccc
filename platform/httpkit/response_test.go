package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"leadflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHandleErrorUsesDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	err := apperr.Validation("Datos inválidos").WithDetails(map[string]string{"email": "Ingresa un correo electrónico válido"})
	if !HandleError(c, err) {
		t.Fatal("expected error to be handled")
	}

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	errBody := body["error"].(map[string]interface{})
	if errBody["code"] != "VALIDATION_ERROR" {
		t.Fatalf("unexpected code %v", errBody["code"])
	}
	if errBody["details"].(map[string]interface{})["email"] == nil {
		t.Fatalf("expected email detail, got %v", errBody["details"])
	}
}

func TestHandleErrorHidesUntypedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	HandleError(c, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	errBody := decode(t, rec)["error"].(map[string]interface{})
	if errBody["code"] != "INTERNAL_ERROR" {
		t.Fatalf("unexpected code %v", errBody["code"])
	}
	if errBody["message"] == "pq: connection refused" {
		t.Fatal("untyped error message must not leak")
	}
}

func TestRateLimitedSetsHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RateLimited(c, "Demasiadas solicitudes", 840)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "840" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
	errBody := decode(t, rec)["error"].(map[string]interface{})
	if errBody["retry_after"].(float64) != 840 {
		t.Fatalf("unexpected retry_after %v", errBody["retry_after"])
	}
}

func TestHandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if HandleError(c, nil) {
		t.Fatal("nil error should not be handled")
	}
}
