package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestClientKey(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.1"}, "203.0.113.5"},
		{"real ip fallback", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.9"}, "203.0.113.5"},
		{"empty forwarded entry falls through", map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
		{"anonymous", nil, AnonymousClientKey},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := ClientKey(req); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func newSecretRouter(secret string) *gin.Engine {
	r := gin.New()
	r.GET("/run", BearerSecret(secret), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestBearerSecret(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"match", "s3cret", "Bearer s3cret", http.StatusNoContent},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"wrong scheme", "s3cret", "Basic s3cret", http.StatusUnauthorized},
		{"mismatch", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"unconfigured secret", "", "Bearer anything", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/run", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newSecretRouter(tc.secret).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusUnauthorized {
				var body ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if body.Success || body.Error.Code != "UNAUTHORIZED" {
					t.Fatalf("unexpected body %+v", body)
				}
			}
		})
	}
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatal("expected generated request id")
	}
}
