package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/jake-scott/raki/internal/pkg/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", "abc-123_x", "abc-123_x"},
		{"too short", "ab", "<Bad_Correlation_Id>"},
		{"bad chars", "a b c d", "<Bad_Correlation_Id>"},
		{"absent", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.in != "" {
				req.Header.Set("X-Correlation-ID", tt.in)
			}
			rec := httptest.NewRecorder()

			NewCorrelation("X-Correlation-ID", okHandler).ServeHTTP(rec, req)

			if got := rec.Header().Get("X-Correlation-ID"); got != tt.want {
				t.Errorf("X-Correlation-ID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	NewRecovery(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Code != models.ErrorCodeInternal || body.Status != 500 {
		t.Errorf("body = %+v", body)
	}
}

func TestLoggingSetsTxnID(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLogging(true, okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	id := rec.Header().Get("X-Txn-ID")
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Txn-ID %q is not a uuid: %v", id, err)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCorsPreflight(t *testing.T) {
	h := NewCors(cors.Options{
		AllowedOrigins: []string{"http://panel.local"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}, okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/relays", nil)
	req.Header.Set("Origin", "http://panel.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/relays", nil)
	req.Header.Set("Origin", "http://elsewhere")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}
