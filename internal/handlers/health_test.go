package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremyjsx/postdesk/internal/storage"
)

type unreachableStorage struct {
	storage.Storage
}

func (unreachableStorage) Ping(context.Context) error {
	return errors.New("bucket unreachable")
}

func TestHealth_Storage(t *testing.T) {
	tests := []struct {
		name       string
		store      storage.Storage
		wantCheck  string
		wantStatus string
	}{
		{"reachable", storage.NewMemoryStorage(), "ok", "healthy"},
		{"unreachable", unreachableStorage{}, "unhealthy", "degraded"},
		{"not configured", nil, "skipped", "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Health(&HealthDeps{Storage: tt.store}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}
			var body healthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Checks["s3"] != tt.wantCheck || body.Status != tt.wantStatus {
				t.Errorf("got %+v", body)
			}
		})
	}
}
