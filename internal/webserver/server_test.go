package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dbwizard/dbwizard/internal/models"
	"github.com/dbwizard/dbwizard/internal/webapi"
)

type stubAsker struct{}

func (stubAsker) Ask(_ context.Context, question string) (*models.Answer, error) {
	return &models.Answer{Question: question, Text: "done"}, nil
}

func TestServerDefaults(t *testing.T) {
	s := New(Config{}, stubAsker{}, nil)
	if s.srv.Addr != "127.0.0.1:8080" {
		t.Errorf("expected default address, got %q", s.srv.Addr)
	}
}

func TestServerRoutes(t *testing.T) {
	s := New(Config{Addr: "localhost:9000"}, stubAsker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp webapi.WelcomeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message == "" {
		t.Error("expected a welcome message")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health returned %d", rec.Code)
	}
}

func TestServerCORS(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"http://localhost:5173"}}, stubAsker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected CORS header, got %q", got)
	}
}
