package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"historial-tg-bot/internal/config"
	apperrors "historial-tg-bot/internal/errors"
)

func newTestClient(baseURL string) *Client {
	cfg := config.ProviderConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
	return NewClient(cfg, "https://bot.example.com/callback/secret", slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestSubmitLookup_Success(t *testing.T) {
	var gotBody map[string]string
	var gotAPIKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("X-Api-Key")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("request body not valid JSON: %v", err)
		}
		w.Write([]byte(`{"uuid":"U-123"}`))
	}))
	defer srv.Close()

	requestID, err := newTestClient(srv.URL).SubmitLookup(context.Background(), "CURP1", "NSS1")
	if err != nil {
		t.Fatalf("SubmitLookup() error = %v", err)
	}
	if requestID != "U-123" {
		t.Errorf("requestID = %q, want U-123", requestID)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("X-Api-Key = %q, want test-key", gotAPIKey)
	}
	want := map[string]string{
		"curp":    "CURP1",
		"nss":     "NSS1",
		"webhook": "https://bot.example.com/callback/secret",
	}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("request body %s = %q, want %q", k, gotBody[k], v)
		}
	}
}

func TestSubmitLookup_NestedIdentifierVariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"requestId":"R-9"}}`))
	}))
	defer srv.Close()

	requestID, err := newTestClient(srv.URL).SubmitLookup(context.Background(), "A", "B")
	if err != nil {
		t.Fatalf("SubmitLookup() error = %v", err)
	}
	if requestID != "R-9" {
		t.Errorf("requestID = %q, want R-9", requestID)
	}
}

func TestSubmitLookup_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SubmitLookup(context.Background(), "A", "B")

	var provErr *apperrors.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError", err)
	}
	if provErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", provErr.StatusCode)
	}
	if provErr.Body != `{"error":"upstream down"}` {
		t.Errorf("Body = %q, want raw provider response", provErr.Body)
	}
}

func TestSubmitLookup_SuccessWithoutIdentifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SubmitLookup(context.Background(), "A", "B")

	var provErr *apperrors.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("error = %v, want *ProviderError for identifier-less success", err)
	}
	if provErr.Body != `{"status":"accepted"}` {
		t.Errorf("Body = %q, want raw provider response", provErr.Body)
	}
}

func TestSubmitLookup_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the dial fails

	if _, err := newTestClient(srv.URL).SubmitLookup(context.Background(), "A", "B"); err == nil {
		t.Error("SubmitLookup() to closed server succeeded, want error")
	}
}
