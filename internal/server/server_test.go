package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

type fakeResults struct {
	bodies [][]byte
	err    error
}

func (f *fakeResults) DeliverResult(body []byte) error {
	f.bodies = append(f.bodies, body)
	return f.err
}

func newTestServer(results ResultHandler) *httptest.Server {
	s := New(0, "/callback/secret-token", results, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return httptest.NewServer(s.Handler())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeResults{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Errorf("health body = %q, want OK", body)
	}
}

func TestCallback_DeliversBody(t *testing.T) {
	results := &fakeResults{}
	srv := newTestServer(results)
	defer srv.Close()

	payload := `{"uuid":"U-1","nombre":"X"}`
	resp, err := http.Post(srv.URL+"/callback/secret-token", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("callback status = %d, want 200", resp.StatusCode)
	}
	if len(results.bodies) != 1 || string(results.bodies[0]) != payload {
		t.Errorf("delivered bodies = %q, want the raw callback payload", results.bodies)
	}
}

func TestCallback_DeliveryFailureIs500(t *testing.T) {
	results := &fakeResults{err: errors.New("telegram down")}
	srv := newTestServer(results)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/callback/secret-token", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("callback status on delivery failure = %d, want 500", resp.StatusCode)
	}
}

func TestCallback_WrongSecretIs404(t *testing.T) {
	results := &fakeResults{}
	srv := newTestServer(results)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/callback/wrong-token", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("wrong-secret status = %d, want 404", resp.StatusCode)
	}
	if len(results.bodies) != 0 {
		t.Error("wrong-secret callback reached the delivery path")
	}
}

func TestCallback_GetNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeResults{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/callback/secret-token")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET callback status = %d, want 405", resp.StatusCode)
	}
}
