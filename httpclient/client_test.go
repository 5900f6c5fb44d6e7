package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/vidpipe/resilience"
)

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/invoke/merge" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer s3cret" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if r.Header.Get("X-Caller") != "vidpipe" || r.URL.Query().Get("async") != "1" {
			t.Errorf("missing default header or query: %v %v", r.Header, r.URL.RawQuery)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["node_id"] != "n1" {
			t.Errorf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/", BearerToken: "s3cret", Headers: map[string]string{"X-Caller": "vidpipe"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/invoke/merge",
		Query:  map[string]string{"async": "1"},
		Body:   map[string]string{"node_id": "n1"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted || !resp.IsSuccess() {
		t.Errorf("expected 202, got %d", resp.StatusCode)
	}
}

func TestClient_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, ErrCodeAuth, false},
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusTooManyRequests, ErrCodeRateLimit, true},
		{http.StatusBadRequest, ErrCodeValidation, false},
		{http.StatusBadGateway, ErrCodeServer, true},
	}
	for _, tc := range tests {
		t.Run(tc.code.String(), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "x"})
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if e.Code != tc.code || e.Retryable != tc.retryable || e.StatusCode != tc.status {
				t.Errorf("unexpected error %+v", e)
			}
			if resp == nil || string(resp.Body) != "nope" {
				t.Errorf("expected response body alongside error, got %+v", resp)
			}
		})
	}
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url, Timeout: time.Second})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsServerSide(err) || !IsRetryable(err) {
		t.Errorf("expected retryable server-side error, got %v", err)
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/bad-request" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(Config{
		BaseURL:        srv.URL,
		CircuitBreaker: &resilience.CircuitBreakerConfig{Name: "compute", MaxFailures: 2, Cooldown: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = c.Do(ctx, Request{Method: http.MethodPost, Path: "/bad-request"})
	}
	if c.Breaker().State() != resilience.StateClosed {
		t.Fatal("4xx responses must not open the circuit")
	}

	_, _ = c.Do(ctx, Request{Method: http.MethodPost, Path: "/down"})
	_, _ = c.Do(ctx, Request{Method: http.MethodPost, Path: "/down"})
	before := calls.Load()
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/down"})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != before {
		t.Error("request must not reach the server while open")
	}
}
