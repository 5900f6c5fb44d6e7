package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/server/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(logger.Nop()))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = c.GetString("request_id") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if seen == "" || rr.Header().Get(middleware.HeaderRequestID) != seen {
		t.Errorf("expected generated id echoed, got %q / %q", seen, rr.Header().Get(middleware.HeaderRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "req-42")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if seen != "req-42" || rr.Header().Get(middleware.HeaderRequestID) != "req-42" {
		t.Errorf("expected caller id kept, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS(&middleware.CORSConfig{
		AllowedOrigins: []string{"https://studio.example"},
		AllowedMethods: []string{"GET", "POST"},
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", http.NoBody)
	req.Header.Set("Origin", "https://studio.example")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "https://studio.example" {
		t.Errorf("unexpected preflight %d %v", rr.Code, rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be allowed")
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.BodySizeLimit("8B"))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789abcdef")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	r := gin.New()
	r.Use(middleware.RequestLogger(log, nil))
	r.GET("/nodes/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if buf.Len() != 0 {
		t.Fatalf("health checks must not be logged, got %s", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nodes/n1", http.NoBody))
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["level"] != "warn" || entry["route"] != "/nodes/:id" {
		t.Errorf("unexpected entry %v", entry)
	}
}
