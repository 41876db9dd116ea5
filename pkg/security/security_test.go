package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIPRateLimiterAllow(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)
	now := time.Now()

	if !l.Allow("1.1.1.1", now) || !l.Allow("1.1.1.1", now) {
		t.Fatalf("burst should allow two requests")
	}
	if l.Allow("1.1.1.1", now) {
		t.Fatalf("third request in the same instant should be limited")
	}
	if !l.Allow("2.2.2.2", now) {
		t.Fatalf("other clients have their own bucket")
	}
	if !l.Allow("1.1.1.1", now.Add(31*time.Second)) {
		t.Fatalf("token should refill after window/maxRequests")
	}
}

func TestIPRateLimiterSweep(t *testing.T) {
	l := NewIPRateLimiter(10, time.Minute)
	now := time.Now()
	l.Allow("1.1.1.1", now)
	l.Sweep(now.Add(2 * time.Minute))
	if len(l.visitors) != 1 {
		t.Fatalf("fresh visitor swept too early")
	}
	l.Sweep(now.Add(4 * time.Minute))
	if len(l.visitors) != 0 {
		t.Fatalf("stale visitor not swept")
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://train.example.com"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://train.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://train.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
}
