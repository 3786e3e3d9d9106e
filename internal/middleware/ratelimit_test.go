package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(store *LimiterStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(store))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimitMiddleware_RejectsOverBurst(t *testing.T) {
	r := newLimitedRouter(NewLimiterStore(1, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After header")
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}

	// another client has its own bucket
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected second client to pass, got %d", w.Code)
	}
}

func TestLimiterStore_CleanupDropsIdleKeys(t *testing.T) {
	now := time.Now()
	s := NewLimiterStore(10, 10, WithIdleTTL(time.Minute))
	s.now = func() time.Time { return now }

	s.Get("a")
	now = now.Add(30 * time.Second)
	s.Get("b")
	now = now.Add(45 * time.Second)
	s.Cleanup()

	if s.Len() != 1 {
		t.Fatalf("expected only the recent key to survive, got %d", s.Len())
	}
}
