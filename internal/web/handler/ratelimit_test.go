package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(1, 2, "/hook"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/hook", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	for i := 0; i < 2; i++ {
		if w := get("/x"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
	w := get("/x")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Errorf("over burst: status = %d Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
	for i := 0; i < 5; i++ {
		if w := get("/hook"); w.Code != http.StatusOK {
			t.Fatalf("exempt path limited: status = %d", w.Code)
		}
	}
}

func TestClientLimits_SweepDropsIdle(t *testing.T) {
	l := &clientLimits{visitors: map[string]*visitor{}, rps: rate.Limit(1), burst: 1}
	start := time.Now()
	l.allow("10.0.0.1", start)
	l.allow("10.0.0.2", start.Add(limiterIdleTTL))

	l.sweep(start.Add(limiterIdleTTL + time.Second))
	if _, ok := l.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor was not swept")
	}
	if _, ok := l.visitors["10.0.0.2"]; !ok {
		t.Error("recent visitor was swept")
	}
}
