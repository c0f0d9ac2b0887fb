package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/ArowuTest/random-module/internal/metrics"
	"github.com/ArowuTest/random-module/internal/rng"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func slogTo(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestHandler(engine *rng.Engine) (*Handler, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	h := New(Config{
		Engine:      engine,
		Metrics:     m,
		Limits:      Limits{MaxLength: 256, MaxCount: 100},
		ServiceName: "random_module",
		Version:     "test",
	})
	return h, m
}

func newTestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), h.AccessLog(), h.Recovery(), h.LocalNetworkOnly())
	r.POST("/generate_random_string", h.BodyLimit(opString), h.GenerateString)
	r.POST("/generate_random_choose", h.BodyLimit(opChoose), h.Choose)
	r.GET("/status", h.Status)
	r.GET("/stop", h.Stop)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func TestGenerateString_OK(t *testing.T) {
	h, m := newTestHandler(nil)
	r := newTestRouter(h)

	w, env := do(t, r, http.MethodPost, "/generate_random_string",
		`{"use_digits":true,"use_lowercase":false,"use_uppercase":false,"use_spec":false,"length":5}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var out string
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out, 5)
	for _, ch := range out {
		assert.Contains(t, rng.Digits, string(ch))
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues(opString, metrics.OutcomeOK)))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGenerateString_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "zero length",
			body:    `{"use_digits":true,"length":0}`,
			wantMsg: "Invalid length: 0 (must be 1–256)",
		},
		{
			name:    "too long",
			body:    `{"use_digits":true,"length":257}`,
			wantMsg: "Invalid length: 257 (must be 1–256)",
		},
		{
			name:    "no charset",
			body:    `{"use_digits":false,"use_lowercase":false,"use_uppercase":false,"use_spec":false,"length":8}`,
			wantMsg: "At least one charset must be enabled (digits, lowercase, uppercase, special).",
		},
		{
			name:    "missing length",
			body:    `{"use_digits":true}`,
			wantMsg: "Invalid payload: ",
		},
		{
			name:    "malformed json",
			body:    `{"use_digits":`,
			wantMsg: "Invalid payload: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newTestHandler(nil)
			w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_string", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)

			var msg string
			require.NoError(t, json.Unmarshal(env.Data, &msg))
			assert.True(t, strings.HasPrefix(msg, tt.wantMsg), "got %q", msg)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues(opString, metrics.OutcomeRejected)))
		})
	}
}

type brokenEntropy struct{}

func (brokenEntropy) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerateString_EntropyFailureIsOpaque(t *testing.T) {
	h, m := newTestHandler(rng.NewEngine(brokenEntropy{}))
	w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_string", `{"use_spec":true,"length":3}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.JSONEq(t, `"Internal server error"`, string(env.Data))
	assert.NotContains(t, w.Body.String(), "entropy")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues(opString, metrics.OutcomeFailed)))
}

func TestChoose_OK(t *testing.T) {
	h, _ := newTestHandler(nil)
	items := []string{"a", "b", "c", "d"}

	w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_choose", `{"items":["a","b","c","d"],"count":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var got []string
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0], got[1])
	assert.Subset(t, items, got)
}

func TestChoose_AllItems(t *testing.T) {
	h, _ := newTestHandler(nil)
	w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_choose", `{"items":["x","y","z"],"count":3}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got []string
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.ElementsMatch(t, []string{"x", "y", "z"}, got)
}

func TestChoose_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "zero count", body: `{"items":["a"],"count":0}`, wantMsg: "Invalid count: 0 (must be 1–100)"},
		{name: "count over max", body: `{"items":["a"],"count":101}`, wantMsg: "Invalid count: 101 (must be 1–100)"},
		{name: "count over items", body: `{"items":["a","b"],"count":3}`, wantMsg: "Count must be <= item count."},
		{name: "empty items", body: `{"items":[],"count":1}`, wantMsg: "Count must be <= item count."},
		{name: "missing items", body: `{"count":1}`, wantMsg: "Invalid payload: "},
		{name: "missing count", body: `{"items":["a"]}`, wantMsg: "Invalid payload: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(nil)
			w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_choose", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)

			var msg string
			require.NoError(t, json.Unmarshal(env.Data, &msg))
			assert.True(t, strings.HasPrefix(msg, tt.wantMsg), "got %q", msg)
		})
	}
}

func TestFail_MapsContractErrors(t *testing.T) {
	h, _ := newTestHandler(nil)
	r := gin.New()
	r.GET("/bound", func(c *gin.Context) { h.fail(c, opChoose, rng.ErrInvalidBound) })
	r.GET("/other", func(c *gin.Context) { h.fail(c, opChoose, errors.New("disk on fire")) })

	w, _ := do(t, r, http.MethodGet, "/bound", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := do(t, r, http.MethodGet, "/other", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `"Internal server error"`, string(env.Data))
}

func TestBodyLimit(t *testing.T) {
	big := `{"items":[` + strings.Repeat(`"item",`, 200) + `"item"],"count":1}`
	tests := []struct {
		name          string
		contentLength int64
	}{
		{name: "declared length", contentLength: int64(len(big))},
		{name: "unknown length", contentLength: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			h := New(Config{
				Metrics: m,
				Limits:  Limits{MaxLength: 256, MaxCount: 100, MaxBodyBytes: 512},
			})

			req := httptest.NewRequest(http.MethodPost, "/generate_random_choose", strings.NewReader(big))
			req.Header.Set("Content-Type", "application/json")
			req.RemoteAddr = "127.0.0.1:40000"
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			newTestRouter(h).ServeHTTP(w, req)

			require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.False(t, env.Success)
			assert.JSONEq(t, `"Payload too large"`, string(env.Data))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues(opChoose, metrics.OutcomeRejected)))
		})
	}

	h := New(Config{Limits: Limits{MaxLength: 256, MaxCount: 100, MaxBodyBytes: 512}})
	w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_choose", `{"items":["a","b"],"count":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestNew_DefaultBodyLimit(t *testing.T) {
	h := New(Config{})
	assert.Equal(t, DefaultMaxBodyBytes, h.limits.MaxBodyBytes)
}

func TestRecovery(t *testing.T) {
	h, _ := newTestHandler(nil)
	r := newTestRouter(h)
	r.GET("/panic", func(c *gin.Context) { panic("invariant broken") })

	w, env := do(t, r, http.MethodGet, "/panic", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.JSONEq(t, `"Internal server error"`, string(env.Data))
}

func TestLocalNetworkOnly(t *testing.T) {
	h, _ := newTestHandler(nil)
	r := newTestRouter(h)

	tests := []struct {
		remote string
		want   int
	}{
		{remote: "127.0.0.1:1000", want: http.StatusOK},
		{remote: "10.1.2.3:1000", want: http.StatusOK},
		{remote: "172.16.5.4:1000", want: http.StatusOK},
		{remote: "192.168.0.9:1000", want: http.StatusOK},
		{remote: "[::1]:1000", want: http.StatusOK},
		{remote: "8.8.8.8:1000", want: http.StatusForbidden},
		{remote: "[2001:db8::1]:1000", want: http.StatusForbidden},
		{remote: "[fd00::1]:1000", want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("X-Forwarded-For", "127.0.0.1")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestIsLocalIP(t *testing.T) {
	assert.True(t, IsLocalIP(net.ParseIP("::ffff:192.168.1.1")))
	assert.False(t, IsLocalIP(net.ParseIP("fe80::1")))
}

func TestRequestID_KeepsCallerValue(t *testing.T) {
	h, _ := newTestHandler(nil)
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.RemoteAddr = "127.0.0.1:1"
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestStatus(t *testing.T) {
	h, _ := newTestHandler(nil)
	h.startedAt = time.Now().Add(-90 * time.Second)

	w, env := do(t, newTestRouter(h), http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	var st struct {
		Service       string `json:"service"`
		Version       string `json:"version"`
		UptimeSeconds int64  `json:"uptime_seconds"`
		Goroutines    int    `json:"goroutines"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, "random_module", st.Service)
	assert.Equal(t, "test", st.Version)
	assert.GreaterOrEqual(t, st.UptimeSeconds, int64(90))
	assert.Positive(t, st.Goroutines)
}

func TestStop(t *testing.T) {
	var stopped atomic.Bool
	done := make(chan struct{})
	h := New(Config{Stop: func() {
		stopped.Store(true)
		close(done)
	}})
	h.stopDelay = 10 * time.Millisecond

	w, env := do(t, newTestRouter(h), http.MethodGet, "/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `null`, string(env.Data))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop callback was not called")
	}
	assert.True(t, stopped.Load())
}

func TestGenerateString_NeverLogsOutput(t *testing.T) {
	var buf bytes.Buffer
	h, _ := newTestHandler(nil)
	h.log = slogTo(&buf)

	w, env := do(t, newTestRouter(h), http.MethodPost, "/generate_random_string", `{"use_uppercase":true,"length":40}`)
	require.Equal(t, http.StatusOK, w.Code)

	var out string
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.NotContains(t, buf.String(), out)
	assert.Contains(t, buf.String(), "generation completed")
}

func TestLimit_BusyRequestGivesUp(t *testing.T) {
	h, _ := newTestHandler(nil)
	sem := semaphore.NewWeighted(1)
	require.True(t, sem.TryAcquire(1))

	r := gin.New()
	r.GET("/work", h.Limit(sem), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/work", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	sem.Release(1)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/work", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
