package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/fasthooks"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) *fasthooks.App {
	t.Helper()
	app := fasthooks.New("server-test")
	require.NoError(t, app.PreToolUse("no-rm", func(_ context.Context, in *domain.Input) (*domain.Response, error) {
		if cmd, _ := in.Field("command"); strings.Contains(cmd, "rm -rf") {
			return domain.DenyResponse("destructive"), nil
		}
		return nil, nil
	}, "Bash"))
	require.NoError(t, app.OnStop("broken", func(context.Context, *domain.Input) (*domain.Response, error) {
		return nil, errors.New("boom")
	}))
	return app
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hooks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHook(t *testing.T) {
	h := NewHandler(newApp(t))

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body string)
	}{
		{"silent allow", `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"ls"}}`, http.StatusNoContent, nil},
		{"deny", `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`, http.StatusOK, func(t *testing.T, body string) {
			var out fasthooks.Output
			require.NoError(t, json.Unmarshal([]byte(body), &out))
			require.NotNil(t, out.HookSpecificOutput)
			assert.Equal(t, "deny", out.HookSpecificOutput.PermissionDecision)
		}},
		{"handler error", `{"hook_event_name":"Stop"}`, http.StatusInternalServerError, func(t *testing.T, body string) {
			assert.Contains(t, body, "handler broken failed")
			assert.Contains(t, body, "hook_id")
		}},
		{"unknown stage", `{"hook_event_name":"Later"}`, http.StatusBadRequest, nil},
		{"empty body", ``, http.StatusBadRequest, nil},
		{"malformed", `{`, http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(h, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.check != nil {
				tt.check(t, rec.Body.String())
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "fasthooks_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewHandler(newApp(t), WithGatherer(reg))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fasthooks_test_total 1")
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(newApp(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type slowDispatcher struct {
	active, peak atomic.Int32
}

func (d *slowDispatcher) Dispatch(context.Context, *domain.Input) (domain.Result, error) {
	n := d.active.Add(1)
	defer d.active.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return domain.Result{Decision: domain.Allow}, nil
}

func TestHook_SerializesInvocations(t *testing.T) {
	d := &slowDispatcher{}
	h := NewHandler(d)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post(h, `{"hook_event_name":"Stop"}`)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), d.peak.Load())
}
