package logger_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/fasthooks/pkg/adapters/logger"
	"github.com/aretw0/fasthooks/pkg/domain"
	"github.com/aretw0/fasthooks/pkg/observability"
	"github.com/aretw0/fasthooks/pkg/observability/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_Contract(t *testing.T) {
	tests.RunObserverContract(t, logger.New(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestObserver_LevelsAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reg := observability.NewRegistry()
	reg.Add(logger.New(l))

	oc := &domain.ObserverContext{AppName: "guard"}
	events := append(tests.DeniedInvocation("hook-d"), tests.FailedInvocation("hook-f")...)
	for _, ev := range events {
		reg.Emit(ev, oc)
	}

	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}

	// Debug-level starts and the allow handler_end events are filtered out.
	var msgs []string
	for _, r := range records {
		msgs = append(msgs, r["msg"].(string))
	}
	assert.Equal(t, []string{
		"handler_end", "handler_skip", "hook_end",
		"handler_error", "handler_skip", "hook_error",
	}, msgs)

	assert.Equal(t, "INFO", records[0]["level"])
	assert.Equal(t, "second", records[0]["handler"])
	assert.Equal(t, "deny", records[0]["decision"])
	assert.Equal(t, "early deny", records[1]["skip_reason"])
	assert.Equal(t, "deny", records[2]["decision"])
	assert.Equal(t, "guard", records[2]["app"])

	assert.Equal(t, "ERROR", records[3]["level"])
	assert.Equal(t, "ValueError", records[3]["error_type"])
	assert.Equal(t, "prior handler error", records[4]["skip_reason"])
	assert.Equal(t, "ERROR", records[5]["level"])
	assert.Equal(t, "HandlerError", records[5]["error_type"])
}
