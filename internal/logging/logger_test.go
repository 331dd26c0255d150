package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelWarn,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	New(slog.LevelInfo, &buf).Info("x", "error", errors.New("boom"))
	assert.Contains(t, buf.String(), "err=boom")

	buf.Reset()
	New(slog.LevelWarn, &buf).Info("hidden")
	assert.Empty(t, buf.String())
}
