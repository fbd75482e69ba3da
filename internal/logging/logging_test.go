package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWriterRenamesError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, slog.LevelInfo)

	l.Info("run failed", "error", errors.New("boom"), "node", "n1")

	out := buf.String()
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "node=n1")
	assert.NotContains(t, out, "error=")
}

func TestNewWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Level(false))

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l = NewWriter(&buf, Level(true))
	l.Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing", "error", errors.New("x"))
}
