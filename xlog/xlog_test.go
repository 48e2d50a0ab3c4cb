package xlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("bufferpool", false, &buf)
	l.Warnf("bucket %d exhausted", 3)

	line := buf.String()
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "[bufferpool]")
	assert.Contains(t, line, "bucket 3 exhausted")
}

func TestConsoleLogger_DebugGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("pool", false, &buf)

	l.Debugf("hidden")
	assert.Empty(t, buf.String())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestConsoleLogger_WithComponentSharesWriter(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriter("simcore", true, &buf)
	child := root.WithComponent("events")

	child.Infof("sweep done")
	assert.Contains(t, buf.String(), "[events]")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestNop_DoesNothing(t *testing.T) {
	l := Nop()
	assert.False(t, l.DebugEnabled())
	l.SetDebug(true)
	l.Warnf("dropped %d", 1) // must not panic or write anywhere
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	var buf bytes.Buffer
	l := NewWriter("x", false, &buf)
	assert.Equal(t, Logger(l), OrNop(l))
}
