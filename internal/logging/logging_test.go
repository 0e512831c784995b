package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWithWriters("engine", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	l.Debugf("shown %d", 2)
	assert.Contains(t, out.String(), "[engine] DEBUG: shown 2")

	l.Infof("swapchain %dx%d", 1920, 1080)
	assert.Contains(t, out.String(), "[engine] INFO: swapchain 1920x1080")

	l.Warnf("careful")
	l.Errorf("broken")
	assert.Contains(t, errOut.String(), "[engine] WARN: careful")
	assert.Contains(t, errOut.String(), "[engine] ERROR: broken")
}

func TestDefaultLoggerWithoutPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewWithWriters("", false, &out, &out)
	l.Infof("hello")
	assert.Contains(t, out.String(), " INFO: hello")
	assert.NotContains(t, out.String(), "[")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	assert.False(t, OrNop(nil).DebugEnabled())

	l := New("x", true)
	assert.Same(t, l, OrNop(l))
}
