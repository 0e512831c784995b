package profiling

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackAndReset(t *testing.T) {
	ResetFrame()

	stop := Track("engine.Submit")
	time.Sleep(2 * time.Millisecond)
	stop()
	Track("engine.Submit")()

	ss := Snapshot()
	assert.Len(t, ss, 1)
	assert.GreaterOrEqual(t, ss["engine.Submit"], 2*time.Millisecond)

	ResetFrame()
	assert.Empty(t, Snapshot())
	assert.Equal(t, "", TopN(5))
}

func TestTopNOrdering(t *testing.T) {
	ResetFrame()
	mu.Lock()
	frameTotals["fast"] = 100 * time.Microsecond
	frameTotals["slow"] = 4200 * time.Microsecond
	frameTotals["mid"] = 1500 * time.Microsecond
	mu.Unlock()

	assert.Equal(t, "slow:4.2ms, mid:1.5ms", TopN(2))
	assert.Equal(t, 3, len(strings.Split(TopN(10), ", ")))
	assert.Equal(t, "", TopN(0))
	ResetFrame()
}
