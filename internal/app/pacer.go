package app

import (
	"time"

	"voxel-engine/internal/config"
	"voxel-engine/internal/profiling"
)

// idleFPSLimit caps the loop while the cursor is released
const idleFPSLimit = 120

// FramePacer holds the loop to the configured frame rate and measures the
// period between consecutive frames
type FramePacer struct {
	now   func() time.Time
	sleep func(time.Duration)

	deadline time.Time
	last     time.Time
	frame    time.Duration
}

// NewFramePacer creates a pacer on the wall clock
func NewFramePacer() *FramePacer {
	return &FramePacer{now: time.Now, sleep: time.Sleep}
}

// frameInterval is the target period, 0 when uncapped
func frameInterval(limit int, idle bool) time.Duration {
	if idle && (limit <= 0 || limit > idleFPSLimit) {
		limit = idleFPSLimit
	}
	if limit <= 0 {
		return 0
	}
	return time.Second / time.Duration(limit)
}

// Wait ends the current frame, sleeping until the next one is due. Frames run
// on a fixed cadence; a frame more than one period late restarts it.
func (p *FramePacer) Wait(idle bool) {
	defer profiling.Track("app.FramePacer.Wait")()

	now := p.now()
	if !p.last.IsZero() {
		p.frame = now.Sub(p.last)
	}
	p.last = now

	interval := frameInterval(config.GetFPSLimit(), idle)
	if interval == 0 {
		p.deadline = time.Time{}
		return
	}

	if p.deadline.IsZero() || now.Sub(p.deadline) > interval {
		p.deadline = now.Add(interval)
	} else {
		p.deadline = p.deadline.Add(interval)
	}
	if d := p.deadline.Sub(now); d > 0 {
		p.sleep(d)
	}
}

// FrameTime is the measured period of the last completed frame, sleep
// included
func (p *FramePacer) FrameTime() time.Duration {
	return p.frame
}
