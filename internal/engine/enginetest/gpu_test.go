package enginetest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-engine/internal/engine"
	"voxel-engine/internal/engine/enginetest"
)

type slot struct {
	compute, display   engine.CommandBuffer
	computeDone, shown engine.Fence
	bindings           engine.Bindings
}

func newSlot(t *testing.T, g *enginetest.GPU) *slot {
	t.Helper()
	var (
		s   slot
		err error
	)
	s.compute, err = g.NewCommandBuffer(engine.QueueCompute)
	require.NoError(t, err)
	s.display, err = g.NewCommandBuffer(engine.QueueGraphics)
	require.NoError(t, err)
	s.computeDone, err = g.NewFence(false)
	require.NoError(t, err)
	s.shown, err = g.NewFence(false)
	require.NoError(t, err)
	ubo, err := g.NewUniformBuffer(engine.UniformBufferSize)
	require.NoError(t, err)
	s.bindings, err = g.NewBindings(ubo, nil)
	require.NoError(t, err)
	return &s
}

func (s *slot) dispatch(t *testing.T, g *enginetest.GPU) {
	t.Helper()
	require.NoError(t, s.compute.Reset())
	require.NoError(t, g.ResetFence(s.computeDone))
	require.NoError(t, g.RecordDispatch(s.compute, engine.Dispatch{Bindings: s.bindings, GroupsX: 1, GroupsY: 1}))
	require.NoError(t, g.Submit(engine.QueueCompute, engine.Submission{Commands: s.compute}, s.computeDone))
}

func (s *slot) show(t *testing.T, g *enginetest.GPU) {
	t.Helper()
	require.NoError(t, s.display.Reset())
	require.NoError(t, g.ResetFence(s.shown))
	require.NoError(t, g.RecordDraw(s.display, engine.Draw{Pipeline: engine.PipelineDisplay, Bindings: s.bindings}))
	require.NoError(t, g.Submit(engine.QueueGraphics, engine.Submission{Commands: s.display}, s.shown))
}

func TestDispatchOverPendingDisplayIsReported(t *testing.T) {
	g := enginetest.NewGPU()
	s := newSlot(t, g)

	s.dispatch(t, g)
	s.show(t, g)
	require.NoError(t, g.WaitForFence(s.computeDone))
	require.Empty(t, g.Violations)

	s.dispatch(t, g)
	require.Len(t, g.Violations, 1)
	assert.Contains(t, g.Violations[0], "still reads it")
}

func TestDispatchAfterDisplayCompletes(t *testing.T) {
	g := enginetest.NewGPU()
	s := newSlot(t, g)

	s.dispatch(t, g)
	s.show(t, g)
	require.NoError(t, g.WaitForFence(s.computeDone))
	require.NoError(t, g.WaitForFence(s.shown))
	assert.True(t, s.shown.(*enginetest.Fence).Signaled())

	s.dispatch(t, g)
	assert.Empty(t, g.Violations)
}
