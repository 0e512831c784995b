package engine_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-engine/internal/camera"
	"voxel-engine/internal/config"
	"voxel-engine/internal/engine"
	"voxel-engine/internal/engine/enginetest"
	"voxel-engine/internal/meshing"
	"voxel-engine/internal/scene"
	"voxel-engine/internal/voxel"
)

type fixture struct {
	gpu     *enginetest.GPU
	surface *enginetest.Surface
	scene   *scene.Scene
	engine  *engine.Engine
}

func testScene(n int) *scene.Scene {
	s := scene.New(camera.New(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{0, 0, 0}))
	for i := range n {
		s.AddVoxel(voxel.New(mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{1, 0, 0}, 0.5))
	}
	return s
}

func newFixture(t *testing.T, mode engine.Mode, voxels int, tweak ...func(*enginetest.GPU, *engine.Options)) *fixture {
	t.Helper()
	pool := meshing.NewWorkerPool(config.MeshWorkers)
	t.Cleanup(pool.Shutdown)

	f := &fixture{
		gpu:     enginetest.NewGPU(),
		surface: enginetest.NewSurface(1920, 1080),
		scene:   testScene(voxels),
	}
	opts := engine.Options{Mode: mode}
	for _, fn := range tweak {
		fn(f.gpu, &opts)
	}

	e, err := engine.New(f.gpu, f.surface, f.scene, pool, opts)
	require.NoError(t, err)
	f.engine = e
	return f
}

func (f *fixture) tick(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.Tick(f.scene.Camera()))
}

func TestRasterFrameCycling(t *testing.T) {
	for _, latency := range []int{-1, 0, 1, 2, 5} {
		f := newFixture(t, engine.ModeRaster, 10, func(g *enginetest.GPU, _ *engine.Options) {
			g.CompleteAfter = latency
		})
		n := f.engine.FramesInFlight()
		require.Equal(t, config.FramesInFlight, n)

		const ticks = 40
		for i := range ticks {
			cur := f.engine.CurrentFrame()
			require.GreaterOrEqual(t, cur, 0)
			require.Less(t, cur, n)
			require.Equal(t, i%n, cur, "latency=%d tick=%d", latency, i)
			f.tick(t)
		}

		assert.Empty(t, f.gpu.Violations, "latency=%d", latency)
		assert.LessOrEqual(t, f.gpu.MaxPending, n, "latency=%d", latency)
		assert.Equal(t, uint64(ticks), f.engine.Submitted())
		assert.Len(t, f.gpu.Draws, ticks)
		assert.Len(t, f.gpu.Presents, ticks)
		assert.Zero(t, f.engine.Recreations())
	}
}

func TestRasterSubmission(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 3)
	f.tick(t)

	require.Len(t, f.gpu.Submits, 1)
	s := f.gpu.Submits[0]
	assert.Equal(t, engine.QueueGraphics, s.Queue)
	assert.True(t, s.HasCommands)
	assert.Equal(t, []engine.Stage{engine.StageColorAttachmentOutput}, s.Waits)
	assert.Len(t, s.SignalIDs, 1)
	assert.NotZero(t, s.FenceID)

	d := f.gpu.Draws[0]
	assert.Equal(t, engine.PipelineMesh, d.Pipeline)
	assert.Equal(t, uint32(3*voxel.IndicesPerVoxel), d.IndexCount)
	assert.Equal(t, engine.Extent{Width: 1920, Height: 1080}, d.Extent)
	assert.Equal(t, 3*voxel.VerticesPerVoxel*voxel.VertexSize, d.Vertices.Size())
	assert.Equal(t, 3*voxel.IndicesPerVoxel*voxel.IndexSize, d.Indices.Size())
}

func TestUniformBufferContents(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 1)
	f.tick(t)

	var want engine.UniformBufferObject
	want.Update(f.scene.Camera(), f.gpu.Extent())
	require.Len(t, f.gpu.UniformsMade, config.FramesInFlight)
	assert.Equal(t, want.Bytes(), f.gpu.UniformsMade[0].Data)
	assert.Zero(t, f.gpu.UniformsMade[1].Writes)

	assert.Equal(t, 256, engine.UniformBufferSize)
	assert.Less(t, want.Proj[5], float32(0), "projection Y is flipped")
	assert.Equal(t, mgl32.Vec4{-5, 0, 0, 0}, want.CamPosition)
	assert.Equal(t, mgl32.Vec4{-4, 0, 0, 0}, want.CamForward)
	assert.Equal(t, mgl32.Vec4{-5, 0, 1, 0}, want.CamUp)
	assert.Equal(t, mgl32.Ident4(), want.Model)
}

func TestAcquireOutOfDateSkipsFrame(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.gpu.QueueAcquire(engine.ErrOutOfDate)

	f.tick(t)
	assert.Equal(t, 0, f.engine.CurrentFrame())
	assert.Equal(t, 1, f.engine.Recreations())
	assert.Equal(t, 1, f.gpu.Recreates)
	assert.Empty(t, f.gpu.Submits)
	assert.Empty(t, f.gpu.Presents)

	f.tick(t)
	f.tick(t)
	assert.Equal(t, 0, f.engine.CurrentFrame())
	assert.Len(t, f.gpu.Presents, 2)
	assert.Empty(t, f.gpu.Violations)
}

func TestAcquireSuboptimalStillRenders(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.gpu.QueueAcquire(engine.ErrSuboptimal)

	f.tick(t)
	assert.Equal(t, 1, f.engine.CurrentFrame())
	assert.Len(t, f.gpu.Presents, 1)
	assert.Zero(t, f.gpu.Recreates)
	assert.Empty(t, f.gpu.Violations)
}

func TestStalePresentRecreatesAfterPresenting(t *testing.T) {
	for _, result := range []error{engine.ErrSuboptimal, engine.ErrOutOfDate} {
		f := newFixture(t, engine.ModeRaster, 2)
		f.gpu.QueuePresent(result)

		f.tick(t)
		assert.Len(t, f.gpu.Presents, 1, "%v", result)
		assert.Equal(t, 1, f.gpu.Recreates, "%v", result)
		assert.Equal(t, 1, f.engine.CurrentFrame(), "%v", result)

		f.tick(t)
		assert.Equal(t, 1, f.gpu.Recreates, "%v", result)
		assert.Empty(t, f.gpu.Violations, "%v", result)
	}
}

func TestResizeFlagRecreatesOnce(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.gpu.SetExtent(engine.Extent{Width: 800, Height: 600})
	f.engine.NotifyResized()

	f.tick(t)
	assert.Equal(t, 1, f.gpu.Recreates)
	assert.Equal(t, engine.Extent{Width: 800, Height: 600}, f.gpu.Extent())

	f.tick(t)
	assert.Equal(t, 1, f.gpu.Recreates)
	assert.Equal(t, engine.Extent{Width: 800, Height: 600}, f.gpu.Draws[1].Extent)
}

func TestRecreateWaitsOutMinimizedWindow(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.surface.QueueSizes([2]int{0, 0}, [2]int{0, 600}, [2]int{800, 600})
	idles := f.gpu.WaitIdles

	require.NoError(t, f.engine.RecreateSwapchain())
	assert.Equal(t, 2, f.surface.WaitEventsCalls)
	assert.Equal(t, idles+1, f.gpu.WaitIdles)
	assert.Equal(t, 1, f.gpu.Recreates)
}

func TestRecreateFailureIsFatal(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.gpu.QueuePresent(engine.ErrOutOfDate)
	f.gpu.FailNext("Recreate", nil)

	err := f.engine.Tick(f.scene.Camera())
	assert.ErrorIs(t, err, enginetest.ErrInjected)
}

func TestSubmitFailureIsFatal(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.gpu.FailNext("Submit", nil)

	err := f.engine.Tick(f.scene.Camera())
	require.Error(t, err)
	assert.ErrorIs(t, err, enginetest.ErrInjected)
	assert.Contains(t, err.Error(), "submit draw")
}

func TestRaycastSubmissionGraph(t *testing.T) {
	f := newFixture(t, engine.ModeRaycast, 5)

	require.Len(t, f.gpu.Uploads, 3)
	assert.Equal(t, engine.UsageStorage, f.gpu.Uploads[0].Usage)
	assert.Equal(t, 5*voxel.GPUVoxelSize, f.gpu.Uploads[0].Size())
	assert.Equal(t, 4*engine.QuadVertexSize, f.gpu.Uploads[1].Size())
	assert.Equal(t, 6*voxel.IndexSize, f.gpu.Uploads[2].Size())

	f.tick(t)
	require.Len(t, f.gpu.Submits, 2)

	compute, graphics := f.gpu.Submits[0], f.gpu.Submits[1]
	assert.Equal(t, engine.QueueCompute, compute.Queue)
	assert.Empty(t, compute.Waits)
	require.Len(t, compute.SignalIDs, 1)
	assert.NotZero(t, compute.FenceID)

	assert.Equal(t, engine.QueueGraphics, graphics.Queue)
	assert.Equal(t, []engine.Stage{engine.StageVertexInput, engine.StageColorAttachmentOutput}, graphics.Waits)
	assert.Equal(t, compute.SignalIDs[0], graphics.WaitIDs[0])
	assert.NotEqual(t, compute.FenceID, graphics.FenceID)

	require.Len(t, f.gpu.Dispatches, 1)
	assert.Equal(t, uint32(240), f.gpu.Dispatches[0].GroupsX)
	assert.Equal(t, uint32(270), f.gpu.Dispatches[0].GroupsY)

	d := f.gpu.Draws[0]
	assert.Equal(t, engine.PipelineDisplay, d.Pipeline)
	assert.Equal(t, uint32(6), d.IndexCount)
	assert.Same(t, f.gpu.Dispatches[0].Bindings, d.Bindings)

	assert.Empty(t, f.gpu.Violations)
}

func TestRaycastWorkgroupsRoundUp(t *testing.T) {
	f := newFixture(t, engine.ModeRaycast, 1, func(_ *enginetest.GPU, o *engine.Options) {
		o.StorageExtent = engine.Extent{Width: 801, Height: 601}
	})
	f.tick(t)
	assert.Equal(t, uint32(101), f.gpu.Dispatches[0].GroupsX)
	assert.Equal(t, uint32(151), f.gpu.Dispatches[0].GroupsY)
}

func TestRaycastFrameCycling(t *testing.T) {
	for _, latency := range []int{-1, 0, 1, 3} {
		f := newFixture(t, engine.ModeRaycast, 4, func(g *enginetest.GPU, _ *engine.Options) {
			g.CompleteAfter = latency
		})
		for i := range 30 {
			require.Equal(t, i%config.FramesInFlight, f.engine.CurrentFrame())
			f.tick(t)
		}
		assert.Empty(t, f.gpu.Violations, "latency=%d", latency)
		assert.Len(t, f.gpu.Dispatches, 30)
		assert.Len(t, f.gpu.Presents, 30)
	}
}

func TestRaycastDispatchWaitsForSlotDisplay(t *testing.T) {
	f := newFixture(t, engine.ModeRaycast, 3)
	n := config.FramesInFlight

	// with no spontaneous completion the slot's previous display pass is
	// still pending unless the engine waits for it before dispatching
	for range 3 * n {
		f.tick(t)
	}

	assert.Empty(t, f.gpu.Violations)
	require.Len(t, f.gpu.Submits, 2*3*n)
	for i := n; i < 3*n; i++ {
		compute := f.gpu.Submits[2*i]
		prevDisplay := f.gpu.Submits[2*(i-n)+1]
		require.Equal(t, engine.QueueCompute, compute.Queue)
		require.Equal(t, engine.QueueGraphics, prevDisplay.Queue)
		assert.Equal(t, f.gpu.Submits[2*(i-n)].FenceID, compute.FenceID, "tick %d reuses its slot", i)
	}
}

func TestRaycastAspectFollowsSwapchain(t *testing.T) {
	f := newFixture(t, engine.ModeRaycast, 1, func(_ *enginetest.GPU, o *engine.Options) {
		o.StorageExtent = engine.Extent{Width: 640, Height: 640}
	})
	f.gpu.SetExtent(engine.Extent{Width: 1000, Height: 500})
	f.engine.NotifyResized()
	f.tick(t) // presents with the old extent, then recreates
	f.tick(t)

	var want engine.UniformBufferObject
	want.Update(f.scene.Camera(), engine.Extent{Width: 1000, Height: 500})
	assert.Equal(t, want.Bytes(), f.gpu.UniformsMade[1].Data)
	assert.Empty(t, f.gpu.Violations)
}

func TestRaycastOutOfDateConsumesComputeSignal(t *testing.T) {
	f := newFixture(t, engine.ModeRaycast, 2)
	f.gpu.QueueAcquire(engine.ErrOutOfDate)

	f.tick(t)
	require.Len(t, f.gpu.Submits, 2)
	drain := f.gpu.Submits[1]
	assert.False(t, drain.HasCommands)
	assert.Equal(t, f.gpu.Submits[0].SignalIDs, drain.WaitIDs)
	assert.Zero(t, drain.FenceID)
	assert.Equal(t, 0, f.engine.CurrentFrame())
	assert.Equal(t, 1, f.gpu.Recreates)

	for range 4 {
		f.tick(t)
	}
	assert.Empty(t, f.gpu.Violations)
	assert.Len(t, f.gpu.Presents, 4)
}

func TestUpdateBuffersReplacesGeometry(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 2)
	f.tick(t)
	oldVertices := f.gpu.Draws[0].Vertices
	idles := f.gpu.WaitIdles

	f.scene.AddVoxel(voxel.New(mgl32.Vec3{9, 9, 9}, mgl32.Vec3{0, 0, 1}, 1))
	require.NoError(t, f.engine.UpdateBuffers(f.scene))

	assert.Equal(t, idles+1, f.gpu.WaitIdles)
	assert.Zero(t, f.gpu.Pending())
	assert.Equal(t, []string{"buffer", "buffer"}, f.gpu.Destroyed)
	assert.Equal(t, uint32(3*voxel.IndicesPerVoxel), f.engine.IndexCount())

	f.tick(t)
	d := f.gpu.Draws[1]
	assert.NotSame(t, oldVertices, d.Vertices)
	assert.Equal(t, 3*voxel.VerticesPerVoxel*voxel.VertexSize, d.Vertices.Size())
	assert.Equal(t, uint32(3*voxel.IndicesPerVoxel), d.IndexCount)
	assert.Empty(t, f.gpu.Violations)
}

func TestUpdateBuffersIgnoredInRaycast(t *testing.T) {
	f := newFixture(t, engine.ModeRaycast, 2)
	uploads := len(f.gpu.Uploads)
	require.NoError(t, f.engine.UpdateBuffers(f.scene))
	assert.Len(t, f.gpu.Uploads, uploads)
	assert.Zero(t, f.gpu.WaitIdles)
}

func TestEmptyScene(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 0)
	assert.Empty(t, f.gpu.Uploads)
	f.tick(t)
	assert.Zero(t, f.gpu.Draws[0].IndexCount)
	assert.Nil(t, f.gpu.Draws[0].Vertices)

	r := newFixture(t, engine.ModeRaycast, 0)
	assert.Equal(t, voxel.GPUVoxelSize, r.gpu.Uploads[0].Size())
	assert.Empty(t, f.gpu.Violations)
	assert.Empty(t, r.gpu.Violations)
}

func TestFramesInFlightOption(t *testing.T) {
	f := newFixture(t, engine.ModeRaster, 1, func(_ *enginetest.GPU, o *engine.Options) {
		o.FramesInFlight = 3
	})
	seen := make([]int, 0, 9)
	for range 9 {
		seen = append(seen, f.engine.CurrentFrame())
		f.tick(t)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2}, seen)
	assert.LessOrEqual(t, f.gpu.MaxPending, 3)
}

func TestDestroyReleasesEverything(t *testing.T) {
	for _, mode := range []engine.Mode{engine.ModeRaster, engine.ModeRaycast} {
		f := newFixture(t, mode, 3)
		for range 5 {
			f.tick(t)
		}
		require.NotZero(t, f.gpu.Live())

		f.engine.Destroy()
		assert.Zero(t, f.gpu.Live(), "mode=%s", mode)
		assert.Zero(t, f.gpu.Pending(), "mode=%s", mode)
		assert.Empty(t, f.gpu.Violations, "mode=%s", mode)
		// geometry goes last
		n := len(f.gpu.Destroyed)
		assert.Equal(t, "buffer", f.gpu.Destroyed[n-1])
	}
}

func TestNewCleansUpOnFailure(t *testing.T) {
	for _, op := range []string{"Upload", "NewSemaphore", "NewFence", "NewCommandBuffer", "NewUniformBuffer", "NewBindings"} {
		gpu := enginetest.NewGPU()
		gpu.FailNext(op, nil)

		e, err := engine.New(gpu, enginetest.NewSurface(640, 480), testScene(2), nil, engine.Options{Mode: engine.ModeRaycast})
		assert.Nil(t, e, op)
		assert.ErrorIs(t, err, enginetest.ErrInjected, op)
		assert.Zero(t, gpu.Live(), op)
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "raster", engine.ModeRaster.String())
	assert.Equal(t, "raycast", engine.ModeRaycast.String())
	assert.Equal(t, float32(1), engine.Extent{}.Aspect())
	assert.InDelta(t, 16.0/9.0, engine.Extent{Width: 1920, Height: 1080}.Aspect(), 1e-6)
}
