package meshing

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxel-engine/internal/voxel"
)

func randomVoxels(rng *rand.Rand, n int) []voxel.Voxel {
	out := make([]voxel.Voxel, n)
	for i := range out {
		out[i] = voxel.New(
			mgl32.Vec3{float32(rng.Intn(100)), float32(rng.Intn(100)), float32(rng.Intn(100))},
			mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()},
			rng.Float32()+0.1,
		)
	}
	return out
}

func TestPackMatchesSequential(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Shutdown()

	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{0, 1, 2, 3, 4, 7, 100, 1000} {
		voxels := randomVoxels(rng, n)

		wantV, wantI := PackRange(voxels, 0, n, nil, nil)
		gotV, gotI, err := pool.Pack(voxels, nil, nil)
		require.NoError(t, err)

		assert.Len(t, gotV, n*voxel.VerticesPerVoxel, "n=%d", n)
		assert.Len(t, gotI, n*voxel.IndicesPerVoxel, "n=%d", n)
		assert.Equal(t, wantV, gotV, "vertices n=%d", n)
		assert.Equal(t, wantI, gotI, "indices n=%d", n)
	}
}

func TestPackReusesPoolAndBuffers(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Shutdown()

	voxels := randomVoxels(rand.New(rand.NewSource(7)), 50)
	v1, i1, err := pool.Pack(voxels, nil, nil)
	require.NoError(t, err)

	// stale contents must be discarded
	v2, i2, err := pool.Pack(voxels, v1, i1)
	require.NoError(t, err)
	assert.Equal(t, len(v1), len(v2))

	fresh, freshI := PackRange(voxels, 0, len(voxels), nil, nil)
	assert.Equal(t, fresh, v2)
	assert.Equal(t, freshI, i2)
}

func TestPackRangeGlobalOffsets(t *testing.T) {
	voxels := randomVoxels(rand.New(rand.NewSource(1)), 5)
	_, is := PackRange(voxels, 3, 5, nil, nil)
	require.Len(t, is, 2*voxel.IndicesPerVoxel)

	base := voxel.Indices()
	assert.Equal(t, base[0]+24, is[0])
	assert.Equal(t, base[0]+32, is[voxel.IndicesPerVoxel])
}

func TestPackRangeClampsEnd(t *testing.T) {
	voxels := randomVoxels(rand.New(rand.NewSource(2)), 2)
	vs, is := PackRange(voxels, 1, 10, nil, nil)
	assert.Len(t, vs, voxel.VerticesPerVoxel)
	assert.Len(t, is, voxel.IndicesPerVoxel)
}

func TestPackAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Shutdown()
	pool.Shutdown()

	_, _, err := pool.Pack(randomVoxels(rand.New(rand.NewSource(3)), 4), nil, nil)
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestWorkersFloor(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()
	assert.Equal(t, 1, pool.Workers())
}

func BenchmarkPack(b *testing.B) {
	pool := NewWorkerPool(3)
	defer pool.Shutdown()
	voxels := randomVoxels(rand.New(rand.NewSource(9)), 100_000)

	var vs []voxel.Vertex
	var is []uint32
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var err error
		vs, is, err = pool.Pack(voxels, vs, is)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPackRange(b *testing.B) {
	voxels := randomVoxels(rand.New(rand.NewSource(9)), 100_000)

	var vs []voxel.Vertex
	var is []uint32
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vs, is = PackRange(voxels, 0, len(voxels), vs[:0], is[:0])
	}
}
