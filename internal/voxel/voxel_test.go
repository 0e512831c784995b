package voxel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerticesSubtractOffset(t *testing.T) {
	v := New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 1)
	verts := v.Vertices()

	want := [VerticesPerVoxel]mgl32.Vec3{
		{1, 1, 1},
		{-1, 1, 1},
		{-1, -1, 1},
		{1, -1, 1},
		{1, 1, -1},
		{-1, 1, -1},
		{-1, -1, -1},
		{1, -1, -1},
	}
	for i := range verts {
		assert.Equal(t, want[i], verts[i].Position, "vertex %d", i)
		assert.Equal(t, mgl32.Vec3{0, 1, 0}, verts[i].Color, "vertex %d color", i)
	}
}

func TestVerticesScaleAndTranslate(t *testing.T) {
	v := New(mgl32.Vec3{10, 20, 30}, mgl32.Vec3{1, 0, 0}, 0.5)
	verts := v.Vertices()
	assert.Equal(t, mgl32.Vec3{10.5, 20.5, 30.5}, verts[0].Position)
	assert.Equal(t, mgl32.Vec3{9.5, 19.5, 29.5}, verts[6].Position)
}

func TestIndicesFixedPattern(t *testing.T) {
	a := Indices()
	b := Indices()
	assert.Equal(t, a, b)
	assert.Len(t, a, IndicesPerVoxel)

	for _, i := range a {
		assert.Less(t, i, uint32(VerticesPerVoxel))
	}
	assert.Equal(t, [6]uint32{0, 1, 2, 2, 3, 0}, [6]uint32(a[:6]))
}

func TestAppendIndicesOffsets(t *testing.T) {
	got := AppendIndices(nil, 16)
	require.Len(t, got, IndicesPerVoxel)
	base := Indices()
	for k := range got {
		assert.Equal(t, base[k]+16, got[k])
	}
}

func TestAppendVertices(t *testing.T) {
	v := New(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, 1)
	dst := make([]Vertex, 1, 9)
	dst = v.AppendVertices(dst)
	require.Len(t, dst, 9)
	assert.Equal(t, Vertex{}, dst[0])
	assert.Equal(t, v.Vertices()[0], dst[1])
}

func TestBinaryLayout(t *testing.T) {
	assert.Equal(t, 24, VertexSize)
	assert.Equal(t, 0, VertexPositionOffset)
	assert.Equal(t, 12, VertexColorOffset)
	assert.Equal(t, 4, IndexSize)
	assert.Equal(t, 32, GPUVoxelSize)
}

func TestVertexBytesInterleaved(t *testing.T) {
	vs := []Vertex{{Position: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec3{4, 5, 6}}}
	b := VertexBytes(vs)
	require.Len(t, b, VertexSize)
	for i := 0; i < 6; i++ {
		f := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		assert.Equal(t, float32(i+1), f)
	}

	assert.Nil(t, VertexBytes(nil))
	assert.Nil(t, IndexBytes(nil))
	assert.Nil(t, GPUVoxelBytes(nil))
}

func TestGPURecord(t *testing.T) {
	g := New(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0.5, 0.25, 0}, 0.2).GPU()
	assert.Equal(t, mgl32.Vec4{1, 2, 3, 0.2}, g.PositionSize)
	assert.Equal(t, mgl32.Vec4{0.5, 0.25, 0, 1}, g.Color)
	assert.Len(t, GPUVoxelBytes([]GPUVoxel{g, g}), 2*GPUVoxelSize)
}
