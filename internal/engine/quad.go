package engine

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// QuadVertex is the vertex layout of the raycast display pass
type QuadVertex struct {
	Position mgl32.Vec2
	Color    mgl32.Vec3
}

// QuadVertexSize is the byte stride of QuadVertex
const QuadVertexSize = int(unsafe.Sizeof(QuadVertex{}))

// QuadColorOffset is the byte offset of QuadVertex.Color
const QuadColorOffset = int(unsafe.Offsetof(QuadVertex{}.Color))

// full-screen quad in clip space, two triangles
var (
	quadVertices = []QuadVertex{
		{mgl32.Vec2{-1, -1}, mgl32.Vec3{1, 0, 0}},
		{mgl32.Vec2{1, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec2{1, 1}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec2{-1, 1}, mgl32.Vec3{1, 1, 1}},
	}
	quadIndices = []uint32{0, 1, 2, 2, 3, 0}
)

func quadVertexBytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&quadVertices[0])), len(quadVertices)*QuadVertexSize)
}
