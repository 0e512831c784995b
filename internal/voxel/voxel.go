package voxel

import "github.com/go-gl/mathgl/mgl32"

const (
	// VerticesPerVoxel is the number of corners emitted per cube
	VerticesPerVoxel = 8
	// IndicesPerVoxel is 6 faces of 2 triangles
	IndicesPerVoxel = 36
)

// cubeIndices is the triangle list shared by every voxel. Winding is authored
// against the subtracted corner offsets in cubeCorners.
var cubeIndices = [IndicesPerVoxel]uint32{
	0, 1, 2, 2, 3, 0,
	4, 6, 5, 4, 7, 6,
	1, 5, 6, 1, 6, 2,
	2, 6, 7, 2, 7, 3,
	0, 4, 5, 0, 5, 1,
	3, 7, 4, 3, 4, 0,
}

// cubeCorners are the corner sign patterns, scaled by size and subtracted from the center
var cubeCorners = [VerticesPerVoxel]mgl32.Vec3{
	{-1, -1, -1},
	{1, -1, -1},
	{1, 1, -1},
	{-1, 1, -1},
	{-1, -1, 1},
	{1, -1, 1},
	{1, 1, 1},
	{-1, 1, 1},
}

// Vertex is the GPU vertex layout: interleaved position and color, 24 bytes
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// Voxel is an axis-aligned cube defined by center, flat color and half-extent
type Voxel struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Size     float32
}

// New creates a voxel
func New(position, color mgl32.Vec3, size float32) Voxel {
	return Voxel{Position: position, Color: color, Size: size}
}

// Vertices returns the 8 cube corners in index-pattern order
func (v Voxel) Vertices() [VerticesPerVoxel]Vertex {
	var out [VerticesPerVoxel]Vertex
	for i, c := range cubeCorners {
		out[i] = Vertex{
			Position: v.Position.Sub(c.Mul(v.Size)),
			Color:    v.Color,
		}
	}
	return out
}

// AppendVertices appends the 8 cube corners to dst
func (v Voxel) AppendVertices(dst []Vertex) []Vertex {
	verts := v.Vertices()
	return append(dst, verts[:]...)
}

// Indices returns the fixed cube triangulation. Callers add ordinal*8 before use.
func Indices() [IndicesPerVoxel]uint32 {
	return cubeIndices
}

// AppendIndices appends the cube triangulation offset to reference vertices
// starting at base
func AppendIndices(dst []uint32, base uint32) []uint32 {
	for _, i := range cubeIndices {
		dst = append(dst, base+i)
	}
	return dst
}

// GPUVoxel is the std430 record read by the raycast compute shader
type GPUVoxel struct {
	PositionSize mgl32.Vec4 // xyz center, w half-extent
	Color        mgl32.Vec4 // rgb color, a = 1
}

// GPU converts the voxel into its storage-buffer record
func (v Voxel) GPU() GPUVoxel {
	return GPUVoxel{
		PositionSize: v.Position.Vec4(v.Size),
		Color:        v.Color.Vec4(1),
	}
}
