package voxel

import "unsafe"

// Sizes of the binary contracts shared with the shaders
const (
	VertexSize   = int(unsafe.Sizeof(Vertex{}))
	IndexSize    = int(unsafe.Sizeof(uint32(0)))
	GPUVoxelSize = int(unsafe.Sizeof(GPUVoxel{}))
)

// Offsets of the Vertex attributes, used for vertex input descriptions
const (
	VertexPositionOffset = int(unsafe.Offsetof(Vertex{}.Position))
	VertexColorOffset    = int(unsafe.Offsetof(Vertex{}.Color))
)

// VertexBytes returns a view of the vertices as raw bytes without copying.
// The view aliases vs and must not outlive it.
func VertexBytes(vs []Vertex) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*VertexSize)
}

// IndexBytes returns a view of the indices as raw bytes without copying
func IndexBytes(is []uint32) []byte {
	if len(is) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&is[0])), len(is)*IndexSize)
}

// GPUVoxelBytes returns a view of the storage records as raw bytes without copying
func GPUVoxelBytes(vs []GPUVoxel) []byte {
	if len(vs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*GPUVoxelSize)
}
