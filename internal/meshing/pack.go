package meshing

import "voxel-engine/internal/voxel"

// PackRange appends the geometry of voxels[start:end] to vertices and indices.
// Index offsets use the voxel's global ordinal (k*8), so a range packed on its
// own stays valid once concatenated after the ranges that precede it.
func PackRange(voxels []voxel.Voxel, start, end int, vertices []voxel.Vertex, indices []uint32) ([]voxel.Vertex, []uint32) {
	end = min(end, len(voxels))
	for k := start; k < end; k++ {
		vertices = voxels[k].AppendVertices(vertices)
		indices = voxel.AppendIndices(indices, uint32(k*voxel.VerticesPerVoxel))
	}
	return vertices, indices
}
