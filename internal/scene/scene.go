package scene

import (
	"math/rand"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"voxel-engine/internal/camera"
	"voxel-engine/internal/meshing"
	"voxel-engine/internal/voxel"
)

// Scene owns a camera and an ordered collection of voxels.
// Geometry is always rebuilt in full from the current voxels.
type Scene struct {
	id     uuid.UUID
	camera camera.Camera
	voxels []voxel.Voxel
}

// New creates an empty scene holding a copy of cam
func New(cam camera.Camera) *Scene {
	return &Scene{
		id:     uuid.New(),
		camera: cam,
	}
}

// ID identifies the scene in logs
func (s *Scene) ID() uuid.UUID {
	return s.id
}

// Camera returns the scene-owned camera
func (s *Scene) Camera() *camera.Camera {
	return &s.camera
}

// SetCamera replaces the camera with a copy of cam
func (s *Scene) SetCamera(cam camera.Camera) {
	s.camera = cam
}

// Voxels returns the voxels in insertion order. The slice must not be modified.
func (s *Scene) Voxels() []voxel.Voxel {
	return s.voxels
}

// Len returns the number of voxels
func (s *Scene) Len() int {
	return len(s.voxels)
}

// AddVoxel appends one voxel
func (s *Scene) AddVoxel(v voxel.Voxel) {
	s.voxels = append(s.voxels, v)
}

// AddVoxels appends voxels in order
func (s *Scene) AddVoxels(vs ...voxel.Voxel) {
	s.voxels = append(s.voxels, vs...)
}

// SetVoxels replaces the voxel collection wholesale
func (s *Scene) SetVoxels(vs []voxel.Voxel) {
	s.voxels = slices.Clone(vs)
}

// GenerateRandomVoxelMass appends count voxels with integer positions drawn
// uniformly from [boundMin, boundMax) per axis and colors from [0, 1).
// The random source is reseeded from the wall clock on every call.
func (s *Scene) GenerateRandomVoxelMass(count int, boundMin, boundMax mgl32.Vec3, size float32) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s.generateVoxelMass(rng, count, boundMin, boundMax, size)
}

func (s *Scene) generateVoxelMass(rng *rand.Rand, count int, boundMin, boundMax mgl32.Vec3, size float32) {
	if count <= 0 {
		return
	}
	s.voxels = slices.Grow(s.voxels, count)

	var lo, span [3]int
	for axis := range 3 {
		lo[axis] = int(boundMin[axis])
		span[axis] = int(boundMax[axis]) - lo[axis]
	}

	for range count {
		var pos mgl32.Vec3
		for axis := range 3 {
			p := lo[axis]
			if span[axis] > 0 {
				p += rng.Intn(span[axis])
			}
			pos[axis] = float32(p)
		}
		color := mgl32.Vec3{rng.Float32(), rng.Float32(), rng.Float32()}
		s.voxels = append(s.voxels, voxel.New(pos, color, size))
	}
}

// OverwriteVertsAndIndices truncates vertices and indices and refills them
// with every voxel's 8 vertices and 36 indices, each voxel's indices offset by
// the running vertex count. The returned slices reuse the given capacity.
func (s *Scene) OverwriteVertsAndIndices(vertices []voxel.Vertex, indices []uint32) ([]voxel.Vertex, []uint32) {
	return s.AppendVertsAndIndices(vertices[:0], indices[:0])
}

// OverwriteVertsAndIndicesMT produces the same output as
// OverwriteVertsAndIndices using the persistent packing pool. It blocks until
// all workers are done.
func (s *Scene) OverwriteVertsAndIndicesMT(pool *meshing.WorkerPool, vertices []voxel.Vertex, indices []uint32) ([]voxel.Vertex, []uint32, error) {
	return pool.Pack(s.voxels, vertices, indices)
}

// AppendVertsAndIndices appends the scene geometry after whatever vertices
// already exist, offsetting indices by the existing vertex count
func (s *Scene) AppendVertsAndIndices(vertices []voxel.Vertex, indices []uint32) ([]voxel.Vertex, []uint32) {
	n := len(s.voxels)
	vertices = slices.Grow(vertices, n*voxel.VerticesPerVoxel)
	indices = slices.Grow(indices, n*voxel.IndicesPerVoxel)
	for _, v := range s.voxels {
		base := uint32(len(vertices))
		vertices = v.AppendVertices(vertices)
		indices = voxel.AppendIndices(indices, base)
	}
	return vertices, indices
}

// GPUVoxels truncates dst and fills it with the storage-buffer records of
// every voxel, for the raycast pipeline
func (s *Scene) GPUVoxels(dst []voxel.GPUVoxel) []voxel.GPUVoxel {
	dst = slices.Grow(dst[:0], len(s.voxels))
	for _, v := range s.voxels {
		dst = append(dst, v.GPU())
	}
	return dst
}
