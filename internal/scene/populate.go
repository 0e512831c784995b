package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxel-engine/internal/camera"
	"voxel-engine/internal/config"
	"voxel-engine/internal/voxel"
)

// Populator fills a freshly created scene. The application passes one at
// construction to decide what gets rendered.
type Populator func(s *Scene)

// DefaultPopulator places the camera at the origin looking along +X, a single
// green unit voxel at the origin, and the configured random voxel mass
func DefaultPopulator(s *Scene) {
	s.SetCamera(camera.New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}))
	s.AddVoxel(voxel.New(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 1))

	lo, hi := config.GetVoxelMassBounds()
	s.GenerateRandomVoxelMass(config.GetVoxelMassCount(), lo, hi, config.GetVoxelMassSize())
}

// Build creates a scene with the default camera and runs populate on it.
// A nil populate yields an empty scene.
func Build(populate Populator) *Scene {
	s := New(camera.Default())
	if populate != nil {
		populate(s)
	}
	return s
}
