package config

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// VoxelMassSettings holds the parameters of the random voxel mass generated at startup
type VoxelMassSettings struct {
	mu       sync.RWMutex
	count    int
	boundMin mgl32.Vec3
	boundMax mgl32.Vec3
	size     float32
}

var globalVoxelMassSettings = &VoxelMassSettings{
	count:    1_000_000,
	boundMin: mgl32.Vec3{0, 0, 0},
	boundMax: mgl32.Vec3{300, 300, 300},
	size:     0.2,
}

// GetVoxelMassCount returns how many random voxels the default scene generates
func GetVoxelMassCount() int {
	globalVoxelMassSettings.mu.RLock()
	defer globalVoxelMassSettings.mu.RUnlock()
	return globalVoxelMassSettings.count
}

// SetVoxelMassCount sets the random voxel count
func SetVoxelMassCount(count int) {
	globalVoxelMassSettings.mu.Lock()
	defer globalVoxelMassSettings.mu.Unlock()

	if count < 0 {
		count = 0
	}
	// 8 vertices per voxel must stay addressable by uint32 indices
	if count > 50_000_000 {
		count = 50_000_000
	}

	globalVoxelMassSettings.count = count
}

// GetVoxelMassBounds returns the half-open generation box
func GetVoxelMassBounds() (mgl32.Vec3, mgl32.Vec3) {
	globalVoxelMassSettings.mu.RLock()
	defer globalVoxelMassSettings.mu.RUnlock()
	return globalVoxelMassSettings.boundMin, globalVoxelMassSettings.boundMax
}

// SetVoxelMassBounds sets the generation box
func SetVoxelMassBounds(boundMin, boundMax mgl32.Vec3) {
	globalVoxelMassSettings.mu.Lock()
	defer globalVoxelMassSettings.mu.Unlock()
	globalVoxelMassSettings.boundMin = boundMin
	globalVoxelMassSettings.boundMax = boundMax
}

// GetVoxelMassSize returns the half-extent of generated voxels
func GetVoxelMassSize() float32 {
	globalVoxelMassSettings.mu.RLock()
	defer globalVoxelMassSettings.mu.RUnlock()
	return globalVoxelMassSettings.size
}

// SetVoxelMassSize sets the half-extent of generated voxels
func SetVoxelMassSize(size float32) {
	globalVoxelMassSettings.mu.Lock()
	defer globalVoxelMassSettings.mu.Unlock()

	if size <= 0 {
		size = 0.01
	}

	globalVoxelMassSettings.size = size
}
