package config

import "sync"

const (
	// FramesInFlight is the number of frames the CPU may record ahead of the GPU
	FramesInFlight = 2

	// MeshWorkers is the fixed size of the mesh-packing worker pool
	MeshWorkers = 3

	// Raycast compute workgroup size, must match local_size in shaders/raycast.comp
	RaycastGroupX = 8
	RaycastGroupY = 4
)

// RenderSettings holds render configuration
type RenderSettings struct {
	mu         sync.RWMutex
	raycast    bool
	fpsLimit   int
	moveSpeed  float32
	mouseSpeed float32
	shaderDir  string
}

var globalRenderSettings = &RenderSettings{
	raycast:    false,
	fpsLimit:   0, // fence waits already pace the loop
	moveSpeed:  1,
	mouseSpeed: 0.0005,
	shaderDir:  "shaders",
}

// GetRaycast reports whether the compute ray casting pipeline is selected
func GetRaycast() bool {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.raycast
}

// SetRaycast selects the compute ray casting pipeline instead of mesh rasterization
func SetRaycast(enabled bool) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.raycast = enabled
}

// GetFPSLimit returns the frame cap, 0 means uncapped
func GetFPSLimit() int {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.fpsLimit
}

// SetFPSLimit sets the frame cap
func SetFPSLimit(limit int) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if limit < 0 {
		limit = 0
	}
	if limit > 1000 {
		limit = 1000
	}

	globalRenderSettings.fpsLimit = limit
}

// GetMoveSpeed returns camera translation speed in world units per second
func GetMoveSpeed() float32 {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.moveSpeed
}

// SetMoveSpeed sets camera translation speed
func SetMoveSpeed(speed float32) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if speed < 0.01 {
		speed = 0.01
	}
	if speed > 1000 {
		speed = 1000
	}

	globalRenderSettings.moveSpeed = speed
}

// GetMouseSpeed returns radians of rotation per pixel of cursor travel
func GetMouseSpeed() float32 {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.mouseSpeed
}

// SetMouseSpeed sets mouse sensitivity
func SetMouseSpeed(speed float32) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if speed < 0.00001 {
		speed = 0.00001
	}
	if speed > 0.1 {
		speed = 0.1
	}

	globalRenderSettings.mouseSpeed = speed
}

// GetShaderDir returns the directory holding compiled SPIR-V shaders
func GetShaderDir() string {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.shaderDir
}

// SetShaderDir sets the SPIR-V directory, empty keeps the current value
func SetShaderDir(dir string) {
	if dir == "" {
		return
	}
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.shaderDir = dir
}
