package config

import "sync"

// WindowSettings holds the initial window configuration
type WindowSettings struct {
	mu     sync.RWMutex
	width  int
	height int
	title  string
}

var globalWindowSettings = &WindowSettings{
	width:  1920,
	height: 1080,
	title:  "Voxel Engine",
}

// GetWindowSize returns the initial window size in screen coordinates
func GetWindowSize() (int, int) {
	globalWindowSettings.mu.RLock()
	defer globalWindowSettings.mu.RUnlock()
	return globalWindowSettings.width, globalWindowSettings.height
}

// SetWindowSize sets the initial window size
func SetWindowSize(width, height int) {
	globalWindowSettings.mu.Lock()
	defer globalWindowSettings.mu.Unlock()

	if width < 64 {
		width = 64
	}
	if height < 64 {
		height = 64
	}

	globalWindowSettings.width = width
	globalWindowSettings.height = height
}

// GetWindowTitle returns the window title
func GetWindowTitle() string {
	globalWindowSettings.mu.RLock()
	defer globalWindowSettings.mu.RUnlock()
	return globalWindowSettings.title
}
