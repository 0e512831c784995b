package engine

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"voxel-engine/internal/camera"
)

const (
	fieldOfView = 45.0
	nearPlane   = 0.1
	farPlane    = 1000.0
)

// UniformBufferObject is the std140 per-frame uniform block shared by the mesh
// vertex shader and the raycast compute shader. Camera vectors are vec4 with
// w = 0 so every member stays 16-byte aligned.
type UniformBufferObject struct {
	Model       mgl32.Mat4
	View        mgl32.Mat4
	Proj        mgl32.Mat4
	CamPosition mgl32.Vec4
	CamForward  mgl32.Vec4
	CamUp       mgl32.Vec4
	CamRight    mgl32.Vec4
}

// UniformBufferSize is the byte size of UniformBufferObject
const UniformBufferSize = int(unsafe.Sizeof(UniformBufferObject{}))

// Update fills the block from the camera for a target of the given extent
func (u *UniformBufferObject) Update(cam *camera.Camera, extent Extent) {
	u.Model = mgl32.Ident4()
	u.View = cam.View()
	u.Proj = mgl32.Perspective(mgl32.DegToRad(fieldOfView), extent.Aspect(), nearPlane, farPlane)
	// Vulkan clip space has Y pointing down
	u.Proj[5] *= -1

	u.CamPosition = cam.Position3().Vec4(0)
	u.CamForward = cam.Forward3().Vec4(0)
	u.CamUp = cam.Up3().Vec4(0)
	u.CamRight = cam.Right3().Vec4(0)
}

// Bytes returns the block as raw bytes without copying
func (u *UniformBufferObject) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), UniformBufferSize)
}
