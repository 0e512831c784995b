package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"voxel-engine/internal/input"
)

// pitchLimit is the |z| of localForward past which pitching further toward the
// pole is refused, keeping the derived right vector well defined
const pitchLimit = 0.999

// WorldUp is the fixed up axis
var WorldUp = mgl32.Vec3{0, 0, 1}

// Camera is a free-fly camera. forward is the absolute point looked at and is
// always position + localForward. Roll is impossible: right is derived from
// localForward around world up and flattened to the horizontal plane.
type Camera struct {
	position     mgl32.Vec4
	forward      mgl32.Vec4
	localForward mgl32.Vec4
}

// Default returns a camera at the origin looking along +X
func Default() Camera {
	return Camera{
		forward:      mgl32.Vec4{1, 0, 0, 0},
		localForward: mgl32.Vec4{1, 0, 0, 0},
	}
}

// New returns a camera at position looking toward target
func New(position, target mgl32.Vec3) Camera {
	c := Camera{
		position:     position.Vec4(0),
		localForward: target.Sub(position).Normalize().Vec4(0),
	}
	c.forward = c.position.Add(c.localForward)
	return c
}

// Rotate applies yaw around world up by -XPosDelta*mouseSpeed, then pitch
// around the right vector by YPosDelta*mouseSpeed. Pitch toward a pole is
// dropped once |localForward.z| reaches pitchLimit.
func (c *Camera) Rotate(in *input.UserInput, mouseSpeed float32) {
	zRot := -in.XPosDelta * mouseSpeed
	xyRot := in.YPosDelta * mouseSpeed

	// positive pitch lowers z, negative pitch raises it
	if c.localForward.Z() <= -pitchLimit && xyRot > 0 {
		xyRot = 0
	}
	if c.localForward.Z() >= pitchLimit && xyRot < 0 {
		xyRot = 0
	}

	c.localForward = mgl32.HomogRotate3D(zRot, WorldUp).Mul4x1(c.localForward)
	c.localForward = mgl32.HomogRotate3D(xyRot, c.Right3()).Mul4x1(c.localForward)
	c.forward = c.position.Add(c.localForward)
}

// Move translates the camera in its local frame: lengthways along
// localForward, sideways along the right vector, vertical along world up.
// The viewing direction is unchanged.
func (c *Camera) Move(in *input.UserInput, deltaTime, speed float32) {
	step := deltaTime * speed
	dx := float32(in.Lengthways) * step
	dy := float32(in.Sideways) * step
	dz := float32(in.Vertical) * step

	delta := c.localForward.Mul(dx).
		Add(c.Right3().Vec4(0).Mul(dy)).
		Add(WorldUp.Vec4(0).Mul(dz))

	c.position = c.position.Add(delta)
	c.forward = c.position.Add(c.localForward)
}

// Right3 returns the horizontal unit vector 90 degrees counter-clockwise from
// localForward around world up. Recomputed on every call.
func (c *Camera) Right3() mgl32.Vec3 {
	r := mgl32.HomogRotate3D(math.Pi/2, WorldUp).Mul4x1(c.localForward).Vec3()
	r[2] = 0
	return r.Normalize()
}

// Position3 returns the camera position
func (c *Camera) Position3() mgl32.Vec3 {
	return c.position.Vec3()
}

// Forward3 returns the absolute point the camera looks at
func (c *Camera) Forward3() mgl32.Vec3 {
	return c.forward.Vec3()
}

// LocalForward3 returns the normalized viewing direction
func (c *Camera) LocalForward3() mgl32.Vec3 {
	return c.localForward.Vec3()
}

// Up3 returns position + world up, the point the shaders use as camera up
func (c *Camera) Up3() mgl32.Vec3 {
	return c.position.Vec3().Add(WorldUp)
}

// SetPosition moves the camera without changing direction
func (c *Camera) SetPosition(p mgl32.Vec3) {
	c.position = p.Vec4(0)
	c.forward = c.position.Add(c.localForward)
}

// View returns the right-handed view matrix for a Z-up world
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position3(), c.Forward3(), WorldUp)
}
