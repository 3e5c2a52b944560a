package view

import (
	"github.com/Gaeric/hikari-go/common"
	"github.com/go-gl/mathgl/mgl32"
)

// view is the implementation of the View interface.
type view struct {
	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fovY float32
	near float32

	width  int
	height int

	prevViewProj    mgl32.Mat4
	prevInvViewProj mgl32.Mat4
	hasPrevious     bool
}

// View holds the camera state for a single rendered view and produces the
// GPU-layout uniforms consumed by the prepass and lighting shaders.
//
// The view keeps the previous frame's view-projection matrix so the lighting
// pass can reproject the current pixel into last frame's reservoir textures.
// Call Advance once per frame, before mutating the camera, to snapshot the
// current matrices as the previous-frame matrices.
type View interface {
	// Advance snapshots the current view-projection matrices as the
	// previous-frame matrices. Call exactly once per frame before applying
	// camera movement for the new frame.
	Advance()

	// Resize updates the viewport dimensions used for the projection aspect ratio.
	//
	// Parameters:
	//   - width: viewport width in pixels
	//   - height: viewport height in pixels
	Resize(width, height int)

	// Position returns the camera world position.
	//
	// Returns:
	//   - mgl32.Vec3: the camera position
	Position() mgl32.Vec3

	// SetPosition sets the camera world position.
	//
	// Parameters:
	//   - position: the new camera position
	SetPosition(position mgl32.Vec3)

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// SetTarget sets the point the camera looks at.
	//
	// Parameters:
	//   - target: the new look-at target
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the camera around the target by the given yaw and pitch
	// angles in radians. Pitch is clamped short of the poles to keep the view
	// basis well defined.
	//
	// Parameters:
	//   - yaw: rotation around the up axis in radians
	//   - pitch: rotation toward/away from the up axis in radians
	Orbit(yaw, pitch float32)

	// Zoom moves the camera along the view direction toward or away from the
	// target. The camera never crosses the target.
	//
	// Parameters:
	//   - delta: distance to move; positive moves toward the target
	Zoom(delta float32)

	// ViewMatrix returns the world-to-view matrix for the current camera state.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the reversed-Z infinite perspective projection
	// for the current viewport.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// GpuView builds the GPU-layout view uniform for the current camera state.
	//
	// Returns:
	//   - GpuView: the view uniform
	GpuView() GpuView

	// GpuPreviousView builds the GPU-layout previous-view uniform from the last
	// Advance snapshot. Before the first Advance it falls back to the current
	// matrices so reprojection degenerates to an identity remap.
	//
	// Returns:
	//   - GpuPreviousView: the previous-view uniform
	GpuPreviousView() GpuPreviousView
}

var _ View = &view{}

// NewView creates a View with the specified options applied over defaults
// (camera at (0, 2.5, 5) looking at the origin, 45 degree field of view).
//
// Parameters:
//   - options: functional options to configure the view
//
// Returns:
//   - View: the configured view
func NewView(options ...ViewBuilderOption) View {
	v := &view{
		position: mgl32.Vec3{0, 2.5, 5},
		target:   mgl32.Vec3{0, 0, 0},
		up:       mgl32.Vec3{0, 1, 0},
		fovY:     mgl32.DegToRad(45),
		near:     0.1,
		width:    1280,
		height:   720,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

func (v *view) Advance() {
	viewProj := v.ProjectionMatrix().Mul4(v.ViewMatrix())
	v.prevViewProj = viewProj
	v.prevInvViewProj = viewProj.Inv()
	v.hasPrevious = true
}

func (v *view) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.width = width
	v.height = height
}

func (v *view) Position() mgl32.Vec3 {
	return v.position
}

func (v *view) SetPosition(position mgl32.Vec3) {
	v.position = position
}

func (v *view) Target() mgl32.Vec3 {
	return v.target
}

func (v *view) SetTarget(target mgl32.Vec3) {
	v.target = target
}

func (v *view) Orbit(yaw, pitch float32) {
	offset := v.position.Sub(v.target)
	radius := offset.Len()
	if radius == 0 {
		return
	}

	// Spherical coordinates around the target, up = +Y.
	curYaw := atan2(offset.X(), offset.Z())
	curPitch := asin(offset.Y() / radius)

	curYaw += yaw
	curPitch = clamp(curPitch+pitch, -1.55, 1.55)

	cp := cos(curPitch)
	v.position = v.target.Add(mgl32.Vec3{
		radius * cp * sin(curYaw),
		radius * sin(curPitch),
		radius * cp * cos(curYaw),
	})
}

func (v *view) Zoom(delta float32) {
	offset := v.position.Sub(v.target)
	radius := offset.Len()
	if radius == 0 {
		return
	}
	radius = clamp(radius-delta, 0.1, radius+abs(delta))
	v.position = v.target.Add(offset.Normalize().Mul(radius))
}

func (v *view) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(v.position, v.target, v.up)
}

func (v *view) ProjectionMatrix() mgl32.Mat4 {
	aspect := float32(v.width) / float32(v.height)
	return common.PerspectiveInfiniteReverse(v.fovY, aspect, v.near)
}

func (v *view) GpuView() GpuView {
	viewMat := v.ViewMatrix()
	proj := v.ProjectionMatrix()
	viewProj := proj.Mul4(viewMat)

	return GpuView{
		ViewProj:          viewProj,
		InverseViewProj:   viewProj.Inv(),
		View:              viewMat,
		InverseView:       viewMat.Inv(),
		Projection:        proj,
		InverseProjection: proj.Inv(),
		WorldPosition:     v.position,
		Width:             float32(v.width),
		Height:            float32(v.height),
	}
}

func (v *view) GpuPreviousView() GpuPreviousView {
	if !v.hasPrevious {
		viewProj := v.ProjectionMatrix().Mul4(v.ViewMatrix())
		return GpuPreviousView{
			ViewProj:        viewProj,
			InverseViewProj: viewProj.Inv(),
		}
	}
	return GpuPreviousView{
		ViewProj:        v.prevViewProj,
		InverseViewProj: v.prevInvViewProj,
	}
}
