// Package scene computes the per-frame transform uniform of a mesh
// spinning in front of a fixed camera.
package scene

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
)

// Uniform is the layout of the vertex shader's uniform block.
type Uniform struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// UniformSize is the encoded size of Uniform.
var UniformSize = binary.Size(Uniform{})

// clipCorrection maps OpenGL clip depth [-1,1] to Vulkan's [0,1]. Y is left
// alone; the viewport is flipped instead.
var clipCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

const (
	fovy = math.Pi / 4.0
	near = 0.1
	far  = 10.0
)

// RotationPeriod is how long one full turn of the model takes.
const RotationPeriod = 4 * time.Second

type Scene struct {
	start time.Duration
	view  mgl32.Mat4
	proj  mgl32.Mat4
}

func New(width, height int) *Scene {
	s := &Scene{
		start: hrtime.Now(),
		view: mgl32.LookAtV(
			mgl32.Vec3{2, 2, 2},
			mgl32.Vec3{0, 0, 0},
			mgl32.Vec3{0, 0, 1},
		),
		proj: mgl32.Ident4(),
	}
	s.Resize(width, height)
	return s
}

// Resize recomputes the projection for a new drawable size. A zero-area
// size keeps the previous projection.
func (s *Scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}

	aspect := float32(width) / float32(height)
	s.proj = clipCorrection.Mul4(mgl32.Perspective(fovy, aspect, near, far))
}

// At returns the uniform for a point in time since the scene was created.
func (s *Scene) At(elapsed time.Duration) Uniform {
	turn := math.Mod(elapsed.Seconds(), RotationPeriod.Seconds()) / RotationPeriod.Seconds()

	return Uniform{
		Model: mgl32.HomogRotate3DZ(float32(turn * 2 * math.Pi)),
		View:  s.view,
		Proj:  s.proj,
	}
}

// Now returns the uniform for the current time.
func (s *Scene) Now() Uniform {
	return s.At(hrtime.Since(s.start))
}
