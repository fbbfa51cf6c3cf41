package scene

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestUniformSize(t *testing.T) {
	assert.Equal(t, 3*16*4, UniformSize)
}

func TestModelRotation(t *testing.T) {
	s := New(800, 600)

	assert.True(t, s.At(0).Model.ApproxEqual(mgl32.Ident4()))
	assert.True(t, s.At(RotationPeriod).Model.ApproxEqualThreshold(mgl32.Ident4(), 1e-5))

	quarter := s.At(RotationPeriod / 4).Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 0, quarter.X(), 1e-5)
	assert.InDelta(t, 1, quarter.Y(), 1e-5)
}

func TestProjectionDepthRange(t *testing.T) {
	s := New(800, 600)
	proj := s.At(0).Proj

	nearPoint := proj.Mul4x1(mgl32.Vec4{0, 0, -near, 1})
	farPoint := proj.Mul4x1(mgl32.Vec4{0, 0, -far, 1})

	assert.InDelta(t, 0, nearPoint.Z()/nearPoint.W(), 1e-5)
	assert.InDelta(t, 1, farPoint.Z()/farPoint.W(), 1e-5)
}

func TestResize(t *testing.T) {
	s := New(800, 800)
	square := s.At(0).Proj

	s.Resize(1600, 800)
	wide := s.At(0).Proj
	assert.InDelta(t, square[0]/2, wide[0], 1e-5)
	assert.Equal(t, square[5], wide[5])

	s.Resize(0, 800)
	assert.Equal(t, wide, s.At(0).Proj)
}

func TestNowAdvances(t *testing.T) {
	s := New(800, 600)
	s.start -= time.Second

	u := s.Now()
	assert.False(t, u.Model.ApproxEqual(mgl32.Ident4()))
}
