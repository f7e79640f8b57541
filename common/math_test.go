package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestEulerRoundTrip(t *testing.T) {
	for _, deg := range []mgl32.Vec3{
		{0, 0, 0},
		{30, 45, 60},
		{10, 200, 350},
		{300, 90, 15},
	} {
		got := EulerAngles(EulerToQuat(deg))
		back := EulerToQuat(got)
		want := EulerToQuat(deg)
		// q and -q are the same orientation
		assert.InDelta(t, 1, mgl32.Abs(back.Dot(want)), 1e-4, "%v -> %v", deg, got)
	}

	got := EulerAngles(EulerToQuat(mgl32.Vec3{30, 45, 60}))
	assert.InDelta(t, 30, got[0], 1e-3)
	assert.InDelta(t, 45, got[1], 1e-3)
	assert.InDelta(t, 60, got[2], 1e-3)
}

func TestEulerToQuat_Yaw(t *testing.T) {
	v := EulerToQuat(mgl32.Vec3{0, 90, 0}).Rotate(AxisZ)
	assert.InDeltaSlice(t, AxisX[:], v[:], 1e-5)
}

func TestWrapDegrees(t *testing.T) {
	assert.Equal(t, float32(0), WrapDegrees(360))
	assert.Equal(t, float32(270), WrapDegrees(-90))
	assert.InDelta(t, 10, WrapDegrees(730), 1e-4)
}

func TestTRS(t *testing.T) {
	m := TRS(mgl32.Vec3{1, 2, 3}, mgl32.QuatIdent(), mgl32.Vec3{2, 2, 2})
	p := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.Equal(t, mgl32.Vec4{3, 2, 3, 1}, p)
}

func TestPerspective_DepthRange(t *testing.T) {
	proj := Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)
}

func TestWorkgroupCount(t *testing.T) {
	assert.Equal(t, uint32(160), WorkgroupCount(1280, 8))
	assert.Equal(t, uint32(161), WorkgroupCount(1281, 8))
	assert.Equal(t, uint32(1), WorkgroupCount(1, 8))
	assert.Equal(t, uint32(0), WorkgroupCount(0, 8))
	assert.Equal(t, uint32(0), WorkgroupCount(8, 0))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, float32(0.5), Clamp01(0.5))
	assert.Equal(t, float32(1), Clamp01(3))
	assert.Equal(t, float32(0), Clamp01(-1))
}
