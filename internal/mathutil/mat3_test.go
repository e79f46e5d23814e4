package mathutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d of %v", i, got)
	}
}

func TestOrbitPutsCameraOnPlusZ(t *testing.T) {
	for _, tc := range []struct{ pitch, yaw float64 }{
		{0, 0}, {0, 0.7}, {0.4, -1.2}, {-1.5, 2.5},
	} {
		// camera position used by the orbit camera
		cam := Vec3{
			math.Sin(tc.yaw) * math.Cos(tc.pitch),
			math.Sin(tc.pitch),
			math.Cos(tc.yaw) * math.Cos(tc.pitch),
		}
		assertVec(t, Vec3{0, 0, 1}, Orbit(tc.pitch, tc.yaw).Apply(cam))
	}
}

func TestMulIdentity(t *testing.T) {
	r := RotX(0.3)
	assert.Equal(t, r, Mul(Identity(), r))
	assertVec(t, Vec3{1, 2, 3}, Mul(RotY(0.5), RotY(-0.5)).Apply(Vec3{1, 2, 3}))
}

func TestFaceNormal(t *testing.T) {
	n := FaceNormal(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	assertVec(t, Vec3{0, 0, 1}, n)
	assert.Equal(t, Vec3{}, FaceNormal(Vec3{}, Vec3{}, Vec3{}))
}
