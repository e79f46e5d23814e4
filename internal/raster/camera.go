package raster

import "stl-viewer/internal/mathutil"

// Camera limits.
const (
	MinDistance = 15.0
	MaxDistance = 200.0
	MaxPitch    = 1.5 // radians; keeps the orbit away from the poles
)

// Camera orbits the normalised model at the origin. Distance controls
// perspective strength; the renderer always fits the model to the frame.
type Camera struct {
	Distance float64 `json:"distance"`
	RotX     float64 `json:"rot_x"` // pitch, radians
	RotY     float64 `json:"rot_y"` // yaw, radians
}

// DefaultCamera looks at the model from the front, slightly above.
func DefaultCamera() Camera {
	return Camera{Distance: 100, RotX: 0.35, RotY: 0.6}
}

// Clamped returns c with distance and pitch inside their limits.
func (c Camera) Clamped() Camera {
	if c.Distance < MinDistance {
		c.Distance = MinDistance
	}
	if c.Distance > MaxDistance {
		c.Distance = MaxDistance
	}
	if c.RotX > MaxPitch {
		c.RotX = MaxPitch
	}
	if c.RotX < -MaxPitch {
		c.RotX = -MaxPitch
	}
	return c
}

// Zoom moves the camera by delta, respecting the distance limits.
func (c Camera) Zoom(delta float64) Camera {
	c.Distance += delta
	return c.Clamped()
}

// Rotate adds to pitch and yaw, respecting the pitch limit.
func (c Camera) Rotate(dx, dy float64) Camera {
	c.RotX += dx
	c.RotY += dy
	return c.Clamped()
}

// View returns the world-to-view rotation.
func (c Camera) View() mathutil.Mat3 {
	return mathutil.Orbit(c.RotX, c.RotY)
}
