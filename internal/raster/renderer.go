package raster

import (
	"image"
	"image/color"
	"math"

	"stl-viewer/internal/mathutil"
	"stl-viewer/internal/stl"
)

// FitUnits is the edge of the cube the model is normalised into before the
// camera is applied.
const FitUnits = 20.0

// Background is the clear color of rendered previews.
var Background = color.NRGBA{20, 20, 40, 255}

// RenderMesh renders m as seen from cam into a square image of
// size*supersample pixels. The mesh is only read. An invalid mesh yields a
// transparent image.
func RenderMesh(m *stl.Mesh, cam Camera, size, supersample int) *image.NRGBA {
	if supersample < 1 {
		supersample = 1
	}
	renderSize := size * supersample
	if m == nil || !m.IsValid() || renderSize <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	}

	cam = cam.Clamped()
	R := cam.View()
	tris := m.Triangles()

	// Normalise: center at origin, largest span = FitUnits
	center := mathutil.FromSTL(m.Center())
	scale := 1.0
	if ext := float64(m.Extent()); ext > 0 && !math.IsInf(ext, 0) && !math.IsNaN(ext) {
		scale = FitUnits / ext
	}

	// View transform + perspective divide
	proj := make([]ScreenVertex, len(tris)*3)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range tris {
		for j, v := range tris[i].Vertices {
			p := R.Apply(mathutil.FromSTL(v).Sub(center).Scale(scale))
			factor := cam.Distance / math.Max(cam.Distance-p[2], 0.1)
			sv := ScreenVertex{X: p[0] * factor, Y: p[1] * factor, Z: p[2]}
			proj[i*3+j] = sv

			if !finite(sv) {
				continue
			}
			minX = math.Min(minX, sv.X)
			maxX = math.Max(maxX, sv.X)
			minY = math.Min(minY, sv.Y)
			maxY = math.Max(maxY, sv.Y)
		}
	}

	// Fit projected extent into the frame with a margin
	span := math.Max(maxX-minX, maxY-minY)
	if !(span > 0.001) {
		span = 0.001
	}
	margin := float64(16 * supersample)
	pxScale := (float64(renderSize) - 2*margin) / span
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	half := float64(renderSize) / 2
	for i := range proj {
		proj[i].X = (proj[i].X-cx)*pxScale + half
		proj[i].Y = -(proj[i].Y-cy)*pxScale + half
	}

	fb := NewFrameBuffer(renderSize, renderSize, Background)
	lc := DefaultLightConfig()

	for i := range tris {
		sv := [3]ScreenVertex{proj[i*3], proj[i*3+1], proj[i*3+2]}
		if !finite(sv[0]) || !finite(sv[1]) || !finite(sv[2]) {
			continue
		}

		n := modelNormal(&tris[i])
		base := MaterialColor(n)
		r, g, b := lc.Lit(base, lc.Shade(R.Apply(n)))
		RasterizeTriangle(fb, sv, r, g, b)
	}

	return fb.Image()
}

// modelNormal prefers the stored facet normal and falls back to the winding
// normal when the file left it zeroed or non-finite.
func modelNormal(t *stl.Triangle) mathutil.Vec3 {
	if t.Normal.IsFinite() {
		if n := mathutil.FromSTL(t.Normal).Normalize(); n != (mathutil.Vec3{}) {
			return n
		}
	}
	return mathutil.FaceNormal(
		mathutil.FromSTL(t.Vertices[0]),
		mathutil.FromSTL(t.Vertices[1]),
		mathutil.FromSTL(t.Vertices[2]),
	)
}

// MaterialColor tints a face by orientation: golden on top, darker and
// redder underneath, orange on the sides.
func MaterialColor(n mathutil.Vec3) [3]uint8 {
	variation := math.Abs(n[0]+n[2]) * 0.3
	switch {
	case n[1] > 0.3:
		return [3]uint8{clamp255(240 + variation*15), clamp255(160 + variation*20), clamp255(20 + variation*10)}
	case n[1] < -0.3:
		return [3]uint8{clamp255(180 + variation*15), clamp255(80 + variation*15), clamp255(10 + variation*5)}
	}
	return [3]uint8{clamp255(220 + variation*15), clamp255(140 + variation*15), clamp255(15 + variation*10)}
}

func finite(v ScreenVertex) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
