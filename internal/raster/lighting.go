package raster

import (
	"math"

	"stl-viewer/internal/mathutil"
)

// LightConfig holds precomputed lighting parameters. Directions point from
// the surface towards the light, in view space.
type LightConfig struct {
	KeyDir   mathutil.Vec3
	FillDir  mathutil.Vec3
	RimDir   mathutil.Vec3
	HalfKey  mathutil.Vec3 // Blinn-Phong half-vector for the key light
	Ambient  float64
	Key      float64
	Fill     float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
}

// DefaultLightConfig is a warm key from upper right, a cool fill from upper
// left and a rim light from behind.
func DefaultLightConfig() LightConfig {
	keyDir := mathutil.Vec3{0.8, 0.6, 1.0}.Normalize()
	fillDir := mathutil.Vec3{-0.6, 0.4, 0.8}.Normalize()
	rimDir := mathutil.Vec3{0.2, -0.3, -0.9}.Normalize()
	viewDir := mathutil.Vec3{0, 0, 1}

	return LightConfig{
		KeyDir:   keyDir,
		FillDir:  fillDir,
		RimDir:   rimDir,
		HalfKey:  keyDir.Add(viewDir).Normalize(),
		Ambient:  0.35,
		Key:      1.10,
		Fill:     0.45,
		Rim:      0.35,
		SpecInt:  0.30,
		SpecPow:  16.0,
		Exposure: 1.0,
		InvGamma: 1.0 / 2.2,
	}
}

// Shade returns the combined lighting scalar for a unit face normal.
// Lambert terms use |n·l| so back faces of open meshes still light.
func (lc *LightConfig) Shade(n mathutil.Vec3) float64 {
	key := math.Abs(n.Dot(lc.KeyDir))
	fill := math.Abs(n.Dot(lc.FillDir))
	rim := math.Abs(n.Dot(lc.RimDir))

	ndh := math.Abs(n.Dot(lc.HalfKey))
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt

	return lc.Ambient + key*lc.Key + fill*lc.Fill + rim*lc.Rim + spec
}

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// Lit applies shade to an sRGB base color: decode to linear, light,
// tonemap, encode back.
func (lc *LightConfig) Lit(base [3]uint8, shade float64) (r, g, b uint8) {
	f := shade * lc.Exposure
	out := [3]uint8{}
	for i, c := range base {
		v := ACESTonemap(srgbToLinear[c] * f)
		out[i] = clamp255(math.Pow(v, lc.InvGamma) * 255)
	}
	return out[0], out[1], out[2]
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
