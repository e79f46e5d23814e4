package stl

import "math"

// Vector3 is a single-precision 3-component vector (value type).
type Vector3 struct {
	X, Y, Z float32
}

// IsFinite reports whether no component is NaN or ±Inf.
func (v Vector3) IsFinite() bool {
	return finite32(v.X) && finite32(v.Y) && finite32(v.Z)
}

func finite32(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}

// Triangle holds a facet normal and three vertices in stream order.
// Winding is kept as decoded and is not checked against the normal.
type Triangle struct {
	Normal   Vector3
	Vertices [3]Vector3
}

// Format is the result of header classification.
type Format int

const (
	FormatUnknown Format = iota
	FormatBinary
	FormatASCII
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatASCII:
		return "ascii"
	}
	return "unknown"
}

// Mesh owns a decoded triangle list and its axis-aligned bounds.
// The zero value is an empty, invalid mesh; use Load or Decode to populate it.
type Mesh struct {
	tris []Triangle
	min  Vector3
	max  Vector3
}

var (
	posInf = float32(math.Inf(1))
	negInf = float32(math.Inf(-1))
)

// EmptyMin and EmptyMax are the sentinel bounds of a mesh with no triangles.
// They never describe real geometry.
var (
	EmptyMin = Vector3{posInf, posInf, posInf}
	EmptyMax = Vector3{negInf, negInf, negInf}
)

// Triangles returns the decoded triangles. Callers must not modify the slice.
func (m *Mesh) Triangles() []Triangle { return m.tris }

// Len returns the number of triangles.
func (m *Mesh) Len() int { return len(m.tris) }

// IsValid reports whether the mesh holds at least one triangle.
func (m *Mesh) IsValid() bool { return len(m.tris) > 0 }

// Min returns the componentwise minimum over all vertices, or EmptyMin.
func (m *Mesh) Min() Vector3 {
	if !m.IsValid() {
		return EmptyMin
	}
	return m.min
}

// Max returns the componentwise maximum over all vertices, or EmptyMax.
func (m *Mesh) Max() Vector3 {
	if !m.IsValid() {
		return EmptyMax
	}
	return m.max
}

// Center is the midpoint of the bounding box.
func (m *Mesh) Center() Vector3 {
	lo, hi := m.Min(), m.Max()
	return Vector3{
		(lo.X + hi.X) * 0.5,
		(lo.Y + hi.Y) * 0.5,
		(lo.Z + hi.Z) * 0.5,
	}
}

// Extent is the largest of the three axis spans. Renderers divide by it to
// normalise the model; the mesh itself is never scaled.
func (m *Mesh) Extent() float32 {
	lo, hi := m.Min(), m.Max()
	ext := hi.X - lo.X
	if s := hi.Y - lo.Y; s > ext {
		ext = s
	}
	if s := hi.Z - lo.Z; s > ext {
		ext = s
	}
	return ext
}

// Clear drops the triangle storage and resets bounds to the sentinels.
func (m *Mesh) Clear() {
	m.tris = nil
	m.min = EmptyMin
	m.max = EmptyMax
}

// computeBounds recomputes bounds over every vertex whose coordinates are
// all finite and returns how many vertices took part. NaN and ±Inf
// coordinates never reach the bounds.
func (m *Mesh) computeBounds() int {
	lo, hi := EmptyMin, EmptyMax
	n := 0
	for i := range m.tris {
		for _, v := range m.tris[i].Vertices {
			if !v.IsFinite() {
				continue
			}
			n++
			lo.X = min(lo.X, v.X)
			lo.Y = min(lo.Y, v.Y)
			lo.Z = min(lo.Z, v.Z)
			hi.X = max(hi.X, v.X)
			hi.Y = max(hi.Y, v.Y)
			hi.Z = max(hi.Z, v.Z)
		}
	}
	m.min, m.max = lo, hi
	return n
}
