package stl

import (
	"bytes"
	"errors"
	"io"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeThreeTriangles(t *testing.T) {
	data := encodeSTL("MYMODEL", 3, threeTriangles())
	require.Len(t, data, 234)

	m, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, m.IsValid())
	require.Equal(t, 3, m.Len())
	assert.Equal(t, threeTriangles(), m.Triangles())

	assert.Equal(t, Vector3{-2.5, -4, -1}, m.Min())
	assert.Equal(t, Vector3{10, 7.25, 9.5}, m.Max())
	assert.Equal(t, Vector3{3.75, 1.625, 4.25}, m.Center())
	assert.Equal(t, float32(12.5), m.Extent())
}

func TestDecodeTruncated(t *testing.T) {
	data := encodeSTL("MYMODEL", 3, threeTriangles())[:150]

	m, err := Decode(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrTruncatedData)
	assert.Nil(t, m)
	assert.Contains(t, err.Error(), "triangle 1 of 3")
}

func TestDecodeASCIIFramingRefused(t *testing.T) {
	// declared size 84+3*50 does not match the supplied single triangle
	data := encodeSTL("solid cube", 3, threeTriangles()[:1])

	f, err := DetectFormat(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatASCII, f)

	_, err = Decode(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, "unsupported_format", ErrorKind(err))
}

func TestDecodeASCIITextRefused(t *testing.T) {
	text := "solid cube\n  facet normal 0 0 1\n    outer loop\n      vertex 0 0 0\n" +
		"      vertex 1 0 0\n      vertex 0 1 0\n    endloop\n  endfacet\nendsolid cube\n"

	_, err := Decode(bytes.NewReader([]byte(text)))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDetectSolidHeaderWithMatchingSize(t *testing.T) {
	data := encodeSTL("solid exported by cad tool", 3, threeTriangles())

	f, err := DetectFormat(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)

	m, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
}

func TestDetectMarkerAfterNUL(t *testing.T) {
	// header text ends at the first NUL, so the marker is not seen
	data := encodeSTL("part\x00solid", 3, threeTriangles()[:1])

	f, err := DetectFormat(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)
}

func TestDetectBinaryHeader(t *testing.T) {
	data := encodeSTL("COLOR=\xff\x00\x00", 1, threeTriangles()[:1])

	f, err := DetectFormat(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)
}

func TestInvalidTriangleCount(t *testing.T) {
	tests := []struct {
		name  string
		count uint32
	}{
		{"zero", 0},
		{"over ceiling", DefaultMaxTriangles + 1},
		{"max uint32", math.MaxUint32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeSTL("MYMODEL", tt.count, threeTriangles())

			var m Mesh
			err := m.Load(bytes.NewReader(data))
			require.ErrorIs(t, err, ErrInvalidTriangleCount)
			assert.False(t, m.IsValid())
			assert.Nil(t, m.Triangles())
		})
	}
}

func TestDecoderMaxTriangles(t *testing.T) {
	data := encodeSTL("MYMODEL", 3, threeTriangles())

	d := Decoder{MaxTriangles: 2}
	_, err := d.Decode(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrInvalidTriangleCount)

	d.MaxTriangles = 3
	m, err := d.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
}

func TestDecoderMaxTrianglesSaturates(t *testing.T) {
	huge := int64(5_000_000_000)
	if int64(int(huge)) != huge {
		t.Skip("int is 32 bits")
	}
	d := Decoder{MaxTriangles: int(huge)}
	assert.Equal(t, uint32(math.MaxUint32), d.maxTriangles())

	edge := int64(math.MaxUint32)
	d.MaxTriangles = int(edge)
	assert.Equal(t, uint32(math.MaxUint32), d.maxTriangles())

	var zero Decoder
	assert.Equal(t, uint32(DefaultMaxTriangles), zero.maxTriangles())
}

func TestShortStreams(t *testing.T) {
	full := encodeSTL("MYMODEL", 3, threeTriangles())
	for n := 0; n < MinFileSize; n++ {
		data := full[:n]

		f, err := DetectFormat(bytes.NewReader(data))
		assert.NotEqual(t, FormatBinary, f, "len %d", n)
		assert.Error(t, err, "len %d", n)

		_, err = Decode(bytes.NewReader(data))
		if !errors.Is(err, ErrTruncatedData) && !errors.Is(err, ErrIoUnavailable) {
			t.Fatalf("len %d: unexpected error %v", n, err)
		}
	}
}

func TestFailedLoadReleasesPreviousMesh(t *testing.T) {
	good := encodeSTL("MYMODEL", 3, threeTriangles())
	bad := good[:150]

	var m Mesh
	require.NoError(t, m.Load(bytes.NewReader(good)))
	require.Equal(t, 3, m.Len())

	err := m.Load(bytes.NewReader(bad))
	require.ErrorIs(t, err, ErrTruncatedData)
	assert.False(t, m.IsValid())
	assert.Nil(t, m.Triangles())
	assert.Equal(t, EmptyMin, m.Min())
	assert.Equal(t, EmptyMax, m.Max())

	// reusable after failure
	require.NoError(t, m.Load(bytes.NewReader(good)))
	assert.Equal(t, 3, m.Len())
}

func TestLoadReplacesPreviousGeometry(t *testing.T) {
	first := encodeSTL("A", 3, threeTriangles())
	one := []Triangle{tri(Vector3{}, Vector3{100, 100, 100}, Vector3{101, 100, 100}, Vector3{100, 101, 100})}
	second := encodeSTL("B", 1, one)

	var m Mesh
	require.NoError(t, m.Load(bytes.NewReader(first)))
	require.NoError(t, m.Load(bytes.NewReader(second)))

	assert.Equal(t, one, m.Triangles())
	assert.Equal(t, Vector3{100, 100, 100}, m.Min())
	assert.Equal(t, Vector3{101, 101, 100}, m.Max())
}

func TestRoundTripBitPatterns(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	f := func() float32 {
		// arbitrary finite bit patterns, including subnormals and negative zero
		for {
			v := math.Float32frombits(rng.Uint32())
			if !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) {
				return v
			}
		}
	}
	vec := func() Vector3 { return Vector3{f(), f(), f()} }

	tris := make([]Triangle, 257)
	for i := range tris {
		tris[i] = tri(vec(), vec(), vec(), vec())
	}

	m, err := Decode(bytes.NewReader(encodeSTL("roundtrip", uint32(len(tris)), tris)))
	require.NoError(t, err)
	require.Equal(t, len(tris), m.Len())

	bits := func(v Vector3) [3]uint32 {
		return [3]uint32{math.Float32bits(v.X), math.Float32bits(v.Y), math.Float32bits(v.Z)}
	}
	for i, got := range m.Triangles() {
		want := tris[i]
		require.Equal(t, bits(want.Normal), bits(got.Normal), "triangle %d normal", i)
		for j := range want.Vertices {
			require.Equal(t, bits(want.Vertices[j]), bits(got.Vertices[j]), "triangle %d vertex %d", i, j)
		}
	}
}

func TestBoundsContainEveryVertex(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		n := 1 + rng.Intn(64)
		tris := make([]Triangle, n)
		for i := range tris {
			for j := range tris[i].Vertices {
				tris[i].Vertices[j] = Vector3{
					float32(rng.NormFloat64() * 100),
					float32(rng.NormFloat64() * 100),
					float32(rng.NormFloat64() * 100),
				}
			}
		}

		m, err := Decode(bytes.NewReader(encodeSTL("bounds", uint32(n), tris)))
		require.NoError(t, err)

		lo, hi := m.Min(), m.Max()
		assert.LessOrEqual(t, lo.X, hi.X)
		assert.LessOrEqual(t, lo.Y, hi.Y)
		assert.LessOrEqual(t, lo.Z, hi.Z)
		for _, tr := range m.Triangles() {
			for _, v := range tr.Vertices {
				if v.X < lo.X || v.X > hi.X || v.Y < lo.Y || v.Y > hi.Y || v.Z < lo.Z || v.Z > hi.Z {
					t.Fatalf("vertex %v outside bounds %v..%v", v, lo, hi)
				}
			}
		}
	}
}

func TestBoundsSkipNonFiniteVertices(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tris := []Triangle{
		tri(Vector3{}, Vector3{0, 0, 0}, Vector3{nan, 1, 1}, Vector3{2, -inf, 0}),
		tri(Vector3{nan, nan, nan}, Vector3{-1, 3, 5}, Vector3{1, 1, 1}, Vector3{inf, 0, 0}),
	}

	m, err := Decode(bytes.NewReader(encodeSTL("partly broken", 2, tris)))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, Vector3{-1, 0, 0}, m.Min())
	assert.Equal(t, Vector3{1, 3, 5}, m.Max())
	assert.Equal(t, float32(5), m.Extent())
	assert.True(t, m.Center().IsFinite())
}

func TestDecodeNoFiniteVertex(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(-1))
	bad := tri(Vector3{}, Vector3{nan, nan, nan}, Vector3{0, 0, inf}, Vector3{nan, 1, 2})

	var m Mesh
	require.NoError(t, m.Load(bytes.NewReader(encodeSTL("MYMODEL", 3, threeTriangles()))))

	err := m.Load(bytes.NewReader(encodeSTL("nan", 1, []Triangle{bad})))
	require.ErrorIs(t, err, ErrNonFiniteGeometry)
	assert.Equal(t, "non_finite_geometry", ErrorKind(err))
	assert.False(t, m.IsValid())
	assert.Nil(t, m.Triangles())
	assert.Equal(t, EmptyMin, m.Min())
}

func TestVector3IsFinite(t *testing.T) {
	assert.True(t, Vector3{1, -2, 3}.IsFinite())
	assert.False(t, Vector3{float32(math.NaN()), 0, 0}.IsFinite())
	assert.False(t, Vector3{0, 0, float32(math.Inf(-1))}.IsFinite())
	assert.False(t, EmptyMin.IsFinite())
}

func TestLittleEndianFloat(t *testing.T) {
	assert.Equal(t, float32(1), le32f([]byte{0x00, 0x00, 0x80, 0x3f}))
	assert.Equal(t, float32(-2), le32f([]byte{0x00, 0x00, 0x00, 0xc0}))
	assert.Equal(t, uint32(0x04030201), le32([]byte{1, 2, 3, 4}))
}

func TestDecodeFile(t *testing.T) {
	path := writeFile(t, "model.stl", encodeSTL("MYMODEL", 3, threeTriangles()))

	m, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.stl"))
	require.ErrorIs(t, err, ErrIoUnavailable)
	assert.Equal(t, "io_unavailable", ErrorKind(err))
}

func TestLoadFileMissingClearsMesh(t *testing.T) {
	var m Mesh
	require.NoError(t, m.Load(bytes.NewReader(encodeSTL("MYMODEL", 3, threeTriangles()))))

	err := m.LoadFile(filepath.Join(t.TempDir(), "gone.stl"))
	require.ErrorIs(t, err, ErrIoUnavailable)
	assert.False(t, m.IsValid())
}

type brokenSeeker struct{ io.ReadSeeker }

func (brokenSeeker) Seek(int64, int) (int64, error) { return 0, errors.New("device removed") }

func TestUnseekableStream(t *testing.T) {
	_, err := Decode(brokenSeeker{bytes.NewReader(nil)})
	require.ErrorIs(t, err, ErrIoUnavailable)
}

func TestEmptyMesh(t *testing.T) {
	var m Mesh
	assert.False(t, m.IsValid())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, EmptyMin, m.Min())
	assert.Equal(t, EmptyMax, m.Max())
	assert.True(t, math.IsInf(float64(m.Min().X), 1))
	assert.True(t, math.IsInf(float64(m.Max().Z), -1))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "ok", ErrorKind(nil))
	assert.Equal(t, "truncated_data", ErrorKind(readError("x", io.ErrUnexpectedEOF)))
	assert.Equal(t, "io_unavailable", ErrorKind(readError("x", errors.New("bad sector"))))
	assert.Equal(t, "unknown", ErrorKind(errors.New("other")))
}
