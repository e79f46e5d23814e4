package stl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"
)

// Binary STL layout.
const (
	HeaderSize   = 80
	CountSize    = 4
	MinFileSize  = HeaderSize + CountSize // 84
	TriangleSize = 50                     // 12 float32 + 2 attribute bytes

	// DefaultMaxTriangles bounds the allocation driven by the count field.
	DefaultMaxTriangles = 1_000_000
)

var asciiMarker = []byte("solid")

// ExpectedSize is the byte length of a binary STL holding count triangles.
func ExpectedSize(count uint32) int64 {
	return MinFileSize + int64(count)*TriangleSize
}

// Decoder decodes binary STL streams. The zero value uses DefaultMaxTriangles
// and discards logs.
type Decoder struct {
	MaxTriangles int
	Logger       *zap.Logger
}

func (d *Decoder) maxTriangles() uint32 {
	if d == nil || d.MaxTriangles <= 0 {
		return DefaultMaxTriangles
	}
	if uint64(d.MaxTriangles) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(d.MaxTriangles)
}

func (d *Decoder) logger() *zap.Logger {
	if d == nil || d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Decode reads r into a new Mesh using a default Decoder.
func Decode(r io.ReadSeeker) (*Mesh, error) {
	var d Decoder
	return d.Decode(r)
}

// DecodeFile opens path and decodes it using a default Decoder.
func DecodeFile(path string) (*Mesh, error) {
	var d Decoder
	return d.DecodeFile(path)
}

// Load replaces the contents of m with the mesh decoded from r.
func (m *Mesh) Load(r io.ReadSeeker) error {
	var d Decoder
	return d.Load(m, r)
}

// LoadFile replaces the contents of m with the mesh decoded from path.
func (m *Mesh) LoadFile(path string) error {
	var d Decoder
	return d.LoadFile(m, path)
}

// Decode reads r into a new Mesh.
func (d *Decoder) Decode(r io.ReadSeeker) (*Mesh, error) {
	m := &Mesh{}
	if err := d.Load(m, r); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeFile opens path and decodes it into a new Mesh.
func (d *Decoder) DecodeFile(path string) (*Mesh, error) {
	m := &Mesh{}
	if err := d.LoadFile(m, path); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFile opens path and loads it into m. An open failure clears m and
// returns ErrIoUnavailable before anything is allocated.
func (d *Decoder) LoadFile(m *Mesh, path string) error {
	m.Clear()

	f, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("%w: open %s: %v", ErrIoUnavailable, path, err)
		d.logger().Warn("stl load failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer f.Close()

	return d.load(m, f, path)
}

// Load clears m, then decodes r into it. On any failure m is left empty:
// no triangles from the previous or the failed decode are retained.
func (d *Decoder) Load(m *Mesh, r io.ReadSeeker) error {
	m.Clear()
	return d.load(m, r, "")
}

func (d *Decoder) load(m *Mesh, r io.ReadSeeker, path string) error {
	log := d.logger()
	if path != "" {
		log = log.With(zap.String("path", path))
	}

	size, err := streamSize(r)
	if err != nil {
		log.Warn("stl load failed", zap.Error(err))
		return err
	}

	format, err := detect(r, size)
	if err != nil {
		log.Warn("stl load failed", zap.Int64("size", size), zap.Error(err))
		return err
	}
	if format != FormatBinary {
		err = fmt.Errorf("%w: %s framing detected", ErrUnsupportedFormat, format)
		log.Warn("stl load failed", zap.Int64("size", size), zap.Error(err))
		return err
	}

	tris, err := decodeBinary(r, d.maxTriangles())
	if err != nil {
		log.Warn("stl load failed", zap.Int64("size", size), zap.Error(err))
		return err
	}

	m.tris = tris
	if m.computeBounds() == 0 {
		m.Clear()
		err = fmt.Errorf("%w: all %d triangles have NaN or infinite coordinates", ErrNonFiniteGeometry, len(tris))
		log.Warn("stl load failed", zap.Int64("size", size), zap.Error(err))
		return err
	}

	lo, hi, c := m.Min(), m.Max(), m.Center()
	log.Info("stl loaded",
		zap.Stringer("format", format),
		zap.Int64("size", size),
		zap.Int("triangles", m.Len()),
		zap.Float32s("min", []float32{lo.X, lo.Y, lo.Z}),
		zap.Float32s("max", []float32{hi.X, hi.Y, hi.Z}),
		zap.Float32s("center", []float32{c.X, c.Y, c.Z}),
		zap.Float32("extent", m.Extent()),
	)
	return nil
}

// DetectFormat classifies r without decoding geometry. A header that
// contains the ASCII marker is only accepted as binary when the declared
// triangle count matches the stream length exactly.
func DetectFormat(r io.ReadSeeker) (Format, error) {
	size, err := streamSize(r)
	if err != nil {
		return FormatUnknown, err
	}
	return detect(r, size)
}

func detect(r io.ReadSeeker, size int64) (Format, error) {
	if size < MinFileSize {
		return FormatUnknown, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncatedData, size, MinFileSize)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, fmt.Errorf("%w: seek header: %v", ErrIoUnavailable, err)
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return FormatUnknown, readError("header", err)
	}
	if !hasASCIIMarker(header[:]) {
		return FormatBinary, nil
	}

	var cnt [CountSize]byte
	if _, err := io.ReadFull(r, cnt[:]); err != nil {
		return FormatUnknown, readError("triangle count", err)
	}
	if ExpectedSize(le32(cnt[:])) == size {
		return FormatBinary, nil
	}
	return FormatASCII, nil
}

// hasASCIIMarker looks for "solid" in the header text, which ends at the
// first NUL byte.
func hasASCIIMarker(header []byte) bool {
	if i := bytes.IndexByte(header, 0); i >= 0 {
		header = header[:i]
	}
	return bytes.Contains(header, asciiMarker)
}

func decodeBinary(r io.ReadSeeker, maxTriangles uint32) ([]Triangle, error) {
	if _, err := r.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seek triangle count: %v", ErrIoUnavailable, err)
	}

	var cnt [CountSize]byte
	if _, err := io.ReadFull(r, cnt[:]); err != nil {
		return nil, readError("triangle count", err)
	}
	count := le32(cnt[:])
	if count == 0 || count > maxTriangles {
		return nil, fmt.Errorf("%w: %d (allowed 1..%d)", ErrInvalidTriangleCount, count, maxTriangles)
	}

	tris := make([]Triangle, count)
	var buf [TriangleSize]byte
	for i := range tris {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			// drop the partial slice; the caller never sees it
			return nil, readError(fmt.Sprintf("triangle %d of %d", i, count), err)
		}
		readTriangle(buf[:], &tris[i])
	}
	return tris, nil
}

// readTriangle fills t from one 50-byte record: normal, three vertices,
// then the attribute byte count which is skipped.
func readTriangle(b []byte, t *Triangle) {
	t.Normal = readVector(b[0:12])
	t.Vertices[0] = readVector(b[12:24])
	t.Vertices[1] = readVector(b[24:36])
	t.Vertices[2] = readVector(b[36:48])
	// b[48:50] is the attribute byte count, never interpreted
}

func readVector(b []byte) Vector3 {
	return Vector3{le32f(b[0:4]), le32f(b[4:8]), le32f(b[8:12])}
}

// le32 assembles a little-endian uint32 explicitly so the result does not
// depend on host byte order.
func le32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// le32f reinterprets the little-endian bit pattern as an IEEE-754 float32.
func le32f(b []byte) float32 {
	return math.Float32frombits(le32(b))
}

func streamSize(r io.Seeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: stream size: %v", ErrIoUnavailable, err)
	}
	return size, nil
}

// readError maps a short read to ErrTruncatedData and anything else to
// ErrIoUnavailable.
func readError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncatedData, what)
	}
	return fmt.Errorf("%w: read %s: %v", ErrIoUnavailable, what, err)
}
