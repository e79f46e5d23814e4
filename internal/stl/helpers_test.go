package stl

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// encodeSTL writes a binary STL for tests. The count field is taken from
// count so tests can declare a different number than they supply.
func encodeSTL(header string, count uint32, tris []Triangle) []byte {
	var buf bytes.Buffer
	var hdr [HeaderSize]byte
	copy(hdr[:], header)
	buf.Write(hdr[:])
	binary.Write(&buf, binary.LittleEndian, count)
	for _, t := range tris {
		writeVector(&buf, t.Normal)
		for _, v := range t.Vertices {
			writeVector(&buf, v)
		}
		buf.Write([]byte{0xAB, 0xCD}) // attribute bytes, ignored on read
	}
	return buf.Bytes()
}

func writeVector(buf *bytes.Buffer, v Vector3) {
	var b [4]byte
	for _, f := range []float32{v.X, v.Y, v.Z} {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf.Write(b[:])
	}
}

func tri(n Vector3, a, b, c Vector3) Triangle {
	return Triangle{Normal: n, Vertices: [3]Vector3{a, b, c}}
}

// threeTriangles matches the MYMODEL fixture: 9 literal vertices.
func threeTriangles() []Triangle {
	return []Triangle{
		tri(Vector3{0, 0, 1}, Vector3{0, 0, 0}, Vector3{1, 0, 0}, Vector3{0, 1, 0}),
		tri(Vector3{0, 0, -1}, Vector3{-2.5, 3, 4}, Vector3{1, 7.25, -1}, Vector3{0.5, 0, 2}),
		tri(Vector3{1, 0, 0}, Vector3{10, -4, 0}, Vector3{3, 3, 3}, Vector3{-1, -1, 9.5}),
	}
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
