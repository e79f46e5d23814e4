package stl

import "errors"

// Decode failure kinds. Every error returned by this package wraps exactly
// one of these, so callers can branch with errors.Is.
var (
	ErrUnsupportedFormat    = errors.New("stl: unsupported format")
	ErrInvalidTriangleCount = errors.New("stl: invalid triangle count")
	ErrTruncatedData        = errors.New("stl: truncated data")
	ErrIoUnavailable        = errors.New("stl: io unavailable")
	ErrNonFiniteGeometry    = errors.New("stl: no finite vertex")
)

// ErrorKind returns a stable snake_case label for err, for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrInvalidTriangleCount):
		return "invalid_triangle_count"
	case errors.Is(err, ErrTruncatedData):
		return "truncated_data"
	case errors.Is(err, ErrIoUnavailable):
		return "io_unavailable"
	case errors.Is(err, ErrNonFiniteGeometry):
		return "non_finite_geometry"
	}
	return "unknown"
}
