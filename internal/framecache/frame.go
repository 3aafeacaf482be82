// Package framecache lazily decodes per-frame pixel buffers out of a
// shared volume. At most one decode per frame proceeds at a time;
// concurrent requesters for the same frame block until the in-flight
// decode completes. Cache fills also synchronize the frame's rescale
// parameters with the owning volume and compute the default display
// window from the decoded sample range.
package framecache

import (
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
)

// Frame is one cache entry. The flags are manipulated only under the
// cache lock: Decoding is set for the duration of one fill attempt and
// cleared on both success and failure; Cached is set at most once and
// never cleared. Once Cached is set, Data holds exactly
// Width*Height*SamplesPerPixel*Scalar.Size() bytes and
// DefaultWindowWidth is at least 1.0.
type Frame struct {
	Data      []byte
	PixelInfo pixel.Info

	Width           int
	Height          int
	SamplesPerPixel int
	Scalar          pixel.ScalarType

	// Actual decoded sample range after rescale.
	MinValue float64
	MaxValue float64

	DefaultWindowCenter float64
	DefaultWindowWidth  float64

	FrameIndex int
	SourcePath string

	// Guarded by the owning cache's mutex.
	Cached   bool
	Decoding bool
}

// ExpectedBytes returns the byte length a cached buffer must have.
func (f *Frame) ExpectedBytes() int {
	return f.Width * f.Height * f.SamplesPerPixel * f.Scalar.Size()
}

// HasData reports whether the frame carries a decoded buffer.
func (f *Frame) HasData() bool {
	return len(f.Data) > 0
}
