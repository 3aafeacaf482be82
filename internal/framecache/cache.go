package framecache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metrics"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
)

var (
	// ErrVolumeReleased is returned when the backing volume has been
	// closed and the observer handle can no longer be upgraded.
	ErrVolumeReleased = errors.New("backing volume released")

	// ErrNoPixelData is returned when the volume carries no buffer.
	ErrNoPixelData = errors.New("volume has no pixel data")

	// ErrBadScalarType is returned for a zero-size sample type.
	ErrBadScalarType = errors.New("unsupported scalar type")

	// ErrFrameOutOfRange is returned when the frame's byte range does
	// not fit inside the volume buffer.
	ErrFrameOutOfRange = errors.New("frame offset out of range")
)

const (
	slopeSyncTolerance     = 1e-6
	interceptSyncTolerance = 1e-3
)

// Cache decodes frames of one volume on demand. The single mutex guards
// every frame's Cached/Decoding flags, the frame's Data and PixelInfo on
// first write, and the telemetry counters; only the byte copy itself
// runs outside the lock.
type Cache struct {
	mu   sync.Mutex
	cond *sync.Cond

	volume   *pixel.Handle
	coverage float64

	// Pre-sized frame arena. Entries are mutated in place by background
	// decodes; the slice itself is never reallocated while decodes are
	// in flight.
	frames []*Frame

	totalFrameBytes    int64
	decodingDurationMs int64
}

// New builds a cache with one empty frame entry per volume frame. The
// cache observes the volume through the handle and never keeps it alive.
func New(handle *pixel.Handle, sourcePath string, coverage float64) (*Cache, error) {
	vol, ok := handle.Acquire()
	if !ok {
		return nil, ErrVolumeReleased
	}
	if coverage <= 0 {
		coverage = DefaultCoverageThreshold
	}

	info := vol.Info()
	frames := make([]*Frame, vol.NumFrames)
	for i := range frames {
		frames[i] = &Frame{
			PixelInfo:       info,
			Width:           vol.Width,
			Height:          vol.Height,
			SamplesPerPixel: vol.Components,
			Scalar:          vol.Scalar,
			FrameIndex:      i,
			SourcePath:      sourcePath,
		}
		CalculateDefaultVOIWindow(frames[i], coverage)
	}

	c := &Cache{
		volume:   handle,
		coverage: coverage,
		frames:   frames,
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// Frames returns the stable frame arena.
func (c *Cache) Frames() []*Frame {
	return c.frames
}

// Frame returns the i-th entry, or nil when out of range.
func (c *Cache) Frame(i int) *Frame {
	if i < 0 || i >= len(c.frames) {
		return nil
	}
	return c.frames[i]
}

// EnsureFrameCached guarantees on a nil return that frame.Cached is true
// and frame.Data holds the frame's bytes. When another goroutine is
// already filling the same frame the call blocks until that fill
// finishes. On any error the Decoding flag is reset and waiters are
// woken, so a failed decode never starves other callers.
func (c *Cache) EnsureFrameCached(frame *Frame) error {
	c.mu.Lock()
	for frame.Decoding {
		c.cond.Wait()
	}
	if frame.Cached {
		c.mu.Unlock()
		return nil
	}

	vol, ok := c.volume.Acquire()
	if !ok {
		c.mu.Unlock()
		return ErrVolumeReleased
	}
	frame.Decoding = true
	captured := frame.PixelInfo
	c.mu.Unlock()

	fail := func(err error) error {
		c.mu.Lock()
		frame.Decoding = false
		c.cond.Broadcast()
		c.mu.Unlock()
		return err
	}

	if len(vol.Data) == 0 {
		return fail(ErrNoPixelData)
	}
	frameBytes := vol.FrameBytes()
	if frameBytes <= 0 {
		return fail(fmt.Errorf("%w: %s", ErrBadScalarType, vol.Scalar))
	}
	offset := frame.FrameIndex * frameBytes
	if offset < 0 || offset+frameBytes > len(vol.Data) {
		return fail(fmt.Errorf("%w: frame %d needs bytes [%d,%d) of %d",
			ErrFrameOutOfRange, frame.FrameIndex, offset, offset+frameBytes, len(vol.Data)))
	}

	// The copy is the expensive part; it must not block other frames.
	start := time.Now()
	buf := make([]byte, frameBytes)
	copy(buf, vol.Data[offset:offset+frameBytes])

	c.mu.Lock()
	frame.Data = buf

	// The volume's rescale parameters are authoritative; a stale
	// per-frame copy must never silently diverge.
	current := vol.Info()
	if math.Abs(captured.RescaleSlope-current.RescaleSlope) > slopeSyncTolerance ||
		math.Abs(captured.RescaleIntercept-current.RescaleIntercept) > interceptSyncTolerance {
		log.Warn().
			Int("frame", frame.FrameIndex).
			Float64("frame_slope", captured.RescaleSlope).
			Float64("frame_intercept", captured.RescaleIntercept).
			Float64("volume_slope", current.RescaleSlope).
			Float64("volume_intercept", current.RescaleIntercept).
			Msg("Frame rescale parameters out of sync with volume, overwriting")
	}
	frame.PixelInfo = current

	CalculateDefaultVOIWindow(frame, c.coverage)

	frame.Cached = true
	frame.Decoding = false

	elapsed := time.Since(start)
	c.totalFrameBytes += int64(frameBytes)
	c.decodingDurationMs += elapsed.Milliseconds()
	metrics.FramesDecoded.Inc()
	metrics.FrameBytes.Add(float64(frameBytes))
	metrics.DecodeDuration.Observe(elapsed.Seconds())

	c.cond.Broadcast()
	c.mu.Unlock()
	return nil
}

// PrefetchAllFrames decodes every not-yet-cached frame across a bounded
// worker pool. Decode order across frames is unspecified; the per-frame
// Decoding flag keeps concurrent prefetch and on-demand access from
// double-decoding the same frame. Per-frame failures are logged and do
// not abort the batch. ctx is an extension point for future
// cancellation; a batch that has started currently runs to completion.
func (c *Cache) PrefetchAllFrames(ctx context.Context, workers int) {
	_ = ctx

	c.mu.Lock()
	pending := make([]*Frame, 0, len(c.frames))
	for _, f := range c.frames {
		if !f.Cached && !f.Decoding {
			pending = append(pending, f)
		}
	}
	c.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > len(pending) {
		workers = len(pending)
	}

	jobs := make(chan *Frame, len(pending))
	for _, f := range pending {
		jobs <- f
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for f := range jobs {
				if err := c.EnsureFrameCached(f); err != nil {
					log.Warn().
						Err(err).
						Int("frame", f.FrameIndex).
						Str("path", f.SourcePath).
						Msg("Prefetch failed for frame")
				}
			}
		}()
	}
	wg.Wait()
}

// Stats reports accumulated decode telemetry.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached := 0
	for _, f := range c.frames {
		if f.Cached {
			cached++
		}
	}
	return Stats{
		TotalFrames:        len(c.frames),
		CachedFrames:       cached,
		TotalFrameBytes:    c.totalFrameBytes,
		DecodingDurationMs: c.decodingDurationMs,
	}
}

// Stats holds cache telemetry counters.
type Stats struct {
	TotalFrames        int   `json:"total_frames"`
	CachedFrames       int   `json:"cached_frames"`
	TotalFrameBytes    int64 `json:"total_frame_bytes"`
	DecodingDurationMs int64 `json:"decoding_duration_ms"`
}
