package framecache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
)

// testVolume builds an int16 volume whose frame i is filled with sample
// value i*100.
func testVolume(t *testing.T, width, height, numFrames int) *pixel.Volume {
	t.Helper()
	samplesPerFrame := width * height
	buf := make([]byte, numFrames*samplesPerFrame*2)
	for f := 0; f < numFrames; f++ {
		for s := 0; s < samplesPerFrame; s++ {
			pixel.PutSample(buf, pixel.ScalarInt16, f*samplesPerFrame+s, float64(f*100))
		}
	}
	return pixel.NewVolume(width, height, numFrames, pixel.ScalarInt16, 1, buf, pixel.DefaultInfo())
}

func TestEnsureFrameCached(t *testing.T) {
	vol := testVolume(t, 4, 4, 3)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	frame := cache.Frame(1)
	if frame == nil {
		t.Fatal("Frame(1) returned nil")
	}
	if err := cache.EnsureFrameCached(frame); err != nil {
		t.Fatalf("EnsureFrameCached failed: %v", err)
	}

	if !frame.Cached {
		t.Error("frame not marked cached")
	}
	if frame.Decoding {
		t.Error("Decoding flag still set after fill")
	}
	if len(frame.Data) != frame.ExpectedBytes() {
		t.Errorf("frame data is %d bytes, want %d", len(frame.Data), frame.ExpectedBytes())
	}
	if v := pixel.Sample(frame.Data, frame.Scalar, 0); v != 100 {
		t.Errorf("frame 1 sample = %v, want 100", v)
	}
}

func TestEnsureFrameCachedIdempotent(t *testing.T) {
	vol := testVolume(t, 2, 2, 1)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	frame := cache.Frame(0)
	if err := cache.EnsureFrameCached(frame); err != nil {
		t.Fatal(err)
	}
	first := frame.Data
	if err := cache.EnsureFrameCached(frame); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, frame.Data) {
		t.Error("second fill changed the cached buffer")
	}

	stats := cache.Stats()
	if stats.CachedFrames != 1 {
		t.Errorf("CachedFrames = %d, want 1", stats.CachedFrames)
	}
	if stats.TotalFrameBytes != int64(frame.ExpectedBytes()) {
		t.Errorf("TotalFrameBytes = %d, want %d; frame decoded twice?",
			stats.TotalFrameBytes, frame.ExpectedBytes())
	}
}

func TestEnsureFrameCachedConcurrent(t *testing.T) {
	vol := testVolume(t, 8, 8, 4)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			frame := cache.Frame(i % vol.NumFrames)
			if err := cache.EnsureFrameCached(frame); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent fill failed: %v", err)
	}

	stats := cache.Stats()
	if stats.CachedFrames != vol.NumFrames {
		t.Errorf("CachedFrames = %d, want %d", stats.CachedFrames, vol.NumFrames)
	}
	// Each frame must have been copied exactly once despite the
	// contention.
	want := int64(vol.NumFrames * cache.Frame(0).ExpectedBytes())
	if stats.TotalFrameBytes != want {
		t.Errorf("TotalFrameBytes = %d, want %d", stats.TotalFrameBytes, want)
	}
}

func TestEnsureFrameCachedReleasedVolume(t *testing.T) {
	vol := testVolume(t, 2, 2, 1)
	handle := pixel.NewHandle(vol)
	cache, err := New(handle, "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	handle.Release()

	frame := cache.Frame(0)
	if err := cache.EnsureFrameCached(frame); !errors.Is(err, ErrVolumeReleased) {
		t.Errorf("err = %v, want ErrVolumeReleased", err)
	}
	if frame.Decoding {
		t.Error("Decoding flag left set after failure")
	}
}

func TestEnsureFrameCachedEmptyVolume(t *testing.T) {
	vol := pixel.NewVolume(2, 2, 1, pixel.ScalarInt16, 1, nil, pixel.DefaultInfo())
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	frame := cache.Frame(0)
	if err := cache.EnsureFrameCached(frame); !errors.Is(err, ErrNoPixelData) {
		t.Errorf("err = %v, want ErrNoPixelData", err)
	}
	if frame.Decoding {
		t.Error("Decoding flag left set after failure")
	}

	// A failed fill must not starve later callers.
	if err := cache.EnsureFrameCached(frame); !errors.Is(err, ErrNoPixelData) {
		t.Errorf("second attempt err = %v, want ErrNoPixelData", err)
	}
}

func TestEnsureFrameCachedShortBuffer(t *testing.T) {
	// Volume claims 2 frames but carries bytes for one.
	vol := pixel.NewVolume(2, 2, 2, pixel.ScalarInt16, 1, make([]byte, 8), pixel.DefaultInfo())
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.EnsureFrameCached(cache.Frame(1)); !errors.Is(err, ErrFrameOutOfRange) {
		t.Errorf("err = %v, want ErrFrameOutOfRange", err)
	}
	if err := cache.EnsureFrameCached(cache.Frame(0)); err != nil {
		t.Errorf("in-range frame failed: %v", err)
	}
}

func TestCacheFillSyncsRescale(t *testing.T) {
	vol := testVolume(t, 2, 2, 1)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	// The volume's rescale changes after the frame entry was built.
	info := vol.Info()
	info.RescaleSlope = 2.0
	info.RescaleIntercept = -5.0
	vol.SetInfo(info)

	frame := cache.Frame(0)
	if err := cache.EnsureFrameCached(frame); err != nil {
		t.Fatal(err)
	}

	if frame.PixelInfo.RescaleSlope != 2.0 || frame.PixelInfo.RescaleIntercept != -5.0 {
		t.Errorf("frame rescale = (%v, %v), want volume's (2, -5)",
			frame.PixelInfo.RescaleSlope, frame.PixelInfo.RescaleIntercept)
	}
}

func TestNewReleasedHandle(t *testing.T) {
	handle := pixel.NewHandle(testVolume(t, 1, 1, 1))
	handle.Release()
	if _, err := New(handle, "test.dcm", 0); !errors.Is(err, ErrVolumeReleased) {
		t.Errorf("err = %v, want ErrVolumeReleased", err)
	}
}

func TestPrefetchAllFrames(t *testing.T) {
	vol := testVolume(t, 4, 4, 8)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	cache.PrefetchAllFrames(context.Background(), 3)

	stats := cache.Stats()
	if stats.CachedFrames != 8 {
		t.Errorf("CachedFrames = %d, want 8", stats.CachedFrames)
	}
	for i := 0; i < 8; i++ {
		frame := cache.Frame(i)
		if !frame.Cached {
			t.Errorf("frame %d not cached", i)
			continue
		}
		if v := pixel.Sample(frame.Data, frame.Scalar, 0); v != float64(i*100) {
			t.Errorf("frame %d sample = %v, want %d", i, v, i*100)
		}
	}
}

func TestPrefetchSkipsCachedFrames(t *testing.T) {
	vol := testVolume(t, 2, 2, 3)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.EnsureFrameCached(cache.Frame(0)); err != nil {
		t.Fatal(err)
	}
	before := cache.Stats().TotalFrameBytes

	cache.PrefetchAllFrames(context.Background(), 2)

	stats := cache.Stats()
	if stats.CachedFrames != 3 {
		t.Errorf("CachedFrames = %d, want 3", stats.CachedFrames)
	}
	want := before + 2*int64(cache.Frame(0).ExpectedBytes())
	if stats.TotalFrameBytes != want {
		t.Errorf("TotalFrameBytes = %d, want %d; cached frame re-decoded?",
			stats.TotalFrameBytes, want)
	}
}

func TestFrameOutOfRangeAccess(t *testing.T) {
	vol := testVolume(t, 1, 1, 2)
	cache, err := New(pixel.NewHandle(vol), "test.dcm", 0)
	if err != nil {
		t.Fatal(err)
	}
	if cache.Frame(-1) != nil {
		t.Error("Frame(-1) returned an entry")
	}
	if cache.Frame(2) != nil {
		t.Error("Frame(2) returned an entry")
	}
}
