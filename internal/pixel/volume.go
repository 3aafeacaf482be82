package pixel

import "sync"

// Volume holds the decoded multi-frame backing buffer for one DICOM
// object. The buffer is read-only once built; frame decodes copy disjoint
// byte ranges out of it. The Info copy on the volume is authoritative for
// all frames cut from it.
type Volume struct {
	Width      int
	Height     int
	NumFrames  int
	Scalar     ScalarType
	Components int
	Data       []byte

	mu   sync.Mutex
	info Info
}

// NewVolume builds a volume around an already-decoded contiguous buffer.
func NewVolume(width, height, numFrames int, scalar ScalarType, components int, data []byte, info Info) *Volume {
	if components < 1 {
		components = 1
	}
	return &Volume{
		Width:      width,
		Height:     height,
		NumFrames:  numFrames,
		Scalar:     scalar,
		Components: components,
		Data:       data,
		info:       info,
	}
}

// FrameBytes returns the byte length of a single frame.
func (v *Volume) FrameBytes() int {
	return v.Width * v.Height * v.Components * v.Scalar.Size()
}

// Info returns the volume-level pixel interpretation parameters.
func (v *Volume) Info() Info {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.info
}

// SetInfo replaces the volume-level pixel interpretation parameters.
// Frames already cached keep their copies until the next cache fill
// re-synchronizes them.
func (v *Volume) SetInfo(info Info) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.info = info
}

// Handle is an observer reference to a volume. The frame cache holds a
// handle rather than the volume itself so a closed series cannot be kept
// alive by stale cache state: Release drops the volume and every later
// Acquire fails.
type Handle struct {
	mu  sync.Mutex
	vol *Volume
}

// NewHandle wraps a volume in an observer handle.
func NewHandle(v *Volume) *Handle {
	return &Handle{vol: v}
}

// Acquire upgrades the handle to a strong reference for the duration of
// one operation. ok is false once the handle has been released.
func (h *Handle) Acquire() (*Volume, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.vol == nil {
		return nil, false
	}
	return h.vol, true
}

// Release severs the handle from its volume.
func (h *Handle) Release() {
	h.mu.Lock()
	h.vol = nil
	h.mu.Unlock()
}
