package pixel

import (
	"math"
	"testing"
)

func TestScalarTypeFor(t *testing.T) {
	tests := []struct {
		name           string
		bitsAllocated  int
		representation int
		want           ScalarType
	}{
		{"8-bit unsigned", 8, 0, ScalarUint8},
		{"8-bit signed", 8, 1, ScalarInt8},
		{"16-bit unsigned", 16, 0, ScalarUint16},
		{"16-bit signed", 16, 1, ScalarInt16},
		{"32-bit unsigned", 32, 0, ScalarUint32},
		{"32-bit signed", 32, 1, ScalarInt32},
		{"12-bit is not a storage size", 12, 0, ScalarUnknown},
		{"zero bits", 0, 0, ScalarUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScalarTypeFor(tt.bitsAllocated, tt.representation)
			if got != tt.want {
				t.Errorf("ScalarTypeFor(%d, %d) = %v, want %v",
					tt.bitsAllocated, tt.representation, got, tt.want)
			}
		})
	}
}

func TestScalarSize(t *testing.T) {
	sizes := map[ScalarType]int{
		ScalarUint8:   1,
		ScalarInt8:    1,
		ScalarUint16:  2,
		ScalarInt16:   2,
		ScalarUint32:  4,
		ScalarInt32:   4,
		ScalarFloat32: 4,
		ScalarFloat64: 8,
		ScalarUnknown: 0,
	}
	for st, want := range sizes {
		if got := st.Size(); got != want {
			t.Errorf("%v.Size() = %d, want %d", st, got, want)
		}
	}
}

func TestMinMaxInt16(t *testing.T) {
	values := []float64{-10, 0, 10, 20, -3}
	buf := make([]byte, len(values)*2)
	for i, v := range values {
		PutSample(buf, ScalarInt16, i, v)
	}

	min, max, ok := MinMax(buf, ScalarInt16)
	if !ok {
		t.Fatal("MinMax returned not ok for a valid buffer")
	}
	if min != -10 || max != 20 {
		t.Errorf("MinMax = (%v, %v), want (-10, 20)", min, max)
	}
}

func TestMinMaxFloat32(t *testing.T) {
	values := []float64{0.5, -1.25, 3.75}
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		PutSample(buf, ScalarFloat32, i, v)
	}

	min, max, ok := MinMax(buf, ScalarFloat32)
	if !ok {
		t.Fatal("MinMax returned not ok for a valid buffer")
	}
	if min != -1.25 || max != 3.75 {
		t.Errorf("MinMax = (%v, %v), want (-1.25, 3.75)", min, max)
	}
}

func TestMinMaxEmptyAndUnknown(t *testing.T) {
	if _, _, ok := MinMax(nil, ScalarInt16); ok {
		t.Error("MinMax accepted an empty buffer")
	}
	if _, _, ok := MinMax([]byte{1, 2, 3, 4}, ScalarUnknown); ok {
		t.Error("MinMax accepted an unknown scalar type")
	}
	// A single trailing byte cannot form an int16 sample.
	if _, _, ok := MinMax([]byte{7}, ScalarInt16); ok {
		t.Error("MinMax accepted a buffer shorter than one sample")
	}
}

func TestSampleRoundTrip(t *testing.T) {
	tests := []struct {
		scalar ScalarType
		value  float64
	}{
		{ScalarUint8, 200},
		{ScalarInt8, -100},
		{ScalarUint16, 40000},
		{ScalarInt16, -32000},
		{ScalarInt32, -1 << 20},
		{ScalarFloat64, math.Pi},
	}
	for _, tt := range tests {
		buf := make([]byte, 4*tt.scalar.Size())
		PutSample(buf, tt.scalar, 2, tt.value)
		if got := Sample(buf, tt.scalar, 2); got != tt.value {
			t.Errorf("%v: round trip gave %v, want %v", tt.scalar, got, tt.value)
		}
	}
}

func TestSampleCount(t *testing.T) {
	if n := SampleCount(make([]byte, 10), ScalarInt16); n != 5 {
		t.Errorf("SampleCount = %d, want 5", n)
	}
	if n := SampleCount(make([]byte, 10), ScalarUnknown); n != 0 {
		t.Errorf("SampleCount for unknown type = %d, want 0", n)
	}
}

func TestVolumeFrameBytes(t *testing.T) {
	vol := NewVolume(4, 3, 2, ScalarInt16, 1, make([]byte, 48), DefaultInfo())
	if got := vol.FrameBytes(); got != 24 {
		t.Errorf("FrameBytes = %d, want 24", got)
	}
}

func TestVolumeInfoRoundTrip(t *testing.T) {
	vol := NewVolume(1, 1, 1, ScalarUint8, 1, []byte{0}, DefaultInfo())
	info := vol.Info()
	info.RescaleSlope = 2.5
	info.RescaleIntercept = -7
	vol.SetInfo(info)

	got := vol.Info()
	if got.RescaleSlope != 2.5 || got.RescaleIntercept != -7 {
		t.Errorf("Info after SetInfo = %+v", got)
	}
}

func TestHandleAcquireRelease(t *testing.T) {
	vol := NewVolume(1, 1, 1, ScalarUint8, 1, []byte{0}, DefaultInfo())
	h := NewHandle(vol)

	got, ok := h.Acquire()
	if !ok || got != vol {
		t.Fatal("Acquire failed before release")
	}

	h.Release()
	if _, ok := h.Acquire(); ok {
		t.Error("Acquire succeeded after release")
	}

	// A second release is a no-op.
	h.Release()
	if _, ok := h.Acquire(); ok {
		t.Error("Acquire succeeded after double release")
	}
}
