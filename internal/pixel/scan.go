package pixel

import (
	"encoding/binary"
	"math"
)

// MinMax scans every sample in a raw little-endian buffer and returns the
// minimum and maximum as float64. The scan is a single pass; samples that
// do not fill a whole element at the tail of the buffer are ignored.
// ok is false when the buffer is empty or the scalar type is unknown.
func MinMax(data []byte, t ScalarType) (min, max float64, ok bool) {
	size := t.Size()
	if size == 0 || len(data) < size {
		return 0, 0, false
	}
	n := len(data) / size

	min = math.Inf(1)
	max = math.Inf(-1)
	upd := func(v float64) {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	switch t {
	case ScalarUint8:
		for i := 0; i < n; i++ {
			upd(float64(data[i]))
		}
	case ScalarInt8:
		for i := 0; i < n; i++ {
			upd(float64(int8(data[i])))
		}
	case ScalarUint16:
		for i := 0; i < n; i++ {
			upd(float64(binary.LittleEndian.Uint16(data[i*2:])))
		}
	case ScalarInt16:
		for i := 0; i < n; i++ {
			upd(float64(int16(binary.LittleEndian.Uint16(data[i*2:]))))
		}
	case ScalarUint32:
		for i := 0; i < n; i++ {
			upd(float64(binary.LittleEndian.Uint32(data[i*4:])))
		}
	case ScalarInt32:
		for i := 0; i < n; i++ {
			upd(float64(int32(binary.LittleEndian.Uint32(data[i*4:]))))
		}
	case ScalarFloat32:
		for i := 0; i < n; i++ {
			upd(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))))
		}
	case ScalarFloat64:
		for i := 0; i < n; i++ {
			upd(math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:])))
		}
	}
	return min, max, true
}

// Sample reads the i-th sample of a raw little-endian buffer as float64.
// Callers are expected to bounds-check via SampleCount.
func Sample(data []byte, t ScalarType, i int) float64 {
	switch t {
	case ScalarUint8:
		return float64(data[i])
	case ScalarInt8:
		return float64(int8(data[i]))
	case ScalarUint16:
		return float64(binary.LittleEndian.Uint16(data[i*2:]))
	case ScalarInt16:
		return float64(int16(binary.LittleEndian.Uint16(data[i*2:])))
	case ScalarUint32:
		return float64(binary.LittleEndian.Uint32(data[i*4:]))
	case ScalarInt32:
		return float64(int32(binary.LittleEndian.Uint32(data[i*4:])))
	case ScalarFloat32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	case ScalarFloat64:
		return math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return 0
}

// SampleCount returns how many whole samples the buffer holds.
func SampleCount(data []byte, t ScalarType) int {
	size := t.Size()
	if size == 0 {
		return 0
	}
	return len(data) / size
}

// PutSample writes a float64 value as the i-th sample of a raw buffer.
// Used by tests and by the volume builder when converting parsed DICOM
// native frames into a contiguous backing buffer.
func PutSample(data []byte, t ScalarType, i int, v float64) {
	switch t {
	case ScalarUint8:
		data[i] = byte(uint8(v))
	case ScalarInt8:
		data[i] = byte(int8(v))
	case ScalarUint16:
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	case ScalarInt16:
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	case ScalarUint32:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	case ScalarInt32:
		binary.LittleEndian.PutUint32(data[i*4:], uint32(int32(v)))
	case ScalarFloat32:
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	case ScalarFloat64:
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
}
