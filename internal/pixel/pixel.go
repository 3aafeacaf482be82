package pixel

// ScalarType identifies the sample type of a decoded pixel buffer.
type ScalarType int

const (
	ScalarUnknown ScalarType = iota
	ScalarUint8
	ScalarInt8
	ScalarUint16
	ScalarInt16
	ScalarUint32
	ScalarInt32
	ScalarFloat32
	ScalarFloat64
)

// Size returns the number of bytes per sample, or 0 for an unknown type.
func (t ScalarType) Size() int {
	switch t {
	case ScalarUint8, ScalarInt8:
		return 1
	case ScalarUint16, ScalarInt16:
		return 2
	case ScalarUint32, ScalarInt32, ScalarFloat32:
		return 4
	case ScalarFloat64:
		return 8
	}
	return 0
}

func (t ScalarType) String() string {
	switch t {
	case ScalarUint8:
		return "uint8"
	case ScalarInt8:
		return "int8"
	case ScalarUint16:
		return "uint16"
	case ScalarInt16:
		return "int16"
	case ScalarUint32:
		return "uint32"
	case ScalarInt32:
		return "int32"
	case ScalarFloat32:
		return "float32"
	case ScalarFloat64:
		return "float64"
	}
	return "unknown"
}

// ScalarTypeFor maps the DICOM BitsAllocated / PixelRepresentation pair to
// a scalar type. PixelRepresentation 1 means two's complement.
func ScalarTypeFor(bitsAllocated, pixelRepresentation int) ScalarType {
	signed := pixelRepresentation == 1
	switch bitsAllocated {
	case 8:
		if signed {
			return ScalarInt8
		}
		return ScalarUint8
	case 16:
		if signed {
			return ScalarInt16
		}
		return ScalarUint16
	case 32:
		if signed {
			return ScalarInt32
		}
		return ScalarUint32
	}
	return ScalarUnknown
}

// Info carries the per-volume pixel interpretation parameters taken from
// the DICOM header. A frame holds its own copy which is overwritten from
// the volume copy at cache-fill time; the volume copy is authoritative.
type Info struct {
	RescaleSlope     float64
	RescaleIntercept float64
	WindowCenter     float64
	WindowWidth      float64 // invalid when <= 0
	SamplesPerPixel  int
	IsPlanar         bool
	InvertMonochrome bool
}

// DefaultInfo returns an Info with the DICOM-mandated rescale defaults.
func DefaultInfo() Info {
	return Info{
		RescaleSlope:    1.0,
		SamplesPerPixel: 1,
	}
}

// HasWindow reports whether the declared window is usable at all.
func (i Info) HasWindow() bool {
	return i.WindowWidth > 0
}
