package ingest

import (
	"errors"
	"fmt"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/tagreader"
)

var (
	// ErrNoPixelData is returned for objects without a pixel buffer.
	ErrNoPixelData = errors.New("dataset has no pixel data")

	// ErrEncapsulated is returned for compressed transfer syntaxes,
	// which this service does not decode.
	ErrEncapsulated = errors.New("encapsulated pixel data unsupported")
)

// BuildVolume decodes the dataset's pixel data into a contiguous
// multi-frame volume buffer. Samples come back from the parser per
// pixel, so the resulting buffer is always interleaved; the volume's
// Info reflects that regardless of the file's planar configuration.
func BuildVolume(r *tagreader.Reader, info pixel.Info, scalar pixel.ScalarType) (*pixel.Volume, error) {
	if !r.HasDataset() {
		return nil, ErrNoPixelData
	}
	elem, err := r.Dataset().FindElementByTag(tag.PixelData)
	if err != nil || elem == nil || elem.Value == nil {
		return nil, ErrNoPixelData
	}
	pdi, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, ErrNoPixelData
	}
	if pdi.IsEncapsulated {
		return nil, ErrEncapsulated
	}
	if len(pdi.Frames) == 0 {
		return nil, ErrNoPixelData
	}

	first := pdi.Frames[0].NativeData
	width, height := first.Cols, first.Rows
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}

	components := info.SamplesPerPixel
	if components < 1 {
		components = 1
	}
	if scalar == pixel.ScalarUnknown {
		// Fall back to the parsed sample width, unsigned.
		scalar = pixel.ScalarTypeFor(first.BitsPerSample, 0)
	}
	if scalar.Size() == 0 {
		return nil, fmt.Errorf("unsupported bits per sample %d", first.BitsPerSample)
	}

	frameSamples := width * height * components
	data := make([]byte, len(pdi.Frames)*frameSamples*scalar.Size())

	for fi, fr := range pdi.Frames {
		if fr.Encapsulated {
			return nil, ErrEncapsulated
		}
		native := fr.NativeData
		base := fi * frameSamples
		for pi, samples := range native.Data {
			for ci, s := range samples {
				if ci >= components {
					break
				}
				pixel.PutSample(data, scalar, base+pi*components+ci, float64(s))
			}
		}
	}

	volInfo := info
	volInfo.IsPlanar = false
	return pixel.NewVolume(width, height, len(pdi.Frames), scalar, components, data, volInfo), nil
}
