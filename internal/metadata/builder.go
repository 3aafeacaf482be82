// Package metadata assembles patient, study, series and image records
// from DICOM tag values, applying the documented fallback policies for
// window/level, pixel spacing and patient geometry.
package metadata

import (
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/tagreader"
)

// rejectedModalities lists non-image object types that are skipped
// during ingestion: presentation states, key objects and structured
// reports carry no renderable pixel data.
var rejectedModalities = map[string]bool{
	"PR": true,
	"KO": true,
	"SR": true,
}

// Builder derives metadata records from one parsed dataset.
type Builder struct {
	src tagreader.Source
}

// NewBuilder returns a builder over a tag source.
func NewBuilder(src tagreader.Source) *Builder {
	return &Builder{src: src}
}

func (b *Builder) str(t dcmTag) string {
	return b.src.Value(t.group, t.element)
}

func (b *Builder) num(t dcmTag, def float64, index int) float64 {
	return tagreader.Numeric(b.src, t.group, t.element, def, index)
}

func (b *Builder) intval(t dcmTag, def int) int {
	return tagreader.ParseInt(b.str(t), def)
}

// BuildPatient extracts the patient record.
func (b *Builder) BuildPatient() *Patient {
	return &Patient{
		PatientID: b.str(tagPatientID),
		Name:      b.str(tagPatientName),
		BirthDate: b.str(tagPatientBirthDate),
		Age:       b.str(tagPatientAge),
	}
}

// BuildStudy extracts the study record.
func (b *Builder) BuildStudy() *Study {
	return &Study{
		StudyInstanceUID: b.str(tagStudyInstanceUID),
		StudyID:          b.str(tagStudyID),
		Date:             b.str(tagStudyDate),
		Description:      b.str(tagStudyDescription),
		PatientID:        b.str(tagPatientID),
	}
}

// BuildSeries extracts the series record. It returns nil when the
// modality identifies a non-image object; the caller must then skip
// series and image insertion for this file.
func (b *Builder) BuildSeries() *Series {
	modality := strings.ToUpper(b.str(tagModality))
	if rejectedModalities[modality] {
		log.Warn().
			Str("modality", modality).
			Msg("Skipping non-image DICOM object")
		return nil
	}
	return &Series{
		SeriesInstanceUID: b.str(tagSeriesInstanceUID),
		Number:            b.intval(tagSeriesNumber, 0),
		Description:       b.str(tagSeriesDescription),
		Date:              b.str(tagSeriesDate),
		Modality:          modality,
		StudyInstanceUID:  b.str(tagStudyInstanceUID),
	}
}

// BuildPixelInfo extracts the volume-level pixel interpretation
// parameters with DICOM defaults for the rescale transform.
func (b *Builder) BuildPixelInfo() pixel.Info {
	info := pixel.DefaultInfo()
	info.RescaleSlope = b.num(tagRescaleSlope, 1.0, 0)
	info.RescaleIntercept = b.num(tagRescaleIntercept, 0.0, 0)
	info.WindowCenter = b.num(tagWindowCenter, 0.0, 0)
	info.WindowWidth = b.num(tagWindowWidth, 0.0, 0)
	if spp := b.intval(tagSamplesPerPixel, 1); spp >= 1 {
		info.SamplesPerPixel = spp
	}
	info.IsPlanar = b.intval(tagPlanarConfiguration, 0) == 1
	info.InvertMonochrome = strings.EqualFold(b.str(tagPhotometric), "MONOCHROME1")
	return info
}

// ScalarType derives the stored sample type from BitsAllocated and
// PixelRepresentation.
func (b *Builder) ScalarType() pixel.ScalarType {
	return pixel.ScalarTypeFor(
		b.intval(tagBitsAllocated, 0),
		b.intval(tagPixelRepresentation, 0),
	)
}

// BuildImage extracts the per-instance record. vol may be nil when the
// pixel buffer has not been decoded; the window fallback that derives a
// display range from actual sample values then stays at zero.
func (b *Builder) BuildImage(vol *pixel.Volume, sourcePath string) *Image {
	img := &Image{
		SOPInstanceUID:    b.str(tagSOPInstanceUID),
		ClassUID:          b.str(tagSOPClassUID),
		Rows:              b.intval(tagRows, 0),
		Columns:           b.intval(tagColumns, 0),
		SliceLocation:     b.num(tagSliceLocation, 0.0, 0),
		AcquisitionNumber: b.intval(tagAcquisitionNumber, 0),
		InstanceNumber:    b.intval(tagInstanceNumber, 0),
		SeriesInstanceUID: b.str(tagSeriesInstanceUID),
		SourcePath:        sourcePath,
	}

	nf := tagreader.ParseInt(b.str(tagNumberOfFrames), 0)
	// Many vendors emit NumberOfFrames=1 on single-frame files; only a
	// count strictly greater than one makes the object multi-frame.
	img.IsMultiFrame = nf > 1
	if nf < 1 {
		nf = 1
	}
	img.NumberOfFrames = nf
	if !img.IsMultiFrame {
		img.FrameOfReferenceID = b.str(tagFrameOfReference)
	}

	img.WindowCenter, img.WindowWidth = b.resolveWindow(vol)
	img.PixelSpacingY, img.PixelSpacingX = b.resolveSpacing()

	img.ImagePositionPatient = parseVec3(b.str(tagImagePositionPatient))
	img.OrientationRow, img.OrientationColumn = parseOrientation(b.str(tagImageOrientationPatient))

	return img
}

// resolveWindow applies the declared window when it is usable and falls
// back to the actual rescaled sample range otherwise.
func (b *Builder) resolveWindow(vol *pixel.Volume) (center, width int) {
	wc, errC := strconv.ParseFloat(tagreader.Trim(b.str(tagWindowCenter)), 64)
	ww, errW := strconv.ParseFloat(tagreader.Trim(b.str(tagWindowWidth)), 64)
	if errC == nil && errW == nil && ww > 0 {
		return roundHalfAway(wc), roundHalfAway(ww)
	}

	if vol == nil || len(vol.Data) == 0 {
		return 0, 0
	}

	rawMin, rawMax, ok := pixel.MinMax(vol.Data, vol.Scalar)
	if !ok {
		return 0, 0
	}
	slope := b.num(tagRescaleSlope, 1.0, 0)
	intercept := b.num(tagRescaleIntercept, 0.0, 0)
	scaledMin := rawMin*slope + intercept
	scaledMax := rawMax*slope + intercept

	w := scaledMax - scaledMin
	if !(w > 0) || math.IsInf(w, 0) || math.IsNaN(w) {
		w = math.Abs(scaledMax)
		if !(w > 0) {
			w = math.Abs(scaledMin)
		}
		if !(w > 0) || math.IsInf(w, 0) || math.IsNaN(w) {
			w = 1.0
		}
	}
	c := scaledMin + w/2

	log.Debug().
		Float64("scaled_min", scaledMin).
		Float64("scaled_max", scaledMax).
		Float64("center", c).
		Float64("width", w).
		Msg("Derived display window from pixel data")

	return roundHalfAway(c), roundHalfAway(w)
}

// resolveSpacing walks the spacing fallback chain:
// PixelSpacing, then ImagerPixelSpacing, then 1.0 mm.
func (b *Builder) resolveSpacing() (row, col float64) {
	raw := b.str(tagPixelSpacing)
	if raw == "" {
		raw = b.str(tagImagerPixelSpacing)
	}
	if raw == "" {
		log.Debug().Msg("No pixel spacing declared, assuming 1.0 mm")
		return 1.0, 1.0
	}

	parts := strings.Split(raw, `\`)
	row = parseFloatDefault(parts[0], 1.0)
	if len(parts) > 1 {
		col = parseFloatDefault(parts[1], 1.0)
	} else {
		col = row
	}
	return row, col
}

// parseVec3 parses a 3-component backslash-delimited decimal vector.
// Any malformed or missing component invalidates the whole field.
func parseVec3(raw string) *Vec3 {
	raw = tagreader.Trim(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, `\`)
	if len(parts) != 3 {
		return nil
	}
	var v Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(tagreader.Trim(p), 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	return &v
}

// parseOrientation parses the 6-component ImageOrientationPatient value
// into row and column direction vectors, all-or-nothing.
func parseOrientation(raw string) (row, col *Vec3) {
	raw = tagreader.Trim(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, `\`)
	if len(parts) != 6 {
		return nil, nil
	}
	var vals [6]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(tagreader.Trim(p), 64)
		if err != nil {
			return nil, nil
		}
		vals[i] = f
	}
	r := Vec3{vals[0], vals[1], vals[2]}
	c := Vec3{vals[3], vals[4], vals[5]}
	return &r, &c
}

func parseFloatDefault(s string, def float64) float64 {
	f, err := strconv.ParseFloat(tagreader.Trim(s), 64)
	if err != nil {
		return def
	}
	return f
}

// roundHalfAway rounds to the nearest integer with ties away from zero.
func roundHalfAway(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Ceil(v - 0.5))
}
