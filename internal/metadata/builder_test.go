package metadata

import (
	"testing"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
)

// fakeSource is a map-backed tag source keyed by packed (group, element).
type fakeSource map[uint32]string

func (f fakeSource) Value(group, element uint16) string {
	return f[uint32(group)<<16|uint32(element)]
}

func (f fakeSource) set(t dcmTag, v string) fakeSource {
	f[uint32(t.group)<<16|uint32(t.element)] = v
	return f
}

func baseImageSource() fakeSource {
	return fakeSource{}.
		set(tagSOPInstanceUID, "1.2.3.4").
		set(tagSOPClassUID, "1.2.840.10008.5.1.4.1.1.2").
		set(tagSeriesInstanceUID, "1.2.3").
		set(tagRows, "512").
		set(tagColumns, "512")
}

func TestBuildPatient(t *testing.T) {
	src := fakeSource{}.
		set(tagPatientID, "P001").
		set(tagPatientName, "DOE^JANE").
		set(tagPatientBirthDate, "19700101").
		set(tagPatientAge, "054Y")

	p := NewBuilder(src).BuildPatient()
	if p.PatientID != "P001" || p.Name != "DOE^JANE" {
		t.Errorf("patient = %+v", p)
	}
	if p.BirthDate != "19700101" || p.Age != "054Y" {
		t.Errorf("patient dates = %+v", p)
	}
}

func TestBuildSeriesModalityReject(t *testing.T) {
	tests := []struct {
		modality string
		wantNil  bool
	}{
		{"CT", false},
		{"MR", false},
		{"US", false},
		{"PR", true},
		{"KO", true},
		{"SR", true},
		{"sr", true}, // case-insensitive
		{"", false},
	}
	for _, tt := range tests {
		t.Run("modality "+tt.modality, func(t *testing.T) {
			src := fakeSource{}.
				set(tagModality, tt.modality).
				set(tagSeriesInstanceUID, "1.2.3")
			s := NewBuilder(src).BuildSeries()
			if (s == nil) != tt.wantNil {
				t.Errorf("BuildSeries(%q) nil = %v, want %v", tt.modality, s == nil, tt.wantNil)
			}
		})
	}
}

func TestBuildSeriesFields(t *testing.T) {
	src := fakeSource{}.
		set(tagModality, "ct").
		set(tagSeriesInstanceUID, "1.2.3").
		set(tagSeriesNumber, "7").
		set(tagSeriesDescription, "AX HEAD").
		set(tagStudyInstanceUID, "1.2")

	s := NewBuilder(src).BuildSeries()
	if s == nil {
		t.Fatal("BuildSeries returned nil for CT")
	}
	if s.Modality != "CT" {
		t.Errorf("Modality = %q, want normalized CT", s.Modality)
	}
	if s.Number != 7 || s.StudyInstanceUID != "1.2" {
		t.Errorf("series = %+v", s)
	}
}

func TestBuildImageMultiFrame(t *testing.T) {
	tests := []struct {
		name           string
		numberOfFrames string
		wantMulti      bool
		wantFrames     int
	}{
		{"absent", "", false, 1},
		{"explicit one", "1", false, 1},
		{"two", "2", true, 2},
		{"many", "120", true, 120},
		{"garbage", "abc", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := baseImageSource()
			if tt.numberOfFrames != "" {
				src.set(tagNumberOfFrames, tt.numberOfFrames)
			}
			img := NewBuilder(src).BuildImage(nil, "f.dcm")
			if img.IsMultiFrame != tt.wantMulti {
				t.Errorf("IsMultiFrame = %v, want %v", img.IsMultiFrame, tt.wantMulti)
			}
			if img.NumberOfFrames != tt.wantFrames {
				t.Errorf("NumberOfFrames = %d, want %d", img.NumberOfFrames, tt.wantFrames)
			}
		})
	}
}

func TestBuildImageFrameOfReferenceSingleFrameOnly(t *testing.T) {
	src := baseImageSource().set(tagFrameOfReference, "1.2.3.999")
	img := NewBuilder(src).BuildImage(nil, "f.dcm")
	if img.FrameOfReferenceID != "1.2.3.999" {
		t.Errorf("single-frame FrameOfReferenceID = %q", img.FrameOfReferenceID)
	}

	src.set(tagNumberOfFrames, "16")
	img = NewBuilder(src).BuildImage(nil, "f.dcm")
	if img.FrameOfReferenceID != "" {
		t.Errorf("multi-frame FrameOfReferenceID = %q, want empty", img.FrameOfReferenceID)
	}
}

func TestBuildImageSpacingFallback(t *testing.T) {
	tests := []struct {
		name             string
		pixelSpacing     string
		imagerSpacing    string
		wantRow, wantCol float64
	}{
		{"pixel spacing wins", `0.5\0.25`, `2.0\2.0`, 0.5, 0.25},
		{"imager fallback", "", `0.8\0.9`, 0.8, 0.9},
		{"nothing declared", "", "", 1.0, 1.0},
		{"single value duplicated", "0.7", "", 0.7, 0.7},
		{"garbage component", `x\0.3`, "", 1.0, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := baseImageSource()
			if tt.pixelSpacing != "" {
				src.set(tagPixelSpacing, tt.pixelSpacing)
			}
			if tt.imagerSpacing != "" {
				src.set(tagImagerPixelSpacing, tt.imagerSpacing)
			}
			img := NewBuilder(src).BuildImage(nil, "f.dcm")
			if img.PixelSpacingY != tt.wantRow || img.PixelSpacingX != tt.wantCol {
				t.Errorf("spacing = (%v, %v), want (%v, %v)",
					img.PixelSpacingY, img.PixelSpacingX, tt.wantRow, tt.wantCol)
			}
		})
	}
}

func TestBuildImageDeclaredWindow(t *testing.T) {
	src := baseImageSource().
		set(tagWindowCenter, "40").
		set(tagWindowWidth, "400")
	img := NewBuilder(src).BuildImage(nil, "f.dcm")
	if img.WindowCenter != 40 || img.WindowWidth != 400 {
		t.Errorf("window = (%d, %d), want (40, 400)", img.WindowCenter, img.WindowWidth)
	}
}

func TestBuildImageWindowFromPixels(t *testing.T) {
	// No declared window: derive it from the rescaled sample range.
	buf := make([]byte, 4*2)
	for i, v := range []float64{-100, 0, 50, 300} {
		pixel.PutSample(buf, pixel.ScalarInt16, i, v)
	}
	vol := pixel.NewVolume(4, 1, 1, pixel.ScalarInt16, 1, buf, pixel.DefaultInfo())

	src := baseImageSource().
		set(tagRescaleSlope, "2.0").
		set(tagRescaleIntercept, "-10")
	img := NewBuilder(src).BuildImage(vol, "f.dcm")

	// Scaled range is [-210, 590]: width 800, center 190.
	if img.WindowWidth != 800 || img.WindowCenter != 190 {
		t.Errorf("window = (%d, %d), want (190, 800)", img.WindowCenter, img.WindowWidth)
	}
}

func TestBuildImageWindowNoVolume(t *testing.T) {
	img := NewBuilder(baseImageSource()).BuildImage(nil, "f.dcm")
	if img.WindowCenter != 0 || img.WindowWidth != 0 {
		t.Errorf("window = (%d, %d), want (0, 0) with no data", img.WindowCenter, img.WindowWidth)
	}
}

func TestBuildImageWindowZeroWidthIgnored(t *testing.T) {
	// A declared zero width is unusable and falls through to the data.
	buf := make([]byte, 2*2)
	pixel.PutSample(buf, pixel.ScalarInt16, 0, 10)
	pixel.PutSample(buf, pixel.ScalarInt16, 1, 20)
	vol := pixel.NewVolume(2, 1, 1, pixel.ScalarInt16, 1, buf, pixel.DefaultInfo())

	src := baseImageSource().
		set(tagWindowCenter, "100").
		set(tagWindowWidth, "0")
	img := NewBuilder(src).BuildImage(vol, "f.dcm")
	if img.WindowWidth != 10 || img.WindowCenter != 15 {
		t.Errorf("window = (%d, %d), want (15, 10)", img.WindowCenter, img.WindowWidth)
	}
}

func TestBuildImageGeometry(t *testing.T) {
	src := baseImageSource().
		set(tagImagePositionPatient, `-125.0\-125.0\90.5`).
		set(tagImageOrientationPatient, `1\0\0\0\1\0`)
	img := NewBuilder(src).BuildImage(nil, "f.dcm")

	if img.ImagePositionPatient == nil {
		t.Fatal("position not parsed")
	}
	if got := *img.ImagePositionPatient; got != (Vec3{-125, -125, 90.5}) {
		t.Errorf("position = %v", got)
	}
	if img.OrientationRow == nil || img.OrientationColumn == nil {
		t.Fatal("orientation not parsed")
	}
	if *img.OrientationRow != (Vec3{1, 0, 0}) || *img.OrientationColumn != (Vec3{0, 1, 0}) {
		t.Errorf("orientation = %v / %v", *img.OrientationRow, *img.OrientationColumn)
	}
}

func TestBuildImageGeometryAllOrNothing(t *testing.T) {
	tests := []struct {
		name        string
		position    string
		orientation string
	}{
		{"too few position components", `1\2`, `1\0\0\0\1\0`},
		{"malformed position component", `1\x\3`, `1\0\0\0\1\0`},
		{"too few orientation components", `1\2\3`, `1\0\0\0\1`},
		{"malformed orientation component", `1\2\3`, `1\0\z\0\1\0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := baseImageSource().
				set(tagImagePositionPatient, tt.position).
				set(tagImageOrientationPatient, tt.orientation)
			img := NewBuilder(src).BuildImage(nil, "f.dcm")

			posBad := len(tt.position) < 5 || tt.position == `1\x\3`
			if posBad && img.ImagePositionPatient != nil {
				t.Error("partial position vector was stored")
			}
			orientBad := tt.orientation != `1\0\0\0\1\0`
			if orientBad && (img.OrientationRow != nil || img.OrientationColumn != nil) {
				t.Error("partial orientation vectors were stored")
			}
		})
	}
}

func TestBuildPixelInfo(t *testing.T) {
	src := fakeSource{}.
		set(tagRescaleSlope, "2.5").
		set(tagRescaleIntercept, "-1024").
		set(tagWindowCenter, `40\300`).
		set(tagWindowWidth, `400\1500`).
		set(tagSamplesPerPixel, "1").
		set(tagPhotometric, "MONOCHROME1")

	info := NewBuilder(src).BuildPixelInfo()
	if info.RescaleSlope != 2.5 || info.RescaleIntercept != -1024 {
		t.Errorf("rescale = (%v, %v)", info.RescaleSlope, info.RescaleIntercept)
	}
	// Multi-valued windows use the first pair.
	if info.WindowCenter != 40 || info.WindowWidth != 400 {
		t.Errorf("window = (%v, %v), want first pair (40, 400)", info.WindowCenter, info.WindowWidth)
	}
	if !info.InvertMonochrome {
		t.Error("MONOCHROME1 not flagged for inversion")
	}
}

func TestBuildPixelInfoDefaults(t *testing.T) {
	info := NewBuilder(fakeSource{}).BuildPixelInfo()
	if info.RescaleSlope != 1.0 || info.RescaleIntercept != 0 {
		t.Errorf("default rescale = (%v, %v), want (1, 0)", info.RescaleSlope, info.RescaleIntercept)
	}
	if info.SamplesPerPixel != 1 || info.IsPlanar || info.InvertMonochrome {
		t.Errorf("defaults = %+v", info)
	}
	if info.HasWindow() {
		t.Error("absent window reported as usable")
	}
}

func TestScalarTypeFromTags(t *testing.T) {
	src := fakeSource{}.
		set(tagBitsAllocated, "16").
		set(tagPixelRepresentation, "1")
	if got := NewBuilder(src).ScalarType(); got != pixel.ScalarInt16 {
		t.Errorf("ScalarType = %v, want int16", got)
	}
}

func TestRoundHalfAway(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1}, {1.5, 2}, {-0.5, -1}, {-1.5, -2}, {2.4, 2}, {-2.4, -2},
	}
	for _, tt := range tests {
		if got := roundHalfAway(tt.in); got != tt.want {
			t.Errorf("roundHalfAway(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
