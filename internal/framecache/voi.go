package framecache

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
)

// DefaultCoverageThreshold is the minimum fraction of the rescaled data
// range a declared window must cover to be considered usable. Some
// vendors emit a nominal preset window (e.g. soft tissue) on files whose
// actual intensity range is something else entirely, such as raw label
// or overlay data; a window that misses the data is useless for display
// and gets replaced by the full-range window.
const DefaultCoverageThreshold = 0.02

// CalculateDefaultVOIWindow sets MinValue, MaxValue and the default
// display window on a frame from its decoded buffer. coverage is the
// declared-window acceptance threshold; pass
// DefaultCoverageThreshold unless configured otherwise.
func CalculateDefaultVOIWindow(frame *Frame, coverage float64) {
	// Color data is displayed directly, the window is nominal.
	if frame.SamplesPerPixel > 1 {
		frame.MinValue = 0
		frame.MaxValue = 255
		frame.DefaultWindowWidth = 255
		frame.DefaultWindowCenter = 127
		return
	}

	// Before the buffer is decoded, fall back to the declared window.
	if !frame.HasData() {
		frame.DefaultWindowCenter = frame.PixelInfo.WindowCenter
		frame.DefaultWindowWidth = frame.PixelInfo.WindowWidth
		if frame.DefaultWindowWidth < 1.0 {
			frame.DefaultWindowWidth = 1.0
		}
		return
	}

	rawMin, rawMax, ok := pixel.MinMax(frame.Data, frame.Scalar)
	if !ok {
		frame.DefaultWindowCenter = frame.PixelInfo.WindowCenter
		frame.DefaultWindowWidth = math.Max(frame.PixelInfo.WindowWidth, 1.0)
		return
	}

	slope := frame.PixelInfo.RescaleSlope
	intercept := frame.PixelInfo.RescaleIntercept
	scaledMin := rawMin*slope + intercept
	scaledMax := rawMax*slope + intercept
	if scaledMin > scaledMax {
		scaledMin, scaledMax = scaledMax, scaledMin
	}
	frame.MinValue = scaledMin
	frame.MaxValue = scaledMax

	center := frame.PixelInfo.WindowCenter
	width := frame.PixelInfo.WindowWidth

	if !windowUsable(center, width, scaledMin, scaledMax, coverage) {
		newWidth := scaledMax - scaledMin
		newCenter := scaledMin + newWidth/2
		log.Debug().
			Int("frame", frame.FrameIndex).
			Float64("declared_center", center).
			Float64("declared_width", width).
			Float64("scaled_min", scaledMin).
			Float64("scaled_max", scaledMax).
			Float64("new_center", newCenter).
			Float64("new_width", newWidth).
			Msg("Declared window does not match data range, using computed window")
		center = newCenter
		width = newWidth
	}

	if width < 1.0 {
		width = 1.0
	}
	frame.DefaultWindowCenter = center
	frame.DefaultWindowWidth = width
}

// windowUsable decides whether a declared window meaningfully intersects
// the rescaled data range.
func windowUsable(center, width, scaledMin, scaledMax, coverage float64) bool {
	if math.IsNaN(center) || math.IsInf(center, 0) ||
		math.IsNaN(width) || math.IsInf(width, 0) {
		return false
	}
	if width <= 0 {
		return false
	}

	lo := center - width/2
	hi := center + width/2
	if hi < scaledMin || lo > scaledMax {
		return false
	}

	overlap := math.Min(hi, scaledMax) - math.Max(lo, scaledMin)
	return overlap >= coverage*(scaledMax-scaledMin)
}
