// Package render maps cached frame samples into display images, applying
// rescale, window/level, inversion, flips and quarter-turn rotations.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/framecache"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metrics"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
)

const identityTolerance = 1e-6

// grayPalette is the 256-entry palette shared by all monochrome frames.
var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// RenderFrame produces a display image for a cached frame. A frame with
// non-positive dimensions or no decoded data yields nil; that is the
// normal state between frame creation and decode, not an error.
func RenderFrame(frame *framecache.Frame, state PresentationState) image.Image {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 || !frame.HasData() {
		return nil
	}

	var img image.Image
	if frame.SamplesPerPixel <= 1 {
		img = renderMonochrome(frame, state)
	} else {
		img = renderColor(frame, state)
	}
	if img == nil {
		return nil
	}

	// Post-processing order is fixed: invert, mirror, rotate.
	invert := state.InvertColors != frame.PixelInfo.InvertMonochrome
	if invert {
		invertImage(img)
	}
	if state.FlipHorizontal || state.FlipVertical {
		flipImage(img, state.FlipHorizontal, state.FlipVertical)
	}
	if steps := state.NormalizedRotation(); steps != 0 {
		img = rotateImage(img, steps)
	}

	metrics.FramesRendered.Inc()
	return img
}

// renderMonochrome maps single-component samples through rescale and a
// linear window to an 8-bit indexed image with a grayscale palette.
// Presentation window values are expressed in stored-pixel units and are
// passed through the same rescale transform as the samples; the frame's
// default window is already in rescaled units.
func renderMonochrome(frame *framecache.Frame, state PresentationState) image.Image {
	slope := frame.PixelInfo.RescaleSlope
	intercept := frame.PixelInfo.RescaleIntercept
	identity := math.Abs(slope-1) < identityTolerance &&
		math.Abs(intercept) < identityTolerance

	center := frame.DefaultWindowCenter
	width := frame.DefaultWindowWidth
	if state.WindowWidth > 0 {
		center = state.WindowCenter
		width = state.WindowWidth
		if !identity {
			center = center*slope + intercept
			width = width * slope
		}
	}
	if width <= 0 || math.Abs(width) < identityTolerance {
		center = frame.DefaultWindowCenter
		width = frame.DefaultWindowWidth
	}
	if width < 1.0 {
		width = 1.0
	}

	lower := center - width/2
	scale := 255.0 / width

	img := image.NewPaletted(image.Rect(0, 0, frame.Width, frame.Height), grayPalette)
	n := frame.Width * frame.Height
	if avail := pixel.SampleCount(frame.Data, frame.Scalar); avail < n {
		n = avail
	}
	for i := 0; i < n; i++ {
		v := pixel.Sample(frame.Data, frame.Scalar, i)
		if !identity {
			v = v*slope + intercept
		}
		img.Pix[i] = clampByte((v - lower) * scale)
	}
	return img
}

// renderColor maps multi-component samples to 24-bit RGB. No windowing
// is applied; samples pass through rescale and are clamped directly.
// Planar data with three or more components is organized as contiguous
// per-channel planes; otherwise components are interleaved per pixel and
// missing channels repeat the last available one.
func renderColor(frame *framecache.Frame, state PresentationState) image.Image {
	comps := frame.SamplesPerPixel
	planar := frame.PixelInfo.IsPlanar && comps >= 3

	slope := frame.PixelInfo.RescaleSlope
	intercept := frame.PixelInfo.RescaleIntercept
	identity := math.Abs(slope-1) < identityTolerance &&
		math.Abs(intercept) < identityTolerance

	numPixels := frame.Width * frame.Height
	total := pixel.SampleCount(frame.Data, frame.Scalar)
	if total < numPixels*comps {
		// Tolerate short buffers by rendering only complete pixels.
		numPixels = total / comps
	}

	sample := func(i int) byte {
		v := pixel.Sample(frame.Data, frame.Scalar, i)
		if !identity {
			v = v*slope + intercept
		}
		return clampByte(v)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for p := 0; p < numPixels; p++ {
		var r, g, bl byte
		if planar {
			r = sample(p)
			g = sample(numPixels + p)
			bl = sample(2*numPixels + p)
		} else {
			base := p * comps
			i0 := base
			i1 := base
			if comps > 1 {
				i1 = base + 1
			}
			i2 := i1
			if comps > 2 {
				i2 = base + 2
			}
			r = sample(i0)
			g = sample(i1)
			bl = sample(i2)
		}
		o := p * 4
		img.Pix[o] = r
		img.Pix[o+1] = g
		img.Pix[o+2] = bl
		img.Pix[o+3] = 0xFF
	}
	return img
}

// clampByte clamps to [0,255] and rounds half away from zero.
func clampByte(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(math.Floor(v + 0.5))
}

func invertImage(img image.Image) {
	switch im := img.(type) {
	case *image.Paletted:
		// The palette is a linear gray ramp, so index inversion is
		// color inversion.
		for i, v := range im.Pix {
			im.Pix[i] = 255 - v
		}
	case *image.RGBA:
		for i := 0; i < len(im.Pix); i += 4 {
			im.Pix[i] = 255 - im.Pix[i]
			im.Pix[i+1] = 255 - im.Pix[i+1]
			im.Pix[i+2] = 255 - im.Pix[i+2]
		}
	}
}

func flipImage(img image.Image, horizontal, vertical bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch im := img.(type) {
	case *image.Paletted:
		if horizontal {
			for y := 0; y < h; y++ {
				row := im.Pix[y*im.Stride : y*im.Stride+w]
				for x, xr := 0, w-1; x < xr; x, xr = x+1, xr-1 {
					row[x], row[xr] = row[xr], row[x]
				}
			}
		}
		if vertical {
			for y, yr := 0, h-1; y < yr; y, yr = y+1, yr-1 {
				top := im.Pix[y*im.Stride : y*im.Stride+w]
				bot := im.Pix[yr*im.Stride : yr*im.Stride+w]
				for x := 0; x < w; x++ {
					top[x], bot[x] = bot[x], top[x]
				}
			}
		}
	case *image.RGBA:
		if horizontal {
			for y := 0; y < h; y++ {
				row := im.Pix[y*im.Stride : y*im.Stride+w*4]
				for x, xr := 0, w-1; x < xr; x, xr = x+1, xr-1 {
					for k := 0; k < 4; k++ {
						row[x*4+k], row[xr*4+k] = row[xr*4+k], row[x*4+k]
					}
				}
			}
		}
		if vertical {
			for y, yr := 0, h-1; y < yr; y, yr = y+1, yr-1 {
				top := im.Pix[y*im.Stride : y*im.Stride+w*4]
				bot := im.Pix[yr*im.Stride : yr*im.Stride+w*4]
				for x := 0; x < w*4; x++ {
					top[x], bot[x] = bot[x], top[x]
				}
			}
		}
	}
}

// rotateImage rotates by steps quarter turns clockwise using a
// nearest-neighbor copy.
func rotateImage(img image.Image, steps int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dw, dh := w, h
	if steps%2 == 1 {
		dw, dh = h, w
	}

	// srcFor maps a destination pixel back to its source pixel.
	srcFor := func(dx, dy int) (int, int) {
		switch steps {
		case 1:
			return dy, h - 1 - dx
		case 2:
			return w - 1 - dx, h - 1 - dy
		default: // 3
			return w - 1 - dy, dx
		}
	}

	switch im := img.(type) {
	case *image.Paletted:
		out := image.NewPaletted(image.Rect(0, 0, dw, dh), im.Palette)
		for dy := 0; dy < dh; dy++ {
			for dx := 0; dx < dw; dx++ {
				sx, sy := srcFor(dx, dy)
				out.Pix[dy*out.Stride+dx] = im.Pix[sy*im.Stride+sx]
			}
		}
		return out
	case *image.RGBA:
		out := image.NewRGBA(image.Rect(0, 0, dw, dh))
		for dy := 0; dy < dh; dy++ {
			for dx := 0; dx < dw; dx++ {
				sx, sy := srcFor(dx, dy)
				so := sy*im.Stride + sx*4
				do := dy*out.Stride + dx*4
				copy(out.Pix[do:do+4], im.Pix[so:so+4])
			}
		}
		return out
	}
	return img
}
