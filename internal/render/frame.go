// Package render turns an upload batch into a slideshow video. The
// frame stage normalizes images to the output canvas and burns in
// text overlays; the encode stage drives ffmpeg.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"slidecast/internal/jobs"
	"slidecast/internal/pkg/errors"
)

var overlayColors = map[string]color.Color{
	"white":  color.White,
	"black":  color.Black,
	"red":    color.RGBA{R: 0xE5, G: 0x3E, B: 0x3E, A: 0xFF},
	"blue":   color.RGBA{R: 0x31, G: 0x82, B: 0xCE, A: 0xFF},
	"yellow": color.RGBA{R: 0xEC, G: 0xC9, B: 0x4B, A: 0xFF},
	"green":  color.RGBA{R: 0x38, G: 0xA1, B: 0x69, A: 0xFF},
}

// FrameRenderer prepares slide frames at a fixed canvas size.
type FrameRenderer struct {
	fontPath string
}

func NewFrameRenderer(fontPath string) *FrameRenderer {
	return &FrameRenderer{fontPath: fontPath}
}

// RenderFrame letterboxes the source image onto a width x height black
// canvas, draws the given overlays, and writes the frame to dstPath.
func (r *FrameRenderer) RenderFrame(srcPath, dstPath string, width, height int, overlays []jobs.TextOverlay) error {
	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeRender, "render.frame",
			fmt.Sprintf("cannot decode image %s", srcPath))
	}

	frame := r.compose(src, width, height, overlays)

	if err := imaging.Save(frame, dstPath); err != nil {
		return errors.WrapWithCode(err, errors.CodeRender, "render.frame", "cannot write frame")
	}
	return nil
}

func (r *FrameRenderer) compose(src image.Image, width, height int, overlays []jobs.TextOverlay) image.Image {
	fitted := imaging.Fit(src, width, height, imaging.Lanczos)
	canvas := imaging.New(width, height, color.Black)
	letterboxed := imaging.PasteCenter(canvas, fitted)

	if len(overlays) == 0 {
		return letterboxed
	}

	dc := gg.NewContextForImage(letterboxed)
	for _, ov := range overlays {
		r.drawOverlay(dc, ov, width, height)
	}
	return dc.Image()
}

func (r *FrameRenderer) drawOverlay(dc *gg.Context, ov jobs.TextOverlay, width, height int) {
	size := float64(ov.FontSize)
	if size <= 0 {
		size = 48
	}
	r.setFace(dc, size)

	x, y := overlayAnchor(ov, width, height)

	fill, ok := overlayColors[strings.ToLower(ov.Color)]
	if !ok {
		fill = color.White
	}

	// A 2px dark outline keeps text readable on bright slides.
	dc.SetRGB(0, 0, 0)
	for _, dx := range []float64{-2, 0, 2} {
		for _, dy := range []float64{-2, 0, 2} {
			if dx == 0 && dy == 0 {
				continue
			}
			dc.DrawStringAnchored(ov.Text, x+dx, y+dy, 0.5, 0.5)
		}
	}
	dc.SetColor(fill)
	dc.DrawStringAnchored(ov.Text, x, y, 0.5, 0.5)
}

// setFace loads the configured TTF face at the requested size, falling
// back to a builtin bitmap face when no font file is available.
func (r *FrameRenderer) setFace(dc *gg.Context, size float64) {
	if r.fontPath != "" {
		if err := dc.LoadFontFace(r.fontPath, size); err == nil {
			return
		}
	}
	var face font.Face = basicfont.Face7x13
	dc.SetFontFace(face)
}

func overlayAnchor(ov jobs.TextOverlay, width, height int) (float64, float64) {
	w := float64(width)
	h := float64(height)
	switch ov.Position {
	case jobs.PositionTop:
		return w / 2, h * 0.1
	case jobs.PositionBottom:
		return w / 2, h * 0.9
	case jobs.PositionCustom:
		return clamp(float64(ov.X), 0, w), clamp(float64(ov.Y), 0, h)
	default:
		return w / 2, h / 2
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
