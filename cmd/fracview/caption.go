package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/fracview"
)

// captionSize is the caption font size in pixels.
const captionSize = 13

// drawCaption writes the viewport's center and pixel step into the top-left
// corner of img on a dark backing strip.
func drawCaption(img *image.RGBA, v fracview.Viewport) error {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    captionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = face.Close()
	}()

	text := fmt.Sprintf("x=%.6g y=%.6g step=%.3g", v.CenterX, v.CenterY, v.PixelStep)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
	}
	bounds, _ := d.BoundString(text)

	// Convert fixed.Int26_6 to pixels with a small padding.
	const pad = 3
	strip := image.Rect(0, 0, (bounds.Max.X-bounds.Min.X).Ceil()+2*pad, (bounds.Max.Y-bounds.Min.Y).Ceil()+2*pad)
	draw.Draw(img, strip.Intersect(img.Rect), image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{X: fixed.I(pad) - bounds.Min.X, Y: fixed.I(pad) - bounds.Min.Y}
	d.DrawString(text)
	return nil
}
