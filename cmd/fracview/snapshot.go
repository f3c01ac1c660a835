package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// saveSnapshot writes img to path, scaled by factor. The format follows the
// extension: .png or .bmp.
func saveSnapshot(path string, img *image.RGBA, factor float64) error {
	var out image.Image = img
	if factor > 0 && factor != 1 {
		out = scaleImage(img, factor)
	}

	var encode func(*os.File, image.Image) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		encode = func(f *os.File, m image.Image) error { return png.Encode(f, m) }
	case ".bmp":
		encode = func(f *os.File, m image.Image) error { return bmp.Encode(f, m) }
	default:
		return fmt.Errorf("unsupported snapshot format %q", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f, out); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// scaleImage resamples img by factor. Upscaling keeps hard pixel edges,
// downscaling is smoothed.
func scaleImage(img *image.RGBA, factor float64) *image.RGBA {
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor+0.5))
	h := max(1, int(float64(b.Dy())*factor+0.5))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	var s xdraw.Scaler = xdraw.CatmullRom
	if factor > 1 {
		s = xdraw.NearestNeighbor
	}
	s.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
