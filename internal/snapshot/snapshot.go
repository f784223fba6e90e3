// Package snapshot encodes a captured Frame to PNG and persists it through
// a pluggable Store: the required local-disk writer, or the optional
// MinIO-backed store wired in from the domain stack.
package snapshot

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Store persists PNG bytes for a camera snapshot under filename and
// returns the path (or object key/URL) the bytes ended up at.
type Store interface {
	Save(ctx context.Context, filename string, pngData []byte) (string, error)
}

type rgbImage struct {
	width, height int
	pixels        []byte
}

func (r rgbImage) ColorModel() color.Model { return color.RGBAModel }
func (r rgbImage) Bounds() image.Rectangle { return image.Rect(0, 0, r.width, r.height) }
func (r rgbImage) At(x, y int) color.Color {
	i := (y*r.width + x) * 3
	if i+2 >= len(r.pixels) {
		return color.RGBA{}
	}
	return color.RGBA{R: r.pixels[i], G: r.pixels[i+1], B: r.pixels[i+2], A: 0xff}
}

// EncodePNG renders a width×height RGB pixel buffer as PNG bytes.
func EncodePNG(width, height int, rgb []byte) ([]byte, error) {
	img := rgbImage{width: width, height: height, pixels: rgb}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJPEG renders a width×height RGB pixel buffer as JPEG bytes at the
// given quality (0-100), for the HTTP status surface's live camera
// snapshot route.
func EncodeJPEG(width, height int, rgb []byte, quality int) ([]byte, error) {
	img := rgbImage{width: width, height: height, pixels: rgb}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
