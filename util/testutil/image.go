package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// testPattern builds a deterministic gradient so identical dimensions
// always produce identical bytes.
func testPattern(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: uint8(((x + y) * 255) / (width + height)),
				A: 255,
			})
		}
	}
	return img
}

// MakeJPEG returns a valid JPEG of the given dimensions.
func MakeJPEG(width, height int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testPattern(width, height), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MakePNG returns a valid PNG of the given dimensions.
func MakePNG(width, height int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testPattern(width, height)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
