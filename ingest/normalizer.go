package ingest

import (
	"bytes"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/snapmission/photo-services/constants"
)

// NormalizedImage is the outcome of running an upload through the
// codec adapter. When Canonical is true, Data holds an upright JPEG
// re-encoded at a fixed quality. When false, the codec could not
// decode the upload and Data is the caller's original bytes, with
// MimeType, Size, Width and Height describing those original bytes
// best-effort.
type NormalizedImage struct {
	Data      []byte
	MimeType  string
	Ext       string
	Size      int64
	Width     int
	Height    int
	Canonical bool
}

// NormalizeImage rotates an upload to upright orientation (per its
// EXIF tag) and re-encodes it as canonical JPEG. It is a pure
// function over bytes: same input, same output, which is what makes
// broker redelivery of encode jobs safe. It never fails; codec errors
// fall back to the original bytes because an upload must not be
// rejected solely for being un-decodable by our codec.
func NormalizeImage(data []byte, declaredType string) *NormalizedImage {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return originalImage(data, declaredType)
	}
	var buf bytes.Buffer
	err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(constants.JpegQuality))
	if err != nil {
		return originalImage(data, declaredType)
	}
	bounds := img.Bounds()
	return &NormalizedImage{
		Data:      buf.Bytes(),
		MimeType:  constants.CanonicalMimeType,
		Ext:       constants.CanonicalExt,
		Size:      int64(buf.Len()),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Canonical: true,
	}
}

// originalImage describes the upload as-is. Dimensions come from a
// config-only decode and stay zero when even that fails.
func originalImage(data []byte, declaredType string) *NormalizedImage {
	detected := mimetype.Detect(data)
	mimeType := detected.String()
	ext := detected.Extension()
	if !strings.HasPrefix(mimeType, "image/") && declaredType != "" {
		mimeType = declaredType
		ext = ""
	}
	norm := &NormalizedImage{
		Data:      data,
		MimeType:  mimeType,
		Ext:       ext,
		Size:      int64(len(data)),
		Canonical: false,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		norm.Width = cfg.Width
		norm.Height = cfg.Height
	}
	return norm
}

// IsImageType reports whether a declared content type names an
// image. Uploads declaring anything else are rejected before any I/O.
func IsImageType(declaredType string) bool {
	return strings.HasPrefix(declaredType, "image/")
}
