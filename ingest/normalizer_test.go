package ingest_test

import (
	"testing"

	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/ingest"
	"github.com/snapmission/photo-services/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImageJPEG(t *testing.T) {
	data := testutil.MakeJPEG(80, 60)
	norm := ingest.NormalizeImage(data, "image/jpeg")
	require.NotNil(t, norm)
	assert.True(t, norm.Canonical)
	assert.Equal(t, constants.CanonicalMimeType, norm.MimeType)
	assert.Equal(t, constants.CanonicalExt, norm.Ext)
	assert.Equal(t, 80, norm.Width)
	assert.Equal(t, 60, norm.Height)
	assert.Equal(t, int64(len(norm.Data)), norm.Size)
	assert.NotEmpty(t, norm.Data)
}

func TestNormalizeImageConvertsPNG(t *testing.T) {
	data := testutil.MakePNG(40, 40)
	norm := ingest.NormalizeImage(data, "image/png")
	require.NotNil(t, norm)
	assert.True(t, norm.Canonical)
	assert.Equal(t, constants.CanonicalMimeType, norm.MimeType)
	assert.Equal(t, constants.CanonicalExt, norm.Ext)
	assert.Equal(t, 40, norm.Width)
	assert.Equal(t, 40, norm.Height)
	// JPEG output, not the PNG input
	assert.NotEqual(t, data, norm.Data)
}

func TestNormalizeImageIsDeterministic(t *testing.T) {
	data := testutil.MakePNG(64, 48)
	first := ingest.NormalizeImage(data, "image/png")
	second := ingest.NormalizeImage(data, "image/png")
	assert.Equal(t, first.Data, second.Data,
		"same input must produce the same bytes, or redelivered jobs would corrupt blobs")
}

func TestNormalizeImageFallsBackOnGarbage(t *testing.T) {
	data := []byte("this is not an image at all")
	norm := ingest.NormalizeImage(data, "image/heic")
	require.NotNil(t, norm)
	assert.False(t, norm.Canonical)
	assert.Equal(t, data, norm.Data, "original bytes must survive unchanged")
	assert.Equal(t, int64(len(data)), norm.Size)
	assert.Equal(t, "image/heic", norm.MimeType)
	assert.Equal(t, 0, norm.Width)
	assert.Equal(t, 0, norm.Height)
}

func TestIsImageType(t *testing.T) {
	assert.True(t, ingest.IsImageType("image/jpeg"))
	assert.True(t, ingest.IsImageType("image/heic"))
	assert.False(t, ingest.IsImageType("application/pdf"))
	assert.False(t, ingest.IsImageType("text/html"))
	assert.False(t, ingest.IsImageType(""))
}
