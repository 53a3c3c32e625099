package service_test

import (
	"testing"
	"time"

	"github.com/snapmission/photo-services/models/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJobRoundTrip(t *testing.T) {
	job := &service.EncodeJob{
		UserID:      "64f1b2c3d4e5f60718293a4c",
		ObjectKey:   "photos/user/2024/03/09/abc.jpg",
		ContentType: "image/jpeg",
		ImageData:   []byte{0xff, 0xd8, 0xff, 0xe0},
		EnqueuedAt:  time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
	}
	data, err := job.ToJSON()
	require.NoError(t, err)

	parsed, err := service.EncodeJobFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, job.UserID, parsed.UserID)
	assert.Equal(t, job.ObjectKey, parsed.ObjectKey)
	assert.Equal(t, job.ImageData, parsed.ImageData)
	assert.True(t, job.EnqueuedAt.Equal(parsed.EnqueuedAt))
}

func TestEncodeJobFromJSONRejectsGarbage(t *testing.T) {
	job, err := service.EncodeJobFromJSON([]byte("{not json"))
	assert.Error(t, err)
	assert.Nil(t, job)
}

func TestEncodeJobValidate(t *testing.T) {
	job := &service.EncodeJob{}
	err := job.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object key")

	job.ObjectKey = "photos/user/abc.jpg"
	err = job.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image data")

	job.ImageData = []byte{1, 2, 3}
	assert.NoError(t, job.Validate())
}
