package service

import (
	"encoding/json"
	"fmt"
	"time"
)

// EncodeJob is the payload of one message on the photo_encode topic.
// It carries the normalized upload bytes inline (base64 in JSON), so
// job size is bounded by the configured max upload size. The object
// key is allocated before enqueueing and never reused, which makes
// redelivery safe: the worker's re-encode is deterministic, so a
// second delivery simply overwrites the same key with the same bytes.
type EncodeJob struct {
	UserID      string    `json:"user_id"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	ImageData   []byte    `json:"image_data"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

func EncodeJobFromJSON(data []byte) (*EncodeJob, error) {
	job := &EncodeJob{}
	err := json.Unmarshal(data, job)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (job *EncodeJob) ToJSON() ([]byte, error) {
	return json.Marshal(job)
}

// Validate returns an error if the job is missing anything the worker
// needs. A job that fails validation is fatal: it will never succeed
// no matter how many times the broker redelivers it.
func (job *EncodeJob) Validate() error {
	if job.ObjectKey == "" {
		return fmt.Errorf("encode job has no object key")
	}
	if len(job.ImageData) == 0 {
		return fmt.Errorf("encode job %s has no image data", job.ObjectKey)
	}
	return nil
}
