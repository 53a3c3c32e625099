package network

import (
	"bytes"
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
)

/*
   ObjectStore defines the object storage operations the photo
   pipeline needs: put, remove, and presigned read. We deliberately
   define object-level methods only. Neither the upload path nor the
   encode worker should be able to create buckets or modify bucket
   policies, and the narrow interface also lets tests swap in an
   in-memory store.
*/

type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error
	Remove(ctx context.Context, key string) error
	PresignedGet(ctx context.Context, key string, expires time.Duration) (*url.URL, error)
}

// MinioStore is the ObjectStore used in every real deployment. All
// photo blobs live in a single bucket; the object key carries the
// per-user hierarchy.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{
		client: client,
		bucket: bucket,
	}
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error {
	opts := minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	}
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)), opts)
	return err
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

// PresignedGet returns a time-limited read URL for one blob, so
// clients can fetch the photo without needing S3 credentials.
func (s *MinioStore) PresignedGet(ctx context.Context, key string, expires time.Duration) (*url.URL, error) {
	return s.client.PresignedGetObject(ctx, s.bucket, key, expires, url.Values{})
}
