package network

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/snapmission/photo-services/constants"
)

type RedisClient struct {
	client *redis.Client
}

// PendingBlobTracker records which object keys have been enqueued for
// re-encoding but not yet written to object storage. The upload path
// sets a marker when it enqueues a job; the encode worker clears it
// after a successful write. A marker that outlives queue latency
// means the blob is missing (the eventual-consistency gap), which is
// what operators grep for when a photo's URL stays null.
type PendingBlobTracker interface {
	PendingBlobSave(objectKey string) error
	PendingBlobDelete(objectKey string) error
	PendingBlobExists(objectKey string) (bool, error)
}

func NewRedisClient(address, password string, db int) *RedisClient {
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *RedisClient) Ping() (string, error) {
	return c.client.Ping().Result()
}

func pendingBlobKey(objectKey string) string {
	return fmt.Sprintf("pending_blob:%s", objectKey)
}

// PendingBlobSave marks objectKey as awaiting its blob. The TTL keeps
// orphaned markers from accumulating if a job exhausts its retries.
func (c *RedisClient) PendingBlobSave(objectKey string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	_, err := c.client.Set(pendingBlobKey(objectKey), timestamp, constants.PendingBlobTTL).Result()
	return err
}

func (c *RedisClient) PendingBlobDelete(objectKey string) error {
	_, err := c.client.Del(pendingBlobKey(objectKey)).Result()
	return err
}

func (c *RedisClient) PendingBlobExists(objectKey string) (bool, error) {
	count, err := c.client.Exists(pendingBlobKey(objectKey)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
