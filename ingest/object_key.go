package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObjectKeyFor builds the storage path for one upload attempt:
//
//	photos/<userID>/<yyyy/mm/dd>/<randomID><ext>
//
// The path encodes the owning user and the upload date for human
// inspection, and the random component guarantees uniqueness without
// consulting any database. Every upload attempt gets a fresh key, so
// a replacement photo never overwrites the key a slow-finishing prior
// encode job is still writing to.
func ObjectKeyFor(userID, ext string, timestamp time.Time, randomID string) string {
	return fmt.Sprintf("photos/%s/%s/%s%s",
		userID, timestamp.UTC().Format("2006/01/02"), randomID, ext)
}

// NewObjectKey allocates a key for an upload happening now.
func NewObjectKey(userID, ext string) string {
	return ObjectKeyFor(userID, ext, time.Now(), uuid.New().String())
}
