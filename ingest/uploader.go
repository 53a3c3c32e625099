package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/models/photo"
	"github.com/snapmission/photo-services/models/service"
	"github.com/snapmission/photo-services/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Uploader is the synchronous request-handling path of the pipeline.
// It validates an upload, normalizes the image, allocates a storage
// key, hands the heavy re-encode to the broker (or writes the blob
// inline when the broker is down), and upserts the photo record under
// the one-photo-per-user-per-mission invariant.
type Uploader struct {
	Store       network.PhotoStore
	Objects     network.ObjectStore
	Queue       network.NSQClientInterface
	Pending     network.PendingBlobTracker
	Logger      *logging.Logger
	Topic       string
	MaxFileSize int64
}

func NewUploader(ctx *common.Context) *Uploader {
	return &Uploader{
		Store:       ctx.PhotoStore,
		Objects:     ctx.ObjectStore,
		Queue:       ctx.NSQClient,
		Pending:     ctx.RedisClient,
		Logger:      ctx.Logger,
		Topic:       constants.TopicPhotoEncode,
		MaxFileSize: ctx.Config.MaxFileSize,
	}
}

// UploadRequest is one photo upload, already stripped of transport
// concerns: raw bytes, the declared content type, and the target
// mission for the authenticated user.
type UploadRequest struct {
	UserID       string
	MissionID    string
	Data         []byte
	DeclaredType string
	Comment      string
	IsPublic     bool
}

// Upload runs the full intake path. It returns the persisted record
// and whether it replaced an earlier photo for the same mission. The
// returned error is a *common.ValidationError for bad input; any
// other error means storage failed on both the async and sync paths
// and no record was created or mutated.
func (u *Uploader) Upload(ctx context.Context, req *UploadRequest) (*photo.Photo, bool, error) {
	if err := u.validate(req); err != nil {
		UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, false, err
	}

	norm := NormalizeImage(req.Data, req.DeclaredType)
	if !norm.Canonical {
		u.Logger.Warningf("Could not normalize upload for user %s, mission %s; keeping original bytes (%s, %d bytes)",
			req.UserID, req.MissionID, norm.MimeType, norm.Size)
	}

	key := NewObjectKey(req.UserID, norm.Ext)
	if err := u.placeBlob(ctx, req.UserID, key, norm); err != nil {
		UploadsTotal.WithLabelValues("storage_error").Inc()
		return nil, false, err
	}

	p := &photo.Photo{
		UserID:    req.UserID,
		MissionID: req.MissionID,
		ObjectKey: key,
		Comment:   req.Comment,
		IsPublic:  req.IsPublic,
		FileSize:  norm.Size,
		MimeType:  norm.MimeType,
		Width:     norm.Width,
		Height:    norm.Height,
	}
	replaced, err := u.upsert(ctx, p)
	if err != nil {
		UploadsTotal.WithLabelValues("store_error").Inc()
		return nil, false, err
	}
	UploadsTotal.WithLabelValues("ok").Inc()
	return p, replaced, nil
}

func (u *Uploader) validate(req *UploadRequest) error {
	if len(req.Data) == 0 {
		return common.NewValidationError("file", "no file data received")
	}
	if u.MaxFileSize > 0 && int64(len(req.Data)) > u.MaxFileSize {
		return common.NewValidationError("file",
			fmt.Sprintf("file exceeds max size of %d bytes", u.MaxFileSize))
	}
	if !IsImageType(req.DeclaredType) {
		return common.NewValidationError("file",
			fmt.Sprintf("content type %s is not an image type", req.DeclaredType))
	}
	if !primitive.IsValidObjectID(req.UserID) {
		return common.NewValidationError("userId", "malformed user id")
	}
	if !primitive.IsValidObjectID(req.MissionID) {
		return common.NewValidationError("missionId", "malformed mission id")
	}
	if len(req.Comment) > constants.MaxCommentLength {
		return common.NewValidationError("comment",
			fmt.Sprintf("comment exceeds %d characters", constants.MaxCommentLength))
	}
	return nil
}

// placeBlob tries the broker first and falls back to a synchronous
// object-storage write, so queue unavailability never fails an
// upload. Only when both paths fail does the upload fail, with no
// record created.
func (u *Uploader) placeBlob(ctx context.Context, userID, key string, norm *NormalizedImage) error {
	job := &service.EncodeJob{
		UserID:      userID,
		ObjectKey:   key,
		ContentType: norm.MimeType,
		ImageData:   norm.Data,
		EnqueuedAt:  time.Now().UTC(),
	}
	payload, err := job.ToJSON()
	if err == nil {
		u.markPending(key)
		err = u.Queue.Enqueue(u.Topic, payload)
		if err == nil {
			return nil
		}
	}

	u.Logger.Warningf("Enqueue failed for %s, writing blob synchronously: %v", key, err)
	EnqueueFallbacksTotal.Inc()
	putErr := u.Objects.Put(ctx, key, norm.Data, norm.MimeType, constants.BlobCacheControl)
	if putErr != nil {
		return fmt.Errorf("enqueue failed (%v) and synchronous store failed (%v)", err, putErr)
	}
	u.clearPending(key)
	return nil
}

// upsert is the daily-uniqueness engine. Two uploads for the same
// (user, mission) can both see "no existing record" before either
// commits; the unique index rejects the second insert and we convert
// that conflict into an update on the next pass. The loop is bounded
// because an index conflict proves the record now exists.
func (u *Uploader) upsert(ctx context.Context, p *photo.Photo) (bool, error) {
	for attempt := 0; attempt < constants.UpsertMaxAttempts; attempt++ {
		existing, err := u.Store.FindByUserAndMission(ctx, p.UserID, p.MissionID)
		if err == common.ErrRecordNotFound {
			err = u.Store.Insert(ctx, p)
			if err == common.ErrDuplicateRecord {
				u.Logger.Infof("Lost insert race for user %s, mission %s; retrying as update",
					p.UserID, p.MissionID)
				continue
			}
			return false, err
		}
		if err != nil {
			return false, err
		}

		u.deleteOldBlob(existing.ObjectKey)
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		err = u.Store.ReplaceContent(ctx, existing.ID, p)
		if err == common.ErrRecordNotFound {
			// Record vanished between find and replace (concurrent
			// delete). Treat like the insert race and go around.
			continue
		}
		if err != nil {
			return false, err
		}
		p.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, fmt.Errorf("could not upsert photo for user %s, mission %s after %d attempts",
		p.UserID, p.MissionID, constants.UpsertMaxAttempts)
}

// deleteOldBlob removes a replaced photo's blob as a detached task.
// Failure is logged and otherwise ignored; the caller path never
// waits on it or observes it.
func (u *Uploader) deleteOldBlob(key string) {
	if key == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := u.Objects.Remove(ctx, key); err != nil {
			u.Logger.Warningf("Best-effort delete of replaced blob %s failed: %v", key, err)
		}
		u.clearPending(key)
	}()
}

func (u *Uploader) markPending(key string) {
	if u.Pending == nil {
		return
	}
	if err := u.Pending.PendingBlobSave(key); err != nil {
		u.Logger.Warningf("Could not mark blob %s pending in redis: %v", key, err)
	}
}

func (u *Uploader) clearPending(key string) {
	if u.Pending == nil {
		return
	}
	if err := u.Pending.PendingBlobDelete(key); err != nil {
		u.Logger.Warningf("Could not clear pending marker for %s in redis: %v", key, err)
	}
}
