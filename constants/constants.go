package constants

import "time"

const (
	// BlobCacheControl is set on every re-encoded photo we write to
	// object storage. Keys are never reused, so blobs are immutable.
	BlobCacheControl = "public, max-age=31536000, immutable"

	// CanonicalExt and CanonicalMimeType describe the format the codec
	// adapter re-encodes uploads into. When the codec cannot decode an
	// upload, the original bytes are kept and these do not apply.
	CanonicalExt      = ".jpg"
	CanonicalMimeType = "image/jpeg"

	DefaultRecentLimit = 3
	MaxRecentLimit     = 10
	DefaultPublicLimit = 20
	MaxPublicLimit     = 50

	MaxCommentLength = 500

	// JpegQuality is fixed so the worker's re-encode is deterministic.
	// Redelivered jobs overwrite the same key with the same bytes.
	JpegQuality = 85

	// NSQ topic and channel for the re-encode worker.
	TopicPhotoEncode   = "photo_encode"
	ChannelPhotoEncode = "encode_worker"

	// PendingBlobTTL bounds how long a pending-blob marker lives in
	// Redis when the encode worker never clears it.
	PendingBlobTTL = 24 * time.Hour

	// UpsertMaxAttempts bounds the find/insert retry loop that resolves
	// duplicate-key races between concurrent uploads for the same
	// (user, mission) pair.
	UpsertMaxAttempts = 3
)
