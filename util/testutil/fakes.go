package testutil

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/models/photo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FakeObjectStore is an in-memory network.ObjectStore. Set PutErr,
// RemoveErr or SignErr to simulate storage outages; add keys to
// SignFailKeys to fail signing for individual blobs only.
type FakeObjectStore struct {
	mu            sync.Mutex
	Objects       map[string][]byte
	ContentTypes  map[string]string
	CacheControls map[string]string
	Removed       []string
	PutErr        error
	RemoveErr     error
	SignErr       error
	SignFailKeys  map[string]bool
}

func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{
		Objects:       make(map[string][]byte),
		ContentTypes:  make(map[string]string),
		CacheControls: make(map[string]string),
		SignFailKeys:  make(map[string]bool),
	}
}

func (s *FakeObjectStore) Put(ctx context.Context, key string, data []byte, contentType, cacheControl string) error {
	if s.PutErr != nil {
		return s.PutErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.Objects[key] = stored
	s.ContentTypes[key] = contentType
	s.CacheControls[key] = cacheControl
	return nil
}

func (s *FakeObjectStore) Remove(ctx context.Context, key string) error {
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	s.Removed = append(s.Removed, key)
	return nil
}

func (s *FakeObjectStore) PresignedGet(ctx context.Context, key string, expires time.Duration) (*url.URL, error) {
	if s.SignErr != nil {
		return nil, s.SignErr
	}
	s.mu.Lock()
	failed := s.SignFailKeys[key]
	s.mu.Unlock()
	if failed {
		return nil, fmt.Errorf("simulated signing failure for %s", key)
	}
	raw := fmt.Sprintf("https://storage.example.com/photos/%s?X-Amz-Expires=%d",
		key, int(expires.Seconds()))
	return url.Parse(raw)
}

// RemovedKeys returns a copy of the removed-key log.
func (s *FakeObjectStore) RemovedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.Removed))
	copy(keys, s.Removed)
	return keys
}

// FakeEnqueuer is an in-memory network.NSQClientInterface. Set Err to
// simulate a broker outage and force the synchronous fallback.
type FakeEnqueuer struct {
	mu       sync.Mutex
	Err      error
	Topics   []string
	Messages [][]byte
}

func (e *FakeEnqueuer) Enqueue(topic string, payload []byte) error {
	if e.Err != nil {
		return e.Err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Topics = append(e.Topics, topic)
	stored := make([]byte, len(payload))
	copy(stored, payload)
	e.Messages = append(e.Messages, stored)
	return nil
}

// FakePendingTracker is an in-memory network.PendingBlobTracker.
type FakePendingTracker struct {
	mu      sync.Mutex
	Pending map[string]bool
}

func NewFakePendingTracker() *FakePendingTracker {
	return &FakePendingTracker{Pending: make(map[string]bool)}
}

func (t *FakePendingTracker) PendingBlobSave(objectKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Pending[objectKey] = true
	return nil
}

func (t *FakePendingTracker) PendingBlobDelete(objectKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.Pending, objectKey)
	return nil
}

func (t *FakePendingTracker) PendingBlobExists(objectKey string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Pending[objectKey], nil
}

// FakePhotoStore is an in-memory network.PhotoStore that enforces the
// unique (user, mission) pair the way Mongo's index does. The hooks
// let tests inject races and failures at precise points.
type FakePhotoStore struct {
	mu      sync.Mutex
	Records map[string]*photo.Photo

	// BeforeInsert runs just before the uniqueness check, inside the
	// store lock. Tests use it to slip a competing record in and
	// trigger common.ErrDuplicateRecord exactly once.
	BeforeInsert func(store *FakePhotoStore, p *photo.Photo)

	FindErr   error
	InsertErr error
}

func NewFakePhotoStore() *FakePhotoStore {
	return &FakePhotoStore{Records: make(map[string]*photo.Photo)}
}

func (s *FakePhotoStore) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (s *FakePhotoStore) Insert(ctx context.Context, p *photo.Photo) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeforeInsert != nil {
		hook := s.BeforeInsert
		s.BeforeInsert = nil
		hook(s, p)
	}
	for _, existing := range s.Records {
		if existing.UserID == p.UserID && existing.MissionID == p.MissionID {
			return common.ErrDuplicateRecord
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	clone := *p
	s.Records[p.ID.Hex()] = &clone
	return nil
}

// AddRecord inserts directly, bypassing hooks. For test setup and for
// use inside BeforeInsert.
func (s *FakePhotoStore) AddRecord(p *photo.Photo) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	clone := *p
	s.Records[p.ID.Hex()] = &clone
}

func (s *FakePhotoStore) FindByID(ctx context.Context, id string) (*photo.Photo, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Records[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, common.ErrRecordNotFound
}

func (s *FakePhotoStore) FindByUserAndMission(ctx context.Context, userID, missionID string) (*photo.Photo, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Records {
		if p.UserID == userID && p.MissionID == missionID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, common.ErrRecordNotFound
}

func (s *FakePhotoStore) ReplaceContent(ctx context.Context, id primitive.ObjectID, p *photo.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.Records[id.Hex()]
	if !ok {
		return common.ErrRecordNotFound
	}
	existing.ObjectKey = p.ObjectKey
	existing.Comment = p.Comment
	existing.IsPublic = p.IsPublic
	existing.IsShared = false
	existing.FileSize = p.FileSize
	existing.MimeType = p.MimeType
	existing.Width = p.Width
	existing.Height = p.Height
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *FakePhotoStore) UpdateFields(ctx context.Context, id string, update *photo.Update) (*photo.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Records[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	if update.Comment != nil {
		p.Comment = *update.Comment
	}
	if update.IsPublic != nil {
		p.IsPublic = *update.IsPublic
	}
	p.UpdatedAt = time.Now().UTC()
	clone := *p
	return &clone, nil
}

func (s *FakePhotoStore) MarkShared(ctx context.Context, id string) (*photo.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Records[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	p.IsShared = true
	p.UpdatedAt = time.Now().UTC()
	clone := *p
	return &clone, nil
}

func (s *FakePhotoStore) ListByUser(ctx context.Context, userID string) ([]*photo.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(p *photo.Photo) bool { return p.UserID == userID }, byCreatedAt, 0, 0), nil
}

func (s *FakePhotoStore) ListRecent(ctx context.Context, userID string, limit int) ([]*photo.Photo, error) {
	limit = clamp(limit, 3, 10)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(p *photo.Photo) bool { return p.UserID == userID }, byUpdatedAt, limit, 0), nil
}

func (s *FakePhotoStore) ListPublic(ctx context.Context, limit, skip int) ([]*photo.Photo, error) {
	limit = clamp(limit, 20, 50)
	if skip < 0 {
		skip = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(p *photo.Photo) bool { return p.IsPublic }, byCreatedAt, limit, skip), nil
}

func (s *FakePhotoStore) ListPublicByMission(ctx context.Context, missionID string) ([]*photo.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(func(p *photo.Photo) bool {
		return p.IsPublic && p.MissionID == missionID
	}, byCreatedAt, 0, 0), nil
}

func (s *FakePhotoStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Records[id]; !ok {
		return common.ErrRecordNotFound
	}
	delete(s.Records, id)
	return nil
}

func (s *FakePhotoStore) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0)
	for id, p := range s.Records {
		if p.UserID == userID {
			if p.ObjectKey != "" {
				keys = append(keys, p.ObjectKey)
			}
			delete(s.Records, id)
		}
	}
	return keys, nil
}

// Sort keys matching the real store: most listings order by
// created_at, the recency listing by updated_at.
func byCreatedAt(p *photo.Photo) time.Time { return p.CreatedAt }
func byUpdatedAt(p *photo.Photo) time.Time { return p.UpdatedAt }

// collect returns newest-first copies of matching records, ordered by
// the given sort key.
func (s *FakePhotoStore) collect(match func(*photo.Photo) bool, sortKey func(*photo.Photo) time.Time, limit, skip int) []*photo.Photo {
	all := make([]*photo.Photo, 0)
	for _, p := range s.Records {
		if match(p) {
			clone := *p
			all = append(all, &clone)
		}
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if sortKey(all[j]).After(sortKey(all[i])) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if skip > 0 {
		if skip >= len(all) {
			return []*photo.Photo{}
		}
		all = all[skip:]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

func clamp(requested, defaultLimit, max int) int {
	if requested == 0 {
		return defaultLimit
	}
	if requested < 1 {
		return 1
	}
	if requested > max {
		return max
	}
	return requested
}
