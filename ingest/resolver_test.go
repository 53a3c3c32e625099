package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/ingest"
	"github.com/snapmission/photo-services/models/photo"
	"github.com/snapmission/photo-services/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newResolver(objects *testutil.FakeObjectStore) *ingest.Resolver {
	return &ingest.Resolver{
		Objects: objects,
		Logger:  logging.MustGetLogger("resolver_test"),
		Expiry:  15 * time.Minute,
	}
}

func TestResolveAttachesSignedURL(t *testing.T) {
	objects := testutil.NewFakeObjectStore()
	r := newResolver(objects)
	p := &photo.Photo{
		ID:        primitive.NewObjectID(),
		ObjectKey: "photos/user/2024/03/09/abc.jpg",
	}
	view := r.Resolve(context.Background(), p)
	require.NotNil(t, view)
	require.NotNil(t, view.ImageURL)
	assert.Contains(t, *view.ImageURL, p.ObjectKey)
	assert.Equal(t, p.ID, view.ID)
}

func TestResolveNilURLWithoutObjectKey(t *testing.T) {
	r := newResolver(testutil.NewFakeObjectStore())
	view := r.Resolve(context.Background(), &photo.Photo{ID: primitive.NewObjectID()})
	require.NotNil(t, view)
	assert.Nil(t, view.ImageURL)
}

func TestResolveAllDegradesPerItem(t *testing.T) {
	objects := testutil.NewFakeObjectStore()
	objects.SignFailKeys["photos/user/bad.jpg"] = true
	r := newResolver(objects)

	photos := []*photo.Photo{
		{ID: primitive.NewObjectID(), ObjectKey: "photos/user/a.jpg"},
		{ID: primitive.NewObjectID(), ObjectKey: "photos/user/bad.jpg"},
		{ID: primitive.NewObjectID(), ObjectKey: "photos/user/c.jpg"},
	}
	views := r.ResolveAll(context.Background(), photos)
	require.Len(t, views, 3, "one bad blob must not shrink the batch")
	assert.NotNil(t, views[0].ImageURL)
	assert.Nil(t, views[1].ImageURL)
	assert.NotNil(t, views[2].ImageURL)
}
