package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/api"
	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/ingest"
	"github.com/snapmission/photo-services/models/photo"
	"github.com/snapmission/photo-services/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const jwtSecret = "handlers-test-secret"

type apiFixture struct {
	router  http.Handler
	store   *testutil.FakePhotoStore
	objects *testutil.FakeObjectStore
	queue   *testutil.FakeEnqueuer
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		store:   testutil.NewFakePhotoStore(),
		objects: testutil.NewFakeObjectStore(),
		queue:   &testutil.FakeEnqueuer{},
	}
	logger := logging.MustGetLogger("handlers_test")
	handler := &api.Handler{
		Uploader: &ingest.Uploader{
			Store:       f.store,
			Objects:     f.objects,
			Queue:       f.queue,
			Logger:      logger,
			Topic:       constants.TopicPhotoEncode,
			MaxFileSize: 20 * 1024 * 1024,
		},
		Resolver: &ingest.Resolver{
			Objects: f.objects,
			Logger:  logger,
			Expiry:  15 * time.Minute,
		},
		Store:   f.store,
		Objects: f.objects,
		Logger:  logger,
	}
	f.router = api.NewRouter(handler, jwtSecret, 30*time.Second)
	return f
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func (f *apiFixture) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", bearerToken(t, userID))
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func uploadPhotoRequest(t *testing.T, missionID, comment string, isPublic bool) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="photo.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(testutil.MakeJPEG(100, 80))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("missionId", missionID))
	require.NoError(t, writer.WriteField("comment", comment))
	require.NoError(t, writer.WriteField("isPublic", fmt.Sprintf("%t", isPublic)))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/photos", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func (f *apiFixture) uploadPhoto(t *testing.T, userID, missionID string, isPublic bool) *photo.UploadResult {
	t.Helper()
	recorder := f.do(t, uploadPhotoRequest(t, missionID, "test photo", isPublic), userID)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	result := &photo.UploadResult{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), result))
	return result
}

func TestRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture()
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/photos"},
		{http.MethodGet, "/v1/photos/mine"},
		{http.MethodGet, "/v1/photos/recent"},
		{http.MethodGet, "/v1/photos/public"},
		{http.MethodGet, "/v1/photos/abc"},
		{http.MethodGet, "/v1/missions/abc/photos"},
	}
	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		recorder := f.do(t, req, "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, route.path)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/photos/mine", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestHealthzIsOpen(t *testing.T) {
	f := newAPIFixture()
	recorder := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpload(t *testing.T) {
	f := newAPIFixture()
	userID := primitive.NewObjectID().Hex()
	missionID := primitive.NewObjectID().Hex()

	result := f.uploadPhoto(t, userID, missionID, true)
	assert.False(t, result.Replaced)
	assert.Equal(t, userID, result.UserID)
	assert.Equal(t, missionID, result.MissionID)
	assert.True(t, result.IsPublic)
	require.NotNil(t, result.ImageURL)
	assert.Contains(t, *result.ImageURL, "https://storage.example.com/")
	assert.Len(t, f.queue.Messages, 1)
}

func TestUploadReplacesSameMission(t *testing.T) {
	f := newAPIFixture()
	userID := primitive.NewObjectID().Hex()
	missionID := primitive.NewObjectID().Hex()

	first := f.uploadPhoto(t, userID, missionID, false)
	second := f.uploadPhoto(t, userID, missionID, true)
	assert.True(t, second.Replaced)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsPublic, "replacement carries the new visibility")
	require.Len(t, f.store.Records, 1)
}

func TestUploadRejectsMissingFile(t *testing.T) {
	f := newAPIFixture()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("missionId", primitive.NewObjectID().Hex()))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/photos", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	recorder := f.do(t, req, primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUploadRejectsBadMissionID(t *testing.T) {
	f := newAPIFixture()
	recorder := f.do(t, uploadPhotoRequest(t, "not-an-id", "", false),
		primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "missionId")
}

func TestListMine(t *testing.T) {
	f := newAPIFixture()
	userID := primitive.NewObjectID().Hex()
	f.uploadPhoto(t, userID, primitive.NewObjectID().Hex(), false)
	f.uploadPhoto(t, userID, primitive.NewObjectID().Hex(), true)
	f.uploadPhoto(t, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)

	recorder := f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/mine", nil), userID)
	require.Equal(t, http.StatusOK, recorder.Code)
	var views []*photo.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	assert.Len(t, views, 2)
	for _, view := range views {
		assert.Equal(t, userID, view.UserID)
	}
}

func TestListPublicPagination(t *testing.T) {
	f := newAPIFixture()
	base := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	publicIDs := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		p := &photo.Photo{
			UserID:    primitive.NewObjectID().Hex(),
			MissionID: primitive.NewObjectID().Hex(),
			ObjectKey: fmt.Sprintf("photos/user/2024/03/09/pub-%02d.jpg", i),
			IsPublic:  true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		f.store.AddRecord(p)
		publicIDs = append(publicIDs, p.ID.Hex())
	}
	for i := 0; i < 5; i++ {
		f.store.AddRecord(&photo.Photo{
			UserID:    primitive.NewObjectID().Hex(),
			MissionID: primitive.NewObjectID().Hex(),
			IsPublic:  false,
			CreatedAt: base.Add(time.Duration(25+i) * time.Minute),
		})
	}
	caller := primitive.NewObjectID().Hex()

	// First page: default limit of 20, newest first, private records
	// never appear no matter how new they are.
	recorder := f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/public", nil), caller)
	require.Equal(t, http.StatusOK, recorder.Code)
	var views []*photo.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	require.Len(t, views, 20)
	for i, view := range views {
		assert.True(t, view.IsPublic)
		assert.Equal(t, publicIDs[24-i], view.ID.Hex(), "page must be newest-first")
	}

	// Second page picks up the remaining five.
	recorder = f.do(t, httptest.NewRequest(http.MethodGet,
		"/v1/photos/public?limit=20&skip=20", nil), caller)
	require.Equal(t, http.StatusOK, recorder.Code)
	views = nil
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	require.Len(t, views, 5)
	for i, view := range views {
		assert.True(t, view.IsPublic)
		assert.Equal(t, publicIDs[4-i], view.ID.Hex())
	}
}

func TestListRecentOrdersByUpdatedAt(t *testing.T) {
	f := newAPIFixture()
	userID := primitive.NewObjectID().Hex()
	base := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)

	// The oldest photo was touched most recently, so recency order is
	// the reverse of creation order.
	oldest := &photo.Photo{
		UserID:    userID,
		MissionID: primitive.NewObjectID().Hex(),
		CreatedAt: base,
		UpdatedAt: base.Add(2 * time.Hour),
	}
	newest := &photo.Photo{
		UserID:    userID,
		MissionID: primitive.NewObjectID().Hex(),
		CreatedAt: base.Add(time.Hour),
		UpdatedAt: base.Add(time.Hour),
	}
	f.store.AddRecord(oldest)
	f.store.AddRecord(newest)

	recorder := f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/recent", nil), userID)
	require.Equal(t, http.StatusOK, recorder.Code)
	var views []*photo.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, oldest.ID.Hex(), views[0].ID.Hex(),
		"recency follows the last touch, not the upload date")
	assert.Equal(t, newest.ID.Hex(), views[1].ID.Hex())
}

func TestListPublicDegradesPerItem(t *testing.T) {
	f := newAPIFixture()
	good := f.uploadPhoto(t, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)
	bad := f.uploadPhoto(t, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)

	// Break signing for the second photo's blob only.
	record, err := f.store.FindByID(context.Background(), bad.ID.Hex())
	require.NoError(t, err)
	f.objects.SignFailKeys[record.ObjectKey] = true

	recorder := f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/public", nil),
		primitive.NewObjectID().Hex())
	require.Equal(t, http.StatusOK, recorder.Code)
	var views []*photo.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	require.Len(t, views, 2)

	urlsByID := map[string]*string{}
	for _, view := range views {
		urlsByID[view.ID.Hex()] = view.ImageURL
	}
	assert.NotNil(t, urlsByID[good.ID.Hex()])
	assert.Nil(t, urlsByID[bad.ID.Hex()], "failed signing yields a null URL, not an error")
}

func TestDetailVisibility(t *testing.T) {
	f := newAPIFixture()
	owner := primitive.NewObjectID().Hex()
	stranger := primitive.NewObjectID().Hex()
	private := f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), false)
	public := f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), true)

	// Owner sees both.
	recorder := f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/"+private.ID.Hex(), nil), owner)
	assert.Equal(t, http.StatusOK, recorder.Code)

	// Strangers see public photos, and get 404 for private ones; the
	// response must not reveal that the photo exists.
	recorder = f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/"+public.ID.Hex(), nil), stranger)
	assert.Equal(t, http.StatusOK, recorder.Code)
	recorder = f.do(t, httptest.NewRequest(http.MethodGet, "/v1/photos/"+private.ID.Hex(), nil), stranger)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = f.do(t, httptest.NewRequest(http.MethodGet,
		"/v1/photos/"+primitive.NewObjectID().Hex(), nil), owner)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUpdate(t *testing.T) {
	f := newAPIFixture()
	owner := primitive.NewObjectID().Hex()
	uploaded := f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), false)

	body := bytes.NewBufferString(`{"comment": "updated comment", "isPublic": true}`)
	req := httptest.NewRequest(http.MethodPatch, "/v1/photos/"+uploaded.ID.Hex(), body)
	recorder := f.do(t, req, owner)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	view := &photo.View{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), view))
	assert.Equal(t, "updated comment", view.Comment)
	assert.True(t, view.IsPublic)
}

func TestUpdateRejectsNonOwner(t *testing.T) {
	f := newAPIFixture()
	uploaded := f.uploadPhoto(t, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)

	body := bytes.NewBufferString(`{"comment": "vandalism"}`)
	req := httptest.NewRequest(http.MethodPatch, "/v1/photos/"+uploaded.ID.Hex(), body)
	recorder := f.do(t, req, primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, recorder.Code,
		"public photos are readable by anyone but writable only by the owner")
}

func TestShare(t *testing.T) {
	f := newAPIFixture()
	owner := primitive.NewObjectID().Hex()
	uploaded := f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), true)

	req := httptest.NewRequest(http.MethodPost, "/v1/photos/"+uploaded.ID.Hex()+"/share", nil)
	recorder := f.do(t, req, owner)
	require.Equal(t, http.StatusOK, recorder.Code)

	view := &photo.View{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), view))
	assert.True(t, view.IsShared)
}

func TestDelete(t *testing.T) {
	f := newAPIFixture()
	owner := primitive.NewObjectID().Hex()
	uploaded := f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), false)
	record, err := f.store.FindByID(context.Background(), uploaded.ID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/photos/"+uploaded.ID.Hex(), nil)
	recorder := f.do(t, req, owner)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, f.store.Records)
	assert.Contains(t, f.objects.RemovedKeys(), record.ObjectKey)
}

func TestDeleteSurvivesStorageFailure(t *testing.T) {
	f := newAPIFixture()
	owner := primitive.NewObjectID().Hex()
	uploaded := f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), false)
	f.objects.RemoveErr = fmt.Errorf("minio is unreachable")

	req := httptest.NewRequest(http.MethodDelete, "/v1/photos/"+uploaded.ID.Hex(), nil)
	recorder := f.do(t, req, owner)
	assert.Equal(t, http.StatusNoContent, recorder.Code,
		"a blob delete failure must not keep the record alive")
	assert.Empty(t, f.store.Records)
}

func TestDeleteMine(t *testing.T) {
	f := newAPIFixture()
	owner := primitive.NewObjectID().Hex()
	f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), false)
	f.uploadPhoto(t, owner, primitive.NewObjectID().Hex(), true)
	other := f.uploadPhoto(t, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)
	otherRecord, err := f.store.FindByID(context.Background(), other.ID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/photos/mine", nil)
	recorder := f.do(t, req, owner)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	// Other users' photos survive.
	require.Len(t, f.store.Records, 1)
	_, err = f.store.FindByID(context.Background(), otherRecord.ID.Hex())
	assert.NoError(t, err)

	// The owner's blobs go away in the background.
	assert.Eventually(t, func() bool {
		return len(f.objects.RemovedKeys()) == 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestMissionGalleryShowsOnlyPublicPhotos(t *testing.T) {
	f := newAPIFixture()
	missionID := primitive.NewObjectID().Hex()
	f.uploadPhoto(t, primitive.NewObjectID().Hex(), missionID, true)
	f.uploadPhoto(t, primitive.NewObjectID().Hex(), missionID, false)
	f.uploadPhoto(t, primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), true)

	req := httptest.NewRequest(http.MethodGet, "/v1/missions/"+missionID+"/photos", nil)
	recorder := f.do(t, req, primitive.NewObjectID().Hex())
	require.Equal(t, http.StatusOK, recorder.Code)

	var views []*photo.View
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, missionID, views[0].MissionID)
	assert.True(t, views[0].IsPublic)
}
