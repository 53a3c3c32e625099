package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/ingest"
	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/models/photo"
	"github.com/snapmission/photo-services/network"
)

// Handler owns the HTTP surface of the photo pipeline. Reads go
// through the record store and resolver; the upload goes through the
// orchestrator.
type Handler struct {
	Uploader *ingest.Uploader
	Resolver *ingest.Resolver
	Store    network.PhotoStore
	Objects  network.ObjectStore
	Logger   *logging.Logger
}

func NewHandler(ctx *common.Context) *Handler {
	return &Handler{
		Uploader: ingest.NewUploader(ctx),
		Resolver: ingest.NewResolver(ctx),
		Store:    ctx.PhotoStore,
		Objects:  ctx.ObjectStore,
		Logger:   ctx.Logger,
	}
}

// Upload handles POST /v1/photos. Multipart form: file (required),
// missionId (required), comment and isPublic (optional).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	maxSize := h.Uploader.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "field 'file' is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file data")
		return
	}

	isPublic := false
	if v := r.FormValue("isPublic"); v != "" {
		isPublic, _ = strconv.ParseBool(v)
	}
	req := &ingest.UploadRequest{
		UserID:       CallerID(r.Context()),
		MissionID:    r.FormValue("missionId"),
		Data:         data,
		DeclaredType: header.Header.Get("Content-Type"),
		Comment:      r.FormValue("comment"),
		IsPublic:     isPublic,
	}

	p, replaced, err := h.Uploader.Upload(r.Context(), req)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	result := &photo.UploadResult{
		View:     *h.Resolver.Resolve(r.Context(), p),
		Replaced: replaced,
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListMine handles GET /v1/photos/mine: all of the caller's photos,
// newest first.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	photos, err := h.Store.ListByUser(r.Context(), CallerID(r.Context()))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.ResolveAll(r.Context(), photos))
}

// ListRecent handles GET /v1/photos/recent?limit=N.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	photos, err := h.Store.ListRecent(r.Context(), CallerID(r.Context()), limit)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.ResolveAll(r.Context(), photos))
}

// ListPublic handles GET /v1/photos/public?limit=N&skip=M.
func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	photos, err := h.Store.ListPublic(r.Context(), limit, skip)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.ResolveAll(r.Context(), photos))
}

// ListByMission handles GET /v1/missions/{missionID}/photos. Only
// public photos appear in a mission's gallery.
func (h *Handler) ListByMission(w http.ResponseWriter, r *http.Request) {
	missionID := chi.URLParam(r, "missionID")
	photos, err := h.Store.ListPublicByMission(r.Context(), missionID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.ResolveAll(r.Context(), photos))
}

// Detail handles GET /v1/photos/{photoID}. Non-public photos are
// visible only to their owner; everyone else gets the same 404 a
// nonexistent id would.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.Resolve(r.Context(), p))
}

type updateRequest struct {
	Comment  *string `json:"comment"`
	IsPublic *bool   `json:"isPublic"`
}

// Update handles PATCH /v1/photos/{photoID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "could not parse request body")
		return
	}
	if req.Comment != nil && len(*req.Comment) > constants.MaxCommentLength {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("comment exceeds %d characters", constants.MaxCommentLength))
		return
	}
	update := &photo.Update{Comment: req.Comment, IsPublic: req.IsPublic}
	if update.IsEmpty() {
		writeJSON(w, http.StatusOK, h.Resolver.Resolve(r.Context(), p))
		return
	}
	updated, err := h.Store.UpdateFields(r.Context(), p.ID.Hex(), update)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.Resolve(r.Context(), updated))
}

// Share handles POST /v1/photos/{photoID}/share, marking that the
// photo was shared externally.
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	updated, err := h.Store.MarkShared(r.Context(), p.ID.Hex())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Resolver.Resolve(r.Context(), updated))
}

// Delete handles DELETE /v1/photos/{photoID}. The backing blob is
// deleted first, best-effort; a storage failure there does not keep
// the record alive.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	if p.ObjectKey != "" {
		ctx, cancel := context30s(r)
		err := h.Objects.Remove(ctx, p.ObjectKey)
		cancel()
		if err != nil {
			h.Logger.Warningf("Best-effort delete of blob %s failed: %v", p.ObjectKey, err)
		}
	}
	if err := h.Store.Delete(r.Context(), p.ID.Hex()); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMine handles DELETE /v1/photos/mine, removing every photo the
// caller owns. The session service calls this during account deletion.
// Blob cleanup is best-effort and detached; the records are gone
// regardless.
func (h *Handler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Store.DeleteByUser(r.Context(), CallerID(r.Context()))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		for _, key := range keys {
			if err := h.Objects.Remove(ctx, key); err != nil {
				h.Logger.Warningf("Best-effort delete of blob %s failed: %v", key, err)
			}
		}
	}()
	w.WriteHeader(http.StatusNoContent)
}

// loadOwned fetches the photo and enforces that the caller owns it.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*photo.Photo, bool) {
	p, err := h.Store.FindByID(r.Context(), chi.URLParam(r, "photoID"))
	if err != nil {
		writeMappedError(w, err)
		return nil, false
	}
	if p.UserID != CallerID(r.Context()) {
		writeError(w, http.StatusNotFound, "photo not found")
		return nil, false
	}
	return p, true
}

// loadVisible fetches the photo and enforces read visibility: public,
// or owned by the caller.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (*photo.Photo, bool) {
	p, err := h.Store.FindByID(r.Context(), chi.URLParam(r, "photoID"))
	if err != nil {
		writeMappedError(w, err)
		return nil, false
	}
	if !p.IsPublic && p.UserID != CallerID(r.Context()) {
		writeError(w, http.StatusNotFound, "photo not found")
		return nil, false
	}
	return p, true
}

func context30s(r *http.Request) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(r.Context(), 30*time.Second)
}
