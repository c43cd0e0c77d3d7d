// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"marketsite/internal/cache"
	"marketsite/internal/content"
	"marketsite/internal/imaging"
	"marketsite/internal/markdown"
	"marketsite/internal/metrics"
	"marketsite/internal/middleware"
	"marketsite/internal/models"
	"marketsite/internal/session"
	"marketsite/internal/storage"
	"marketsite/internal/store"
	"marketsite/internal/validation"
)

const (
	// maxSubmissionSize caps a multipart submission including images.
	maxSubmissionSize = 32 << 20

	// maxImageSize caps a single block image.
	maxImageSize = 10 << 20
)

// DocumentRepo persists posts and stories.
type DocumentRepo interface {
	Create(ctx context.Context, d *models.Document) (*models.Document, error)
	Replace(ctx context.Context, d *models.Document) (*models.Document, error)
	FindBySlug(ctx context.Context, typ content.DocType, slug string) (*models.Document, error)
	List(ctx context.Context, typ content.DocType, limit, offset int) ([]models.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UniqueSlug(ctx context.Context, typ content.DocType, base string, exclude uuid.UUID) (string, error)
}

// MediaRepo records uploaded block images.
type MediaRepo interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	AttachToDocument(ctx context.Context, documentID uuid.UUID, ids []uuid.UUID) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Media, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) ([]models.Media, error)
}

// ImageStore is the object storage block images are written to.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, keys ...string) error
	FileURL(key string) string
	Bucket() string
}

// Documents serves the posts and stories API.
type Documents struct {
	docs      DocumentRepo
	media     MediaRepo
	images    ImageStore
	cache     *cache.DocumentCache
	validator *validation.Validator
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewDocuments creates the documents handler. images and docCache may be
// nil: without storage new image uploads are refused, without a cache
// every read hits the database.
func NewDocuments(docs DocumentRepo, media MediaRepo, images ImageStore, docCache *cache.DocumentCache, v *validation.Validator, m *metrics.Metrics) *Documents {
	if v == nil {
		v = validation.New()
	}
	return &Documents{
		docs:      docs,
		media:     media,
		images:    images,
		cache:     docCache,
		validator: v,
		metrics:   m,
		now:       time.Now,
	}
}

// docType maps the {kind} URL segment to a document type.
func docType(r *http.Request) (content.DocType, bool) {
	switch chi.URLParam(r, "kind") {
	case "posts":
		return content.DocTypePost, true
	case "stories":
		return content.DocTypeStory, true
	default:
		return "", false
	}
}

// List returns one page of documents, newest first.
func (h *Documents) List(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	limit, offset, errMsg := pageParams(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	key := cache.ListKey(string(typ), limit, offset)
	if body, ok := h.cached(r.Context(), key); ok {
		writeCached(w, "application/json", body)
		return
	}

	docs, err := h.docs.List(r.Context(), typ, limit, offset)
	if err != nil {
		serverError(w, "list documents failed", err, "type", typ)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	body, err := json.Marshal(docs)
	if err != nil {
		serverError(w, "encode documents failed", err)
		return
	}
	h.store(r.Context(), key, body)
	writeCached(w, "application/json", body)
}

// Get returns one document as JSON.
func (h *Documents) Get(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	docSlug := chi.URLParam(r, "slug")

	key := cache.DocumentKey(string(typ), docSlug)
	if body, ok := h.cached(r.Context(), key); ok {
		writeCached(w, "application/json", body)
		return
	}

	doc, err := h.docs.FindBySlug(r.Context(), typ, docSlug)
	if err != nil {
		serverError(w, "find document failed", err, "slug", docSlug)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "Document not found.")
		return
	}

	body, err := json.Marshal(doc)
	if err != nil {
		serverError(w, "encode document failed", err)
		return
	}
	h.store(r.Context(), key, body)
	writeCached(w, "application/json", body)
}

// HTML returns the rendered body of one document.
func (h *Documents) HTML(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	docSlug := chi.URLParam(r, "slug")

	key := cache.HTMLKey(string(typ), docSlug)
	if body, ok := h.cached(r.Context(), key); ok {
		writeCached(w, "text/html; charset=utf-8", body)
		return
	}

	doc, err := h.docs.FindBySlug(r.Context(), typ, docSlug)
	if err != nil {
		serverError(w, "find document failed", err, "slug", docSlug)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "Document not found.")
		return
	}

	rendered, err := markdown.RenderBlocks(doc.Blocks)
	if err != nil {
		serverError(w, "render document failed", err, "slug", docSlug)
		return
	}
	h.store(r.Context(), key, []byte(rendered))
	writeCached(w, "text/html; charset=utf-8", []byte(rendered))
}

// Create stores a new post or story from a multipart submission.
func (h *Documents) Create(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	sess := middleware.SessionFromCtx(r.Context())

	sub, files, ok := h.readSubmission(w, r, typ)
	if !ok {
		return
	}
	defer files.RemoveAll()

	base := baseSlug(sub)
	docSlug, err := h.docs.UniqueSlug(r.Context(), typ, base, uuid.Nil)
	if err != nil {
		h.fail(w, typ, "resolve slug failed", err)
		return
	}

	uploaded, err := h.uploadImages(r.Context(), sub, sess)
	if err != nil {
		h.fail(w, typ, "upload block images failed", err)
		return
	}

	doc := models.DocumentFromForm(&sub.Form)
	doc.Slug = docSlug
	if sess != nil {
		doc.OwnerID = &sess.UserID
	}

	created, err := h.docs.Create(r.Context(), doc)
	if err != nil {
		h.discard(r.Context(), uploaded)
		if errors.Is(err, store.ErrSlugTaken) {
			h.reject(w, typ, http.StatusConflict, "That slug is already in use. Please try again.")
			return
		}
		h.fail(w, typ, "create document failed", err)
		return
	}

	h.attach(r.Context(), created.ID, uploaded)
	h.invalidate(r.Context(), typ, created.Slug)
	h.count(typ, "created")

	slog.Info("document created", "type", typ, "slug", created.Slug, "images", len(uploaded))
	writeJSON(w, http.StatusCreated, created.Record())
}

// Replace overwrites the document stored under {slug}. Only its owner or
// an admin may replace it.
func (h *Documents) Replace(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	sess := middleware.SessionFromCtx(r.Context())

	existing, ok := h.findEditable(w, r, typ, sess)
	if !ok {
		return
	}

	sub, files, ok := h.readSubmission(w, r, typ)
	if !ok {
		return
	}
	defer files.RemoveAll()

	base := baseSlug(sub)
	docSlug, err := h.docs.UniqueSlug(r.Context(), typ, base, existing.ID)
	if err != nil {
		h.fail(w, typ, "resolve slug failed", err)
		return
	}

	uploaded, err := h.uploadImages(r.Context(), sub, sess)
	if err != nil {
		h.fail(w, typ, "upload block images failed", err)
		return
	}

	doc := models.DocumentFromForm(&sub.Form)
	doc.ID = existing.ID
	doc.Slug = docSlug

	updated, err := h.docs.Replace(r.Context(), doc)
	if err != nil || updated == nil {
		h.discard(r.Context(), uploaded)
		switch {
		case errors.Is(err, store.ErrSlugTaken):
			h.reject(w, typ, http.StatusConflict, "That slug is already in use. Please try again.")
		case err == nil:
			h.reject(w, typ, http.StatusNotFound, "Document not found.")
		default:
			h.fail(w, typ, "replace document failed", err)
		}
		return
	}

	h.attach(r.Context(), updated.ID, uploaded)
	h.invalidate(r.Context(), typ, existing.Slug)
	if updated.Slug != existing.Slug {
		h.invalidate(r.Context(), typ, updated.Slug)
	}
	h.count(typ, "replaced")

	slog.Info("document replaced", "type", typ, "slug", updated.Slug, "previous_slug", existing.Slug)
	writeJSON(w, http.StatusOK, updated.Record())
}

// Media lists the images uploaded for a document, oldest first. Only the
// owner or an admin may see them, since the list includes images no
// longer used by any block.
func (h *Documents) Media(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	existing, ok := h.findEditable(w, r, typ, middleware.SessionFromCtx(r.Context()))
	if !ok {
		return
	}

	items, err := h.media.ListByDocument(r.Context(), existing.ID)
	if err != nil {
		serverError(w, "list document media failed", err, "slug", existing.Slug)
		return
	}
	if items == nil {
		items = []models.Media{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Delete removes a document along with its stored images.
func (h *Documents) Delete(w http.ResponseWriter, r *http.Request) {
	typ, ok := docType(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}
	sess := middleware.SessionFromCtx(r.Context())

	existing, ok := h.findEditable(w, r, typ, sess)
	if !ok {
		return
	}

	removed, err := h.media.DeleteByDocument(r.Context(), existing.ID)
	if err != nil {
		serverError(w, "delete document media failed", err, "slug", existing.Slug)
		return
	}
	if err := h.docs.Delete(r.Context(), existing.ID); err != nil {
		serverError(w, "delete document failed", err, "slug", existing.Slug)
		return
	}

	for _, m := range removed {
		h.deleteObjects(r.Context(), m.ObjectKeys())
	}
	h.invalidate(r.Context(), typ, existing.Slug)

	slog.Info("document deleted", "type", typ, "slug", existing.Slug, "images", len(removed))
	w.WriteHeader(http.StatusNoContent)
}

// findEditable loads the document named by {slug} and checks that the
// session may change it. It writes the error response itself.
func (h *Documents) findEditable(w http.ResponseWriter, r *http.Request, typ content.DocType, sess *session.Data) (*models.Document, bool) {
	docSlug := chi.URLParam(r, "slug")
	existing, err := h.docs.FindBySlug(r.Context(), typ, docSlug)
	if err != nil {
		serverError(w, "find document failed", err, "slug", docSlug)
		return nil, false
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Document not found.")
		return nil, false
	}
	if sess == nil || (!sess.IsAdmin() && !existing.OwnedBy(sess.UserID)) {
		writeError(w, http.StatusForbidden, "You can only change your own posts and stories.")
		return nil, false
	}
	return existing, true
}

// readSubmission parses and validates a multipart submission. Image
// blocks whose file part arrived get it attached so validation sees it.
// On failure it writes the error response itself.
func (h *Documents) readSubmission(w http.ResponseWriter, r *http.Request, typ content.DocType) (*content.Submission, *multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionSize)
	if err := r.ParseMultipartForm(maxSubmissionSize); err != nil {
		h.reject(w, typ, http.StatusBadRequest, "Could not read the submission. Images may be too large.")
		return nil, nil, false
	}
	form := r.MultipartForm

	sub, err := content.DecodeFields(form.Value)
	if err != nil {
		form.RemoveAll()
		h.reject(w, typ, http.StatusBadRequest, "Could not read the submission.")
		return nil, nil, false
	}

	if sub.Form.Type == "" {
		sub.Form.Type = typ
	}
	if sub.Form.Type != typ {
		form.RemoveAll()
		h.reject(w, typ, http.StatusBadRequest, fmt.Sprintf("This endpoint only accepts %ss.", typ))
		return nil, nil, false
	}

	if msg := attachFiles(sub, form.File); msg != "" {
		form.RemoveAll()
		h.reject(w, typ, http.StatusBadRequest, msg)
		return nil, nil, false
	}

	if err := sub.Form.Validate(h.validator); err != nil {
		form.RemoveAll()
		h.reject(w, typ, http.StatusUnprocessableEntity, content.UserMessage(err))
		return nil, nil, false
	}

	return sub, form, true
}

// attachFiles reads the file part named by each image placeholder into its
// block. Returns a user-facing message on the first problem.
func attachFiles(sub *content.Submission, files map[string][]*multipart.FileHeader) string {
	for i, key := range sub.ImageKeys {
		img, ok := sub.Form.Blocks[i].(*content.Image)
		if !ok {
			continue
		}
		headers := files[key]
		if len(headers) == 0 {
			return fmt.Sprintf("The image for block %d did not arrive. Please choose it again.", i+1)
		}
		fh := headers[0]

		ct := fh.Header.Get("Content-Type")
		if !imaging.Allowed(ct) {
			return fmt.Sprintf("Image block %d must be a JPEG, PNG, GIF, WebP or SVG file.", i+1)
		}
		if fh.Size > maxImageSize {
			return fmt.Sprintf("The image for block %d is larger than 10 MB.", i+1)
		}

		f, err := fh.Open()
		if err != nil {
			return fmt.Sprintf("The image for block %d could not be read.", i+1)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fmt.Sprintf("The image for block %d could not be read.", i+1)
		}

		img.File = &content.Attachment{Filename: fh.Filename, ContentType: ct, Data: data}
		img.ExistingURL = ""
	}
	return ""
}

// uploadImages stores every attached image, replacing the attachment with
// its public URL. Already-stored images are left as they are.
func (h *Documents) uploadImages(ctx context.Context, sub *content.Submission, sess *session.Data) ([]models.Media, error) {
	var uploaded []models.Media
	for _, b := range sub.Form.Blocks {
		img, ok := b.(*content.Image)
		if !ok || img.File == nil {
			continue
		}
		if h.images == nil {
			h.discard(ctx, uploaded)
			return nil, errors.New("object storage is not configured")
		}

		m, err := h.uploadImage(ctx, sub.Form.Type, img.File, sess)
		if err != nil {
			h.discard(ctx, uploaded)
			return nil, err
		}
		img.ExistingURL = m.URL
		img.File = nil
		uploaded = append(uploaded, *m)
	}
	return uploaded, nil
}

func (h *Documents) uploadImage(ctx context.Context, typ content.DocType, file *content.Attachment, sess *session.Data) (*models.Media, error) {
	now := h.now()
	key := storage.ContentKey(string(typ), now, file.Filename)
	if path.Ext(key) == "" {
		key += imaging.Extension(file.ContentType)
	}

	if err := h.images.Upload(ctx, key, file.ContentType, bytes.NewReader(file.Data), int64(len(file.Data))); err != nil {
		return nil, err
	}

	var thumbKey *string
	thumb, err := imaging.Thumbnail(file.Data, file.ContentType, imaging.ThumbMaxWidth)
	if err != nil {
		slog.Warn("thumbnail generation failed", "error", err, "key", key)
	} else if thumb != nil {
		tk := storage.ThumbKey(key)
		if err := h.images.Upload(ctx, tk, "image/jpeg", bytes.NewReader(thumb), int64(len(thumb))); err != nil {
			slog.Warn("thumbnail upload failed", "error", err, "key", tk)
		} else {
			thumbKey = &tk
		}
	}

	m := &models.Media{
		OriginalName: file.Filename,
		ContentType:  file.ContentType,
		SizeBytes:    int64(len(file.Data)),
		Bucket:       h.images.Bucket(),
		S3Key:        key,
		ThumbS3Key:   thumbKey,
		URL:          h.images.FileURL(key),
	}
	if sess != nil {
		m.UploaderID = &sess.UserID
	}

	created, err := h.media.Create(ctx, m)
	if err != nil {
		h.deleteObjects(ctx, m.ObjectKeys())
		return nil, fmt.Errorf("record media: %w", err)
	}

	if h.metrics != nil {
		h.metrics.ImageUploads.Inc()
	}
	return created, nil
}

// attach links freshly uploaded media to the stored document. Failure
// only loses the cleanup link, so it is logged and not returned.
func (h *Documents) attach(ctx context.Context, docID uuid.UUID, uploaded []models.Media) {
	if len(uploaded) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(uploaded))
	for i, m := range uploaded {
		ids[i] = m.ID
	}
	if err := h.media.AttachToDocument(ctx, docID, ids); err != nil {
		slog.Warn("attach media to document failed", "error", err, "document_id", docID)
	}
}

// discard removes objects uploaded for a submission that was not stored.
func (h *Documents) discard(ctx context.Context, uploaded []models.Media) {
	for _, m := range uploaded {
		h.deleteObjects(ctx, m.ObjectKeys())
	}
}

func (h *Documents) deleteObjects(ctx context.Context, keys []string) {
	if h.images == nil || len(keys) == 0 {
		return
	}
	if err := h.images.Delete(ctx, keys...); err != nil {
		slog.Warn("s3 delete failed", "error", err, "keys", keys)
	}
}

func (h *Documents) cached(ctx context.Context, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.Get(ctx, key)
}

func (h *Documents) store(ctx context.Context, key string, body []byte) {
	if h.cache != nil {
		h.cache.Set(ctx, key, body)
	}
}

func (h *Documents) invalidate(ctx context.Context, typ content.DocType, docSlug string) {
	if h.cache != nil {
		h.cache.Invalidate(ctx, string(typ), docSlug)
	}
}

// reject writes a client error and counts the submission as rejected.
func (h *Documents) reject(w http.ResponseWriter, typ content.DocType, status int, msg string) {
	h.count(typ, "rejected")
	writeError(w, status, msg)
}

// fail logs err and counts the submission as failed.
func (h *Documents) fail(w http.ResponseWriter, typ content.DocType, msg string, err error) {
	h.count(typ, "error")
	serverError(w, msg, err, "type", typ)
}

func (h *Documents) count(typ content.DocType, outcome string) {
	if h.metrics != nil {
		h.metrics.Submissions.WithLabelValues(string(typ), outcome).Inc()
	}
}

// baseSlug is the slug a submission asks for, falling back to the
// document type when nothing usable is left after normalising.
func baseSlug(sub *content.Submission) string {
	if s := content.AdvisorySlug(&sub.Form); s != "" {
		return s
	}
	return string(sub.Form.Type)
}

// writeCached writes a pre-encoded body.
func writeCached(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
