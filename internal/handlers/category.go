// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"catalogd/internal/imaging"
	"catalogd/internal/lock"
	"catalogd/internal/markdown"
	"catalogd/internal/models"
	"catalogd/internal/slug"
	"catalogd/internal/store"
)

const (
	// maxUploadSize is the maximum allowed image upload size (10 MB).
	maxUploadSize = 10 << 20

	// maxCreateAttempts bounds the retry loop when a concurrent writer
	// claims the same slug between the uniqueness probe and the insert.
	maxCreateAttempts = 3
)

// Catalog groups the category backend handlers and their dependencies.
type Catalog struct {
	categories *store.CategoryStore
	ingestor   *imaging.Ingestor
	slugLock   *lock.SlugLock
	uploadDir  string
	maxWidth   int
}

// NewCatalog creates a new Catalog handler group. slugLock may be backed
// by a nil client when Valkey is unavailable; locking then degrades to
// the database unique constraint alone.
func NewCatalog(categories *store.CategoryStore, ingestor *imaging.Ingestor, slugLock *lock.SlugLock, uploadDir string, maxWidth int) *Catalog {
	return &Catalog{
		categories: categories,
		ingestor:   ingestor,
		slugLock:   slugLock,
		uploadDir:  uploadDir,
		maxWidth:   maxWidth,
	}
}

// categoryForm holds the raw form inputs for store and update requests.
type categoryForm struct {
	Title         string
	ParentID      string
	SortOrder     string
	Content       string
	MetaTitle     string
	MetaKeywords  string
	MetaDesc      string
	PublishStatus string

	imageName string
	imageData []byte

	// Populated by validate.
	sortOrder *int
}

// parseCategoryForm reads the multipart form, including the optional
// image file, into a categoryForm.
func parseCategoryForm(w http.ResponseWriter, r *http.Request) (*categoryForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		// Fall back to urlencoded bodies for requests without a file.
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
	}

	f := &categoryForm{
		Title:         r.FormValue("title"),
		ParentID:      strings.TrimSpace(r.FormValue("parent_id")),
		SortOrder:     strings.TrimSpace(r.FormValue("sort_order")),
		Content:       r.FormValue("content"),
		MetaTitle:     r.FormValue("meta_title"),
		MetaKeywords:  r.FormValue("meta_keywords"),
		MetaDesc:      r.FormValue("meta_desc"),
		PublishStatus: r.FormValue("publish_status"),
	}

	if r.MultipartForm != nil {
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return nil, err
			}
			f.imageName = header.Filename
			f.imageData = data
		}
	}

	return f, nil
}

// boolField interprets checkbox-style form values.
func boolField(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// optional returns nil for empty strings so blank form fields land as
// NULL instead of empty text.
func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// List returns all categories ordered by sort_order. With ?tree=1 the
// payload is nested root-first instead of flat.
func (h *Catalog) List(w http.ResponseWriter, r *http.Request) {
	var (
		cats []models.Category
		err  error
	)
	if r.URL.Query().Get("tree") == "1" {
		cats, err = h.categories.Tree()
	} else {
		cats, err = h.categories.List()
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	if cats == nil {
		cats = []models.Category{}
	}
	respondOK(w, http.StatusOK, "Category list fetched successfully.", cats)
}

// Detail returns a single category by ID together with its rendered
// content.
func (h *Catalog) Detail(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.findByParam(w, r)
	if !ok {
		return
	}
	h.respondCategory(w, r, cat)
}

// Edit returns the same payload as Detail; it backs the edit-form
// fetch.
func (h *Catalog) Edit(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.findByParam(w, r)
	if !ok {
		return
	}
	h.respondCategory(w, r, cat)
}

// respondCategory writes the single-category payload: the record plus
// its Markdown content rendered to HTML.
func (h *Catalog) respondCategory(w http.ResponseWriter, r *http.Request, cat *models.Category) {
	contentHTML := ""
	if cat.Content != nil {
		html, err := markdown.ToHTML(*cat.Content)
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		contentHTML = html
	}

	respondOK(w, http.StatusOK, "Category details fetched successfully.", map[string]any{
		"category":     cat,
		"content_html": contentHTML,
	})
}

// Store creates a new category. The slug derives from the title; when
// the obvious slug is taken a numeric suffix is appended. A short-lived
// Valkey lock on the base slug narrows the probe-to-insert window, and
// the database unique constraint backstops whatever slips through.
func (h *Catalog) Store(w http.ResponseWriter, r *http.Request) {
	form, err := parseCategoryForm(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	errs := form.validate()
	parentID, perr := h.resolveParent(form.ParentID, nil)
	if perr != nil {
		if errors.Is(perr, errBadParent) {
			errs.add("parent_id", "The selected parent id is invalid.")
		} else {
			respondInternal(w, r, perr)
			return
		}
	}
	if errs.any() {
		respondValidation(w, errs)
		return
	}

	title := strings.TrimSpace(form.Title)
	base := slug.Generate(title)
	release := h.slugLock.Acquire(r.Context(), base)
	defer release()

	cat := &models.Category{
		ParentID:      parentID,
		Title:         title,
		Image:         nil,
		Content:       optional(form.Content),
		MetaTitle:     optional(form.MetaTitle),
		MetaKeywords:  optional(form.MetaKeywords),
		MetaDesc:      optional(form.MetaDesc),
		PublishStatus: boolField(form.PublishStatus),
	}

	if form.sortOrder != nil {
		cat.SortOrder = *form.sortOrder
	} else {
		next, err := h.categories.NextSortOrder(parentID)
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		cat.SortOrder = next
	}

	if len(form.imageData) > 0 {
		path, err := h.ingestor.Ingest(r.Context(), form.imageData, form.imageName, h.uploadDir, h.maxWidth)
		if err != nil {
			if errors.Is(err, imaging.ErrInvalidImage) {
				respondValidation(w, fieldErrors{"image": {"The uploaded image is invalid or cannot be processed."}})
				return
			}
			respondInternal(w, r, err)
			return
		}
		cat.Image = &path
	}

	created, err := h.createWithRetry(cat, title)
	if err != nil {
		// The stored image is orphaned if the insert never landed.
		if cat.Image != nil {
			h.ingestor.DeleteImage(r.Context(), *cat.Image)
		}
		respondInternal(w, r, err)
		return
	}

	respondOK(w, http.StatusCreated, "Category created successfully.", created)
}

// createWithRetry inserts the category, regenerating the slug and trying
// again if a concurrent writer claimed it first.
func (h *Catalog) createWithRetry(cat *models.Category, title string) (*models.Category, error) {
	var lastErr error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		uniqueSlug, err := slug.Unique(title, h.categories.SlugExists)
		if err != nil {
			return nil, err
		}
		cat.Slug = uniqueSlug

		created, err := h.categories.Create(cat)
		if err == nil {
			return created, nil
		}
		if !store.IsUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Update modifies an existing category. The slug is regenerated only
// when the title actually changed, so stable URLs survive edits to
// content and metadata. A replacement image removes the old file first.
func (h *Catalog) Update(w http.ResponseWriter, r *http.Request) {
	cat, ok := h.findByParam(w, r)
	if !ok {
		return
	}

	form, err := parseCategoryForm(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	errs := form.validate()
	parentID, perr := h.resolveParent(form.ParentID, &cat.ID)
	if perr != nil {
		if errors.Is(perr, errBadParent) {
			errs.add("parent_id", "The selected parent id is invalid.")
		} else {
			respondInternal(w, r, perr)
			return
		}
	}
	if errs.any() {
		respondValidation(w, errs)
		return
	}

	title := strings.TrimSpace(form.Title)
	titleChanged := title != cat.Title

	if titleChanged {
		base := slug.Generate(title)
		release := h.slugLock.Acquire(r.Context(), base)
		defer release()

		uniqueSlug, err := slug.Unique(title, func(s string) (bool, error) {
			if s == cat.Slug {
				// The category keeps its own slug without a suffix.
				return false, nil
			}
			return h.categories.SlugExists(s)
		})
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		cat.Slug = uniqueSlug
	}

	cat.ParentID = parentID
	cat.Title = title
	cat.Content = optional(form.Content)
	cat.MetaTitle = optional(form.MetaTitle)
	cat.MetaKeywords = optional(form.MetaKeywords)
	cat.MetaDesc = optional(form.MetaDesc)
	cat.PublishStatus = boolField(form.PublishStatus)
	if form.sortOrder != nil {
		cat.SortOrder = *form.sortOrder
	}

	if len(form.imageData) > 0 {
		oldImage := cat.Image
		path, err := h.ingestor.Ingest(r.Context(), form.imageData, form.imageName, h.uploadDir, h.maxWidth)
		if err != nil {
			if errors.Is(err, imaging.ErrInvalidImage) {
				respondValidation(w, fieldErrors{"image": {"The uploaded image is invalid or cannot be processed."}})
				return
			}
			respondInternal(w, r, err)
			return
		}
		cat.Image = &path
		if oldImage != nil {
			h.ingestor.DeleteImage(r.Context(), *oldImage)
		}
	}

	updated, err := h.categories.Update(cat)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	if updated == nil {
		respondNotFound(w)
		return
	}

	respondOK(w, http.StatusOK, "Category updated successfully.", updated)
}

// Delete removes a category and its stored image. Children are
// re-parented to the root by the database.
func (h *Catalog) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w)
		return
	}

	deleted, err := h.categories.Delete(id)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	if deleted == nil {
		respondNotFound(w)
		return
	}

	if deleted.Image != nil {
		h.ingestor.DeleteImage(r.Context(), *deleted.Image)
	}

	respondOK(w, http.StatusOK, "Category deleted successfully.", nil)
}

// findByParam resolves the {id} URL parameter to a category, writing the
// 404 envelope itself when the ID is malformed or unknown.
func (h *Catalog) findByParam(w http.ResponseWriter, r *http.Request) (*models.Category, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondNotFound(w)
		return nil, false
	}

	cat, err := h.categories.FindByID(id)
	if err != nil {
		respondInternal(w, r, err)
		return nil, false
	}
	if cat == nil {
		respondNotFound(w)
		return nil, false
	}
	return cat, true
}

// errBadParent marks a parent_id that fails validation rather than a
// database error.
var errBadParent = errors.New("invalid parent")

// resolveParent validates the parent_id form value: it must reference an
// existing category, and when updating, it must not be the category
// itself or one of its descendants.
func (h *Catalog) resolveParent(raw string, selfID *uuid.UUID) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}

	parentID, err := uuid.Parse(raw)
	if err != nil {
		// Reported as a field error by validate already.
		return nil, nil
	}

	parent, err := h.categories.FindByID(parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, errBadParent
	}

	if selfID != nil {
		cyclic, err := h.categories.IsDescendant(*selfID, parentID)
		if err != nil {
			return nil, err
		}
		if cyclic {
			return nil, errBadParent
		}
	}

	return &parentID, nil
}
