// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests. Tests are skipped when PostgreSQL is unavailable;
// uploads go to a throwaway local storage directory.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"catalogd/internal/database"
	"catalogd/internal/imaging"
	"catalogd/internal/lock"
	"catalogd/internal/storage"
	"catalogd/internal/store"
)

func TestMain(m *testing.M) {
	imaging.Startup(1)
	code := m.Run()
	imaging.Shutdown()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "catalogd")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "catalogd")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanCategories truncates the categories table between tests.
func cleanCategories(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := db.Exec("TRUNCATE categories CASCADE"); err != nil {
		t.Fatalf("clean categories: %v", err)
	}
}

// testEnv bundles the handler under test with its dependencies.
type testEnv struct {
	DB         *sql.DB
	Categories *store.CategoryStore
	Catalog    *Catalog
	StorageDir string
}

// newTestEnv creates a complete test environment. Images land in a
// t.TempDir-backed local storage target; slug locking runs with a nil
// Valkey client so the tests exercise the degraded path.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	cleanCategories(t, db)

	dir := t.TempDir()
	target, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatalf("storage.NewLocal: %v", err)
	}

	categories := store.NewCategoryStore(db)
	ingestor := imaging.NewIngestor(target)
	slugLock := lock.NewSlugLock(nil, lock.DefaultTTL)

	catalog := NewCatalog(categories, ingestor, slugLock, "categories", 1200)

	return &testEnv{
		DB:         db,
		Categories: categories,
		Catalog:    catalog,
		StorageDir: dir,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartBody builds a multipart form with the given fields and an
// optional image file part.
func multipartBody(t *testing.T, fields map[string]string, imageName string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, val := range fields {
		if err := mw.WriteField(key, val); err != nil {
			t.Fatalf("write field %q: %v", key, err)
		}
	}
	if imageName != "" {
		fw, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(imageData); err != nil {
			t.Fatalf("write image part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// postForm performs a multipart POST against the given handler.
func postForm(t *testing.T, handler http.HandlerFunc, target string, fields map[string]string, imageName string, imageData []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, fields, imageName, imageData)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// response mirrors the JSON envelope for decoding in tests.
type response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// decodeResponse unmarshals the recorded body into a response.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

// jpegFixture returns an encoded JPEG of the given dimensions.
func jpegFixture(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}
