// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging ingests uploaded images using libvips: decode, EXIF
// auto-orientation, proportional downsampling, format-specific re-encoding,
// and persistence to a blob storage target under a timestamped path.
package imaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/davidbyttow/govips/v2/vips"

	"catalogd/internal/slug"
	"catalogd/internal/storage"
)

const (
	// jpegQuality is the JPEG re-encode quality.
	jpegQuality = 85

	// webpQuality is the WebP re-encode quality.
	webpQuality = 85

	// timestampLayout renders capture time as YYYY_MM_DD_HHMMSS. The layout
	// is part of the stored path contract and must not change.
	timestampLayout = "2006_01_02_150405"

	// fallbackBase names files whose original basename has no sluggable
	// characters.
	fallbackBase = "image"
)

// ErrInvalidImage is returned when an upload cannot be decoded or
// processed. Handlers surface it as a field-level validation failure
// without exposing internal detail.
var ErrInvalidImage = errors.New("the uploaded image is invalid or cannot be processed")

// Startup initialises the libvips library. Call once at application start.
// concurrency controls the number of libvips worker threads (0 = auto).
func Startup(concurrency int) {
	cfg := &vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024, // 50 MB
	}
	vips.LoggingSettings(nil, vips.LogLevelWarning)
	vips.Startup(cfg)
	slog.Info("libvips started", "version", vips.Version)
}

// Shutdown releases libvips resources. Call at application shutdown.
func Shutdown() {
	vips.Shutdown()
}

// Ingestor processes uploaded images and writes them to a storage target.
// The clock is injectable so path timestamps are deterministic in tests.
type Ingestor struct {
	target storage.Target
	now    func() time.Time
}

// NewIngestor returns an Ingestor writing to the given target.
func NewIngestor(target storage.Target) *Ingestor {
	return &Ingestor{target: target, now: time.Now}
}

// Ingest validates, orients, optionally downsamples, and re-encodes the
// uploaded image, then stores it at
//
//	{directory}/{slugified-basename}_{YYYY_MM_DD_HHMMSS}.{extension}
//
// maxWidth limits the output width in pixels; zero means no resize. Images
// narrower than maxWidth are never upscaled. The stored path is returned.
//
// Decode and processing failures are reported as ErrInvalidImage; storage
// failures are returned as-is.
func (ig *Ingestor) Ingest(ctx context.Context, data []byte, originalName, directory string, maxWidth int) (string, error) {
	ext := extension(originalName)

	encoded, ext, contentType, err := process(data, ext, maxWidth)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	directory = strings.Trim(directory, "/")
	if err := ig.target.MakeDirectory(ctx, directory); err != nil {
		return "", fmt.Errorf("ensure directory %s: %w", directory, err)
	}

	dst := storagePath(directory, baseName(originalName), ext, ig.now())
	if err := ig.target.Put(ctx, dst, encoded, contentType); err != nil {
		return "", fmt.Errorf("store image %s: %w", dst, err)
	}

	return dst, nil
}

// DeleteImage removes a previously stored image. Empty and missing paths
// are no-ops, and failures are logged rather than returned: image cleanup
// must never fail the caller's operation.
func (ig *Ingestor) DeleteImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	ok, err := ig.target.Exists(ctx, path)
	if err != nil {
		slog.Warn("stored image existence check failed", "path", path, "error", err)
		return
	}
	if !ok {
		return
	}
	if err := ig.target.Delete(ctx, path); err != nil {
		slog.Warn("stored image delete failed", "path", path, "error", err)
	}
}

// process decodes, orients, resizes, and re-encodes the image. It returns
// the encoded bytes, the effective extension (derived from the decoded
// format when the filename had none), and the content type.
func process(data []byte, ext string, maxWidth int) ([]byte, string, string, error) {
	var (
		img *vips.ImageRef
		err error
	)

	if maxWidth > 0 {
		// Probe original dimensions first so small images are never
		// upscaled.
		probe, perr := vips.NewImageFromBuffer(data)
		if perr != nil {
			return nil, "", "", fmt.Errorf("decode: %w", perr)
		}
		target := maxWidth
		if probe.Width() <= maxWidth {
			target = probe.Width()
		}
		probe.Close()

		img, err = vips.NewThumbnailFromBuffer(data, target, 0, vips.InterestingNone)
	} else {
		img, err = vips.NewImageFromBuffer(data)
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("decode: %w", err)
	}
	defer img.Close()

	// Normalize orientation from EXIF metadata.
	if err := img.AutoRotate(); err != nil {
		return nil, "", "", fmt.Errorf("autorotate: %w", err)
	}

	if ext == "" {
		ext = vips.ImageTypes[img.Format()]
	}

	encoded, err := export(img, ext)
	if err != nil {
		return nil, "", "", fmt.Errorf("encode %s: %w", ext, err)
	}

	return encoded, ext, contentType(ext), nil
}

// export re-encodes per the original extension: JPEG at quality 85, PNG
// lossless, WebP at quality 85. Unlisted extensions pass through the
// library's default encoding for the decoded format.
func export(img *vips.ImageRef, ext string) ([]byte, error) {
	switch ext {
	case "jpg", "jpeg":
		params := vips.NewJpegExportParams()
		params.Quality = jpegQuality
		buf, _, err := img.ExportJpeg(params)
		return buf, err
	case "png":
		buf, _, err := img.ExportPng(vips.NewPngExportParams())
		return buf, err
	case "webp":
		params := vips.NewWebpExportParams()
		params.Quality = webpQuality
		buf, _, err := img.ExportWebp(params)
		return buf, err
	default:
		buf, _, err := img.ExportNative()
		return buf, err
	}
}

// storagePath composes the stored object path. The shape
// {directory}/{base}_{YYYY_MM_DD_HHMMSS}.{ext} is a compatibility contract
// with existing stored files.
func storagePath(directory, base, ext string, at time.Time) string {
	return fmt.Sprintf("%s/%s_%s.%s", directory, base, at.Format(timestampLayout), ext)
}

// extension returns the lowercased filename extension without the dot.
func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// baseName slugifies the filename base for safe storage naming. Names with
// no sluggable characters fall back to a generic base.
func baseName(name string) string {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if s := slug.Generate(base); s != "" {
		return s
	}
	return fallbackBase
}

// contentType maps an extension to the MIME type sent to the storage
// target.
func contentType(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
