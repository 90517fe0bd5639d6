// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// dirMode is the permission mode for created upload directories.
	dirMode = 0o775

	// fileMode is the target permission for stored files. Applying it is
	// best-effort; some filesystems and umasks won't allow it.
	fileMode = 0o644
)

// Local stores objects on the local filesystem under a root directory.
// Paths are slash-separated keys relative to the root, typically served
// directly by a web server or reverse proxy.
type Local struct {
	root string
}

// NewLocal returns a filesystem-backed target rooted at dir. The root is
// created if it does not exist.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("storage root %s: %w", dir, err)
	}
	return &Local{root: dir}, nil
}

// abs converts a storage key into an absolute filesystem path.
func (l *Local) abs(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Exists reports whether a file is present at path.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(l.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}

// MakeDirectory creates the directory and any missing parents with mode
// 0775. MkdirAll succeeds when the directory already exists, so concurrent
// callers racing on the same directory are safe.
func (l *Local) MakeDirectory(_ context.Context, path string) error {
	if err := os.MkdirAll(l.abs(path), dirMode); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

// Put writes data to path, replacing any existing file. File permissions
// are tightened to 0644 afterwards; a chmod failure is non-fatal and only
// logged at debug level.
func (l *Local) Put(_ context.Context, path string, data []byte, _ string) error {
	dst := l.abs(path)
	if err := os.WriteFile(dst, data, fileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(dst, fileMode); err != nil {
		slog.Debug("chmod failed on stored file", "path", path, "error", err)
	}
	return nil
}

// Delete removes the file at path. A missing file is not an error.
func (l *Local) Delete(_ context.Context, path string) error {
	if err := os.Remove(l.abs(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
