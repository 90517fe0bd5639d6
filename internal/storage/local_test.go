// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l
}

func TestLocal_PutExistsDelete(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	if err := l.MakeDirectory(ctx, "categories"); err != nil {
		t.Fatalf("MakeDirectory: %v", err)
	}

	path := "categories/shoes_2026_02_25_101500.jpg"
	if err := l.Put(ctx, path, []byte("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := l.Exists(ctx, path)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatalf("Exists(%q) = false after Put", path)
	}

	data, err := os.ReadFile(filepath.Join(l.root, "categories", "shoes_2026_02_25_101500.jpg"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("stored content = %q, want %q", data, "jpeg-bytes")
	}

	if err := l.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = l.Exists(ctx, path)
	if err != nil {
		t.Fatalf("Exists after delete: %v", err)
	}
	if ok {
		t.Errorf("Exists(%q) = true after Delete", path)
	}
}

func TestLocal_DeleteMissingIsNoOp(t *testing.T) {
	l := newLocal(t)

	if err := l.Delete(context.Background(), "categories/never-stored.png"); err != nil {
		t.Errorf("Delete of missing path returned error: %v", err)
	}
}

func TestLocal_ExistsMissing(t *testing.T) {
	l := newLocal(t)

	ok, err := l.Exists(context.Background(), "categories/nope.jpg")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists reported true for a missing path")
	}
}

func TestLocal_MakeDirectoryIdempotent(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.MakeDirectory(ctx, "categories/nested/deep"); err != nil {
			t.Fatalf("MakeDirectory attempt %d: %v", i+1, err)
		}
	}
}

func TestLocal_DirectoryMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits not applicable")
	}

	l := newLocal(t)
	if err := l.MakeDirectory(context.Background(), "categories"); err != nil {
		t.Fatalf("MakeDirectory: %v", err)
	}

	info, err := os.Stat(filepath.Join(l.root, "categories"))
	if err != nil {
		t.Fatalf("stat created dir: %v", err)
	}
	// The process umask may clear group-write, but the directory must be
	// at least owner rwx.
	if perm := info.Mode().Perm(); perm&0o700 != 0o700 {
		t.Errorf("directory mode = %o, want owner rwx set", perm)
	}
}
