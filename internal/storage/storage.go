// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides blob storage targets for uploaded files.
// A Target is addressed by slash-separated path strings and can be backed
// by the local filesystem or an S3-compatible object store.
package storage

import "context"

// Target is the capability surface the upload pipeline needs from a blob
// store: existence checks, recursive directory creation, byte writes with
// public visibility, and deletion.
type Target interface {
	// Exists reports whether an object is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// MakeDirectory ensures the directory exists, creating parents as
	// needed. It tolerates the directory already existing, including
	// concurrent creation. Object stores with flat namespaces treat this
	// as a no-op.
	MakeDirectory(ctx context.Context, path string) error

	// Put writes data to path with public-read visibility, replacing any
	// existing object.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error
}
