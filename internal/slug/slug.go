// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings,
// including collision-free generation against an existing collection.
package slug

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, or space.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// whitespace matches any run of whitespace characters.
	whitespace = regexp.MustCompile(`\s+`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// ExistsFunc answers whether a candidate slug is already taken in the
// target collection. Implementations typically probe a unique column.
type ExistsFunc func(slug string) (bool, error)

// Unique generates a slug from text that is unused in the collection at
// check time. If the base slug is taken, an integer counter is appended
// ("-1", "-2", …) until a free candidate is found.
//
// Titles that normalize to an empty slug (symbol-only input) fall back to
// a random token so the result is never empty.
//
// The check-then-use sequence is not atomic: concurrent writers can race
// past the probe. Callers must treat the storage layer's unique constraint
// as the final backstop and retry on a uniqueness violation.
func Unique(text string, exists ExistsFunc) (string, error) {
	base := Generate(text)
	if base == "" {
		base = randomToken()
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("slug exists check %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// randomToken returns a short random identifier for inputs with no
// sluggable characters.
func randomToken() string {
	return uuid.New().String()[:8]
}
