// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Validation limits for category form fields.
const (
	maxTitleLen       = 255
	maxMetaTitleLen   = 255
	maxMetaKeywordLen = 500
	maxMetaDescLen    = 1_000
	maxContentLen     = 100_000
)

// allowedImageExts defines the upload extensions accepted for category images.
var allowedImageExts = map[string]bool{
	"jpeg": true,
	"jpg":  true,
	"png":  true,
	"webp": true,
}

// fieldErrors accumulates per-field validation messages. The zero value
// is ready to use.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe fieldErrors) any() bool {
	return len(fe) > 0
}

// validate checks the category form inputs and collects every error
// found rather than stopping at the first.
func (f *categoryForm) validate() fieldErrors {
	errs := fieldErrors{}

	title := strings.TrimSpace(f.Title)
	if title == "" {
		errs.add("title", "The title field is required.")
	} else if utf8.RuneCountInString(title) > maxTitleLen {
		errs.add("title", "The title may not be greater than 255 characters.")
	}

	if f.ParentID != "" {
		if _, err := uuid.Parse(f.ParentID); err != nil {
			errs.add("parent_id", "The parent id must be a valid UUID.")
		}
	}

	if f.SortOrder != "" {
		if n, ok := parseNonNegative(f.SortOrder); !ok {
			errs.add("sort_order", "The sort order must be a non-negative integer.")
		} else {
			f.sortOrder = &n
		}
	}

	if utf8.RuneCountInString(f.MetaTitle) > maxMetaTitleLen {
		errs.add("meta_title", "The meta title may not be greater than 255 characters.")
	}
	if utf8.RuneCountInString(f.MetaKeywords) > maxMetaKeywordLen {
		errs.add("meta_keywords", "The meta keywords may not be greater than 500 characters.")
	}
	if utf8.RuneCountInString(f.MetaDesc) > maxMetaDescLen {
		errs.add("meta_desc", "The meta description may not be greater than 1,000 characters.")
	}
	if utf8.RuneCountInString(f.Content) > maxContentLen {
		errs.add("content", "The content may not be greater than 100,000 characters.")
	}

	if f.imageName != "" {
		ext := strings.ToLower(strings.TrimPrefix(extOf(f.imageName), "."))
		if !allowedImageExts[ext] {
			errs.add("image", "The image must be a file of type: jpeg, jpg, png, webp.")
		}
	}

	return errs
}

// parseNonNegative parses a decimal integer, rejecting signs and garbage.
func parseNonNegative(s string) (int, bool) {
	n := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	return n, true
}

// extOf returns the extension of a filename including the dot, or "".
func extOf(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx != -1 {
		return name[idx:]
	}
	return ""
}
