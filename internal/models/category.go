// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures shared between the stores
// and the HTTP handlers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Category represents a hierarchical product category. The parent
// reference forms a tree; deleting a parent re-parents children to the
// root (ON DELETE SET NULL).
type Category struct {
	ID            uuid.UUID  `json:"id"`
	ParentID      *uuid.UUID `json:"parent_id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Image         *string    `json:"image"`
	SortOrder     int        `json:"sort_order"`
	Content       *string    `json:"content"`
	MetaTitle     *string    `json:"meta_title"`
	MetaKeywords  *string    `json:"meta_keywords"`
	MetaDesc      *string    `json:"meta_desc"`
	PublishStatus bool       `json:"publish_status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods.
	Children []Category `json:"children,omitempty"`
	Depth    int        `json:"depth,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
