// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store contains the database access layer.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"catalogd/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint failure.
// Callers use it to detect slug collisions lost to a concurrent writer.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, parent_id, title, slug, image, sort_order, content,
	meta_title, meta_keywords, meta_desc, publish_status, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.ParentID, &c.Title, &c.Slug, &c.Image, &c.SortOrder, &c.Content,
		&c.MetaTitle, &c.MetaKeywords, &c.MetaDesc, &c.PublishStatus,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all categories ordered by sort_order, then title.
func (s *CategoryStore) List() ([]models.Category, error) {
	rows, err := s.db.Query(`
		SELECT ` + categoryColumns + `
		FROM categories
		ORDER BY sort_order, title
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Tree returns categories as a nested tree structure.
func (s *CategoryStore) Tree() ([]models.Category, error) {
	flat, err := s.List()
	if err != nil {
		return nil, err
	}
	return buildTree(flat, nil, 0), nil
}

// buildTree recursively builds a tree from a flat list.
func buildTree(flat []models.Category, parentID *uuid.UUID, depth int) []models.Category {
	var result []models.Category
	for _, c := range flat {
		if ptrEqual(c.ParentID, parentID) {
			c.Depth = depth
			c.Children = buildTree(flat, &c.ID, depth+1)
			result = append(result, c)
		}
	}
	return result
}

// ptrEqual compares two *uuid.UUID for equality (both nil or same value).
func ptrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// SlugExists reports whether a slug is already used by any category.
func (s *CategoryStore) SlugExists(slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("slug exists: %w", err)
	}
	return exists, nil
}

// Create inserts a new category and returns it with DB-generated fields.
// A unique-violation error (concurrent slug collision) is returned
// unwrapped so callers can detect it with IsUniqueViolation and retry.
func (s *CategoryStore) Create(c *models.Category) (*models.Category, error) {
	row := s.db.QueryRow(`
		INSERT INTO categories (parent_id, title, slug, image, sort_order, content,
			meta_title, meta_keywords, meta_desc, publish_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+categoryColumns,
		c.ParentID, c.Title, c.Slug, c.Image, c.SortOrder, c.Content,
		c.MetaTitle, c.MetaKeywords, c.MetaDesc, c.PublishStatus,
	)
	result, err := scanCategory(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return result, nil
}

// Update modifies an existing category (full-field update) and returns
// the updated row. Returns nil if the category does not exist.
func (s *CategoryStore) Update(c *models.Category) (*models.Category, error) {
	row := s.db.QueryRow(`
		UPDATE categories SET
			parent_id = $1, title = $2, slug = $3, image = $4, sort_order = $5,
			content = $6, meta_title = $7, meta_keywords = $8, meta_desc = $9,
			publish_status = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING `+categoryColumns,
		c.ParentID, c.Title, c.Slug, c.Image, c.SortOrder,
		c.Content, c.MetaTitle, c.MetaKeywords, c.MetaDesc,
		c.PublishStatus, c.ID,
	)
	result, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return result, nil
}

// Delete removes a category by ID and returns the deleted row so callers
// can clean up the stored image. Returns nil if not found. Children are
// re-parented by the ON DELETE SET NULL foreign key.
func (s *CategoryStore) Delete(id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRow(`DELETE FROM categories WHERE id = $1 RETURNING `+categoryColumns, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}
	return c, nil
}

// NextSortOrder returns the next sort_order value for a given parent.
func (s *CategoryStore) NextSortOrder(parentID *uuid.UUID) (int, error) {
	var maxOrder sql.NullInt64
	var err error
	if parentID == nil {
		err = s.db.QueryRow(`SELECT MAX(sort_order) FROM categories WHERE parent_id IS NULL`).Scan(&maxOrder)
	} else {
		err = s.db.QueryRow(`SELECT MAX(sort_order) FROM categories WHERE parent_id = $1`, *parentID).Scan(&maxOrder)
	}
	if err != nil {
		return 0, fmt.Errorf("next sort order: %w", err)
	}
	if maxOrder.Valid {
		return int(maxOrder.Int64) + 1, nil
	}
	return 0, nil
}

// IsDescendant reports whether candidate is id itself or one of its
// descendants. Used to reject parent assignments that would create a
// cycle in the tree.
func (s *CategoryStore) IsDescendant(id, candidate uuid.UUID) (bool, error) {
	if id == candidate {
		return true, nil
	}

	// Walk the parent chain upward from the candidate. The chain is
	// short in practice; a guard caps pathological depth.
	current := candidate
	for depth := 0; depth < 100; depth++ {
		var parent *uuid.UUID
		err := s.db.QueryRow(`SELECT parent_id FROM categories WHERE id = $1`, current).Scan(&parent)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("walk parents: %w", err)
		}
		if parent == nil {
			return false, nil
		}
		if *parent == id {
			return true, nil
		}
		current = *parent
	}
	return false, fmt.Errorf("parent chain exceeds depth limit for %s", candidate)
}
