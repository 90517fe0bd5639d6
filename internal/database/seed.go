package database

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Seed populates the database with a small development category tree.
// It is a no-op when categories already exist.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	roots := []struct {
		title, slug string
		children    []struct{ title, slug string }
	}{
		{
			title: "Electronics", slug: "electronics",
			children: []struct{ title, slug string }{
				{"Laptops", "laptops"},
				{"Audio", "audio"},
			},
		},
		{
			title: "Home & Garden", slug: "home-garden",
			children: []struct{ title, slug string }{
				{"Furniture", "furniture"},
			},
		},
	}

	for i, root := range roots {
		var parentID string
		err := db.QueryRow(`
			INSERT INTO categories (title, slug, sort_order, publish_status)
			VALUES ($1, $2, $3, true)
			RETURNING id
		`, root.title, root.slug, i).Scan(&parentID)
		if err != nil {
			return fmt.Errorf("seed insert %q: %w", root.slug, err)
		}

		for j, child := range root.children {
			_, err := db.Exec(`
				INSERT INTO categories (parent_id, title, slug, sort_order, publish_status)
				VALUES ($1, $2, $3, $4, true)
			`, parentID, child.title, child.slug, j)
			if err != nil {
				return fmt.Errorf("seed insert %q: %w", child.slug, err)
			}
		}
	}

	slog.Info("database seeded with development categories")
	return nil
}
