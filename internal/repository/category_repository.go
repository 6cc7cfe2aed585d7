package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/domain"
)

// CategoryRepository reads the categories in use. Categories are free text on
// products, so there is nothing to create or delete here.
type CategoryRepository interface {
	List(ctx context.Context) ([]*domain.CategorySummary, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// List returns each distinct category (case-insensitive) with its product count
func (r *categoryRepository) List(ctx context.Context) ([]*domain.CategorySummary, error) {
	query := `
		SELECT MIN(category), COUNT(*)
		FROM products
		GROUP BY LOWER(category)
		ORDER BY MIN(category) ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.CategorySummary{}
	for rows.Next() {
		category := &domain.CategorySummary{}
		if err := rows.Scan(&category.Name, &category.ProductCount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}
