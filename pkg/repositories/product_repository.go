package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/database"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

// ProductRepository provides read access to the product catalog. Products are
// provisioned by the billing system; this service only lists them.
type ProductRepository interface {
	// Get returns one product. Returns apperrors.ErrNotFound when missing.
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)

	// List returns all products ordered by name.
	List(ctx context.Context) ([]*models.Product, error)
}

type productRepository struct {
	db *database.DB
}

// NewProductRepository creates a repository bound to the store pool.
func NewProductRepository(db *database.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT id, name, status, created_at, updated_at FROM products WHERE id = $1`

	var p models.Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT id, name, status, created_at, updated_at FROM products ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}
