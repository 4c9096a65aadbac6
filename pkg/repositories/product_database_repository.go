// Package repositories implements data access against the dashboard's own
// PostgreSQL configuration store. Credential columns hold encrypted values;
// encryption and decryption stay in the layers above.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/apperrors"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/database"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

// ProductDatabaseRepository defines data access for product database
// configurations.
type ProductDatabaseRepository interface {
	// FindActive returns the single active configuration for a product.
	// Returns apperrors.ErrConfigNotFound when no active row exists.
	FindActive(ctx context.Context, productID uuid.UUID) (*models.ProductDatabase, error)

	// UpdateHealth persists the result of a health check against the active
	// configuration row.
	UpdateHealth(ctx context.Context, productID uuid.UUID, status string, checkedAt time.Time) error

	// Create inserts a new configuration. Returns apperrors.ErrConflict when
	// the product already has an active configuration.
	Create(ctx context.Context, pd *models.ProductDatabase) error

	// Update modifies an existing configuration row.
	Update(ctx context.Context, pd *models.ProductDatabase) error

	// Delete removes a configuration row. Returns apperrors.ErrNotFound when
	// no row matched.
	Delete(ctx context.Context, productID uuid.UUID) error

	// List returns all configurations ordered by product name.
	List(ctx context.Context) ([]*models.ProductDatabase, error)
}

type productDatabaseRepository struct {
	db *database.DB
}

// NewProductDatabaseRepository creates a repository bound to the store pool.
func NewProductDatabaseRepository(db *database.DB) ProductDatabaseRepository {
	return &productDatabaseRepository{db: db}
}

const productDatabaseColumns = `
	id, product_id, product_name, db_kind,
	endpoint_url, service_key_encrypted,
	host, port, database_name, user_encrypted, password_encrypted,
	schema_name, is_active, health_status, last_health_check,
	created_at, updated_at`

func scanProductDatabase(row pgx.Row) (*models.ProductDatabase, error) {
	var pd models.ProductDatabase
	err := row.Scan(
		&pd.ID, &pd.ProductID, &pd.ProductName, &pd.DBKind,
		&pd.EndpointURL, &pd.ServiceKeyEncrypted,
		&pd.Host, &pd.Port, &pd.DatabaseName, &pd.UserEncrypted, &pd.PasswordEncrypted,
		&pd.SchemaName, &pd.IsActive, &pd.HealthStatus, &pd.LastHealthCheck,
		&pd.CreatedAt, &pd.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pd, nil
}

// FindActive returns the single active configuration for a product.
func (r *productDatabaseRepository) FindActive(ctx context.Context, productID uuid.UUID) (*models.ProductDatabase, error) {
	query := `SELECT` + productDatabaseColumns + `
		FROM product_databases
		WHERE product_id = $1 AND is_active = true`

	pd, err := scanProductDatabase(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to query active config: %w", err)
	}
	return pd, nil
}

// UpdateHealth persists a health check outcome on the active row.
func (r *productDatabaseRepository) UpdateHealth(ctx context.Context, productID uuid.UUID, status string, checkedAt time.Time) error {
	query := `UPDATE product_databases
		SET health_status = $2, last_health_check = $3, updated_at = $3
		WHERE product_id = $1 AND is_active = true`

	tag, err := r.db.Exec(ctx, query, productID, status, checkedAt)
	if err != nil {
		return fmt.Errorf("failed to update health status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConfigNotFound
	}
	return nil
}

// Create inserts a new configuration.
func (r *productDatabaseRepository) Create(ctx context.Context, pd *models.ProductDatabase) error {
	now := time.Now()
	pd.CreatedAt = now
	pd.UpdatedAt = now
	if pd.SchemaName == "" {
		pd.SchemaName = "public"
	}

	query := `INSERT INTO product_databases (
			product_id, product_name, db_kind,
			endpoint_url, service_key_encrypted,
			host, port, database_name, user_encrypted, password_encrypted,
			schema_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		pd.ProductID, pd.ProductName, pd.DBKind,
		pd.EndpointURL, pd.ServiceKeyEncrypted,
		pd.Host, pd.Port, pd.DatabaseName, pd.UserEncrypted, pd.PasswordEncrypted,
		pd.SchemaName, pd.IsActive, pd.CreatedAt, pd.UpdatedAt,
	).Scan(&pd.ID)
	if err != nil {
		// 23505: the partial unique index on (product_id) WHERE is_active
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create product database config: %w", err)
	}
	return nil
}

// Update modifies an existing configuration row.
func (r *productDatabaseRepository) Update(ctx context.Context, pd *models.ProductDatabase) error {
	pd.UpdatedAt = time.Now()

	query := `UPDATE product_databases SET
			product_name = $2, db_kind = $3,
			endpoint_url = $4, service_key_encrypted = $5,
			host = $6, port = $7, database_name = $8,
			user_encrypted = $9, password_encrypted = $10,
			schema_name = $11, is_active = $12, updated_at = $13
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		pd.ID, pd.ProductName, pd.DBKind,
		pd.EndpointURL, pd.ServiceKeyEncrypted,
		pd.Host, pd.Port, pd.DatabaseName,
		pd.UserEncrypted, pd.PasswordEncrypted,
		pd.SchemaName, pd.IsActive, pd.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product database config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a product's configuration.
func (r *productDatabaseRepository) Delete(ctx context.Context, productID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM product_databases WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product database config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns all configurations ordered by product name.
func (r *productDatabaseRepository) List(ctx context.Context) ([]*models.ProductDatabase, error) {
	query := `SELECT` + productDatabaseColumns + `
		FROM product_databases
		ORDER BY product_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list product database configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.ProductDatabase
	for rows.Next() {
		pd, err := scanProductDatabase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product database config: %w", err)
		}
		configs = append(configs, pd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product database configs: %w", err)
	}
	return configs, nil
}

var _ ProductDatabaseRepository = (*productDatabaseRepository)(nil)
