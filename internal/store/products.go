package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-api/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (user_id, name, slug, description, base_price, sku, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, product, query,
		product.UserID, product.Name, product.Slug, product.Description,
		product.BasePrice, product.SKU, product.IsActive)
}

// GetProductByID retrieves a product by ID, excluding tombstoned rows
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND deleted_at IS NULL", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE sku = $1 AND deleted_at IS NULL", sku)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves a page of products with the total count
func (s *Store) ListProducts(ctx context.Context, vendorID *int64, activeOnly bool, limit, offset int) ([]models.Product, int, error) {
	where := "deleted_at IS NULL"
	args := []interface{}{}

	if vendorID != nil {
		args = append(args, *vendorID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if activeOnly {
		where += " AND is_active = TRUE"
	}

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products WHERE "+where, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"SELECT * FROM products WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// SearchProducts searches products by name, description or SKU
func (s *Store) SearchProducts(ctx context.Context, term string, limit, offset int) ([]models.Product, int, error) {
	pattern := "%" + term + "%"

	var total int
	countQuery := `
		SELECT COUNT(*) FROM products
		WHERE deleted_at IS NULL AND is_active = TRUE
		  AND (name ILIKE $1 OR description ILIKE $1 OR sku ILIKE $1)`
	if err := s.db.GetContext(ctx, &total, countQuery, pattern); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM products
		WHERE deleted_at IS NULL AND is_active = TRUE
		  AND (name ILIKE $1 OR description ILIKE $1 OR sku ILIKE $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, pattern, limit, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// UpdateProduct updates product base fields
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, slug = $2, description = $3, base_price = $4, sku = $5,
		    is_active = $6, updated_at = NOW()
		WHERE id = $7 AND deleted_at IS NULL`,
		product.Name, product.Slug, product.Description, product.BasePrice,
		product.SKU, product.IsActive, product.ID)
	return err
}

// SoftDeleteProduct tombstones a product and deactivates its variants
func (s *Store) SoftDeleteProduct(ctx context.Context, id int64) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW() WHERE id = $1",
			id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE product_variants SET is_active = FALSE, updated_at = NOW() WHERE product_id = $1",
			id)
		return err
	})
}

// CreateVariant inserts a new product variant
func (s *Store) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	query := `
		INSERT INTO product_variants (product_id, name, sku, price, stock_quantity, attributes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, variant, query,
		variant.ProductID, variant.Name, variant.SKU, variant.Price,
		variant.StockQuantity, variant.Attributes, variant.IsActive)
}

// UpdateVariant updates variant fields other than stock. Stock changes
// go through the ledger only.
func (s *Store) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE product_variants
		SET name = $1, sku = $2, price = $3, attributes = $4, is_active = $5, updated_at = NOW()
		WHERE id = $6`,
		variant.Name, variant.SKU, variant.Price, variant.Attributes,
		variant.IsActive, variant.ID)
	return err
}

// GetVariantByID retrieves a variant by ID
func (s *Store) GetVariantByID(ctx context.Context, id int64) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.db.GetContext(ctx, &variant, "SELECT * FROM product_variants WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetVariantsByProductID retrieves all variants of a product
func (s *Store) GetVariantsByProductID(ctx context.Context, productID int64) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := s.db.SelectContext(ctx, &variants,
		"SELECT * FROM product_variants WHERE product_id = $1 ORDER BY id", productID)
	return variants, err
}

// GetVariantForUpdateTx locks a variant row for the duration of tx.
// Every stock mutation path funnels through this lock.
func (s *Store) GetVariantForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int64) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := tx.GetContext(ctx, &variant,
		"SELECT * FROM product_variants WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// UpdateVariantStockTx sets the stock counter inside a ledger transaction
func (s *Store) UpdateVariantStockTx(ctx context.Context, tx *sqlx.Tx, id int64, newStock int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE product_variants SET stock_quantity = $1, updated_at = NOW() WHERE id = $2",
		newStock, id)
	return err
}
