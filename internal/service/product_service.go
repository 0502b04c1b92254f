package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"commerce-api/internal/models"
	"commerce-api/internal/store"
	"commerce-api/internal/util"

	"go.uber.org/zap"
)

// ProductService handles catalog management
type ProductService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store *store.Store) *ProductService {
	return &ProductService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// VariantInput describes a variant in a create/update request
type VariantInput struct {
	ID            *int64          `json:"id"`
	Name          string          `json:"name" binding:"required"`
	SKU           string          `json:"sku" binding:"required"`
	Price         int64           `json:"price" binding:"required,min=0"`
	StockQuantity int             `json:"stock_quantity" binding:"min=0"`
	Attributes    json.RawMessage `json:"attributes"`
	IsActive      *bool           `json:"is_active"`
}

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	BasePrice   int64          `json:"base_price" binding:"required,min=0"`
	SKU         string         `json:"sku" binding:"required"`
	IsActive    *bool          `json:"is_active"`
	Variants    []VariantInput `json:"variants" binding:"dive"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	BasePrice   *int64         `json:"base_price"`
	SKU         *string        `json:"sku"`
	IsActive    *bool          `json:"is_active"`
	Variants    []VariantInput `json:"variants" binding:"dive"`
}

// CreateProduct creates a product with its variants. Vendors create
// under their own account; admins may create for any vendor.
func (s *ProductService) CreateProduct(ctx context.Context, actor models.Actor, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	if actor.Role != models.RoleAdmin && actor.Role != models.RoleVendor {
		return nil, ErrForbidden
	}

	existing, err := s.store.GetProductBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSKUAlreadyExists
	}

	product := &models.Product{
		UserID:      actor.ID,
		Name:        req.Name,
		Slug:        Slugify(req.Name),
		Description: sql.NullString{String: req.Description, Valid: req.Description != ""},
		BasePrice:   req.BasePrice,
		SKU:         req.SKU,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	for _, in := range req.Variants {
		variant := &models.ProductVariant{
			ProductID:     product.ID,
			Name:          in.Name,
			SKU:           in.SKU,
			Price:         in.Price,
			StockQuantity: in.StockQuantity,
			Attributes:    in.Attributes,
			IsActive:      in.IsActive == nil || *in.IsActive,
		}
		if err := s.store.CreateVariant(ctx, variant); err != nil {
			return nil, fmt.Errorf("failed to create variant: %w", err)
		}
		product.Variants = append(product.Variants, *variant)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int64("vendor_id", product.UserID))

	return product, nil
}

// UpdateProduct updates product fields and upserts submitted variants
func (s *ProductService) UpdateProduct(ctx context.Context, actor models.Actor, productID int64, req *UpdateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.UpdateProduct")
	defer span.End()

	product, err := s.requireProductManager(ctx, actor, productID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
		product.Slug = Slugify(*req.Name)
	}
	if req.Description != nil {
		product.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.BasePrice != nil {
		product.BasePrice = *req.BasePrice
	}
	if req.SKU != nil {
		product.SKU = *req.SKU
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	for _, in := range req.Variants {
		if in.ID != nil {
			variant, err := s.store.GetVariantByID(ctx, *in.ID)
			if err != nil {
				return nil, err
			}
			if variant == nil || variant.ProductID != product.ID {
				continue
			}
			variant.Name = in.Name
			variant.SKU = in.SKU
			variant.Price = in.Price
			if in.Attributes != nil {
				variant.Attributes = in.Attributes
			}
			if in.IsActive != nil {
				variant.IsActive = *in.IsActive
			}
			if err := s.store.UpdateVariant(ctx, variant); err != nil {
				return nil, fmt.Errorf("failed to update variant: %w", err)
			}
		} else {
			variant := &models.ProductVariant{
				ProductID:     product.ID,
				Name:          in.Name,
				SKU:           in.SKU,
				Price:         in.Price,
				StockQuantity: in.StockQuantity,
				Attributes:    in.Attributes,
				IsActive:      in.IsActive == nil || *in.IsActive,
			}
			if err := s.store.CreateVariant(ctx, variant); err != nil {
				return nil, fmt.Errorf("failed to create variant: %w", err)
			}
		}
	}

	variants, err := s.store.GetVariantsByProductID(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	product.Variants = variants
	return product, nil
}

// DeleteProduct tombstones a product; its variants stop accepting stock
// mutations
func (s *ProductService) DeleteProduct(ctx context.Context, actor models.Actor, productID int64) error {
	ctx, span := util.StartSpan(ctx, "ProductService.DeleteProduct")
	defer span.End()

	if _, err := s.requireProductManager(ctx, actor, productID); err != nil {
		return err
	}
	return s.store.SoftDeleteProduct(ctx, productID)
}

// GetProduct retrieves a product with its variants
func (s *ProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	variants, err := s.store.GetVariantsByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}
	product.Variants = variants
	return product, nil
}

// ListProducts retrieves a page of products. Vendors see their own
// catalog including inactive rows; everyone else sees active products.
func (s *ProductService) ListProducts(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Product, int, error) {
	var vendorID *int64
	activeOnly := true
	switch actor.Role {
	case models.RoleAdmin:
		activeOnly = false
	case models.RoleVendor:
		vendorID = &actor.ID
		activeOnly = false
	}
	return s.store.ListProducts(ctx, vendorID, activeOnly, limit, offset)
}

// SearchProducts searches active products by term
func (s *ProductService) SearchProducts(ctx context.Context, term string, limit, offset int) ([]models.Product, int, error) {
	return s.store.SearchProducts(ctx, term, limit, offset)
}

// ImportResult summarizes a CSV import run
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

var csvRequiredColumns = []string{"name", "sku", "base_price", "description", "vendor"}

// parseCSVHeader validates the header row and maps column names to
// positions so imports survive column reordering.
func parseCSVHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, required := range csvRequiredColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}
	return index, nil
}

// ImportProductsCSV reads products from CSV. Malformed or unmatched rows
// are skipped and reported; they never abort the batch.
func (s *ProductService) ImportProductsCSV(ctx context.Context, actor models.Actor, r io.Reader) (*ImportResult, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ImportProductsCSV")
	defer span.End()

	if actor.Role != models.RoleAdmin && actor.Role != models.RoleVendor {
		return nil, ErrForbidden
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	columns, err := parseCSVHeader(header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []string{}}
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if err := s.importRow(ctx, actor, columns, row); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			util.CSVRowsFailedTotal.Inc()
			continue
		}
		result.Imported++
		util.CSVRowsImportedTotal.Inc()
	}

	s.logger.Info("CSV import completed",
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))

	return result, nil
}

func (s *ProductService) importRow(ctx context.Context, actor models.Actor, columns map[string]int, row []string) error {
	field := func(name string) string {
		i := columns[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	name := field("name")
	sku := field("sku")
	if name == "" || sku == "" {
		return fmt.Errorf("invalid row: name and sku are required")
	}

	basePrice, err := strconv.ParseInt(field("base_price"), 10, 64)
	if err != nil || basePrice < 0 {
		return fmt.Errorf("invalid base_price for sku %s", sku)
	}

	vendorName := field("vendor")
	vendor, err := s.store.GetVendorByName(ctx, vendorName)
	if err != nil {
		return err
	}
	if vendor == nil {
		return fmt.Errorf("no vendor found with the name: %s", vendorName)
	}
	if actor.Role == models.RoleVendor && vendor.ID != actor.ID {
		return fmt.Errorf("vendor %s is not the importing account", vendorName)
	}

	if existing, err := s.store.GetProductBySKU(ctx, sku); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("sku already exists: %s", sku)
	}

	description := field("description")
	product := &models.Product{
		UserID:      vendor.ID,
		Name:        name,
		Slug:        Slugify(name),
		Description: sql.NullString{String: description, Valid: description != ""},
		BasePrice:   basePrice,
		SKU:         sku,
		IsActive:    true,
	}
	return s.store.CreateProduct(ctx, product)
}

// requireProductManager allows admins, or the vendor owning the product
func (s *ProductService) requireProductManager(ctx context.Context, actor models.Actor, productID int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleVendor:
		if product.UserID != actor.ID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	return product, nil
}

// Slugify lowercases a name and collapses non-alphanumerics into dashes
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
