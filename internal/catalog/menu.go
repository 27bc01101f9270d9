package catalog

import (
	"context"
	"fmt"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var maxDiscount = decimal.NewFromInt(100)

// ---------------- PRODUCTS ----------------

type ProductFilter struct {
	Category  string
	Available *bool
	Search    string
}

// ProductInput carries product fields for create and partial update.
// AddonIDs, when set, replaces the product's add-on list.
type ProductInput struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Discount        *decimal.Decimal `json:"discount"`
	Category        *string          `json:"category"`
	Image           *string          `json:"image"`
	PreparationTime *string          `json:"preparation_time"`
	Rating          *decimal.Decimal `json:"rating"`
	IsAvailable     *bool            `json:"is_available"`
	IsPopular       *bool            `json:"is_popular"`
	AddonIDs        *[]int64         `json:"addon_ids"`
}

// ProductBulkUpdate is the subset of product fields that may be changed for
// many products at once.
type ProductBulkUpdate struct {
	IsAvailable *bool            `json:"is_available"`
	Discount    *decimal.Decimal `json:"discount"`
	Category    *string          `json:"category"`
}

// ListProducts returns products by name with their add-ons.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]*models.Product, error) {
	var products []*models.Product
	q := s.DB.NewSelect().Model(&products).Relation("Addons")
	if f.Category != "" {
		q = q.Where("?TableAlias.category = ?", f.Category)
	}
	if f.Available != nil {
		q = q.Where("?TableAlias.is_available = ?", *f.Available)
	}
	q = searchAny(q, f.Search, "name", "description", "category")
	if err := q.OrderExpr("?TableAlias.name ASC, ?TableAlias.id ASC").Scan(ctx); err != nil {
		return nil, apperr.Storage("catalog.ListProducts", "failed to list products", err)
	}
	return products, nil
}

// GetProductDetail loads a product with its add-ons.
func (s *Service) GetProductDetail(ctx context.Context, id int64) (*models.Product, error) {
	p := new(models.Product)
	err := s.DB.NewSelect().Model(p).Relation("Addons").Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, wrap("catalog.GetProductDetail", "product", id, err)
	}
	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	const op = "catalog.CreateProduct"

	now := s.now()
	p := &models.Product{
		Discount:    decimal.Zero,
		Rating:      decimal.Zero,
		IsAvailable: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	applyProduct(p, in)
	if in.Price == nil {
		return nil, apperr.Validation(op, "price is required")
	}
	if err := validateProduct(op, p); err != nil {
		return nil, err
	}

	err := s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
			return apperr.Storage(op, "failed to create product", err)
		}
		if in.AddonIDs != nil {
			return setProductAddons(ctx, tx, op, p.ID, *in.AddonIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Created product %d (%s)", p.ID, p.Name))
	return s.GetProductDetail(ctx, p.ID)
}

// UpdateProduct patches a product. Existing orders keep their price
// snapshots.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	const op = "catalog.UpdateProduct"

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProduct(p, in)
	if err := validateProduct(op, p); err != nil {
		return nil, err
	}

	p.UpdatedAt = s.now()
	err = s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().Model(p).ExcludeColumn("id", "created_at").WherePK().Exec(ctx); err != nil {
			return apperr.Storage(op, "failed to update product", err)
		}
		if in.AddonIDs != nil {
			return setProductAddons(ctx, tx, op, p.ID, *in.AddonIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Updated product %d (%s)", p.ID, p.Name))
	return s.GetProductDetail(ctx, id)
}

// BulkUpdateProducts applies one change set to many products and returns how
// many rows changed.
func (s *Service) BulkUpdateProducts(ctx context.Context, ids []int64, in ProductBulkUpdate) (int, error) {
	const op = "catalog.BulkUpdateProducts"

	if len(ids) == 0 {
		return 0, apperr.Validation(op, "no product ids provided")
	}
	var set setList
	if in.IsAvailable != nil {
		set.add("is_available", *in.IsAvailable)
	}
	if in.Discount != nil {
		if err := validateDiscount(op, *in.Discount); err != nil {
			return 0, err
		}
		set.add("discount", *in.Discount)
	}
	if in.Category != nil {
		if !models.IsProductCategory(*in.Category) {
			return 0, apperr.Validation(op, "invalid category %q", *in.Category)
		}
		set.add("category", *in.Category)
	}
	if len(set.cols) == 0 {
		return 0, apperr.Validation(op, "no updates provided; allowed: is_available, discount, category")
	}

	res, err := set.apply(s.DB.NewUpdate().Model((*models.Product)(nil))).
		Set("updated_at = ?", s.now()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Storage(op, "failed to update products", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(op, "failed to read affected rows", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Bulk updated %d products: %v", n, set.cols))
	return int(n), nil
}

// DeleteProduct removes a product that no order refers to. Ordered products
// should be marked unavailable instead.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	const op = "catalog.DeleteProduct"

	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	used, err := s.DB.NewSelect().Model((*models.OrderItem)(nil)).Where("product_id = ?", id).Exists(ctx)
	if err != nil {
		return apperr.Storage(op, "failed to check product usage", err)
	}
	if used {
		return apperr.Conflict(op, "product %d appears in orders; mark it unavailable instead", id)
	}

	err = s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.ProductAddon)(nil)).Where("product_id = ?", id).Exec(ctx); err != nil {
			return apperr.Storage(op, "failed to unlink add-ons", err)
		}
		if _, err := tx.NewDelete().Model((*models.Product)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return apperr.Storage(op, "failed to delete product", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Deleted product %d", id))
	return nil
}

func setProductAddons(ctx context.Context, tx bun.Tx, op string, productID int64, addonIDs []int64) error {
	if _, err := tx.NewDelete().Model((*models.ProductAddon)(nil)).Where("product_id = ?", productID).Exec(ctx); err != nil {
		return apperr.Storage(op, "failed to clear add-ons", err)
	}
	if len(addonIDs) == 0 {
		return nil
	}

	seen := make(map[int64]bool, len(addonIDs))
	links := make([]*models.ProductAddon, 0, len(addonIDs))
	for _, id := range addonIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		links = append(links, &models.ProductAddon{ProductID: productID, AddonID: id})
	}

	found, err := tx.NewSelect().Model((*models.Addon)(nil)).Where("id IN (?)", bun.In(addonIDs)).Count(ctx)
	if err != nil {
		return apperr.Storage(op, "failed to check add-ons", err)
	}
	if found != len(links) {
		return apperr.Validation(op, "unknown add-on id in %v", addonIDs)
	}
	if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
		return apperr.Storage(op, "failed to link add-ons", err)
	}
	return nil
}

func applyProduct(p *models.Product, in ProductInput) {
	if in.Name != nil {
		p.Name = trimmed(in.Name)
	}
	if in.Description != nil {
		p.Description = trimmed(in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.Category != nil {
		p.Category = trimmed(in.Category)
	}
	if in.Image != nil {
		p.Image = trimmed(in.Image)
	}
	if in.PreparationTime != nil {
		p.PreparationTime = trimmed(in.PreparationTime)
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.IsPopular != nil {
		p.IsPopular = *in.IsPopular
	}
}

func validateProduct(op string, p *models.Product) error {
	if p.Name == "" {
		return apperr.Validation(op, "product name is required")
	}
	if !p.Price.IsPositive() {
		return apperr.Validation(op, "price must be greater than 0")
	}
	if !models.IsProductCategory(p.Category) {
		return apperr.Validation(op, "invalid category %q", p.Category)
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating) {
		return apperr.Validation(op, "rating must be between 0 and 5, got %s", p.Rating)
	}
	return validateDiscount(op, p.Discount)
}

func validateDiscount(op string, d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(maxDiscount) {
		return apperr.Validation(op, "discount must be between 0 and 100 percent")
	}
	return nil
}

// ---------------- ADD-ONS ----------------

type AddonFilter struct {
	Available *bool
	Search    string
}

type AddonInput struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	IsAvailable *bool            `json:"is_available"`
}

func (s *Service) ListAddons(ctx context.Context, f AddonFilter) ([]*models.Addon, error) {
	var addons []*models.Addon
	q := s.DB.NewSelect().Model(&addons)
	if f.Available != nil {
		q = q.Where("is_available = ?", *f.Available)
	}
	q = searchAny(q, f.Search, "name", "description")
	if err := q.OrderExpr("name ASC, id ASC").Scan(ctx); err != nil {
		return nil, apperr.Storage("catalog.ListAddons", "failed to list add-ons", err)
	}
	return addons, nil
}

func (s *Service) GetAddon(ctx context.Context, id int64) (*models.Addon, error) {
	a := new(models.Addon)
	err := s.DB.NewSelect().Model(a).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, wrap("catalog.GetAddon", "add-on", id, err)
	}
	return a, nil
}

func (s *Service) CreateAddon(ctx context.Context, in AddonInput) (*models.Addon, error) {
	const op = "catalog.CreateAddon"

	now := s.now()
	a := &models.Addon{IsAvailable: true, CreatedAt: now, UpdatedAt: now}
	applyAddon(a, in)
	if in.Price == nil {
		return nil, apperr.Validation(op, "price is required")
	}
	if err := validateAddon(op, a); err != nil {
		return nil, err
	}
	if _, err := s.DB.NewInsert().Model(a).Exec(ctx); err != nil {
		return nil, apperr.Storage(op, "failed to create add-on", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Created add-on %d (%s)", a.ID, a.Name))
	return a, nil
}

func (s *Service) UpdateAddon(ctx context.Context, id int64, in AddonInput) (*models.Addon, error) {
	const op = "catalog.UpdateAddon"

	a, err := s.GetAddon(ctx, id)
	if err != nil {
		return nil, err
	}
	applyAddon(a, in)
	if err := validateAddon(op, a); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.now()
	if _, err := s.DB.NewUpdate().Model(a).ExcludeColumn("id", "created_at").WherePK().Exec(ctx); err != nil {
		return nil, apperr.Storage(op, "failed to update add-on", err)
	}
	return a, nil
}

// DeleteAddon removes an add-on no order item has used, unlinking it from
// every product.
func (s *Service) DeleteAddon(ctx context.Context, id int64) error {
	const op = "catalog.DeleteAddon"

	if _, err := s.GetAddon(ctx, id); err != nil {
		return err
	}
	used, err := s.DB.NewSelect().Model((*models.OrderItemAddon)(nil)).Where("addon_id = ?", id).Exists(ctx)
	if err != nil {
		return apperr.Storage(op, "failed to check add-on usage", err)
	}
	if used {
		return apperr.Conflict(op, "add-on %d appears in orders; mark it unavailable instead", id)
	}

	err = s.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.ProductAddon)(nil)).Where("addon_id = ?", id).Exec(ctx); err != nil {
			return apperr.Storage(op, "failed to unlink add-on", err)
		}
		if _, err := tx.NewDelete().Model((*models.Addon)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return apperr.Storage(op, "failed to delete add-on", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Deleted add-on %d", id))
	return nil
}

func applyAddon(a *models.Addon, in AddonInput) {
	if in.Name != nil {
		a.Name = trimmed(in.Name)
	}
	if in.Price != nil {
		a.Price = *in.Price
	}
	if in.Description != nil {
		a.Description = trimmed(in.Description)
	}
	if in.IsAvailable != nil {
		a.IsAvailable = *in.IsAvailable
	}
}

func validateAddon(op string, a *models.Addon) error {
	if a.Name == "" {
		return apperr.Validation(op, "add-on name is required")
	}
	if a.Price.IsNegative() {
		return apperr.Validation(op, "add-on price cannot be negative")
	}
	return nil
}
