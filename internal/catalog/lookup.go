// Package catalog resolves products, add-ons, locations and riders for the
// order workflow through Lookup, and manages them for dispatchers through
// Service.
package catalog

import (
	"context"
	"database/sql"
	"errors"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/models"

	"github.com/uptrace/bun"
)

type Lookup struct {
	DB *bun.DB
}

func NewLookup(db *bun.DB) *Lookup {
	return &Lookup{DB: db}
}

func (l *Lookup) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p := new(models.Product)
	err := l.DB.NewSelect().Model(p).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, wrap("catalog.GetProduct", "product", id, err)
	}
	return p, nil
}

// GetAddons returns the add-ons that exist, in the order requested. Unknown
// and repeated ids are dropped.
func (l *Lookup) GetAddons(ctx context.Context, ids []int64) ([]*models.Addon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*models.Addon
	err := l.DB.NewSelect().Model(&found).Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, apperr.Storage("catalog.GetAddons", "failed to load add-ons", err)
	}

	byID := make(map[int64]*models.Addon, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	addons := make([]*models.Addon, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			addons = append(addons, a)
			delete(byID, id)
		}
	}
	return addons, nil
}

func (l *Lookup) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	loc := new(models.Location)
	err := l.DB.NewSelect().Model(loc).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, wrap("catalog.GetLocation", "location", id, err)
	}
	return loc, nil
}

// GetRider treats a deactivated rider as missing.
func (l *Lookup) GetRider(ctx context.Context, id int64) (*models.Rider, error) {
	r := new(models.Rider)
	err := l.DB.NewSelect().Model(r).Where("id = ?", id).Where("is_active = ?", true).Limit(1).Scan(ctx)
	if err != nil {
		return nil, wrap("catalog.GetRider", "rider", id, err)
	}
	return r, nil
}

func wrap(op, what string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "%s %d not found", what, id)
	}
	return apperr.Storage(op, "failed to load "+what, err)
}
