package catalog

import (
	"context"
	"fmt"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
)

const defaultCoverageRadius = 5

type LocationFilter struct {
	Available *bool
	Search    string
}

// LocationInput carries location fields for create and partial update.
type LocationInput struct {
	Name                *string          `json:"name"`
	Area                *string          `json:"area"`
	Address             *string          `json:"address"`
	DeliveryTimeMinutes *int             `json:"delivery_time_minutes"`
	DeliveryFee         *decimal.Decimal `json:"delivery_fee"`
	CoverageRadius      *int             `json:"coverage_radius"`
	MinOrderAmount      *decimal.Decimal `json:"min_order_amount"`
	Available           *bool            `json:"available"`
}

// ListLocations returns delivery locations by name.
func (s *Service) ListLocations(ctx context.Context, f LocationFilter) ([]*models.Location, error) {
	var locations []*models.Location
	q := s.DB.NewSelect().Model(&locations)
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}
	q = searchAny(q, f.Search, "name", "area", "address")
	if err := q.OrderExpr("name ASC, id ASC").Scan(ctx); err != nil {
		return nil, apperr.Storage("catalog.ListLocations", "failed to list locations", err)
	}
	return locations, nil
}

func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (*models.Location, error) {
	const op = "catalog.CreateLocation"

	now := s.now()
	loc := &models.Location{
		Name:           trimmed(in.Name),
		Area:           trimmed(in.Area),
		Address:        trimmed(in.Address),
		DeliveryFee:    decimal.Zero,
		CoverageRadius: defaultCoverageRadius,
		MinOrderAmount: decimal.Zero,
		Available:      true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyLocation(loc, in)
	if err := validateLocation(op, loc); err != nil {
		return nil, err
	}
	if _, err := s.DB.NewInsert().Model(loc).Exec(ctx); err != nil {
		return nil, apperr.Storage(op, "failed to create location", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Created location %d (%s)", loc.ID, loc.Name))
	return loc, nil
}

func (s *Service) UpdateLocation(ctx context.Context, id int64, in LocationInput) (*models.Location, error) {
	const op = "catalog.UpdateLocation"

	loc, err := s.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		loc.Name = trimmed(in.Name)
	}
	if in.Area != nil {
		loc.Area = trimmed(in.Area)
	}
	if in.Address != nil {
		loc.Address = trimmed(in.Address)
	}
	applyLocation(loc, in)
	if err := validateLocation(op, loc); err != nil {
		return nil, err
	}

	loc.UpdatedAt = s.now()
	if _, err := s.DB.NewUpdate().Model(loc).ExcludeColumn("id", "created_at").WherePK().Exec(ctx); err != nil {
		return nil, apperr.Storage(op, "failed to update location", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Updated location %d (%s)", loc.ID, loc.Name))
	return loc, nil
}

// ToggleLocation flips whether a location takes delivery orders.
func (s *Service) ToggleLocation(ctx context.Context, id int64) (*models.Location, error) {
	loc, err := s.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	flipped := !loc.Available
	return s.UpdateLocation(ctx, id, LocationInput{Available: &flipped})
}

// DeleteLocation removes a location. Orders that used it keep their fee and
// estimate and lose the reference.
func (s *Service) DeleteLocation(ctx context.Context, id int64) error {
	const op = "catalog.DeleteLocation"

	res, err := s.DB.NewDelete().Model((*models.Location)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return apperr.Storage(op, "failed to delete location", err)
	}
	n, err := res.RowsAffected()
	if err := updated(op, "location", id, n, err); err != nil {
		return err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Deleted location %d", id))
	return nil
}

func applyLocation(loc *models.Location, in LocationInput) {
	if in.DeliveryTimeMinutes != nil {
		loc.DeliveryTimeMinutes = *in.DeliveryTimeMinutes
	}
	if in.DeliveryFee != nil {
		loc.DeliveryFee = *in.DeliveryFee
	}
	if in.CoverageRadius != nil {
		loc.CoverageRadius = *in.CoverageRadius
	}
	if in.MinOrderAmount != nil {
		loc.MinOrderAmount = *in.MinOrderAmount
	}
	if in.Available != nil {
		loc.Available = *in.Available
	}
}

func validateLocation(op string, loc *models.Location) error {
	switch {
	case loc.Name == "" || loc.Area == "":
		return apperr.Validation(op, "location name and area are required")
	case loc.DeliveryFee.IsNegative():
		return apperr.Validation(op, "delivery fee cannot be negative")
	case loc.CoverageRadius <= 0:
		return apperr.Validation(op, "coverage radius must be greater than 0")
	case loc.DeliveryTimeMinutes < 0:
		return apperr.Validation(op, "delivery time cannot be negative")
	case loc.MinOrderAmount.IsNegative():
		return apperr.Validation(op, "minimum order amount cannot be negative")
	}
	return nil
}
