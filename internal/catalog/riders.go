package catalog

import (
	"context"
	"fmt"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

var (
	defaultRiderRating = decimal.NewFromInt(5)
	maxRating          = decimal.NewFromInt(5)
)

// RiderFilter narrows ListRiders. Zero values are ignored.
type RiderFilter struct {
	Status models.RiderStatus
	Search string
}

// RiderInput carries rider fields for create and partial update. Nil fields
// are left alone on update.
type RiderInput struct {
	Name        *string          `json:"name"`
	Phone       *string          `json:"phone"`
	Email       *string          `json:"email"`
	VehicleType *string          `json:"vehicle_type"`
	Status      *string          `json:"status"`
	Rating      *decimal.Decimal `json:"rating"`
}

// setList collects column assignments for an UPDATE built on a nil model.
type setList struct {
	cols []string
	vals []interface{}
}

func (s *setList) add(col string, v interface{}) {
	s.cols = append(s.cols, col)
	s.vals = append(s.vals, v)
}

func (s *setList) apply(q *bun.UpdateQuery) *bun.UpdateQuery {
	for i, col := range s.cols {
		q = q.Set("? = ?", bun.Ident(col), s.vals[i])
	}
	return q
}

// ListRiders returns active riders, newest first.
func (s *Service) ListRiders(ctx context.Context, f RiderFilter) ([]*models.Rider, error) {
	var riders []*models.Rider
	q := s.DB.NewSelect().Model(&riders).Where("is_active = ?", true)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	q = searchAny(q, f.Search, "name", "phone", "email")
	if err := q.OrderExpr("created_at DESC, id DESC").Scan(ctx); err != nil {
		return nil, apperr.Storage("catalog.ListRiders", "failed to list riders", err)
	}
	return riders, nil
}

func (s *Service) CreateRider(ctx context.Context, in RiderInput) (*models.Rider, error) {
	const op = "catalog.CreateRider"

	now := s.now()
	r := &models.Rider{
		Name:        trimmed(in.Name),
		Phone:       trimmed(in.Phone),
		Email:       trimmed(in.Email),
		VehicleType: trimmed(in.VehicleType),
		Status:      models.RiderAvailable,
		Rating:      defaultRiderRating,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.VehicleType == "" {
		r.VehicleType = "bike"
	}
	if in.Status != nil {
		st, ok := models.ParseRiderStatus(*in.Status)
		if !ok {
			return nil, apperr.Validation(op, "invalid rider status %q", *in.Status)
		}
		r.Status = st
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
	}
	if err := validateRider(op, r); err != nil {
		return nil, err
	}
	if err := s.phoneFree(ctx, op, r.Phone, 0); err != nil {
		return nil, err
	}

	if _, err := s.DB.NewInsert().Model(r).Exec(ctx); err != nil {
		return nil, apperr.Storage(op, "failed to create rider", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Created rider %d (%s)", r.ID, r.Name))
	return r, nil
}

// UpdateRider patches an active rider. Every write bumps the rider's
// version.
func (s *Service) UpdateRider(ctx context.Context, id int64, in RiderInput) (*models.Rider, error) {
	const op = "catalog.UpdateRider"

	r, err := s.GetRider(ctx, id)
	if err != nil {
		return nil, err
	}

	var set setList
	if in.Name != nil {
		r.Name = trimmed(in.Name)
		set.add("name", r.Name)
	}
	if in.Phone != nil {
		r.Phone = trimmed(in.Phone)
		set.add("phone", r.Phone)
	}
	if in.Email != nil {
		r.Email = trimmed(in.Email)
		set.add("email", nullable(r.Email))
	}
	if in.VehicleType != nil {
		r.VehicleType = trimmed(in.VehicleType)
		set.add("vehicle_type", r.VehicleType)
	}
	if in.Status != nil {
		st, ok := models.ParseRiderStatus(*in.Status)
		if !ok {
			return nil, apperr.Validation(op, "invalid rider status %q", *in.Status)
		}
		r.Status = st
		set.add("status", st)
	}
	if in.Rating != nil {
		r.Rating = *in.Rating
		set.add("rating", r.Rating)
	}
	if err := validateRider(op, r); err != nil {
		return nil, err
	}
	if in.Phone != nil {
		if err := s.phoneFree(ctx, op, r.Phone, r.ID); err != nil {
			return nil, err
		}
	}
	if len(set.cols) == 0 {
		return r, nil
	}

	if err := s.writeRider(ctx, op, id, set); err != nil {
		return nil, err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Updated rider %d: %v", id, set.cols))
	return s.GetRider(ctx, id)
}

// SetRiderStatus is the dispatcher's switch for taking a rider on or off
// shift.
func (s *Service) SetRiderStatus(ctx context.Context, id int64, status string) (*models.Rider, error) {
	return s.UpdateRider(ctx, id, RiderInput{Status: &status})
}

// SetRiderStatuses moves every listed active rider to status and returns how
// many rows changed. Unknown and inactive ids are skipped.
func (s *Service) SetRiderStatuses(ctx context.Context, ids []int64, status string) (int, error) {
	const op = "catalog.SetRiderStatuses"

	if len(ids) == 0 {
		return 0, apperr.Validation(op, "no rider ids provided")
	}
	st, ok := models.ParseRiderStatus(status)
	if !ok {
		return 0, apperr.Validation(op, "invalid rider status %q", status)
	}

	res, err := s.DB.NewUpdate().
		Model((*models.Rider)(nil)).
		Set("status = ?", st).
		Set("version = version + 1").
		Set("updated_at = ?", s.now()).
		Where("id IN (?)", bun.In(ids)).
		Where("is_active = ?", true).
		Exec(ctx)
	if err != nil {
		return 0, apperr.Storage(op, "failed to update riders", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(op, "failed to read affected rows", err)
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Set %d riders to %s", n, st))
	return int(n), nil
}

// DeactivateRider hides a rider from dispatch. Riders still carrying orders
// are refused; their slots are released by the orders' terminal statuses.
func (s *Service) DeactivateRider(ctx context.Context, id int64) error {
	const op = "catalog.DeactivateRider"

	r, err := s.GetRider(ctx, id)
	if err != nil {
		return err
	}
	if r.CurrentOrders > 0 {
		return apperr.Conflict(op, "rider %s still has %d active orders", r.Name, r.CurrentOrders)
	}

	var set setList
	set.add("is_active", false)
	if err := s.writeRider(ctx, op, id, set); err != nil {
		return err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Deactivated rider %d (%s)", id, r.Name))
	return nil
}

func (s *Service) writeRider(ctx context.Context, op string, id int64, set setList) error {
	q := set.apply(s.DB.NewUpdate().Model((*models.Rider)(nil))).
		Set("version = version + 1").
		Set("updated_at = ?", s.now()).
		Where("id = ?", id).
		Where("is_active = ?", true)
	res, err := q.Exec(ctx)
	if err != nil {
		return updated(op, "rider", id, 0, err)
	}
	n, err := res.RowsAffected()
	return updated(op, "rider", id, n, err)
}

func (s *Service) phoneFree(ctx context.Context, op, phone string, exceptID int64) error {
	q := s.DB.NewSelect().Model((*models.Rider)(nil)).Where("phone = ?", phone)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	taken, err := q.Exists(ctx)
	if err != nil {
		return apperr.Storage(op, "failed to check rider phone", err)
	}
	if taken {
		return apperr.Conflict(op, "a rider with phone %s already exists", phone)
	}
	return nil
}

func validateRider(op string, r *models.Rider) error {
	if r.Name == "" || r.Phone == "" {
		return apperr.Validation(op, "rider name and phone are required")
	}
	if !models.IsVehicleType(r.VehicleType) {
		return apperr.Validation(op, "invalid vehicle type %q", r.VehicleType)
	}
	if r.Rating.IsNegative() || r.Rating.GreaterThan(maxRating) {
		return apperr.Validation(op, "rating must be between 0 and 5, got %s", r.Rating)
	}
	return nil
}
