// Package account keeps customer accounts and their lifetime order totals.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Service struct {
	DB     *bun.DB
	Logger *logger.Logger
}

func NewService(db *bun.DB, log *logger.Logger) *Service {
	return &Service{DB: db, Logger: log}
}

// Profile is the contact data a caller supplies for an account.
type Profile struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// CreateOrGet returns the account for the profile's email, creating it when
// missing. Name and phone are patched when they differ; address only when
// the new one is non-empty.
func (s *Service) CreateOrGet(ctx context.Context, p Profile) (*models.SooicyUser, bool, error) {
	const op = "account.CreateOrGet"

	p.Email = strings.TrimSpace(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
	if p.Email == "" || p.Name == "" || p.Phone == "" {
		return nil, false, apperr.Validation(op, "email, name and phone are required")
	}

	user, err := s.getByEmail(ctx, p.Email)
	if err != nil && !apperr.IsNotFound(err) {
		return nil, false, err
	}
	if user != nil {
		if err := s.patch(ctx, user, p); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	now := time.Now().UTC()
	user = &models.SooicyUser{
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Address:    p.Address,
		IsMember:   true,
		TotalSpent: decimal.Zero,
		JoinDate:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.DB.NewInsert().Model(user).Exec(ctx); err != nil {
		// A concurrent request may have created the same email.
		existing, getErr := s.getByEmail(ctx, p.Email)
		if getErr == nil {
			return existing, false, nil
		}
		return nil, false, apperr.Storage(op, "failed to create account", err)
	}

	s.Logger.Info("ACCOUNT", fmt.Sprintf("Created account %d for %s", user.ID, user.Email))
	return user, true, nil
}

func (s *Service) patch(ctx context.Context, user *models.SooicyUser, p Profile) error {
	var cols []string
	if p.Name != user.Name {
		user.Name = p.Name
		cols = append(cols, "name")
	}
	if p.Phone != user.Phone {
		user.Phone = p.Phone
		cols = append(cols, "phone")
	}
	if p.Address != "" && p.Address != user.Address {
		user.Address = p.Address
		cols = append(cols, "address")
	}
	if len(cols) == 0 {
		return nil
	}

	user.UpdatedAt = time.Now().UTC()
	cols = append(cols, "updated_at")
	if _, err := s.DB.NewUpdate().Model(user).Column(cols...).WherePK().Exec(ctx); err != nil {
		return apperr.Storage("account.CreateOrGet", "failed to update account", err)
	}
	s.Logger.Info("ACCOUNT", fmt.Sprintf("Updated %s for account %d", strings.Join(cols[:len(cols)-1], ", "), user.ID))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.SooicyUser, error) {
	return Get(ctx, s.DB, id)
}

// Get loads an account by id.
func Get(ctx context.Context, db bun.IDB, id int64) (*models.SooicyUser, error) {
	user := new(models.SooicyUser)
	err := db.NewSelect().Model(user).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("account.Get", "customer account %d not found", id)
	}
	if err != nil {
		return nil, apperr.Storage("account.Get", "failed to load account", err)
	}
	return user, nil
}

func (s *Service) getByEmail(ctx context.Context, email string) (*models.SooicyUser, error) {
	user := new(models.SooicyUser)
	err := s.DB.NewSelect().Model(user).Where("email = ?", email).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("account.CreateOrGet", "no account for %s", email)
	}
	if err != nil {
		return nil, apperr.Storage("account.CreateOrGet", "failed to look up account", err)
	}
	return user, nil
}

// RecordOrder adds one order and its total to the account's aggregates in a
// single UPDATE. db is normally the order-creation transaction.
func RecordOrder(ctx context.Context, db bun.IDB, accountID int64, total decimal.Decimal, at time.Time) error {
	res, err := db.NewUpdate().
		Model((*models.SooicyUser)(nil)).
		Set("total_orders = total_orders + 1").
		Set("total_spent = total_spent + ?", total).
		Set("last_order_date = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return apperr.Storage("account.RecordOrder", "failed to update account totals", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("account.RecordOrder", "customer account %d not found", accountID)
	}
	return nil
}
