package store

import (
	"context"
	"errors"

	"github.com/adboardhq/adboard/internal/db/models"
	"github.com/adboardhq/adboard/internal/integration"
	"gorm.io/gorm"
)

// Gorm persists integration records in the service database. Durability
// across restarts comes from the sqlite file itself.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an initialized database handle.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func toModel(rec *integration.Record) models.Integration {
	return models.Integration{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Provider:     string(rec.Provider),
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		Email:        rec.Email,
		Name:         rec.Name,
		AccountID:    rec.AccountID,
		AdAccountID:  rec.AdAccountID,
		ConnectedAt:  rec.ConnectedAt,
	}
}

func fromModel(row models.Integration) integration.Record {
	return integration.Record{
		ID:           row.ID,
		UserID:       row.UserID,
		Provider:     integration.Provider(row.Provider),
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    row.ExpiresAt,
		Email:        row.Email,
		Name:         row.Name,
		AccountID:    row.AccountID,
		AdAccountID:  row.AdAccountID,
		ConnectedAt:  row.ConnectedAt,
	}
}

// Put inserts or overwrites the row keyed by the record id.
func (s *Gorm) Put(ctx context.Context, rec *integration.Record) error {
	row := toModel(rec)
	return s.db.WithContext(ctx).Save(&row).Error
}

// Get returns the record for id, or (nil, nil) when absent.
func (s *Gorm) Get(ctx context.Context, id string) (*integration.Record, error) {
	var row models.Integration
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := fromModel(row)
	return &rec, nil
}

// ListByUser returns redacted projections for the user, newest first.
func (s *Gorm) ListByUser(ctx context.Context, userID string) ([]integration.Redacted, error) {
	var rows []models.Integration
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("connected_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]integration.Redacted, 0, len(rows))
	for _, row := range rows {
		rec := fromModel(row)
		out = append(out, rec.Redact())
	}
	return out, nil
}

// Delete removes the row for id, reporting whether one existed.
func (s *Gorm) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Integration{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
