package repository

import (
	"context"
	"time"

	"github.com/yeremiapane/restqr/models"
	"gorm.io/gorm"
)

type GormTokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *GormTokenRepository {
	return &GormTokenRepository{db: db}
}

func (r *GormTokenRepository) FindActiveByTable(ctx context.Context, tableNumber int) (*models.TableToken, error) {
	var token models.TableToken
	err := r.db.WithContext(ctx).
		Where("table_number = ? AND is_active = ?", tableNumber, true).
		First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *GormTokenRepository) FindByToken(ctx context.Context, token string) (*models.TableToken, error) {
	var row models.TableToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// Create inserts an active token. A concurrent insert for the same table
// surfaces as ErrDuplicate through the active_table_number unique index.
func (r *GormTokenRepository) Create(ctx context.Context, token *models.TableToken) error {
	table := token.TableNumber
	token.IsActive = true
	token.ActiveTableNumber = &table
	return translate(r.db.WithContext(ctx).Create(token).Error)
}

func (r *GormTokenRepository) Activate(ctx context.Context, id uint, start, end time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.TableToken{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"session_active": true,
			"session_start":  start,
			"session_end":    end,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormTokenRepository) Deactivate(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.TableToken{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"session_active": false,
			"session_end":    at,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Retire flips the table's active token off and releases the table slot so a
// new token can be issued.
func (r *GormTokenRepository) Retire(ctx context.Context, tableNumber int) error {
	res := r.db.WithContext(ctx).Model(&models.TableToken{}).
		Where("active_table_number = ?", tableNumber).
		Updates(map[string]interface{}{
			"is_active":           false,
			"active_table_number": nil,
			"session_active":      false,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormTokenRepository) TouchLastUsed(ctx context.Context, id uint, at time.Time) error {
	return translate(r.db.WithContext(ctx).Model(&models.TableToken{}).
		Where("id = ?", id).
		Update("last_used", at).Error)
}

func (r *GormTokenRepository) ListActiveSessions(ctx context.Context, now time.Time) ([]models.TableToken, error) {
	var tokens []models.TableToken
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND session_active = ? AND session_end > ?", true, true, now).
		Order("table_number ASC").
		Find(&tokens).Error
	return tokens, translate(err)
}
