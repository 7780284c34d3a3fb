package repository

import (
	"context"

	"github.com/yeremiapane/restqr/models"
	"gorm.io/gorm"
)

type GormMenuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) *GormMenuRepository {
	return &GormMenuRepository{db: db}
}

func (r *GormMenuRepository) GetByID(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *GormMenuRepository) ListAvailable(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Order("category ASC").Order("name ASC").
		Find(&items).Error
	return items, translate(err)
}
