package services

import (
	"context"

	"github.com/yeremiapane/restqr/models"
)

const defaultCategory = "Other"

// MenuCatalog is the read-only price and availability source. GetByID
// returns repository.ErrNotFound for unknown ids.
type MenuCatalog interface {
	GetByID(ctx context.Context, id uint) (*models.MenuItem, error)
	ListAvailable(ctx context.Context) ([]models.MenuItem, error)
}

type MenuService struct {
	catalog MenuCatalog
}

func NewMenuService(catalog MenuCatalog) *MenuService {
	return &MenuService{catalog: catalog}
}

// Grouped returns available items keyed by category. Items without a
// category land in "Other".
func (s *MenuService) Grouped(ctx context.Context) (map[string][]models.MenuItem, error) {
	items, err := s.catalog.ListAvailable(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load menu", Err: err}
	}
	return GroupByCategory(items), nil
}

func GroupByCategory(items []models.MenuItem) map[string][]models.MenuItem {
	grouped := make(map[string][]models.MenuItem)
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = defaultCategory
		}
		grouped[category] = append(grouped[category], item)
	}
	return grouped
}
