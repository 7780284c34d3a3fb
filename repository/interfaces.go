package repository

import (
	"context"
	"time"

	"github.com/yeremiapane/restqr/models"
)

type TokenRepository interface {
	FindActiveByTable(ctx context.Context, tableNumber int) (*models.TableToken, error)
	FindByToken(ctx context.Context, token string) (*models.TableToken, error)
	Create(ctx context.Context, token *models.TableToken) error
	Activate(ctx context.Context, id uint, start, end time.Time) error
	Deactivate(ctx context.Context, id uint, at time.Time) error
	Retire(ctx context.Context, tableNumber int) error
	TouchLastUsed(ctx context.Context, id uint, at time.Time) error
	ListActiveSessions(ctx context.Context, now time.Time) ([]models.TableToken, error)
}

type OrderRepository interface {
	CreateWithItems(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListByStatus(ctx context.Context, status string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uint, from, to string) error
}

type MenuRepository interface {
	GetByID(ctx context.Context, id uint) (*models.MenuItem, error)
	ListAvailable(ctx context.Context) ([]models.MenuItem, error)
}
