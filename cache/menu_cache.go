package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/repository"
)

const (
	DefaultMenuTTL = 5 * time.Minute
	notFoundTTL    = time.Minute
	notFoundMarker = "notfound"
	availableKey   = "menu:available"
)

// CachedMenuRepository is a read-through Redis cache in front of the menu
// table. Redis problems are logged and the database is used instead.
type CachedMenuRepository struct {
	realRepo repository.MenuRepository
	redis    *redis.Client
	ttl      time.Duration
	log      logrus.FieldLogger
}

func NewCachedMenuRepository(realRepo repository.MenuRepository, client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedMenuRepository {
	if ttl <= 0 {
		ttl = DefaultMenuTTL
	}
	return &CachedMenuRepository{realRepo: realRepo, redis: client, ttl: ttl, log: log}
}

func itemKey(id uint) string {
	return fmt.Sprintf("menu:item:%d", id)
}

func (c *CachedMenuRepository) GetByID(ctx context.Context, id uint) (*models.MenuItem, error) {
	key := itemKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, repository.ErrNotFound
		}
		var item models.MenuItem
		if err := json.Unmarshal(data, &item); err == nil {
			return &item, nil
		}
		c.log.WithField("key", key).Warn("corrupt menu cache entry, reading from database")
	case errors.Is(err, redis.Nil):
	default:
		c.log.WithError(err).Warn("menu cache unavailable, reading from database")
	}

	item, err := c.realRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if setErr := c.redis.Set(ctx, key, notFoundMarker, notFoundTTL).Err(); setErr != nil {
			c.log.WithError(setErr).Debug("failed to cache menu miss")
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, item)
	return item, nil
}

func (c *CachedMenuRepository) ListAvailable(ctx context.Context) ([]models.MenuItem, error) {
	data, err := c.redis.Get(ctx, availableKey).Bytes()
	switch {
	case err == nil:
		var items []models.MenuItem
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
	case errors.Is(err, redis.Nil):
	default:
		c.log.WithError(err).Warn("menu cache unavailable, reading from database")
	}

	items, err := c.realRepo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, availableKey, items)
	return items, nil
}

// Invalidate drops the cached entries for the given items and the available
// list. With no ids only the list is dropped.
func (c *CachedMenuRepository) Invalidate(ctx context.Context, ids ...uint) error {
	keys := []string{availableKey}
	for _, id := range ids {
		keys = append(keys, itemKey(id))
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *CachedMenuRepository) store(ctx context.Context, key string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).Warn("failed to encode menu cache entry")
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("failed to write menu cache entry")
	}
}
