package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restqr/cache"
	"github.com/yeremiapane/restqr/config"
	"github.com/yeremiapane/restqr/kds"
	"github.com/yeremiapane/restqr/middlewares"
	"github.com/yeremiapane/restqr/repository"
	"github.com/yeremiapane/restqr/router"
	"github.com/yeremiapane/restqr/services"
)

// App is the fully wired service. Nothing in it is process-global, so tests
// can build as many as they like.
type App struct {
	Engine *gin.Engine
	Hub    *kds.Hub
	Tokens *services.TokenService
	Orders *services.OrderService
}

// New wires repositories, services and routes. A nil rdb disables the menu
// cache and the cross-instance kitchen relay.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, log *logrus.Logger) (*App, error) {
	hub := kds.NewHub(cfg.KDSBuffer, log.WithField("component", "kds"))

	var bus services.Publisher = hub
	// Orders always price against the database; only menu listings are cached.
	menuDB := repository.NewMenuRepository(db)
	var menuRepo repository.MenuRepository = menuDB
	if rdb != nil {
		menuRepo = cache.NewCachedMenuRepository(menuDB, rdb, cfg.MenuCacheTTL, log.WithField("component", "menu_cache"))

		relay := kds.NewRedisRelay(hub, rdb, cfg.KDSChannel, log.WithField("component", "kds_relay"))
		if err := relay.Start(ctx); err != nil {
			return nil, err
		}
		bus = relay
	}

	tokens := services.NewTokenService(
		repository.NewTokenRepository(db),
		services.TokenConfig{
			SessionDuration: cfg.SessionDuration,
			CreateRetries:   cfg.TokenCreateRetries,
		},
		log.WithField("component", "tokens"),
	)
	orders := services.NewOrderService(
		repository.NewOrderRepository(db),
		tokens,
		menuDB,
		bus,
		log.WithField("component", "orders"),
	)

	var limiter *middlewares.RateLimiter
	if cfg.OrderRateLimit > 0 {
		limiter = middlewares.NewRateLimiter(cfg.OrderRateLimit, cfg.OrderRateBurst)
	}

	engine := router.SetupRouter(router.Dependencies{
		Tokens:      tokens,
		Orders:      orders,
		Menu:        services.NewMenuService(menuRepo),
		Hub:         hub,
		Log:         log,
		ServiceName: cfg.ServiceName,
		BaseURL:     cfg.PublicBaseURL,
		CORSOrigins: cfg.CORSOrigins,
		OrderLimit:  limiter,
	})

	return &App{Engine: engine, Hub: hub, Tokens: tokens, Orders: orders}, nil
}
