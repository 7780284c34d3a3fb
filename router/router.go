package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yeremiapane/restqr/controllers"
	"github.com/yeremiapane/restqr/kds"
	"github.com/yeremiapane/restqr/middlewares"
	"github.com/yeremiapane/restqr/services"
)

const kdsPath = "/kds/ws"

type Dependencies struct {
	Tokens      *services.TokenService
	Orders      *services.OrderService
	Menu        *services.MenuService
	Hub         *kds.Hub
	Log         logrus.FieldLogger
	ServiceName string
	BaseURL     string
	CORSOrigins []string
	OrderLimit  *middlewares.RateLimiter
}

func init() {
	// request bodies with fields we do not know are rejected
	binding.EnableDecoderDisallowUnknownFields = true
}

func SetupRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{kdsPath})))

	orderCtrl := controllers.NewOrderController(d.Orders, d.BaseURL)
	menuCtrl := controllers.NewMenuController(d.Tokens, d.Menu)
	tableCtrl := controllers.NewTableController(d.Tokens, d.BaseURL)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.Orders, d.Log)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// -- CUSTOMER --
	r.GET("/menu/:token", menuCtrl.TableMenu)
	r.GET("/delivery", menuCtrl.DeliveryMenu)
	r.POST("/tables/activate", tableCtrl.ActivateWithCode)
	r.GET("/order/confirmation/:order_id", orderCtrl.GetConfirmation)

	submit := r.Group("/")
	if d.OrderLimit != nil {
		submit.Use(d.OrderLimit.RateLimit())
	}
	submit.POST("/create_order", orderCtrl.CreateOrder)

	// -- KITCHEN --
	kitchen := r.Group("/kitchen")
	kitchen.GET("/orders", orderCtrl.ListKitchenOrders)
	kitchen.PATCH("/orders/:order_id/status", orderCtrl.UpdateStatus)
	r.GET(kdsPath, middlewares.KitchenRole(), kdsCtrl.KDSHandler)

	// -- ADMIN --
	admin := r.Group("/admin")
	admin.GET("/tables/active", tableCtrl.ListActive)
	admin.POST("/tables/:table_number/token", tableCtrl.IssueToken)
	admin.DELETE("/tables/:table_number/token", tableCtrl.Retire)
	admin.POST("/tables/:table_number/activate", tableCtrl.Activate)
	admin.POST("/tables/:table_number/deactivate", tableCtrl.Deactivate)

	return r
}
