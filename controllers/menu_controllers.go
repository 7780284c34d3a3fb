package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restqr/services"
)

const deliveryMenuPath = "/delivery"

type MenuController struct {
	tokens *services.TokenService
	menu   *services.MenuService
}

func NewMenuController(tokens *services.TokenService, menu *services.MenuService) *MenuController {
	return &MenuController{tokens: tokens, menu: menu}
}

// TableMenu -> GET /menu/:token. Unknown, retired or expired tokens are sent
// to the delivery menu instead.
func (mc *MenuController) TableMenu(c *gin.Context) {
	ctx := c.Request.Context()
	token, err := mc.tokens.ValidateForUse(ctx, c.Param("token"))
	if errors.Is(err, services.ErrInvalidToken) {
		c.Redirect(http.StatusFound, deliveryMenuPath)
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	categories, err := mc.menu.Grouped(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"table_number":   token.TableNumber,
		"token":          token.Token,
		"session_active": token.SessionActive,
		"session_end":    token.SessionEnd,
		"categories":     categories,
	})
}

// DeliveryMenu -> GET /delivery
func (mc *MenuController) DeliveryMenu(c *gin.Context) {
	categories, err := mc.menu.Grouped(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"is_delivery": true,
		"categories":  categories,
	})
}
