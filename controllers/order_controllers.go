package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restqr/services"
	"github.com/yeremiapane/restqr/utils"
)

const idempotencyHeader = "Idempotency-Key"

type OrderController struct {
	orders  *services.OrderService
	baseURL string
}

func NewOrderController(orders *services.OrderService, baseURL string) *OrderController {
	return &OrderController{orders: orders, baseURL: baseURL}
}

type orderItemRequest struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantity"`
}

type createOrderRequest struct {
	Items               []orderItemRequest `json:"items"`
	IsDelivery          bool               `json:"is_delivery"`
	Token               string             `json:"token"`
	TableNumber         *int               `json:"table_number"`
	CustomerName        string             `json:"customer_name" binding:"max=100"`
	SpecialInstructions string             `json:"special_instructions" binding:"max=500"`
}

// CreateOrder -> POST /create_order
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body createOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		if errors.Is(err, io.EOF) {
			utils.RespondLegacyError(c, http.StatusBadRequest, "No data provided")
			return
		}
		utils.RespondLegacyError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	key := c.GetHeader(idempotencyHeader)
	if len(key) > 64 {
		utils.RespondLegacyError(c, http.StatusBadRequest, "Idempotency-Key must be at most 64 characters")
		return
	}

	in := services.CreateOrderInput{
		Token:               body.Token,
		IsDelivery:          body.IsDelivery,
		CustomerName:        body.CustomerName,
		SpecialInstructions: body.SpecialInstructions,
		IdempotencyKey:      key,
		Items:               make([]services.OrderItemInput, 0, len(body.Items)),
	}
	if body.TableNumber != nil {
		in.TableNumber = *body.TableNumber
	}
	for _, it := range body.Items {
		in.Items = append(in.Items, services.OrderItemInput{MenuItemID: it.ID, Quantity: it.Quantity})
	}

	order, err := oc.orders.CreateFromToken(c.Request.Context(), in)
	if err != nil {
		code, msg := statusFor(err)
		if code == http.StatusInternalServerError {
			_ = c.Error(err)
			msg = "Failed to create order"
		}
		utils.RespondLegacyError(c, code, msg)
		return
	}

	redirect := fmt.Sprintf("%s/order/confirmation/%d", oc.baseURL, order.ID)
	if !order.IsDelivery {
		redirect += "?token=" + url.QueryEscape(body.Token)
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"order_id":     order.ID,
		"redirect_url": redirect,
		"message":      "Order placed successfully",
	})
}

// GetConfirmation -> GET /order/confirmation/:order_id
func (oc *OrderController) GetConfirmation(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := oc.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order details", order)
}

// ListKitchenOrders -> GET /kitchen/orders?status=pending
func (oc *OrderController) ListKitchenOrders(c *gin.Context) {
	orders, err := oc.orders.ListByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus -> PATCH /kitchen/orders/:order_id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.orders.UpdateStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid order id"))
		return 0, false
	}
	return uint(id), true
}
