package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeremiapane/restqr/kds"
	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/repository"
	"github.com/yeremiapane/restqr/utils"
)

const (
	maxCustomerNameLen = 100
	maxInstructionsLen = 500
)

// Publisher delivers kitchen events. Implementations must not block.
type Publisher interface {
	Publish(event string, data interface{}) error
}

// TokenValidator is the part of TokenService the order pipeline needs.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.TableToken, error)
	Touch(ctx context.Context, row *models.TableToken)
}

type OrderItemInput struct {
	MenuItemID uint
	Quantity   int
}

type CreateOrderInput struct {
	Token               string
	TableNumber         int
	IsDelivery          bool
	CustomerName        string
	SpecialInstructions string
	Items               []OrderItemInput
	IdempotencyKey      string
}

// OrderService turns a submitted basket into a persisted, priced order and
// tells the kitchen about it.
type OrderService struct {
	orders  repository.OrderRepository
	tokens  TokenValidator
	catalog MenuCatalog
	bus     Publisher
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewOrderService(orders repository.OrderRepository, tokens TokenValidator, catalog MenuCatalog, bus Publisher, log logrus.FieldLogger) *OrderService {
	return &OrderService{
		orders:  orders,
		tokens:  tokens,
		catalog: catalog,
		bus:     bus,
		log:     log,
		now:     time.Now,
	}
}

// CreateFromToken validates the table token, prices the basket at the current
// catalog prices and stores the order with its items atomically.
//
// An unknown, retired or expired token yields (nil, ErrInvalidToken) and
// writes nothing. The token's last_used is only bumped once the order is
// committed. When in.IsDelivery is set the token is ignored and
// in.TableNumber is taken as given.
func (s *OrderService) CreateFromToken(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateFromToken",
		trace.WithAttributes(
			attribute.Bool("order.is_delivery", in.IsDelivery),
			attribute.Int("order.lines", len(in.Items)),
		))
	defer span.End()

	if err := validateBasket(in); err != nil {
		return nil, err
	}

	tableNumber := in.TableNumber
	var tok *models.TableToken
	if !in.IsDelivery {
		var err error
		tok, err = s.tokens.Validate(ctx, in.Token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				spanError(span, err)
			}
			return nil, err
		}
		tableNumber = tok.TableNumber
	}
	span.SetAttributes(attribute.Int("table.number", tableNumber))

	if in.IdempotencyKey != "" {
		existing, err := s.orders.FindByIdempotencyKey(ctx, in.IdempotencyKey)
		if err == nil {
			return s.replay(existing, tableNumber, in.IsDelivery)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			spanError(span, err)
			return nil, &PersistenceError{Op: "create order", Err: err}
		}
	}

	total, err := s.price(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		TableNumber:         tableNumber,
		Status:              models.OrderStatusPending,
		Total:               total,
		IsDelivery:          in.IsDelivery,
		CustomerName:        in.CustomerName,
		SpecialInstructions: in.SpecialInstructions,
		Timestamp:           now,
		UpdatedAt:           now,
		Items:               make([]models.OrderItem, 0, len(in.Items)),
	}
	if in.IdempotencyKey != "" {
		key := in.IdempotencyKey
		order.IdempotencyKey = &key
	}
	for _, it := range in.Items {
		order.Items = append(order.Items, models.OrderItem{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}

	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		if in.IdempotencyKey != "" && repository.IsDuplicateKey(err) {
			if existing, findErr := s.orders.FindByIdempotencyKey(ctx, in.IdempotencyKey); findErr == nil {
				return s.replay(existing, tableNumber, in.IsDelivery)
			}
		}
		spanError(span, err)
		s.log.WithError(err).WithField("table_number", tableNumber).Error("failed to persist order")
		return nil, &PersistenceError{Op: "create order", Err: err}
	}
	if tok != nil {
		s.tokens.Touch(ctx, tok)
	}

	s.log.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"table_number": order.TableNumber,
		"is_delivery":  order.IsDelivery,
		"total":        utils.FormatPrice(order.Total),
	}).Info("order created")

	s.notify(kds.EventNewOrder, kds.NewOrderEvent{
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		IsDelivery:  order.IsDelivery,
		Total:       order.Total,
	})
	return order, nil
}

// replay hands back the order already stored under an idempotency key, but
// only to the table that created it.
func (s *OrderService) replay(existing *models.Order, tableNumber int, isDelivery bool) (*models.Order, error) {
	if existing.TableNumber != tableNumber || existing.IsDelivery != isDelivery {
		s.log.WithFields(logrus.Fields{
			"order_id":     existing.ID,
			"table_number": tableNumber,
		}).Warn("idempotency key reused by another table")
		return nil, ErrIdempotencyKeyReused
	}
	s.log.WithFields(logrus.Fields{
		"order_id":     existing.ID,
		"table_number": existing.TableNumber,
	}).Info("replayed order submission")
	return existing, nil
}

// price resolves every line against the catalog and returns the total in
// cents precision. Any unknown or unavailable item aborts the whole basket.
func (s *OrderService) price(ctx context.Context, items []OrderItemInput) (float64, error) {
	var total float64
	for _, it := range items {
		menuItem, err := s.catalog.GetByID(ctx, it.MenuItemID)
		if errors.Is(err, repository.ErrNotFound) {
			return 0, &NotFoundError{Resource: "menu item", ID: it.MenuItemID}
		}
		if err != nil {
			return 0, &PersistenceError{Op: "look up menu item", Err: err}
		}
		if !menuItem.Available {
			return 0, &NotFoundError{Resource: "menu item", ID: it.MenuItemID}
		}
		total += menuItem.Price * float64(it.Quantity)
	}
	return utils.RoundCents(total), nil
}

func validateBasket(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Message: "no items in order"}
	}
	for _, it := range in.Items {
		if it.MenuItemID == 0 {
			return &ValidationError{Field: "items.id", Message: "menu item id is required"}
		}
		if it.Quantity <= 0 {
			return &ValidationError{Field: "items.quantity", Message: "quantity must be positive"}
		}
	}
	if in.IsDelivery && in.TableNumber < 0 {
		return &ValidationError{Field: "table_number", Message: "must not be negative"}
	}
	if !in.IsDelivery && in.Token == "" {
		return &ValidationError{Field: "token", Message: "token is required"}
	}
	if utf8.RuneCountInString(in.CustomerName) > maxCustomerNameLen {
		return &ValidationError{Field: "customer_name", Message: "too long"}
	}
	if utf8.RuneCountInString(in.SpecialInstructions) > maxInstructionsLen {
		return &ValidationError{Field: "special_instructions", Message: "too long"}
	}
	return nil
}

// UpdateStatus moves a pending order to completed or cancelled.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateStatus",
		trace.WithAttributes(attribute.Int("order.id", int(id)), attribute.String("order.status", status)))
	defer span.End()

	if status != models.OrderStatusCompleted && status != models.OrderStatusCancelled {
		return nil, &ValidationError{Field: "status", Message: "must be completed or cancelled"}
	}

	err := s.orders.UpdateStatus(ctx, id, models.OrderStatusPending, status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, &NotFoundError{Resource: "order", ID: id}
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrInvalidTransition
	case err != nil:
		spanError(span, err)
		return nil, &PersistenceError{Op: "update order status", Err: err}
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "load order", Err: err}
	}

	s.log.WithFields(logrus.Fields{"order_id": id, "status": status}).Info("order status updated")
	s.notify(kds.EventOrderUpdate, kds.OrderUpdateEvent{
		OrderID:     order.ID,
		TableNumber: order.TableNumber,
		Status:      order.Status,
	})
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load order", Err: err}
	}
	return order, nil
}

// ListByStatus returns orders in the given status, oldest first. The pending
// list is what kitchen displays treat as authoritative.
func (s *OrderService) ListByStatus(ctx context.Context, status string) ([]models.Order, error) {
	if status == "" {
		status = models.OrderStatusPending
	}
	if !models.ValidOrderStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "unknown order status"}
	}
	orders, err := s.orders.ListByStatus(ctx, status)
	if err != nil {
		return nil, &PersistenceError{Op: "list orders", Err: err}
	}
	return orders, nil
}

// notify runs after the commit; a failed publish is logged and otherwise
// ignored.
func (s *OrderService) notify(event string, data interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event, data); err != nil {
		s.log.WithError(err).WithField("event", event).Warn("kitchen notification failed")
	}
}
