package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restqr/kds"
	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/repository"
)

func seedPizzaAndLemonade(t *testing.T, f *fixture) (pizza, lemonade models.MenuItem) {
	items := f.seedMenu(t,
		models.MenuItem{Name: "Pizza", Price: 12.50, Category: "Mains", Available: true},
		models.MenuItem{Name: "Lemonade", Price: 4.50, Category: "Drinks", Available: true},
	)
	return items[0], items[1]
}

func TestCreateFromToken_PricesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, lemonade := seedPizzaAndLemonade(t, f)

	token, err := f.tokens.GetOrCreate(ctx, 7)
	require.NoError(t, err)

	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token:        token.Token,
		CustomerName: "Ana",
		Items: []OrderItemInput{
			{MenuItemID: pizza.ID, Quantity: 2},
			{MenuItemID: lemonade.ID, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, 29.50, order.Total)
	assert.Equal(t, 7, order.TableNumber)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.False(t, order.IsDelivery)

	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.InDelta(t, 29.50, stored.Total, 0.001)
	assert.Equal(t, "Ana", stored.CustomerName)

	events := f.bus.Events()
	require.Len(t, events, 1)
	assert.Equal(t, kds.EventNewOrder, events[0].Event)
	assert.Equal(t, kds.NewOrderEvent{OrderID: order.ID, TableNumber: 7, IsDelivery: false, Total: 29.50}, events[0].Data)
}

func TestCreateFromToken_TotalIsASnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	token, err := f.tokens.GetOrCreate(ctx, 1)
	require.NoError(t, err)

	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&pizza).Update("price", 99.99).Error)

	stored, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.InDelta(t, 37.50, stored.Total, 0.001)
}

func TestCreateFromToken_InvalidTokensWriteNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	items := []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}}

	retired, err := f.tokens.GetOrCreate(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, f.tokens.Retire(ctx, 2))

	expired, err := f.tokens.GetOrCreate(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.TableToken{}).Where("id = ?", expired.ID).
		Update("session_end", time.Now().Add(-time.Hour)).Error)

	cases := map[string]string{
		"unknown":  "nonexistent-token",
		"inactive": retired.Token,
		"expired":  expired.Token,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{Token: tok, Items: items})
			assert.Nil(t, order)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	assert.EqualValues(t, 0, f.count(t, &models.Order{}))
	assert.EqualValues(t, 0, f.count(t, &models.OrderItem{}))
	assert.Empty(t, f.bus.Events())
}

func TestCreateFromToken_UnknownOrUnavailableItemAbortsWholeOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	soldOut := f.seedMenu(t, models.MenuItem{Name: "Special", Price: 20, Available: false})[0]

	token, err := f.tokens.GetOrCreate(ctx, 4)
	require.NoError(t, err)

	for _, missing := range []uint{9999, soldOut.ID} {
		order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
			Token: token.Token,
			Items: []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}, {MenuItemID: missing, Quantity: 1}},
		})
		assert.Nil(t, order)
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, missing, nf.ID)
	}

	assert.EqualValues(t, 0, f.count(t, &models.Order{}))
	assert.EqualValues(t, 0, f.count(t, &models.OrderItem{}))
}

func TestCreateFromToken_ValidatesBasket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	token, err := f.tokens.GetOrCreate(ctx, 4)
	require.NoError(t, err)

	cases := map[string]CreateOrderInput{
		"no items":      {Token: token.Token},
		"zero quantity": {Token: token.Token, Items: []OrderItemInput{{MenuItemID: 1, Quantity: 0}}},
		"negative qty":  {Token: token.Token, Items: []OrderItemInput{{MenuItemID: 1, Quantity: -2}}},
		"missing id":    {Token: token.Token, Items: []OrderItemInput{{Quantity: 1}}},
		"missing token": {Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.orders.CreateFromToken(ctx, in)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
	assert.EqualValues(t, 0, f.count(t, &models.Order{}))
}

func TestCreateFromToken_DeliverySkipsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)

	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		IsDelivery:  true,
		Token:       "ignored",
		TableNumber: 77,
		Items:       []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, order.IsDelivery)
	assert.Equal(t, 77, order.TableNumber)
	assert.Equal(t, 12.50, order.Total)
}

func TestCreateFromToken_IdempotencyKeyReturnsOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	token, err := f.tokens.GetOrCreate(ctx, 1)
	require.NoError(t, err)

	in := CreateOrderInput{
		Token:          token.Token,
		IdempotencyKey: "retry-1",
		Items:          []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	}
	first, err := f.orders.CreateFromToken(ctx, in)
	require.NoError(t, err)
	second, err := f.orders.CreateFromToken(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, f.count(t, &models.Order{}))
	assert.Len(t, f.bus.Events(), 1)

	in.IdempotencyKey = ""
	third, err := f.orders.CreateFromToken(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestCreateFromToken_PublishFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	f.bus.err = errors.New("bus down")

	token, err := f.tokens.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.EqualValues(t, 1, f.count(t, &models.Order{}))
}

func TestCreateFromToken_CatalogFailureIsPersistenceError(t *testing.T) {
	db := setupTestDB(t)
	log := testLogger()
	tokens := NewTokenService(repository.NewTokenRepository(db), TokenConfig{}, log)
	orders := NewOrderService(repository.NewOrderRepository(db), tokens, failingCatalog{}, &recordingBus{}, log)
	ctx := context.Background()

	token, err := tokens.GetOrCreate(ctx, 1)
	require.NoError(t, err)

	_, err = orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: 1, Quantity: 1}},
	})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "failed to look up menu item", perr.Error())
}

func TestUpdateStatus_CompletedLeavesPendingQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	token, err := f.tokens.GetOrCreate(ctx, 1)
	require.NoError(t, err)

	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	pending, err := f.orders.ListByStatus(ctx, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	updated, err := f.orders.UpdateStatus(ctx, order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)

	pending, err = f.orders.ListByStatus(ctx, models.OrderStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	events := f.bus.Events()
	require.Len(t, events, 2)
	assert.Equal(t, kds.EventOrderUpdate, events[1].Event)

	_, err = f.orders.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.orders.UpdateStatus(ctx, order.ID, models.OrderStatusPending)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.orders.UpdateStatus(ctx, 12345, models.OrderStatusCompleted)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestListByStatus_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.orders.ListByStatus(context.Background(), "cooking")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGroupByCategory(t *testing.T) {
	grouped := GroupByCategory([]models.MenuItem{
		{Name: "Soup", Category: "Starters"},
		{Name: "Bread"},
		{Name: "Salad", Category: "Starters"},
	})
	assert.Len(t, grouped["Starters"], 2)
	require.Len(t, grouped["Other"], 1)
	assert.Equal(t, "Bread", grouped["Other"][0].Name)
}

func TestCreateFromToken_IdempotencyKeyIsScopedToTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, lemonade := seedPizzaAndLemonade(t, f)
	t1, err := f.tokens.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	t2, err := f.tokens.GetOrCreate(ctx, 2)
	require.NoError(t, err)

	first, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token:          t1.Token,
		CustomerName:   "Alice",
		IdempotencyKey: "k",
		Items:          []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	other, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token:          t2.Token,
		CustomerName:   "Bob",
		IdempotencyKey: "k",
		Items:          []OrderItemInput{{MenuItemID: lemonade.ID, Quantity: 3}},
	})
	assert.Nil(t, other)
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)

	delivery, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		IsDelivery:     true,
		TableNumber:    1,
		IdempotencyKey: "k",
		Items:          []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	})
	assert.Nil(t, delivery)
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)

	assert.EqualValues(t, 1, f.count(t, &models.Order{}))
	stored, err := f.orders.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.CustomerName)
	assert.Len(t, f.bus.Events(), 1)
}

func TestCreateFromToken_TextLimitsCountCharacters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	token, err := f.tokens.GetOrCreate(ctx, 3)
	require.NoError(t, err)
	items := []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}}

	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token:               token.Token,
		CustomerName:        strings.Repeat("é", 100),
		SpecialInstructions: strings.Repeat("ü", 500),
		Items:               items,
	})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", 100), order.CustomerName)

	_, err = f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token:        token.Token,
		CustomerName: strings.Repeat("é", 101),
		Items:        items,
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "customer_name", verr.Field)
}

func TestCreateFromToken_LargeQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, lemonade := seedPizzaAndLemonade(t, f)
	token, err := f.tokens.GetOrCreate(ctx, 9)
	require.NoError(t, err)

	order, err := f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: lemonade.ID, Quantity: 250}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1125.00, order.Total)
}

func TestCreateFromToken_LastUsedOnlyMovesOnCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pizza, _ := seedPizzaAndLemonade(t, f)
	token, err := f.tokens.GetOrCreate(ctx, 5)
	require.NoError(t, err)

	later := token.LastUsed.Add(30 * time.Minute)
	f.tokens.now = func() time.Time { return later }

	lastUsed := func() time.Time {
		var row models.TableToken
		require.NoError(t, f.db.First(&row, token.ID).Error)
		return row.LastUsed
	}

	_, err = f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: 9999, Quantity: 1}},
	})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.WithinDuration(t, token.LastUsed, lastUsed(), time.Second)

	_, err = f.orders.CreateFromToken(ctx, CreateOrderInput{
		Token: token.Token,
		Items: []OrderItemInput{{MenuItemID: pizza.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, later, lastUsed(), time.Second)
}
