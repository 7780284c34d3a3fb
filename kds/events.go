package kds

const (
	EventNewOrder        = "new_order"
	EventOrderUpdate     = "order_update"
	EventPendingSnapshot = "pending_snapshot"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewOrderEvent is the payload of EventNewOrder.
type NewOrderEvent struct {
	OrderID     uint    `json:"order_id"`
	TableNumber int     `json:"table_number"`
	IsDelivery  bool    `json:"is_delivery"`
	Total       float64 `json:"total"`
}

// OrderUpdateEvent is the payload of EventOrderUpdate.
type OrderUpdateEvent struct {
	OrderID     uint   `json:"order_id"`
	TableNumber int    `json:"table_number"`
	Status      string `json:"status"`
}
