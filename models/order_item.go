package models

// OrderItem carries no price; the parent Order's Total is the priced snapshot.
type OrderItem struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	OrderID    uint `gorm:"not null;index" json:"order_id"`
	MenuItemID uint `gorm:"not null" json:"menu_item_id"`
	Quantity   int  `gorm:"not null" json:"quantity"`
}
