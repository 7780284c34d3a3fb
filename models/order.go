package models

import "time"

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	TableNumber         int         `gorm:"not null;index" json:"table_number"`
	Status              string      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Total               float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	IsDelivery          bool        `gorm:"not null;default:false" json:"is_delivery"`
	CustomerName        string      `gorm:"type:varchar(100)" json:"customer_name,omitempty"`
	SpecialInstructions string      `gorm:"type:text" json:"special_instructions,omitempty"`
	IdempotencyKey      *string     `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	Timestamp           time.Time   `gorm:"not null;index" json:"timestamp"`
	UpdatedAt           time.Time   `gorm:"not null" json:"updated_at"`
	Items               []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
}

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}
