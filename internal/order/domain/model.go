package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Settled reports whether the order has been paid for.
func (s OrderStatus) Settled() bool {
	return s == OrderStatusPaid || s == OrderStatusCompleted
}

type Order struct {
	ID          string          `gorm:"type:text;primaryKey" json:"id"`
	UserID      string          `gorm:"type:text;not null;index:ix_orders_user_id" json:"user_id"`
	Status      OrderStatus     `gorm:"type:text;not null;default:'pending'" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"total_amount"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is a line item. CommissionPercentage is a whole percentage of
// TotalPrice, e.g. 10 for 10%.
type OrderItem struct {
	ID                   string          `gorm:"type:text;primaryKey" json:"id"`
	OrderID              string          `gorm:"type:text;not null;index:ix_order_items_order_id" json:"order_id"`
	ProductID            string          `gorm:"type:text" json:"product_id"`
	Quantity             int             `gorm:"not null;default:1" json:"quantity"`
	TotalPrice           decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0" json:"total_price"`
	CommissionPercentage decimal.Decimal `gorm:"type:numeric(7,4);not null;default:0" json:"commission_percentage"`
	CreatedAt            time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }
