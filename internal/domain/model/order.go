package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type Order struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *int64      `gorm:"index" json:"user_id"`
	Status     OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalCents int64       `gorm:"not null" json:"total_cents"`
	CreatedAt  time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 許可される遷移だけtrue。
// PENDING→PAID→SHIPPED→DELIVERED。CANCELLEDはDELIVERED前ならどこからでも可。
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	if to == OrderStatusCancelled {
		return from == OrderStatusPending || from == OrderStatusPaid || from == OrderStatusShipped
	}

	switch from {
	case OrderStatusPending:
		return to == OrderStatusPaid
	case OrderStatusPaid:
		return to == OrderStatusShipped
	case OrderStatusShipped:
		return to == OrderStatusDelivered
	default:
		return false
	}
}
