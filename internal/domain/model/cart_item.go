package model

import "time"

// カートの明細。
// (cart_id, variant_id) はuniqueIndex。同じvariantの追加は行を増やさず数量加算。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;uniqueIndex:idx_cart_variant" json:"cart_id"`
	VariantID int64     `gorm:"not null;uniqueIndex:idx_cart_variant" json:"variant_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
