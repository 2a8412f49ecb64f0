package model

import "time"

// 商品バリアント。カタログ側が管理する読み取り専用の行。
// 価格はセント単位のint64で持つ（floatの誤差を避ける）。
type ProductVariant struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	PriceCents     int64     `gorm:"not null" json:"price_cents"`
	SalePriceCents *int64    `json:"sale_price_cents"`
	Stock          int64     `gorm:"not null" json:"stock"`
	ImageURL       string    `gorm:"type:varchar(511)" json:"image_url"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 実効価格。セール価格があればそちら。
func (v ProductVariant) EffectivePriceCents() int64 {
	if v.SalePriceCents != nil {
		return *v.SalePriceCents
	}
	return v.PriceCents
}
