package repository

import (
	"context"

	"app/internal/domain/model"
)

// カタログはこのコアからは読み取り専用。
type VariantRepository interface {
	FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error)
	FindByIDs(ctx context.Context, variantIDs []int64) (map[int64]model.ProductVariant, error)
}
