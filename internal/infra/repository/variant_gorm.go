package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type VariantGormRepository struct {
	db *gorm.DB
}

// DI
func NewVariantGormRepository(db *gorm.DB) *VariantGormRepository {
	return &VariantGormRepository{db: db}
}

func (r *VariantGormRepository) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var v model.ProductVariant

	err := r.db.WithContext(ctx).Where("id = ?", variantID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ProductVariant{}, err
	}
	return v, nil
}

// まとめて取得してID→variantのmapで返す
func (r *VariantGormRepository) FindByIDs(ctx context.Context, variantIDs []int64) (map[int64]model.ProductVariant, error) {
	out := make(map[int64]model.ProductVariant, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}

	var rows []model.ProductVariant
	if err := r.db.WithContext(ctx).
		Where("id IN ?", variantIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}
