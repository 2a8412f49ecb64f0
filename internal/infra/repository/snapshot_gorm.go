package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type SnapshotGormRepository struct {
	db *gorm.DB
}

func NewSnapshotGormRepository(db *gorm.DB) *SnapshotGormRepository {
	return &SnapshotGormRepository{db: db}
}

// スナップショット本体と明細を1トランザクションで作成
func (r *SnapshotGormRepository) Create(ctx context.Context, snap model.CheckoutSnapshot, items []model.CheckoutSnapshotItem) (int64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&snap).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repo.ErrDuplicate
			}
			return err
		}

		for i := range items {
			items[i].SnapshotID = snap.ID
			items[i].Position = i
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})

	if err != nil {
		return 0, err
	}
	return snap.ID, nil
}

func (r *SnapshotGormRepository) FindBySessionID(ctx context.Context, sessionID string) (model.CheckoutSnapshot, []model.CheckoutSnapshotItem, error) {
	var snap model.CheckoutSnapshot

	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CheckoutSnapshot{}, nil, repo.ErrNotFound
	}
	if err != nil {
		return model.CheckoutSnapshot{}, nil, err
	}

	var items []model.CheckoutSnapshotItem
	if err := r.db.WithContext(ctx).
		Where("snapshot_id = ?", snap.ID).
		Order("position asc").
		Find(&items).Error; err != nil {
		return model.CheckoutSnapshot{}, nil, err
	}

	return snap, items, nil
}
