package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GuestGormRepository struct {
	db *gorm.DB
}

// DI
func NewGuestGormRepository(db *gorm.DB) *GuestGormRepository {
	return &GuestGormRepository{db: db}
}

func (r *GuestGormRepository) FindByToken(ctx context.Context, token string) (model.Guest, error) {
	var g model.Guest

	err := r.db.WithContext(ctx).Where("session_token = ?", token).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Guest{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Guest{}, err
	}
	return g, nil
}

// 同じトークンが同時に作られた場合、普通のINSERTだとunique違反で
// 呼び出し元のトランザクションごとabortしてしまう。ON CONFLICT DO NOTHINGで
// 挿入し、挿入できなかったらErrDuplicateを返す（トランザクションは生きたまま
// なので、呼び出し元は同じトランザクション内で勝った行を読み直せる）。
func (r *GuestGormRepository) Create(ctx context.Context, g model.Guest) (model.Guest, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&g)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return model.Guest{}, repo.ErrDuplicate
		}
		return model.Guest{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Guest{}, repo.ErrDuplicate
	}
	return g, nil
}

func (r *GuestGormRepository) DeleteByID(ctx context.Context, guestID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Guest{}, guestID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 期限切れゲストの掃除。消した件数を返す。
func (r *GuestGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.Guest{})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
