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

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	return r.getOrCreate(ctx, "user_id = ?", userID, func(now time.Time) model.Cart {
		return model.Cart{UserID: &userID, CreatedAt: now, UpdatedAt: now}
	})
}

// ゲストのカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateByGuestID(ctx context.Context, guestID int64) (model.Cart, error) {
	return r.getOrCreate(ctx, "guest_id = ?", guestID, func(now time.Time) model.Cart {
		return model.Cart{GuestID: &guestID, CreatedAt: now, UpdatedAt: now}
	})
}

// トランザクションで探す→無ければ作る。
// 同時に2つ作ろうとした場合に負けた側が普通のINSERTをすると、unique違反で
// トランザクションごとabortして以降の読み直しも失敗する（25P02）。そこで
// INSERTはON CONFLICT DO NOTHINGにして、挿入できなかったら（RowsAffected=0）
// 勝った行を読み直して返す。呼び出し元は失敗しない。
func (r *CartGormRepository) getOrCreate(ctx context.Context, cond string, ownerID int64, build func(time.Time) model.Cart) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(cond, ownerID).
			First(&cart).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る
		newCart := build(time.Now())
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&newCart)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 負けた側。勝った行を読み直す
			return tx.Where(cond, ownerID).First(&cart).Error
		}

		cart = newCart
		return nil
	})

	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	return r.findBy(ctx, "user_id = ?", userID)
}

func (r *CartGormRepository) FindByGuestID(ctx context.Context, guestID int64) (model.Cart, error) {
	return r.findBy(ctx, "guest_id = ?", guestID)
}

func (r *CartGormRepository) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	return r.findBy(ctx, "id = ?", cartID)
}

func (r *CartGormRepository) findBy(ctx context.Context, cond string, arg int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).Where(cond, arg).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// カート本体を削除（マージでゲストカートを畳むときに使う）
func (r *CartGormRepository) DeleteByID(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Cart{}, cartID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
