package usecase

import (
	"context"
	"errors"

	repo "app/internal/repository"
)

// MergeUsecase はログイン時にゲストカートをユーザーカートへ畳み込む。
type MergeUsecase struct {
	tx repo.TransactionManager
}

func NewMergeUsecase(tx repo.TransactionManager) *MergeUsecase {
	return &MergeUsecase{tx: tx}
}

// MergeGuestIntoUser はゲストカートをユーザーカートへマージする。
// 冪等：ゲスト側が無ければ何もせず成功。全体を1トランザクションで行い、
// 「一部だけ移ってゲストカートが残る」状態を作らない。
//
// 数量は常に加算（上書きも破棄もしない）。在庫の再チェックはここではせず、
// 次の変更かチェックアウトの時点で行う。
func (u *MergeUsecase) MergeGuestIntoUser(ctx context.Context, guestToken string, userID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if guestToken == "" {
		// マージ対象なし
		return nil
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		g, err := r.Guests().FindByToken(ctx, guestToken)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		guestCart, err := r.Carts().FindByGuestID(ctx, g.ID)
		if errors.Is(err, repo.ErrNotFound) {
			// カートが無くてもゲスト行は片付けておく
			if err := r.Guests().DeleteByID(ctx, g.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			return nil
		}
		if err != nil {
			return err
		}

		userCart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, guestCart.ID)
		if err != nil {
			return err
		}

		for _, it := range items {
			// 同一variantは加算upsert
			if err := r.CartItems().UpsertAddQuantity(ctx, userCart.ID, it.VariantID, it.Quantity); err != nil {
				return err
			}
		}

		// ゲスト側を退役させる
		if err := r.CartItems().DeleteByCartID(ctx, guestCart.ID); err != nil {
			return err
		}
		if err := r.Carts().DeleteByID(ctx, guestCart.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err := r.Guests().DeleteByID(ctx, g.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		return nil
	})
}
