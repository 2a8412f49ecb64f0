package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func userIdent(id int64) model.Identity {
	return model.Identity{UserID: &id}
}

func guestIdent(token string) model.Identity {
	return model.Identity{GuestToken: token}
}

// トークン発行を決定的にする
func tokenSequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("guest-token-%d", n)
	}
}

func newCartUC(s *memStore) *CartUsecase {
	return NewCartUsecase(newMemTxManager(s), tokenSequence(), fixedNow)
}

// =====================
// GetCart
// =====================

// 初回は空カートが作られる。送料0、合計0
func TestCartUsecase_GetCart_CreatesEmptyCart(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	out, minted, err := uc.GetCart(context.Background(), userIdent(1))
	require.NoError(t, err)

	assert.Empty(t, minted)
	assert.NotZero(t, out.ID)
	assert.Empty(t, out.Items)
	assert.Equal(t, int64(0), out.TotalItems)
	assert.Equal(t, 0.0, out.Subtotal)
	assert.Equal(t, 0.0, out.DeliveryFee)
	assert.Equal(t, 0.0, out.Total)
}

// 同じユーザーで2回呼んでもカートは1つ
func TestCartUsecase_GetCart_SameCartForSameUser(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	first, _, err := uc.GetCart(context.Background(), userIdent(1))
	require.NoError(t, err)
	second, _, err := uc.GetCart(context.Background(), userIdent(1))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, s.carts, 1)
}

// ゲスト：トークン無し => 発行されて返る。次回は同じトークンで同じカート
func TestCartUsecase_GetCart_GuestMintsToken(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	out, minted, err := uc.GetCart(context.Background(), guestIdent(""))
	require.NoError(t, err)
	require.NotEmpty(t, minted)

	again, minted2, err := uc.GetCart(context.Background(), guestIdent(minted))
	require.NoError(t, err)

	assert.Empty(t, minted2)
	assert.Equal(t, out.ID, again.ID)
}

// 期限切れゲスト：同じトークンのまま作り直し、カートは空から始まる
func TestCartUsecase_GetCart_ExpiredGuestRecreated(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 10, IsActive: true})

	_, minted, err := uc.AddItem(context.Background(), guestIdent(""), AddItemInput{VariantID: v.ID, Quantity: 1})
	require.NoError(t, err)
	require.NotEmpty(t, minted)

	// ゲスト行を期限切れにする
	for id, g := range s.guests {
		g.ExpiresAt = fixedNow().Add(-time.Hour)
		s.guests[id] = g
	}

	out, minted2, err := uc.GetCart(context.Background(), guestIdent(minted))
	require.NoError(t, err)

	assert.Empty(t, minted2)
	assert.Empty(t, out.Items)
}

// 同時作成に負けた側：読み→無い→INSERTがErrDuplicateでも、
// 同じトランザクション内で勝った行を読み直して成功する
func TestCartUsecase_GetCart_GuestCreateRaceReadsWinner(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	// 勝者が先に行を作っている
	winner, minted, err := uc.GetCart(context.Background(), guestIdent(""))
	require.NoError(t, err)
	require.NotEmpty(t, minted)

	// 最初の読みだけ見逃させて、Createがunique違反で負ける流れを作る
	s.guestFindMisses = 1

	out, minted2, err := uc.GetCart(context.Background(), guestIdent(minted))
	require.NoError(t, err)

	assert.Empty(t, minted2)
	assert.Equal(t, winner.ID, out.ID)
	assert.Len(t, s.guests, 1)
}

// =====================
// AddItem
// =====================

// 90.00ドルを2個 => 小計180.00、送料2.00、合計182.00
func TestCartUsecase_AddItem_ComputesTotals(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Sneaker", PriceCents: 9000, Stock: 10, IsActive: true})

	out, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(2), out.TotalItems)
	assert.Equal(t, 90.0, out.Items[0].UnitPrice)
	assert.Equal(t, 180.0, out.Subtotal)
	assert.Equal(t, 2.0, out.DeliveryFee)
	assert.Equal(t, 182.0, out.Total)
	assert.Equal(t, out.Subtotal+out.DeliveryFee, out.Total)
}

// セール価格があればそちらを使う
func TestCartUsecase_AddItem_UsesSalePrice(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	sale := int64(7500)
	v := s.seedVariant(model.ProductVariant{Name: "Sneaker", PriceCents: 9000, SalePriceCents: &sale, Stock: 10, IsActive: true})

	out, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, 75.0, out.Items[0].UnitPrice)
	assert.Equal(t, 75.0, out.Subtotal)
}

// 同じvariantを2回 => 数量加算で明細は1行のまま
func TestCartUsecase_AddItem_SameVariantAccumulates(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 10, IsActive: true})

	_, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 2})
	require.NoError(t, err)
	out, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(5), out.Items[0].Quantity)
}

// 別variantの追加は順番を入れ替えても結果が同じ
func TestCartUsecase_AddItem_OrderIndependent(t *testing.T) {
	run := func(first, second int64) CartResponse {
		s := newMemStore()
		uc := newCartUC(s)
		s.seedVariant(model.ProductVariant{ID: 101, Name: "A", PriceCents: 1000, Stock: 10, IsActive: true})
		s.seedVariant(model.ProductVariant{ID: 102, Name: "B", PriceCents: 2500, Stock: 10, IsActive: true})

		_, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: first, Quantity: 1})
		require.NoError(t, err)
		out, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: second, Quantity: 2})
		require.NoError(t, err)
		return out
	}

	ab := run(101, 102)
	ba := run(102, 101)

	qty := func(out CartResponse) map[int64]int64 {
		m := map[int64]int64{}
		for _, it := range out.Items {
			m[it.VariantID] = it.Quantity
		}
		return m
	}

	assert.Equal(t, qty(ab), qty(ba))
	assert.Equal(t, ab.Subtotal, ba.Subtotal)
	assert.Equal(t, ab.Total, ba.Total)
}

// 数量0以下 => ErrInvalidQuantity
func TestCartUsecase_AddItem_InvalidQuantity(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	_, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: 1, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// 存在しない・非公開variant => ErrVariantNotFound
func TestCartUsecase_AddItem_VariantNotFound(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	inactive := s.seedVariant(model.ProductVariant{Name: "Old", PriceCents: 1000, Stock: 10, IsActive: false})

	_, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: 999, Quantity: 1})
	assert.ErrorIs(t, err, ErrVariantNotFound)

	_, _, err = uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: inactive.ID, Quantity: 1})
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

// 在庫超過 => ErrInsufficientStock、カートは変化しない
func TestCartUsecase_AddItem_InsufficientStockLeavesCartUnchanged(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 5, IsActive: true})

	before, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 3})
	require.NoError(t, err)

	// 既存3 + 追加3 > 在庫5
	_, _, err = uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 3})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	after, _, err := uc.GetCart(context.Background(), userIdent(1))
	require.NoError(t, err)
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Total, after.Total)
}

// =====================
// UpdateQuantity / RemoveItem
// =====================

// 数量0は削除と同じ
func TestCartUsecase_UpdateQuantity_ZeroEqualsRemove(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 10, IsActive: true})

	added, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := added.Items[0].ID

	out, _, err := uc.UpdateQuantity(context.Background(), userIdent(1), itemID, 0)
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.Equal(t, 0.0, out.DeliveryFee)
	assert.Equal(t, 0.0, out.Total)
}

func TestCartUsecase_UpdateQuantity_SetsAbsoluteValue(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 10, IsActive: true})

	added, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 2})
	require.NoError(t, err)

	out, _, err := uc.UpdateQuantity(context.Background(), userIdent(1), added.Items[0].ID, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), out.Items[0].Quantity)
}

// 在庫超過の数量変更 => ErrInsufficientStock、カートは変化しない
func TestCartUsecase_UpdateQuantity_InsufficientStock(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 5, IsActive: true})

	added, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 2})
	require.NoError(t, err)

	_, _, err = uc.UpdateQuantity(context.Background(), userIdent(1), added.Items[0].ID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	after, _, err := uc.GetCart(context.Background(), userIdent(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), after.Items[0].Quantity)
}

// 他人のカートの明細 => ErrItemNotFound
func TestCartUsecase_RemoveItem_OtherUsersItem(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v := s.seedVariant(model.ProductVariant{Name: "Tee", PriceCents: 1000, Stock: 10, IsActive: true})

	added, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v.ID, Quantity: 1})
	require.NoError(t, err)

	_, _, err = uc.RemoveItem(context.Background(), userIdent(2), added.Items[0].ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	// 元の持ち主からは見える
	out, _, err := uc.GetCart(context.Background(), userIdent(1))
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
}

func TestCartUsecase_RemoveItem_NotFound(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	_, _, err := uc.RemoveItem(context.Background(), userIdent(1), 999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// =====================
// ClearCart / PurgeExpiredGuests
// =====================

func TestCartUsecase_ClearCart(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)
	v1 := s.seedVariant(model.ProductVariant{Name: "A", PriceCents: 1000, Stock: 10, IsActive: true})
	v2 := s.seedVariant(model.ProductVariant{Name: "B", PriceCents: 2000, Stock: 10, IsActive: true})

	_, _, err := uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v1.ID, Quantity: 1})
	require.NoError(t, err)
	_, _, err = uc.AddItem(context.Background(), userIdent(1), AddItemInput{VariantID: v2.ID, Quantity: 2})
	require.NoError(t, err)

	out, _, err := uc.ClearCart(context.Background(), userIdent(1))
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.Equal(t, 0.0, out.Total)
}

func TestCartUsecase_PurgeExpiredGuests(t *testing.T) {
	s := newMemStore()
	uc := newCartUC(s)

	_, _, err := uc.GetCart(context.Background(), guestIdent("alive"))
	require.NoError(t, err)
	_, _, err = uc.GetCart(context.Background(), guestIdent("dead"))
	require.NoError(t, err)

	for id, g := range s.guests {
		if g.SessionToken == "dead" {
			g.ExpiresAt = fixedNow().Add(-time.Minute)
			s.guests[id] = g
		}
	}

	n, err := uc.PurgeExpiredGuests(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), n)
	assert.Len(t, s.guests, 1)
}
