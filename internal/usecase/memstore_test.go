package usecase

import (
	"context"
	"sort"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// =====================
// テスト用インメモリストレージ。
// unique制約（user/guestごとのカート1つ、(cart,variant)の明細1行、
// transaction_id、session_id）を本物と同じ意味で再現する。
// WithinTxはエラー時に巻き戻す。
// =====================

type snapshotRec struct {
	snap  model.CheckoutSnapshot
	items []model.CheckoutSnapshotItem
}

type memStore struct {
	seq int64

	// >0の間、FindByTokenをわざと見逃させる。
	// 「読み→無い→INSERTがunique違反で負ける」競合の再現に使う。
	guestFindMisses int

	guests     map[int64]model.Guest
	carts      map[int64]model.Cart
	cartItems  map[int64]model.CartItem
	variants   map[int64]model.ProductVariant
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	payments   map[int64]model.Payment
	snapshots  map[string]snapshotRec
}

func newMemStore() *memStore {
	return &memStore{
		guests:     map[int64]model.Guest{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]model.CartItem{},
		variants:   map[int64]model.ProductVariant{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
		payments:   map[int64]model.Payment{},
		snapshots:  map[string]snapshotRec{},
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) seedVariant(v model.ProductVariant) model.ProductVariant {
	if v.ID == 0 {
		v.ID = s.nextID()
	}
	s.variants[v.ID] = v
	return v
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	c.seq = s.seq
	c.guestFindMisses = s.guestFindMisses
	for k, v := range s.guests {
		c.guests[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = snapshotRec{snap: v.snap, items: append([]model.CheckoutSnapshotItem(nil), v.items...)}
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.seq = from.seq
	s.guestFindMisses = from.guestFindMisses
	s.guests = from.guests
	s.carts = from.carts
	s.cartItems = from.cartItems
	s.variants = from.variants
	s.orders = from.orders
	s.orderItems = from.orderItems
	s.payments = from.payments
	s.snapshots = from.snapshots
}

// --- TransactionManager ---

type memTxManager struct {
	s *memStore
}

func newMemTxManager(s *memStore) *memTxManager {
	return &memTxManager{s: s}
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	before := m.s.clone()
	if err := fn(memRepos{s: m.s}); err != nil {
		m.s.restore(before)
		return err
	}
	return nil
}

type memRepos struct {
	s *memStore
}

func (r memRepos) Carts() repo.CartRepository           { return memCarts{r.s} }
func (r memRepos) CartItems() repo.CartItemRepository   { return memCartItems{r.s} }
func (r memRepos) Guests() repo.GuestRepository         { return memGuests{r.s} }
func (r memRepos) Variants() repo.VariantRepository     { return memVariants{r.s} }
func (r memRepos) Orders() repo.OrderRepository         { return memOrders{r.s} }
func (r memRepos) OrderItems() repo.OrderItemRepository { return memOrderItems{r.s} }
func (r memRepos) Payments() repo.PaymentRepository     { return memPayments{r.s} }
func (r memRepos) Snapshots() repo.SnapshotRepository   { return memSnapshots{r.s} }

// --- carts ---

type memCarts struct{ s *memStore }

func (m memCarts) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range m.s.carts {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	uid := userID
	c := model.Cart{ID: m.s.nextID(), UserID: &uid}
	m.s.carts[c.ID] = c
	return c, nil
}

func (m memCarts) GetOrCreateByGuestID(ctx context.Context, guestID int64) (model.Cart, error) {
	for _, c := range m.s.carts {
		if c.GuestID != nil && *c.GuestID == guestID {
			return c, nil
		}
	}
	gid := guestID
	c := model.Cart{ID: m.s.nextID(), GuestID: &gid}
	m.s.carts[c.ID] = c
	return c, nil
}

func (m memCarts) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range m.s.carts {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (m memCarts) FindByGuestID(ctx context.Context, guestID int64) (model.Cart, error) {
	for _, c := range m.s.carts {
		if c.GuestID != nil && *c.GuestID == guestID {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (m memCarts) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	c, ok := m.s.carts[cartID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

func (m memCarts) DeleteByID(ctx context.Context, cartID int64) error {
	if _, ok := m.s.carts[cartID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.carts, cartID)
	return nil
}

// --- cart items ---

type memCartItems struct{ s *memStore }

func (m memCartItems) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, it := range m.s.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCartItems) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	it, ok := m.s.cartItems[cartItemID]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (m memCartItems) UpsertAddQuantity(ctx context.Context, cartID int64, variantID int64, addQty int64) error {
	for id, it := range m.s.cartItems {
		if it.CartID == cartID && it.VariantID == variantID {
			it.Quantity += addQty
			m.s.cartItems[id] = it
			return nil
		}
	}
	it := model.CartItem{ID: m.s.nextID(), CartID: cartID, VariantID: variantID, Quantity: addQty}
	m.s.cartItems[it.ID] = it
	return nil
}

func (m memCartItems) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	it, ok := m.s.cartItems[cartItemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	m.s.cartItems[cartItemID] = it
	return nil
}

func (m memCartItems) DeleteByID(ctx context.Context, cartItemID int64) error {
	if _, ok := m.s.cartItems[cartItemID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.cartItems, cartItemID)
	return nil
}

func (m memCartItems) DeleteByCartID(ctx context.Context, cartID int64) error {
	for id, it := range m.s.cartItems {
		if it.CartID == cartID {
			delete(m.s.cartItems, id)
		}
	}
	return nil
}

// --- guests ---

type memGuests struct{ s *memStore }

func (m memGuests) FindByToken(ctx context.Context, token string) (model.Guest, error) {
	if m.s.guestFindMisses > 0 {
		m.s.guestFindMisses--
		return model.Guest{}, repo.ErrNotFound
	}
	for _, g := range m.s.guests {
		if g.SessionToken == token {
			return g, nil
		}
	}
	return model.Guest{}, repo.ErrNotFound
}

func (m memGuests) Create(ctx context.Context, g model.Guest) (model.Guest, error) {
	for _, existing := range m.s.guests {
		if existing.SessionToken == g.SessionToken {
			return model.Guest{}, repo.ErrDuplicate
		}
	}
	g.ID = m.s.nextID()
	m.s.guests[g.ID] = g
	return g, nil
}

func (m memGuests) DeleteByID(ctx context.Context, guestID int64) error {
	if _, ok := m.s.guests[guestID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.guests, guestID)
	return nil
}

func (m memGuests) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, g := range m.s.guests {
		if g.IsExpired(now) {
			delete(m.s.guests, id)
			n++
		}
	}
	return n, nil
}

// --- variants ---

type memVariants struct{ s *memStore }

func (m memVariants) FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	v, ok := m.s.variants[variantID]
	if !ok {
		return model.ProductVariant{}, repo.ErrNotFound
	}
	return v, nil
}

func (m memVariants) FindByIDs(ctx context.Context, variantIDs []int64) (map[int64]model.ProductVariant, error) {
	out := map[int64]model.ProductVariant{}
	for _, id := range variantIDs {
		if v, ok := m.s.variants[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// --- orders ---

type memOrders struct{ s *memStore }

func (m memOrders) Create(ctx context.Context, order model.Order) (int64, error) {
	order.ID = m.s.nextID()
	m.s.orders[order.ID] = order
	return order.ID, nil
}

func (m memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := m.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := m.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	m.s.orders[orderID] = o
	return nil
}

// --- order items ---

type memOrderItems struct{ s *memStore }

func (m memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		it.ID = m.s.nextID()
		it.OrderID = orderID
		out = append(out, it)
	}
	m.s.orderItems[orderID] = append(m.s.orderItems[orderID], out...)
	return nil
}

func (m memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem(nil), m.s.orderItems[orderID]...), nil
}

// --- payments ---

type memPayments struct{ s *memStore }

func (m memPayments) Create(ctx context.Context, p model.Payment) (int64, error) {
	for _, existing := range m.s.payments {
		if existing.TransactionID == p.TransactionID {
			return 0, repo.ErrDuplicate
		}
	}
	p.ID = m.s.nextID()
	m.s.payments[p.ID] = p
	return p.ID, nil
}

func (m memPayments) FindByTransactionID(ctx context.Context, transactionID string) (model.Payment, error) {
	for _, p := range m.s.payments {
		if p.TransactionID == transactionID {
			return p, nil
		}
	}
	return model.Payment{}, repo.ErrNotFound
}

func (m memPayments) FindByOrderID(ctx context.Context, orderID int64) (model.Payment, error) {
	for _, p := range m.s.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return model.Payment{}, repo.ErrNotFound
}

// --- snapshots ---

type memSnapshots struct{ s *memStore }

func (m memSnapshots) Create(ctx context.Context, snap model.CheckoutSnapshot, items []model.CheckoutSnapshotItem) (int64, error) {
	if _, ok := m.s.snapshots[snap.SessionID]; ok {
		return 0, repo.ErrDuplicate
	}
	snap.ID = m.s.nextID()
	stored := make([]model.CheckoutSnapshotItem, 0, len(items))
	for i, it := range items {
		it.ID = m.s.nextID()
		it.SnapshotID = snap.ID
		it.Position = i
		stored = append(stored, it)
	}
	m.s.snapshots[snap.SessionID] = snapshotRec{snap: snap, items: stored}
	return snap.ID, nil
}

func (m memSnapshots) FindBySessionID(ctx context.Context, sessionID string) (model.CheckoutSnapshot, []model.CheckoutSnapshotItem, error) {
	rec, ok := m.s.snapshots[sessionID]
	if !ok {
		return model.CheckoutSnapshot{}, nil, repo.ErrNotFound
	}
	return rec.snap, append([]model.CheckoutSnapshotItem(nil), rec.items...), nil
}
