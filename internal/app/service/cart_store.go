package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/pkg/logger"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidProduct  = errors.New("product id is required")
	ErrInvalidQuantity = errors.New("quantity increment must be at least 1")
)

const defaultPersistTimeout = 3 * time.Second

// snapshotSeq orders cart states across every store in the process, so a
// session's store that is evicted and rebuilt keeps counting upward.
var snapshotSeq atomic.Uint64

// CartStore is the cart of one shopper session. It holds the items in
// first-add order, writes them through to persistence after every mutation
// and restores them once, when constructed.
//
// All operations are synchronous and serialized. A failed write never
// reaches the caller: the in-memory cart stays authoritative, the store is
// marked dirty and Flush retries the write.
type CartStore struct {
	mu        sync.Mutex
	key       string
	repo      repository.CartStateRepository
	timeout   time.Duration
	items     []model.CartItem
	version   uint64
	dirty     bool
	lastErr   error
	listeners []func(model.CartSnapshot)
}

// CartStoreOption customizes a CartStore at construction.
type CartStoreOption func(*CartStore)

// WithPersistTimeout bounds each write-through call.
func WithPersistTimeout(d time.Duration) CartStoreOption {
	return func(s *CartStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithChangeListener registers fn to receive a snapshot after each mutation.
func WithChangeListener(fn func(model.CartSnapshot)) CartStoreOption {
	return func(s *CartStore) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// NewCartStore builds the store for key, restoring any persisted cart.
// Missing or unreadable state yields an empty cart; restoring never writes.
func NewCartStore(ctx context.Context, repo repository.CartStateRepository, key string, opts ...CartStoreOption) *CartStore {
	s := &CartStore{
		key:     key,
		repo:    repo,
		timeout: defaultPersistTimeout,
		items:   []model.CartItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.restore(ctx)
	s.version = snapshotSeq.Add(1)
	return s
}

func (s *CartStore) restore(ctx context.Context) {
	payload, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, repository.ErrCartStateNotFound) {
			logger.Warn("Failed to load persisted cart, starting empty", map[string]interface{}{
				"storage_key": s.key,
				"error":       err.Error(),
			})
		}
		return
	}

	items, dropped, err := decodeCart(payload)
	if err != nil {
		logger.Warn("Persisted cart is corrupted, starting empty", map[string]interface{}{
			"storage_key": s.key,
			"error":       err.Error(),
		})
		return
	}
	if dropped > 0 {
		logger.Warn("Dropped invalid items from persisted cart", map[string]interface{}{
			"storage_key": s.key,
			"dropped":     dropped,
		})
	}

	s.items = items
	logger.Debug("Cart restored", map[string]interface{}{
		"storage_key": s.key,
		"count":       len(items),
	})
}

// Key returns the storage key the store persists under.
func (s *CartStore) Key() string {
	return s.key
}

// AddItem adds one unit of product. A product already in the cart has its
// quantity incremented by exactly 1; any other product is appended with
// quantity 1.
func (s *CartStore) AddItem(product model.Product) error {
	return s.AddItemQuantity(product, 1)
}

// AddItemQuantity adds n units of product in one mutation.
func (s *CartStore) AddItemQuantity(product model.Product, n int) error {
	if !product.HasID() {
		return ErrInvalidProduct
	}
	if n < 1 {
		return ErrInvalidQuantity
	}

	s.mutate(func(items []model.CartItem) []model.CartItem {
		if i := indexOf(items, product.ID); i >= 0 {
			items[i].Quantity += n
			return items
		}
		return append(items, cloneItem(model.CartItem{Product: product, Quantity: n}))
	})
	return nil
}

// RemoveItem deletes the item for productID. Absent ids are a no-op.
func (s *CartStore) RemoveItem(productID string) {
	s.mutate(func(items []model.CartItem) []model.CartItem {
		if i := indexOf(items, productID); i >= 0 {
			return append(items[:i], items[i+1:]...)
		}
		return items
	})
}

// UpdateQuantity sets the quantity for productID verbatim. Keeping it at
// least 1 is up to the caller. Absent ids are a no-op.
func (s *CartStore) UpdateQuantity(productID string, quantity int) {
	s.mutate(func(items []model.CartItem) []model.CartItem {
		if i := indexOf(items, productID); i >= 0 {
			items[i].Quantity = quantity
		}
		return items
	})
}

// ClearCart empties the cart.
func (s *CartStore) ClearCart() {
	s.mutate(func([]model.CartItem) []model.CartItem {
		return []model.CartItem{}
	})
}

// GetTotalItems returns the sum of quantities.
func (s *CartStore) GetTotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.items)
}

// GetTotalPrice returns the sum of price × quantity using the prices
// captured when each item was added.
func (s *CartStore) GetTotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.items)
}

// Items returns a copy of the cart items in display order.
func (s *CartStore) Items() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Snapshot returns the items together with their totals.
func (s *CartStore) Snapshot() model.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Dirty reports whether the last write-through failed and has not been
// retried successfully.
func (s *CartStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastPersistError returns the error of the last failed write, if the store
// is still dirty.
func (s *CartStore) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Flush retries persistence for a dirty store. Unlike mutations it reports
// the failure, so callers can schedule another attempt.
func (s *CartStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}
	return s.persistLocked(ctx)
}

// release prepares an idle store for eviction. A dirty store is flushed
// first; an empty cart has its persisted state deleted since restoring it
// would yield the same empty cart.
func (s *CartStore) release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dirty {
		if err := s.persistLocked(ctx); err != nil {
			return err
		}
	}
	if len(s.items) > 0 {
		return nil
	}

	err := s.repo.Delete(ctx, s.key)
	if err != nil && !errors.Is(err, repository.ErrCartStateNotFound) {
		return err
	}
	return nil
}

func (s *CartStore) mutate(fn func([]model.CartItem) []model.CartItem) {
	s.mu.Lock()
	s.items = fn(s.items)
	s.version = snapshotSeq.Add(1)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	if err := s.persistLocked(ctx); err != nil {
		logger.Warn("Failed to persist cart, keeping in-memory state", map[string]interface{}{
			"storage_key": s.key,
			"error":       err.Error(),
		})
	}
	cancel()

	snapshot := s.snapshotLocked()
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
}

func (s *CartStore) persistLocked(ctx context.Context) error {
	payload, err := encodeCart(s.items)
	if err == nil {
		err = s.repo.Set(ctx, s.key, payload)
	}
	if err != nil {
		s.dirty = true
		s.lastErr = err
		return err
	}
	s.dirty = false
	s.lastErr = nil
	return nil
}

func (s *CartStore) snapshotLocked() model.CartSnapshot {
	return model.CartSnapshot{
		Items:      cloneItems(s.items),
		TotalItems: totalItems(s.items),
		TotalPrice: totalPrice(s.items),
		Version:    s.version,
	}
}

func indexOf(items []model.CartItem, productID string) int {
	for i := range items {
		if items[i].ID == productID {
			return i
		}
	}
	return -1
}

func cloneItems(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	for i := range items {
		out[i] = cloneItem(items[i])
	}
	return out
}

func cloneItem(item model.CartItem) model.CartItem {
	if item.Images != nil {
		item.Images = append([]string(nil), item.Images...)
	}
	return item
}

func totalItems(items []model.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func totalPrice(items []model.CartItem) float64 {
	total := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	f, _ := total.Float64()
	return f
}
