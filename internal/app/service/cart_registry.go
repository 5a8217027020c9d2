package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/repository"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

var ErrInvalidSession = errors.New("cart session id is required")

// CartChangeFunc receives the new cart of a session after each mutation.
type CartChangeFunc func(sessionID string, snapshot model.CartSnapshot)

// CartRegistry hands out exactly one live CartStore per shopper session.
type CartRegistry interface {
	Get(ctx context.Context, sessionID string) (*CartStore, error)
	OnChange(fn CartChangeFunc)
	FlushDirty(ctx context.Context) (int, error)
	EvictIdle(ctx context.Context, idle time.Duration) (int, error)
	Len() int
}

type registryEntry struct {
	store      *CartStore
	lastAccess time.Time
}

type cartRegistry struct {
	repo           repository.CartStateRepository
	namespace      string
	persistTimeout time.Duration
	now            func() time.Time

	mu     sync.Mutex
	stores map[string]*registryEntry

	listenersMu sync.RWMutex
	listeners   []CartChangeFunc
}

// NewCartRegistry creates a registry whose stores persist under
// "<namespace>:<session id>".
func NewCartRegistry(repo repository.CartStateRepository, namespace string, persistTimeout time.Duration) CartRegistry {
	return &cartRegistry{
		repo:           repo,
		namespace:      namespace,
		persistTimeout: persistTimeout,
		now:            time.Now,
		stores:         make(map[string]*registryEntry),
	}
}

// StorageKey returns the persistence key of a session's cart.
func StorageKey(namespace, sessionID string) string {
	return namespace + ":" + sessionID
}

// Get returns the session's store, restoring it from persistence on first use.
func (r *cartRegistry) Get(ctx context.Context, sessionID string) (*CartStore, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.stores[sessionID]; ok {
		entry.lastAccess = r.now()
		return entry.store, nil
	}

	store := NewCartStore(ctx, r.repo, StorageKey(r.namespace, sessionID),
		WithPersistTimeout(r.persistTimeout),
		WithChangeListener(func(snapshot model.CartSnapshot) {
			r.notify(sessionID, snapshot)
		}),
	)
	r.stores[sessionID] = &registryEntry{store: store, lastAccess: r.now()}

	logger.Debug("Cart store created for session", map[string]interface{}{
		"session_id":  sessionID,
		"total_items": store.GetTotalItems(),
	})
	return store, nil
}

// OnChange subscribes fn to mutations of every session's cart.
func (r *cartRegistry) OnChange(fn CartChangeFunc) {
	if fn == nil {
		return
	}
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenersMu.Unlock()
}

func (r *cartRegistry) notify(sessionID string, snapshot model.CartSnapshot) {
	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(sessionID, snapshot)
	}
}

// FlushDirty retries persistence for every store whose last write failed.
// It returns how many stores were flushed and the joined flush errors.
func (r *cartRegistry) FlushDirty(ctx context.Context) (int, error) {
	r.mu.Lock()
	dirty := make([]*CartStore, 0)
	for _, entry := range r.stores {
		if entry.store.Dirty() {
			dirty = append(dirty, entry.store)
		}
	}
	r.mu.Unlock()

	flushed := 0
	var errs []error
	for _, store := range dirty {
		if err := store.Flush(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		flushed++
	}

	if len(dirty) > 0 {
		logger.Info("Flushed dirty carts", map[string]interface{}{
			"dirty":   len(dirty),
			"flushed": flushed,
		})
	}
	return flushed, errors.Join(errs...)
}

// EvictIdle drops stores not fetched for longer than idle. Their carts stay
// in persistence and are restored on the next Get. A store whose pending
// write still fails is kept. It returns how many stores were evicted.
func (r *cartRegistry) EvictIdle(ctx context.Context, idle time.Duration) (int, error) {
	if idle <= 0 {
		return 0, nil
	}
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	candidates := make(map[string]*registryEntry)
	for sessionID, entry := range r.stores {
		if entry.lastAccess.Before(cutoff) {
			candidates[sessionID] = entry
		}
	}
	r.mu.Unlock()

	evicted := 0
	var errs []error
	for sessionID, entry := range candidates {
		if err := entry.store.release(ctx); err != nil {
			errs = append(errs, err)
			continue
		}

		r.mu.Lock()
		// A Get since the scan keeps the store alive
		if current, ok := r.stores[sessionID]; ok && current == entry && entry.lastAccess.Before(cutoff) {
			delete(r.stores, sessionID)
			evicted++
		}
		r.mu.Unlock()
	}

	if evicted > 0 || len(errs) > 0 {
		logger.Info("Evicted idle carts", map[string]interface{}{
			"idle":    len(candidates),
			"evicted": evicted,
		})
	}
	return evicted, errors.Join(errs...)
}

// Len returns the number of live session stores.
func (r *cartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
