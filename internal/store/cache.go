package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gruppenrun/clubbot/core/logger"
	"github.com/gruppenrun/clubbot/internal/domain"
)

// DefaultCacheTTL keeps reads warm between consecutive dialogue steps
// without letting roster views drift far behind.
const DefaultCacheTTL = 45 * time.Second

// Cached wraps a Store with a short-lived read-through cache.
//
// Every write invalidates the whole cache synchronously before returning:
// a read issued right after a completed registration (e.g. the admin
// roster) must observe the write. TTL expiry alone is never relied on.
type Cached struct {
	Store

	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	value    any
	err      error
	storedAt time.Time
}

// NewCached fronts the given store with a cache of the given TTL.
func NewCached(s Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		Store:   s,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cached) lookup(key string, load func() (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.storedAt) <= c.ttl {
		c.hits++
		c.mu.Unlock()
		return e.value, e.err
	}
	c.misses++
	c.mu.Unlock()

	value, err := load()
	// Negative results for known sentinels are cached too: "not
	// registered" is as hot a question as "registered".
	if err == nil || errors.Is(err, domain.ErrRegistrationNotFound) || errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrBreakfastNotFound) {
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: value, err: err, storedAt: c.now()}
		c.mu.Unlock()
	}
	return value, err
}

// Invalidate drops every cached entry. Called internally on writes;
// exported for callers that mutate the database out of band.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	logger.DB.Debug("cache invalidated", slog.String("event", "db.cache"))
}

// Stats reports hit/miss counters for the status endpoint.
func (c *Cached) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cached) GetUser(id string) (*domain.User, error) {
	v, err := c.lookup("user:"+id, func() (any, error) {
		u, err := c.Store.GetUser(id)
		if err != nil {
			return nil, err
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.User), nil
}

func (c *Cached) GetRegistration(userID string, event domain.EventKind, loc domain.Location) (*domain.Registration, error) {
	key := fmt.Sprintf("reg:%s:%s:%s", userID, event, loc)
	v, err := c.lookup(key, func() (any, error) {
		r, err := c.Store.GetRegistration(userID, event, loc)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Registration), nil
}

func (c *Cached) ListRegistrations(event domain.EventKind, loc domain.Location) ([]*domain.Registration, error) {
	key := fmt.Sprintf("regs:%s:%s", event, loc)
	v, err := c.lookup(key, func() (any, error) {
		rs, err := c.Store.ListRegistrations(event, loc)
		if err != nil {
			return nil, err
		}
		return rs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Registration), nil
}

func (c *Cached) GetBreakfastOrder(userID string) (*domain.BreakfastOrder, error) {
	v, err := c.lookup("breakfast:"+userID, func() (any, error) {
		o, err := c.Store.GetBreakfastOrder(userID)
		if err != nil {
			return nil, err
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.BreakfastOrder), nil
}

func (c *Cached) SaveUser(u *domain.User) error {
	err := c.Store.SaveUser(u)
	c.Invalidate()
	return err
}

func (c *Cached) SetUserBotVersion(id, version string) error {
	err := c.Store.SetUserBotVersion(id, version)
	c.Invalidate()
	return err
}

func (c *Cached) PutRegistration(reg *domain.Registration) error {
	err := c.Store.PutRegistration(reg)
	c.Invalidate()
	return err
}

func (c *Cached) DeleteRegistration(userID string, event domain.EventKind, loc domain.Location) error {
	err := c.Store.DeleteRegistration(userID, event, loc)
	c.Invalidate()
	return err
}

func (c *Cached) AppendStageSelection(userID string, stages []int) error {
	err := c.Store.AppendStageSelection(userID, stages)
	c.Invalidate()
	return err
}

func (c *Cached) UpdateStageSelection(userID string, stages []int) error {
	err := c.Store.UpdateStageSelection(userID, stages)
	c.Invalidate()
	return err
}

func (c *Cached) UpdatePace(userID string, pace string) error {
	err := c.Store.UpdatePace(userID, pace)
	c.Invalidate()
	return err
}

func (c *Cached) PutBreakfastOrder(o *domain.BreakfastOrder) error {
	err := c.Store.PutBreakfastOrder(o)
	c.Invalidate()
	return err
}

func (c *Cached) DeleteBreakfastOrder(userID string) error {
	err := c.Store.DeleteBreakfastOrder(userID)
	c.Invalidate()
	return err
}
