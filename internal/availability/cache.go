package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-availability/internal/calendar"
)

// Cache memoizes computed days for identical queries within a short TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]DayAvailability, bool, error)
	Set(ctx context.Context, key string, days []DayAvailability, ttl time.Duration) error
}

// ByteStore is a key/value store with expiry, e.g. redisclient.Store.
type ByteStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NewEncodedCache stores days as JSON in a ByteStore.
func NewEncodedCache(store ByteStore) Cache {
	return &encodedCache{store: store}
}

type encodedCache struct {
	store ByteStore
}

func (c *encodedCache) Get(ctx context.Context, key string) ([]DayAvailability, bool, error) {
	raw, ok, err := c.store.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var days []DayAvailability
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, false, fmt.Errorf("decode cached availability: %w", err)
	}
	return days, true, nil
}

func (c *encodedCache) Set(ctx context.Context, key string, days []DayAvailability, ttl time.Duration) error {
	raw, err := json.Marshal(days)
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	return c.store.SetBytes(ctx, key, raw, ttl)
}

// MemoryCache is an in-process Cache. Each instance is independent.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	days    []DayAvailability
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]DayAvailability, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return copyDays(e.days), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, days []DayAvailability, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{days: copyDays(days), expires: now.Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyDays(days []DayAvailability) []DayAvailability {
	out := make([]DayAvailability, len(days))
	for i, d := range days {
		out[i] = d
		out[i].Slots = append(make([]TimeSlot, 0, len(d.Slots)), d.Slots...)
	}
	return out
}

// cacheKey is the full query signature. The notice cutoff moves every
// minute, so entries computed under the rule never outlive it.
func cacheKey(q Query, cutoff *calendar.Moment) string {
	return fmt.Sprintf("availability:v2:%s:%s:%s:%s:%s:%s:%d:%s:%t",
		q.OrganizationID, q.StartDate, q.EndDate,
		optionalID(q.DoctorID), optionalID(q.ServiceID), optionalID(q.LocationID),
		q.Duration, optionalCutoff(cutoff), q.IncludeUnavailable)
}

func optionalCutoff(c *calendar.Moment) string {
	if c == nil {
		return "-"
	}
	return c.Date.String() + "T" + c.Time.String()
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}
