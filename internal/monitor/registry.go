package monitor

import (
	"errors"
	"sync"
)

var ErrTooManyInFlight = errors.New("too many identical queries in flight")

// Registry counts in-flight calls per key and rejects calls beyond limit.
// It catches clients that re-issue the same query in a loop before the
// previous one has returned.
type Registry struct {
	mu       sync.Mutex
	limit    int
	inFlight map[string]int
}

// NewRegistry returns a registry allowing limit concurrent calls per key.
// A limit <= 0 disables the check.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit, inFlight: make(map[string]int)}
}

// Acquire registers a call for key. The returned release must be called
// exactly once when the call finishes.
func (r *Registry) Acquire(key string) (release func(), err error) {
	if r == nil || r.limit <= 0 {
		return func() {}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight[key] >= r.limit {
		return nil, ErrTooManyInFlight
	}
	r.inFlight[key]++

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.inFlight[key] <= 1 {
				delete(r.inFlight, key)
				return
			}
			r.inFlight[key]--
		})
	}, nil
}

// InFlight reports the current count for key.
func (r *Registry) InFlight(key string) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight[key]
}
