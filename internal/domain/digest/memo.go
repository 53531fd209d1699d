package digest

import "sync"

// memo caches at most one load per key for the lifetime of one digest build.
// Concurrent callers for the same key block on the first load and share its result.
type memo[V any] struct {
	mu      sync.Mutex
	entries map[string]*memoEntry[V]
	order   []string
}

type memoEntry[V any] struct {
	once sync.Once
	val  V
	ok   bool
}

func newMemo[V any]() *memo[V] {
	return &memo[V]{entries: make(map[string]*memoEntry[V])}
}

// get returns the cached value for key, running load on first use.
func (m *memo[V]) get(key string, load func() (V, bool)) (V, bool) {
	m.mu.Lock()
	e, exists := m.entries[key]
	if !exists {
		e = &memoEntry[V]{}
		m.entries[key] = e
		m.order = append(m.order, key)
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.val, e.ok = load()
	})
	return e.val, e.ok
}

// each visits resolved entries in first-request order.
func (m *memo[V]) each(fn func(key string, val V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range m.order {
		if e := m.entries[key]; e.ok {
			fn(key, e.val)
		}
	}
}
