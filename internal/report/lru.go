package report

import "sync"

// LRUStore is an in-memory LRU cache over a backing Store. Recent
// reports are served from memory; misses fall through to the backing
// store and are promoted into the cache.
type LRUStore struct {
	mu   sync.Mutex
	cap  int
	back Store

	// Doubly-linked list for LRU ordering (most recent at head).
	head, tail *lruEntry
	items      map[string]*lruEntry
}

type lruEntry struct {
	dateKey string
	report  *Report
	prev    *lruEntry
	next    *lruEntry
}

// NewLRUStore creates an LRU cache with the given capacity that
// delegates to back on cache misses. Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		items: make(map[string]*lruEntry, cap),
	}
}

// Save writes the report to the LRU cache and delegates to the backing store.
func (s *LRUStore) Save(r *Report) error {
	s.mu.Lock()
	if e, ok := s.items[r.DateKey]; ok {
		e.report = r
		s.moveToFront(e)
	} else {
		e := &lruEntry{dateKey: r.DateKey, report: r}
		s.items[r.DateKey] = e
		s.pushFront(e)
		if len(s.items) > s.cap {
			s.evict()
		}
	}
	s.mu.Unlock()

	return s.back.Save(r)
}

// Load checks the LRU cache first. On miss, loads from the backing
// store and promotes the report into the cache.
func (s *LRUStore) Load(dateKey string) (*Report, error) {
	s.mu.Lock()
	if e, ok := s.items[dateKey]; ok {
		s.moveToFront(e)
		r := e.report
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	r, err := s.back.Load(dateKey)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if e, ok := s.items[dateKey]; ok {
		// Concurrent load already inserted it.
		e.report = r
		s.moveToFront(e)
	} else {
		e := &lruEntry{dateKey: dateKey, report: r}
		s.items[dateKey] = e
		s.pushFront(e)
		if len(s.items) > s.cap {
			s.evict()
		}
	}
	s.mu.Unlock()

	return r, nil
}

func (s *LRUStore) pushFront(e *lruEntry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *LRUStore) moveToFront(e *lruEntry) {
	if s.head == e {
		return
	}
	s.remove(e)
	s.pushFront(e)
}

func (s *LRUStore) remove(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (s *LRUStore) evict() {
	if s.tail == nil {
		return
	}
	e := s.tail
	s.remove(e)
	delete(s.items, e.dateKey)
}
