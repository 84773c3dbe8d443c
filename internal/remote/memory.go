package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// MemoryStore is an in-process Store. It backs offline development and tests, and can
// simulate an unreachable backend with SetUnavailable.
type MemoryStore struct {
	mu          sync.RWMutex
	data        map[string]map[string]map[string]any
	unavailable atomic.Bool
	calls       atomic.Int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]map[string]any{}}
}

// SetUnavailable makes every subsequent call fail with ErrUnavailable while v is true.
func (s *MemoryStore) SetUnavailable(v bool) {
	s.unavailable.Store(v)
}

// Calls returns how many operations reached the store.
func (s *MemoryStore) Calls() int64 {
	return s.calls.Load()
}

func (s *MemoryStore) check(ctx context.Context) error {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if s.unavailable.Load() {
		return fmt.Errorf("%w: memory store offline", ErrUnavailable)
	}
	return nil
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) table(name string) map[string]map[string]any {
	t, ok := s.data[name]
	if !ok {
		t = map[string]map[string]any{}
		s.data[name] = t
	}
	return t
}

func (s *MemoryStore) get(name, id string) (Document, error) {
	doc, ok := s.data[name][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	return Document(copyMap(doc)), nil
}

func (s *MemoryStore) merge(name, id string, fields map[string]any) error {
	doc, ok := s.data[name][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	for path, v := range fields {
		setPath(doc, path, copyValue(v))
	}
	return nil
}

func (s *MemoryStore) increment(name, id, path string, delta int64) error {
	doc, ok := s.data[name][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, name, id)
	}
	cur, err := toInt64(lookup(doc, path))
	if err != nil {
		return err
	}
	setPath(doc, path, cur+delta)
	return nil
}

func (s *MemoryStore) apply(op Op) error {
	switch op.Kind {
	case OpSet:
		s.table(op.Collection)[op.ID] = copyMap(op.Doc)
	case OpMerge:
		return s.merge(op.Collection, op.ID, op.Fields)
	case OpDelete:
		delete(s.table(op.Collection), op.ID)
	}
	return nil
}

// Batch applies ops atomically; a failing merge rolls nothing forward.
func (s *MemoryStore) Batch(ctx context.Context, ops []Op) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		if op.Kind == OpMerge {
			if _, ok := s.data[op.Collection][op.ID]; !ok {
				return fmt.Errorf("%w: %s/%s", ErrNotFound, op.Collection, op.ID)
			}
		}
	}
	for _, op := range ops {
		if err := s.apply(op); err != nil {
			return err
		}
	}
	return nil
}

// RunTransaction holds the store lock for the whole body, so transactions are serial.
// fn must only use tx; calling other MemoryStore methods from fn deadlocks.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, w := range tx.writes {
		if err := w(); err != nil {
			return err
		}
	}
	return nil
}

type memoryTx struct {
	store  *MemoryStore
	writes []func() error
	wrote  bool
}

func (t *memoryTx) Get(collection, id string) (Document, error) {
	if t.wrote {
		return nil, fmt.Errorf("remote: transaction read after write")
	}
	return t.store.get(collection, id)
}

func (t *memoryTx) Set(collection, id string, doc Document) error {
	t.wrote = true
	d := copyMap(doc)
	t.writes = append(t.writes, func() error {
		t.store.table(collection)[id] = d
		return nil
	})
	return nil
}

func (t *memoryTx) Merge(collection, id string, fields map[string]any) error {
	t.wrote = true
	f := copyMap(fields)
	t.writes = append(t.writes, func() error { return t.store.merge(collection, id, f) })
	return nil
}

func (t *memoryTx) Increment(collection, id, path string, delta int64) error {
	t.wrote = true
	t.writes = append(t.writes, func() error { return t.store.increment(collection, id, path, delta) })
	return nil
}

func (t *memoryTx) Delete(collection, id string) error {
	t.wrote = true
	t.writes = append(t.writes, func() error {
		delete(t.store.table(collection), id)
		return nil
	})
	return nil
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) Get(ctx context.Context, id string) (Document, error) {
	if err := c.store.check(ctx); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.store.get(c.name, id)
}

func (c *memoryCollection) Set(ctx context.Context, id string, doc Document) error {
	if err := c.store.check(ctx); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.table(c.name)[id] = copyMap(doc)
	return nil
}

func (c *memoryCollection) Merge(ctx context.Context, id string, fields map[string]any) error {
	if err := c.store.check(ctx); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.store.merge(c.name, id, fields)
}

func (c *memoryCollection) Delete(ctx context.Context, id string) error {
	if err := c.store.check(ctx); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, ok := c.store.data[c.name][id]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
	}
	delete(c.store.data[c.name], id)
	return nil
}

func (c *memoryCollection) Increment(ctx context.Context, id, path string, delta int64) error {
	if err := c.store.check(ctx); err != nil {
		return err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.store.increment(c.name, id, path, delta)
}

func (c *memoryCollection) Query(ctx context.Context, q Query) ([]Snapshot, error) {
	if err := c.store.check(ctx); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var out []Snapshot
	for id, doc := range c.store.data[c.name] {
		if matches(doc, q.Filters) {
			out = append(out, Snapshot{ID: id, Data: Document(copyMap(doc))})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return compareKeys(q, orderValue(out[i], q), out[i].ID, orderValue(out[j], q), out[j].ID) < 0
	})
	if q.After != nil {
		start := len(out)
		for i, snap := range out {
			if compareKeys(q, orderValue(snap, q), snap.ID, q.After.Value, q.After.ID) > 0 {
				start = i
				break
			}
		}
		out = out[start:]
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func orderValue(s Snapshot, q Query) any {
	if q.OrderBy == "" {
		return nil
	}
	return lookup(s.Data, q.OrderBy)
}

// compareKeys orders (value, id) pairs in the query's direction.
func compareKeys(q Query, av any, aid string, bv any, bid string) int {
	c := 0
	if q.OrderBy != "" {
		c = compareValues(copyValue(av), copyValue(bv))
	}
	if c == 0 {
		c = strings.Compare(aid, bid)
	}
	if q.Descending {
		return -c
	}
	return c
}
