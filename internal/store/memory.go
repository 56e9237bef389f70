package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memDoc struct {
	data    map[string]interface{}
	version int64
}

// MemoryStore keeps documents in process memory. Transactions are optimistic:
// reads record document versions and the commit fails when any of them moved.
// A transactional query records the collection version, so any write to that
// collection, including one that would add a match, invalidates it.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memDoc
	colVersions map[string]int64
	seq         int64
	notifier    *notifier
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memDoc),
		colVersions: make(map[string]int64),
		notifier:    newNotifier(),
		now:         time.Now,
	}
}

func (s *MemoryStore) NewID(string) string {
	return uuid.New().String()
}

func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: clone(d.data)}, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, id string, data map[string]interface{}) error {
	s.mu.Lock()
	s.put(collection, id, prepare(data, s.now()))
	s.mu.Unlock()
	s.notifier.changed(collection, id)
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := s.NewID(collection)
	return id, s.Set(ctx, collection, id, data)
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	d, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	merged := clone(d.data)
	for k, v := range prepare(fields, s.now()) {
		merged[k] = v
	}
	s.put(collection, id, merged)
	s.mu.Unlock()
	s.notifier.changed(collection, id)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, filters ...Filter) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(collection, filters), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection string, fn func([]Document), filters ...Filter) (Subscription, error) {
	w := s.notifier.add(ctx, collection, "", filters, func() {
		docs, _ := s.Query(ctx, collection, filters...)
		fn(docs)
	})
	return w, nil
}

func (s *MemoryStore) SubscribeDoc(ctx context.Context, collection, id string, fn func(Document)) (Subscription, error) {
	w := s.notifier.add(ctx, collection, id, nil, func() {
		d, err := s.Get(ctx, collection, id)
		if err != nil {
			d = Document{ID: id}
		}
		fn(d)
	})
	return w, nil
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{s: s, reads: make(map[string]int64), queries: make(map[string]int64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		changed, err := s.commit(tx)
		if err == ErrConflict {
			continue
		}
		if err != nil {
			return err
		}
		for _, k := range changed {
			s.notifier.changed(k[0], k[1])
		}
		return nil
	}
	return ErrConflict
}

func (s *MemoryStore) Close() error { return nil }

// put must be called with mu held.
func (s *MemoryStore) put(collection, id string, data map[string]interface{}) {
	c := s.collections[collection]
	if c == nil {
		c = make(map[string]*memDoc)
		s.collections[collection] = c
	}
	s.seq++
	c[id] = &memDoc{data: data, version: s.seq}
	s.colVersions[collection] = s.seq
}

func (s *MemoryStore) version(collection, id string) int64 {
	if d, ok := s.collections[collection][id]; ok {
		return d.version
	}
	return 0
}

func (s *MemoryStore) query(collection string, filters []Filter) []Document {
	out := make([]Document, 0)
	for id, d := range s.collections[collection] {
		if matchesAll(d.data, filters) {
			out = append(out, Document{ID: id, Data: clone(d.data)})
		}
	}
	sortByID(out)
	return out
}

func (s *MemoryStore) commit(tx *memTx) ([][2]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, v := range tx.reads {
		col, id := splitKey(key)
		if s.version(col, id) != v {
			return nil, ErrConflict
		}
	}
	for col, v := range tx.queries {
		if s.colVersions[col] != v {
			return nil, ErrConflict
		}
	}
	created := make(map[string]bool)
	for _, w := range tx.writes {
		key := txKey(w.collection, w.id)
		if !w.update {
			created[key] = true
			continue
		}
		if _, ok := s.collections[w.collection][w.id]; !ok && !created[key] {
			return nil, fmt.Errorf("update %s/%s: %w", w.collection, w.id, ErrNotFound)
		}
	}
	now := s.now()
	changed := make([][2]string, 0, len(tx.writes))
	for _, w := range tx.writes {
		if w.update {
			merged := clone(s.collections[w.collection][w.id].data)
			for k, v := range prepare(w.data, now) {
				merged[k] = v
			}
			s.put(w.collection, w.id, merged)
		} else {
			s.put(w.collection, w.id, prepare(w.data, now))
		}
		changed = append(changed, [2]string{w.collection, w.id})
	}
	return changed, nil
}

type memWrite struct {
	collection string
	id         string
	data       map[string]interface{}
	update     bool
}

type memTx struct {
	s       *MemoryStore
	reads   map[string]int64
	queries map[string]int64
	writes  []memWrite
}

func txKey(collection, id string) string { return collection + "\x00" + id }

func splitKey(k string) (string, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == 0 {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}

func (t *memTx) Get(collection, id string) (Document, error) {
	if len(t.writes) > 0 {
		return Document{}, fmt.Errorf("read after write in transaction")
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	t.reads[txKey(collection, id)] = t.s.version(collection, id)
	d, ok := t.s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: clone(d.data)}, nil
}

func (t *memTx) Query(collection string, filters ...Filter) ([]Document, error) {
	if len(t.writes) > 0 {
		return nil, fmt.Errorf("read after write in transaction")
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	docs := t.s.query(collection, filters)
	t.queries[collection] = t.s.colVersions[collection]
	for _, d := range docs {
		t.reads[txKey(collection, d.ID)] = t.s.version(collection, d.ID)
	}
	return docs, nil
}

func (t *memTx) Set(collection, id string, data map[string]interface{}) error {
	t.writes = append(t.writes, memWrite{collection: collection, id: id, data: data})
	return nil
}

func (t *memTx) Update(collection, id string, fields map[string]interface{}) error {
	t.writes = append(t.writes, memWrite{collection: collection, id: id, data: fields, update: true})
	return nil
}
