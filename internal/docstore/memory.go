package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// MemoryStore keeps JSON-encoded documents in process. Transactions are
// serialised by a single store-wide lock. Used by tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string][]byte)}
}

type jsonSnapshot struct {
	id  string
	raw []byte
}

func (s jsonSnapshot) ID() string { return s.id }

func (s jsonSnapshot) DataTo(dst any) error {
	if err := json.Unmarshal(s.raw, dst); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", s.id, err)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(collection, id)
}

func (m *MemoryStore) Set(ctx context.Context, collection, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	m.put(collection, id, raw)
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(collection, id); err == nil {
		return ErrAlreadyExists
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	m.put(collection, id, raw)
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Snapshot
	for _, id := range ids {
		raw := docs[id]
		ok, err := matches(raw, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, jsonSnapshot{id: id, raw: raw})
		}
	}
	return out, nil
}

func (m *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m, writes: make(map[string]map[string][]byte)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// an abandoned call must not apply its writes
	if err := ctx.Err(); err != nil {
		return err
	}
	for collection, docs := range tx.writes {
		for id, raw := range docs {
			m.put(collection, id, raw)
		}
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) get(collection, id string) (Snapshot, error) {
	raw, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return jsonSnapshot{id: id, raw: raw}, nil
}

func (m *MemoryStore) put(collection, id string, raw []byte) {
	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string][]byte)
		m.collections[collection] = docs
	}
	docs[id] = raw
}

// memoryTx buffers writes until the transaction function returns nil.
type memoryTx struct {
	store  *MemoryStore
	writes map[string]map[string][]byte
}

func (t *memoryTx) Get(collection, id string) (Snapshot, error) {
	if raw, ok := t.writes[collection][id]; ok {
		return jsonSnapshot{id: id, raw: raw}, nil
	}
	return t.store.get(collection, id)
}

func (t *memoryTx) Set(collection, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", collection, id, err)
	}
	t.buffer(collection, id, raw)
	return nil
}

func (t *memoryTx) Create(collection, id string, v any) error {
	if _, err := t.Get(collection, id); err == nil {
		return ErrAlreadyExists
	}
	return t.Set(collection, id, v)
}

func (t *memoryTx) buffer(collection, id string, raw []byte) {
	docs, ok := t.writes[collection]
	if !ok {
		docs = make(map[string][]byte)
		t.writes[collection] = docs
	}
	docs[id] = raw
}

func matches(raw []byte, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false, fmt.Errorf("docstore: decode for query: %w", err)
	}
	for _, f := range filters {
		want, err := normalise(f.Value)
		if err != nil {
			return false, err
		}
		if !reflect.DeepEqual(fields[f.Field], want) {
			return false, nil
		}
	}
	return true, nil
}

// normalise round-trips a filter value through JSON so it compares equal to
// decoded document fields (e.g. int 3 vs float64 3).
func normalise(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode filter: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode filter: %w", err)
	}
	return out, nil
}
