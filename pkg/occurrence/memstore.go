package occurrence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownRecord is returned when an update references a record that
// is not in the store.
var ErrUnknownRecord = errors.New("unknown occurrence record")

// MemStore keeps records in an arena with an ID index. It is used for
// tests and for small inputs that do not need persistence.
type MemStore struct {
	mu      sync.RWMutex
	arena   []Record
	index   map[int64]int
	order   []int
	sorted  bool
	cursors map[string]Cursor
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		index:   make(map[int64]int),
		cursors: make(map[string]Cursor),
		sorted:  true,
	}
}

// Insert adds or replaces records.
func (m *MemStore) Insert(_ context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		if i, ok := m.index[r.ID]; ok {
			m.arena[i] = r
			continue
		}
		m.index[r.ID] = len(m.arena)
		m.order = append(m.order, len(m.arena))
		m.arena = append(m.arena, r)
		m.sorted = false
	}
	return nil
}

// Count returns the number of records.
func (m *MemStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.arena), nil
}

// Chunk returns up to limit records with ID greater than afterID.
func (m *MemStore) Chunk(
	_ context.Context,
	afterID int64,
	limit int,
) ([]Record, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("chunk limit has to be positive, got %d", limit)
	}
	m.ensureSorted()

	m.mu.RLock()
	defer m.mu.RUnlock()
	start, _ := slices.BinarySearchFunc(m.order, afterID,
		func(i int, id int64) int {
			switch {
			case m.arena[i].ID <= id:
				return -1
			default:
				return 1
			}
		})
	end := min(start+limit, len(m.order))
	res := make([]Record, 0, end-start)
	for _, i := range m.order[start:end] {
		res = append(res, m.arena[i])
	}
	return res, nil
}

// UpdateCells applies updates and saves the cursor atomically.
func (m *MemStore) UpdateCells(
	_ context.Context,
	ups []CellUpdate,
	cur Cursor,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range ups {
		if _, ok := m.index[u.ID]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownRecord, u.ID)
		}
	}
	for _, u := range ups {
		r := &m.arena[m.index[u.ID]]
		r.Uncertainty = sql.NullFloat64{Float64: u.Uncertainty, Valid: true}
		r.CellCode = sql.NullString{String: u.CellCode, Valid: true}
	}
	if cur.RunID != "" {
		cur.RNG = slices.Clone(cur.RNG)
		m.cursors[cur.RunID] = cur
	}
	return nil
}

// Cursor returns the saved cursor of a run.
func (m *MemStore) Cursor(_ context.Context, runID string) (Cursor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cur, ok := m.cursors[runID]
	return cur, ok, nil
}

// Scan calls fn for every record in ascending ID order.
func (m *MemStore) Scan(ctx context.Context, fn func(Record) error) error {
	m.ensureSorted()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for n, i := range m.order {
		if n%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(m.arena[i]); err != nil {
			return err
		}
	}
	return nil
}

// Reset removes all records and cursors.
func (m *MemStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arena = nil
	m.order = nil
	m.index = make(map[int64]int)
	m.cursors = make(map[string]Cursor)
	m.sorted = true
	return nil
}

// Close is a no-op.
func (m *MemStore) Close() error {
	return nil
}

func (m *MemStore) ensureSorted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sorted {
		return
	}
	slices.SortFunc(m.order, func(a, b int) int {
		switch {
		case m.arena[a].ID < m.arena[b].ID:
			return -1
		case m.arena[a].ID > m.arena[b].ID:
			return 1
		}
		return 0
	})
	m.sorted = true
}
