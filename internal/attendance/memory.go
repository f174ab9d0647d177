package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory. It backs development
// terminals and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	employees []Employee
	events    []Event
	terminals map[string][]string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{terminals: make(map[string][]string)}
}

func (m *MemoryStore) ListEmployees(ctx context.Context) ([]Employee, error) {
	return m.RecentEmployees(ctx, 0)
}

func (m *MemoryStore) RecentEmployees(ctx context.Context, n int) ([]Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := make([]Employee, len(m.employees))
	copy(sorted, m.employees)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n:n]
	}
	return sorted, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	f = normalizeFilter(f)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Event
	for i := len(m.events) - 1; i >= 0; i-- {
		evt := m.events[i]
		if f.EmployeeID != "" && evt.EmployeeID != f.EmployeeID {
			continue
		}
		if !f.From.IsZero() && evt.Timestamp.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !evt.Timestamp.Before(f.To) {
			continue
		}
		matched = append(matched, evt)
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.Kind == "" {
		evt.Kind = KindCheckIn
	}
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	return evt, nil
}

func (m *MemoryStore) AppendEmployee(ctx context.Context, e Employee) (Employee, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.employees = append(m.employees, e)
	m.mu.Unlock()
	return e, nil
}

func (m *MemoryStore) RemoveEmployee(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.employees {
		if e.ID == id {
			m.employees = append(m.employees[:i], m.employees[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) UpsertTerminal(ctx context.Context, terminalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.terminals[terminalID]; !ok {
		m.terminals[terminalID] = nil
	}
	return nil
}

func (m *MemoryStore) SaveRefreshToken(ctx context.Context, terminalID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminals[terminalID] = append(m.terminals[terminalID], token)
	return nil
}
