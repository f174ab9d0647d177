package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ListEventsFilters(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, emp := range []string{"E1", "E2", "E1", "E1"} {
		_, err := m.AppendEvent(ctx, Event{EmployeeID: emp, Timestamp: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	all, err := m.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].Timestamp.After(all[3].Timestamp), "newest first")
	assert.Equal(t, KindCheckIn, all[0].Kind)

	e1, err := m.ListEvents(ctx, EventFilter{EmployeeID: "E1"})
	require.NoError(t, err)
	assert.Len(t, e1, 3)

	window, err := m.ListEvents(ctx, EventFilter{From: base.Add(time.Hour), To: base.Add(3 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, base.Add(2*time.Hour), window[0].Timestamp)

	page, err := m.ListEvents(ctx, EventFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, base.Add(2*time.Hour), page[0].Timestamp)

	none, err := m.ListEvents(ctx, EventFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_Terminals(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.UpsertTerminal(ctx, "lobby"))
	require.NoError(t, m.UpsertTerminal(ctx, "lobby"))
	require.NoError(t, m.SaveRefreshToken(ctx, "lobby", "r1", time.Now().Add(time.Hour)))
	assert.Equal(t, []string{"r1"}, m.terminals["lobby"])
}

func TestMemoryStore_RecentEmployees(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"A", "B", "C", "D"} {
		_, err := m.AppendEmployee(ctx, Employee{Name: name, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	recent, err := m.RecentEmployees(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "D", recent[0].Name)
	assert.Equal(t, "C", recent[1].Name)

	all, err := m.RecentEmployees(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "A", all[3].Name)
}
