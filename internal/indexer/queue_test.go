package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hurracloud.io/jadwal/internal/backend"
)

type panickyBackend struct {
	backend.SearchBackend
}

func (panickyBackend) Writer(ctx context.Context) (backend.Writer, error) {
	panic("writer exploded")
}

func runDispatcher(t *testing.T, d *Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
}

func TestDispatcher_QueueSurvivesRestart(t *testing.T) {
	metadataDir := t.TempDir()
	b, err := backend.NewBleve("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	files := &FileIndexer{Backend: b}
	path := writeFile(t, t.TempDir(), "later.csv", "Name\nqueued\n")

	first, err := NewDispatcher(metadataDir, files, NewStatusTable(), 1)
	require.NoError(t, err)
	require.NoError(t, first.Dispatch(path))
	assert.EqualValues(t, 1, first.Pending())
	require.NoError(t, first.Close())

	status := NewStatusTable()
	second, err := NewDispatcher(metadataDir, files, status, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	assert.EqualValues(t, 1, second.Pending())

	second.PollInterval = 10 * time.Millisecond
	runDispatcher(t, second)

	require.Eventually(t, func() bool {
		s, ok := status.Get(path)
		return ok && s.State == StateDone
	}, waitFor, tick)
	assert.EqualValues(t, 0, second.Pending())
}

func TestDispatcher_RecoversFromPanics(t *testing.T) {
	status := NewStatusTable()
	d, err := NewDispatcher(t.TempDir(), &FileIndexer{Backend: panickyBackend{}}, status, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	runDispatcher(t, d)

	dir := t.TempDir()
	first := writeFile(t, dir, "a.csv", "H\nv\n")
	second := writeFile(t, dir, "b.csv", "H\nv\n")
	require.NoError(t, d.Dispatch(first))
	require.NoError(t, d.Dispatch(second))

	for _, path := range []string{first, second} {
		require.Eventually(t, func() bool {
			s, ok := status.Get(path)
			return ok && s.State == StateFailed
		}, waitFor, tick)
		s, _ := status.Get(path)
		assert.Contains(t, s.Error, "writer exploded")
	}
}

func TestDispatcher_WakesOnDispatch(t *testing.T) {
	b, err := backend.NewBleve("", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	status := NewStatusTable()
	d, err := NewDispatcher(t.TempDir(), &FileIndexer{Backend: b}, status, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	d.PollInterval = time.Hour
	runDispatcher(t, d)

	path := writeFile(t, t.TempDir(), "now.csv", "H\nv\n")
	require.NoError(t, d.Dispatch(path))

	require.Eventually(t, func() bool {
		s, ok := status.Get(path)
		return ok && s.State == StateDone
	}, waitFor, tick)
}

func TestStatusTable(t *testing.T) {
	s := NewStatusTable()
	s.queued("/b.csv")
	s.running("/a.csv")
	s.done("/a.csv", 4)

	a, ok := s.Get("/a.csv")
	require.True(t, ok)
	assert.Equal(t, StateDone, a.State)
	assert.Equal(t, 4, a.Documents)
	assert.False(t, a.UpdatedAt.IsZero())

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "/a.csv", list[0].FilePath)
	assert.Equal(t, StateQueued, list[1].State)

	_, ok = s.Get("/c.csv")
	assert.False(t, ok)
}
