package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/indexer"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func newTestIndexer(t *testing.T) *indexer.Indexer {
	t.Helper()

	b, err := backend.NewBleve("", 16)
	require.NoError(t, err)

	idx, err := indexer.New(b, &indexer.Settings{
		MetadataDir:  t.TempDir(),
		Parallelism:  2,
		PollInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- idx.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = idx.Close()
		_ = b.Close()
	})
	return idx
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func waitUntilDone(t *testing.T, idx *indexer.Indexer, path string) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, ok := idx.Status.Get(path)
		return ok && st.State == indexer.StateDone
	}, waitFor, tick)
}
