package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hurracloud.io/jadwal/internal/backend"
)

func TestServe_IndexerFailureReleasesIndex(t *testing.T) {
	dir := t.TempDir()
	notADir := filepath.Join(dir, "metadata")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0644))

	saved := options
	t.Cleanup(func() { options = saved })
	options = Options{IndexDir: dir, MetadataDir: notADir, Parallelism: 1, QueryCacheSize: 4}

	err := (&ServeCommand{}).Execute(nil)
	assert.ErrorContains(t, err, "Failed creating indexer")

	// the index was closed, so its lock can be taken again
	b, err := backend.NewBleve(filepath.Join(dir, "cells.bleve"), 0)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}
