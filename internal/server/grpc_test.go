package server

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/indexer"
)

func newTestClient(t *testing.T, idx *indexer.Indexer) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer(idx)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	client, err := NewClient("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPC_IngestSearchStatus(t *testing.T) {
	idx := newTestIndexer(t)
	client := newTestClient(t, idx)
	ctx := context.Background()

	path := writeFile(t, t.TempDir(), "notes.txt", "Quarterly revenue grew\n\nHeadcount flat\n")
	result, err := client.Ingest(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, indexer.OutcomeAccepted, result.Outcome)

	waitUntilDone(t, idx, path)

	docs, err := client.Search(ctx, `"revenue grew"`, backend.QueryParser, 0, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.txt", docs[0].FileName)
	assert.Equal(t, []string{"Quarterly revenue grew"}, docs[0].Values())

	files, err := client.Status(ctx, path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, indexer.StateDone, files[0].State)

	files, err = client.Status(ctx, "")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := newTestClient(t, newTestIndexer(t))
	ctx := context.Background()
	dir := t.TempDir()

	_, err := client.Ingest(ctx, writeFile(t, dir, "deck.pptx", "x"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Ingest(ctx, filepath.Join(dir, "gone.csv"))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Reindex(ctx, filepath.Join(dir, "missing"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Search(ctx, "(", backend.RegexQuery, 0, 10)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Search(ctx, "x", backend.TermQuery, (1<<62)+1, 2)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Status(ctx, "/never/seen.csv")
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_Reindex(t *testing.T) {
	idx := newTestIndexer(t)
	client := newTestClient(t, idx)
	dir := t.TempDir()
	good := writeFile(t, dir, "stock.tsv", "Item\tQty\nbolts\t12\n")

	results, err := client.Reindex(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, indexer.OutcomeAccepted, results[0].Outcome)

	waitUntilDone(t, idx, good)
	docs, err := client.Search(context.Background(), "bolts", backend.TermQuery, 0, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []string{"Item", "Qty"}, docs[0].Contexts())
}
