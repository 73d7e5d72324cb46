package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/indexer"
)

// Client talks to a running jadwal server over gRPC.
type Client struct {
	conn *grpc.ClientConn
}

func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}

func (c *Client) Ingest(ctx context.Context, filePath string) (indexer.DispatchResult, error) {
	out := &IngestResponse{}
	err := c.invoke(ctx, "Ingest", &IngestRequest{FilePath: filePath}, out)
	return out.Result, err
}

func (c *Client) Reindex(ctx context.Context, dirPath string) ([]indexer.DispatchResult, error) {
	out := &ReindexResponse{}
	if err := c.invoke(ctx, "Reindex", &ReindexRequest{DirPath: dirPath}, out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) Search(ctx context.Context, q string, queryType backend.QueryType, page, perPage int) ([]*backend.Document, error) {
	req := &SearchRequest{Query: q, QueryType: queryType.String(), Page: page, PerPage: perPage}
	out := &SearchResponse{}
	if err := c.invoke(ctx, "Search", req, out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) Status(ctx context.Context, filePath string) ([]indexer.FileStatus, error) {
	out := &StatusResponse{}
	if err := c.invoke(ctx, "Status", &StatusRequest{FilePath: filePath}, out); err != nil {
		return nil, err
	}
	return out.Files, nil
}
