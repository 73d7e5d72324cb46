package server

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/indexer"
)

const ServiceName = "jadwal.Jadwal"

type IngestRequest struct {
	FilePath string `json:"file_path"`
}

type IngestResponse struct {
	Result indexer.DispatchResult `json:"result"`
}

type ReindexRequest struct {
	DirPath string `json:"dir_path"`
}

type ReindexResponse struct {
	Results []indexer.DispatchResult `json:"results"`
}

type SearchRequest struct {
	Query     string `json:"q"`
	QueryType string `json:"query_type"`
	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
}

type SearchResponse struct {
	Documents []*backend.Document `json:"documents"`
}

// StatusRequest asks for one file, or for every known file when FilePath is
// empty.
type StatusRequest struct {
	FilePath string `json:"file_path"`
}

type StatusResponse struct {
	Files []indexer.FileStatus `json:"files"`
}

type JadwalService interface {
	Ingest(context.Context, *IngestRequest) (*IngestResponse, error)
	Reindex(context.Context, *ReindexRequest) (*ReindexResponse, error)
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

func unaryHandler[Req any, Resp any](method string, call func(JadwalService, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(JadwalService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(JadwalService), ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JadwalService)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Ingest", JadwalService.Ingest),
		unaryHandler("Reindex", JadwalService.Reindex),
		unaryHandler("Search", JadwalService.Search),
		unaryHandler("Status", JadwalService.Status),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jadwal.proto",
}

func RegisterJadwalServer(s *grpc.Server, srv JadwalService) {
	s.RegisterService(&serviceDesc, srv)
}

func NewGRPCServer(idx *indexer.Indexer) *grpc.Server {
	s := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	RegisterJadwalServer(s, &grpcService{indexer: idx})
	return s
}

type grpcService struct {
	indexer *indexer.Indexer
}

func (s *grpcService) Ingest(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	log.Debugf("Received Ingest Request: %v", req)
	if err := s.indexer.Ingest(req.FilePath); err != nil {
		return nil, toStatus(err)
	}
	return &IngestResponse{Result: indexer.DispatchResult{FilePath: req.FilePath, Outcome: indexer.OutcomeAccepted}}, nil
}

func (s *grpcService) Reindex(ctx context.Context, req *ReindexRequest) (*ReindexResponse, error) {
	log.Debugf("Received Reindex Request: %v", req)
	results, err := s.indexer.Reindex(ctx, req.DirPath)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReindexResponse{Results: results}, nil
}

func (s *grpcService) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	queryType, err := backend.ParseQueryType(req.QueryType)
	if err != nil {
		return nil, toStatus(err)
	}

	docs, err := s.indexer.Search(ctx, req.Query, queryType, req.Page, req.PerPage)
	if err != nil {
		return nil, toStatus(err)
	}
	return &SearchResponse{Documents: docs}, nil
}

func (s *grpcService) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	if req.FilePath == "" {
		return &StatusResponse{Files: s.indexer.Status.List()}, nil
	}

	st, ok := s.indexer.Status.Get(req.FilePath)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "No status for %s", req.FilePath)
	}
	return &StatusResponse{Files: []indexer.FileStatus{st}}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, indexer.UnsupportedFormatError),
		errors.Is(err, indexer.InvalidDirectoryError),
		errors.Is(err, indexer.InvalidPageError),
		errors.Is(err, backend.UnknownQueryTypeError),
		errors.Is(err, backend.InvalidQueryError):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, indexer.FileNotFoundError):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	log.Errorf("Internal error: %v", err)
	return status.Error(codes.Internal, err.Error())
}
