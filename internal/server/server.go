package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"hurracloud.io/jadwal/internal/indexer"
	"hurracloud.io/jadwal/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// JadwalServer serves the indexer over HTTP and gRPC and runs its
// background workers.
type JadwalServer struct {
	Indexer  *indexer.Indexer
	Watcher  *watcher.Watcher
	listen   string
	port     int
	grpcPort int
}

func NewJadwalServer(idx *indexer.Indexer, w *watcher.Watcher, listen string, port int, grpcPort int) *JadwalServer {
	return &JadwalServer{
		Indexer:  idx,
		Watcher:  w,
		listen:   listen,
		port:     port,
		grpcPort: grpcPort,
	}
}

// Start blocks until ctx is done or one of the listeners fails.
func (z *JadwalServer) Start(ctx context.Context) error {
	grpcListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", z.listen, z.grpcPort))
	if err != nil {
		return fmt.Errorf("Failed to listen: %v", err)
	}
	httpListener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", z.listen, z.port))
	if err != nil {
		grpcListener.Close()
		return fmt.Errorf("Failed to listen: %v", err)
	}

	grpcServer := NewGRPCServer(z.Indexer)
	httpServer := &http.Server{Handler: NewHTTPHandler(z.Indexer), ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return z.Indexer.Run(ctx)
	})
	if z.Watcher != nil {
		g.Go(func() error {
			return z.Watcher.Run(ctx)
		})
	}
	g.Go(func() error {
		log.Infof("Jadwal gRPC server listening on %s", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("Jadwal gRPC server failed: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Infof("Jadwal HTTP server listening on %s", httpListener.Addr())
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("Jadwal HTTP server failed: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down Jadwal server")
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
