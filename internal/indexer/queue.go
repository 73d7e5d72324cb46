package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/beeker1121/goque"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval = 150 * time.Millisecond
	queueDirName        = "ingest.queue"
)

type fileIndexRequest struct {
	FilePath string
}

// Dispatcher runs file ingestion in the background. Requests go through a
// persistent queue, so files queued when the process stops are ingested on
// the next start. A request being processed at that moment is lost.
type Dispatcher struct {
	Files        *FileIndexer
	Status       *StatusTable
	Parallelism  int
	PollInterval time.Duration

	queue *goque.Queue
	wake  chan struct{}
}

func NewDispatcher(metadataDir string, files *FileIndexer, status *StatusTable, parallelism int) (*Dispatcher, error) {
	if err := os.MkdirAll(metadataDir, 0755); err != nil {
		return nil, fmt.Errorf("Error creating metadata directory: %s: %v", metadataDir, err)
	}

	queue, err := goque.OpenQueue(filepath.Join(metadataDir, queueDirName))
	if err != nil {
		return nil, fmt.Errorf("Failed to open ingestion queue: %v", err)
	}
	if pending := queue.Length(); pending > 0 {
		log.Infof("Ingestion queue has %d pending files from a previous run", pending)
	}

	if parallelism < 1 {
		parallelism = 1
	}

	return &Dispatcher{
		Files:        files,
		Status:       status,
		Parallelism:  parallelism,
		PollInterval: DefaultPollInterval,
		queue:        queue,
		wake:         make(chan struct{}, parallelism),
	}, nil
}

// Dispatch queues filePath and returns without waiting for it.
func (d *Dispatcher) Dispatch(filePath string) error {
	d.Status.queued(filePath)
	if _, err := d.queue.EnqueueObject(&fileIndexRequest{FilePath: filePath}); err != nil {
		d.Status.failed(filePath, err)
		return fmt.Errorf("Failed to queue file %s: %v", filePath, err)
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

func (d *Dispatcher) Pending() uint64 {
	return d.queue.Length()
}

// Run processes the queue with Parallelism workers until ctx is done. Units
// already started run to completion.
func (d *Dispatcher) Run(ctx context.Context) error {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	g, ctx := errgroup.WithContext(ctx)
	for n := 0; n < d.Parallelism; n++ {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				for ctx.Err() == nil && d.next(ctx) {
				}

				select {
				case <-ctx.Done():
					return nil
				case <-d.wake:
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// next runs one queued request and reports whether there was one.
func (d *Dispatcher) next(ctx context.Context) bool {
	item, err := d.queue.Dequeue()
	if err == goque.ErrEmpty {
		return false
	}
	if err != nil {
		log.Errorf("Failed to poll ingestion queue: %v", err)
		return false
	}

	var req fileIndexRequest
	if err := item.ToObject(&req); err != nil {
		log.Errorf("Dropping unreadable ingestion request: %v", err)
		return true
	}

	d.process(context.WithoutCancel(ctx), req.FilePath)
	return true
}

func (d *Dispatcher) process(ctx context.Context, filePath string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while indexing %s: %v", filePath, r)
			d.Status.failed(filePath, fmt.Errorf("panic: %v", r))
		}
	}()

	log.Debugf("Processing index request for file '%s'", filePath)
	d.Status.running(filePath)

	n, err := d.Files.IndexFile(ctx, filePath)
	if err != nil {
		log.Errorf("Failed to index %s: %v", filePath, err)
		d.Status.failed(filePath, err)
		return
	}

	log.Infof("Indexing '%s' has completed successfully (%d documents)", filePath, n)
	d.Status.done(filePath, n)
}

// Close closes the queue. Call it after Run has returned.
func (d *Dispatcher) Close() error {
	return d.queue.Close()
}
