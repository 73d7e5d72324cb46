package watcher

import (
	"context"
	"fmt"
	"time"

	rwatcher "github.com/radovskyb/watcher"
	log "github.com/sirupsen/logrus"

	"hurracloud.io/jadwal/internal/extract"
	"hurracloud.io/jadwal/internal/indexer"
)

const DefaultInterval = 500 * time.Millisecond

// Ingester accepts changed files.
type Ingester interface {
	Ingest(filePath string) error
}

// Watcher polls directories and hands created, written and renamed files of
// a supported format to an Ingester.
type Watcher struct {
	Ingester Ingester
	Excludes *indexer.Excludes
	Interval time.Duration
	w        *rwatcher.Watcher
}

func New(ingester Ingester, excludes *indexer.Excludes) *Watcher {
	w := rwatcher.New()
	w.FilterOps(rwatcher.Create, rwatcher.Write, rwatcher.Rename, rwatcher.Move)
	return &Watcher{
		Ingester: ingester,
		Excludes: excludes,
		Interval: DefaultInterval,
		w:        w,
	}
}

// Add watches dir and everything below it. Files already present are not
// ingested.
func (w *Watcher) Add(dir string) error {
	log.Infof("Setting up watcher at location: %s", dir)
	if err := w.w.AddRecursive(dir); err != nil {
		return fmt.Errorf("Error watching %s: %v", dir, err)
	}
	return nil
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	started := make(chan struct{})
	go func() {
		defer close(started)
		if err := w.w.Start(interval); err != nil {
			log.Errorf("Error starting watcher: %s", err)
		}
	}()
	go func() {
		<-ctx.Done()
		w.w.Wait()
		w.w.Close()
	}()

	for {
		select {
		case event := <-w.w.Event:
			log.Tracef("Watcher event: %s", event)
			w.handle(event)
		case err := <-w.w.Error:
			log.Errorf("Watcher Error: %s", err)
		case <-w.w.Closed:
			<-started
			return nil
		}
	}
}

func (w *Watcher) handle(event rwatcher.Event) {
	if event.IsDir() {
		return
	}
	if w.Excludes.Match(event.Path) {
		log.Debugf("Ignoring change to excluded file %s", event.Path)
		return
	}
	if extract.DetectFormat(event.Path) == extract.FormatUnknown {
		return
	}

	log.Debugf("Enqueue index request for changed file %s", event.Path)
	if err := w.Ingester.Ingest(event.Path); err != nil {
		log.Warningf("Could not ingest changed file %s: %v", event.Path, err)
	}
}
