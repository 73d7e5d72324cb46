package indexer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	log "github.com/sirupsen/logrus"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/extract"
)

var (
	UnsupportedFormatError = extract.UnsupportedFormatError
	FileNotFoundError      = errors.New("File not found")
	InvalidDirectoryError  = errors.New("Invalid directory")
	InvalidPageError       = errors.New("Invalid page")
)

// Outcome is what happened to a dispatch request.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeExcluded    Outcome = "excluded"
	OutcomeFailed      Outcome = "failed"
)

type DispatchResult struct {
	FilePath string  `json:"file_path" yaml:"file_path"`
	Outcome  Outcome `json:"outcome" yaml:"outcome"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDispatchResult(filePath string, err error) DispatchResult {
	r := DispatchResult{FilePath: filePath, Outcome: OutcomeOf(err)}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, UnsupportedFormatError):
		return OutcomeUnsupported
	case errors.Is(err, FileNotFoundError):
		return OutcomeNotFound
	default:
		return OutcomeFailed
	}
}

// Indexer is the entry point for ingestion and search. Ingestion is
// asynchronous: a file is searchable once its unit commits, which may be
// after Ingest or Reindex have returned.
type Indexer struct {
	Backend    backend.SearchBackend
	Status     *StatusTable
	dispatcher *Dispatcher
	excludes   *Excludes
}

func New(searchBackend backend.SearchBackend, settings *Settings) (*Indexer, error) {
	status := NewStatusTable()
	files := &FileIndexer{Backend: searchBackend, FileSizeThreshold: settings.MaxFileSizeMB}

	dispatcher, err := NewDispatcher(settings.MetadataDir, files, status, settings.Parallelism)
	if err != nil {
		return nil, err
	}
	if settings.PollInterval > 0 {
		dispatcher.PollInterval = settings.PollInterval
	}

	return &Indexer{
		Backend:    searchBackend,
		Status:     status,
		dispatcher: dispatcher,
		excludes:   NewExcludes(settings.ExcludePatterns),
	}, nil
}

// Run processes dispatched files until ctx is done.
func (i *Indexer) Run(ctx context.Context) error {
	return i.dispatcher.Run(ctx)
}

func (i *Indexer) Close() error {
	return i.dispatcher.Close()
}

func (i *Indexer) Excludes() *Excludes {
	return i.excludes
}

// Ingest dispatches filePath to the adapter matching its extension. It fails
// with UnsupportedFormatError or FileNotFoundError before anything is queued.
func (i *Indexer) Ingest(filePath string) error {
	if extract.DetectFormat(filePath) == extract.FormatUnknown {
		return fmt.Errorf("%w: %s", UnsupportedFormatError, filePath)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", FileNotFoundError, filePath)
	}
	if err != nil {
		return fmt.Errorf("Failed to stat %s: %w", filePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", UnsupportedFormatError, filePath)
	}

	log.Infof("Queueing %s for indexing", filePath)
	return i.dispatcher.Dispatch(filePath)
}

// Search runs q against the last committed state of the index. page is zero
// based.
func (i *Indexer) Search(ctx context.Context, q string, queryType backend.QueryType, page, perPage int) ([]*backend.Document, error) {
	// offset+perPage must fit in an int
	if page < 0 || perPage < 1 || page >= math.MaxInt/perPage {
		return nil, fmt.Errorf("%w: page=%d per_page=%d", InvalidPageError, page, perPage)
	}

	log.Debugf("Received Search Request. Query=%s, Type=%s", q, queryType)
	return i.Backend.Search(ctx, q, queryType, perPage, page*perPage)
}
