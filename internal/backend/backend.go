package backend

import (
	"context"
	"errors"
)

var (
	UnknownQueryTypeError = errors.New("Unknown query type")
	InvalidQueryError     = errors.New("Invalid query")
	InvalidDocumentError  = errors.New("Invalid document")
	IndexLockedError      = errors.New("Index is locked by another process")
	IndexClosedError      = errors.New("Index is closed")
)

// SearchBackend is the index engine documents are written to and searched in.
//
// Reads are only as fresh as the last commit: a document added by a Writer
// is invisible to Search until that Writer commits.
type SearchBackend interface {
	// Writer blocks until the caller holds the only writer, or ctx is done.
	Writer(ctx context.Context) (Writer, error)
	Search(ctx context.Context, q string, queryType QueryType, limit int, offset int) ([]*Document, error)
	DocCount() (uint64, error)
	Close() error
}

// Writer is an exclusively held mutation sequence. Release must always be
// called, committed or not.
type Writer interface {
	Add(doc *Document) error
	// DeleteAll stages the removal of every committed document and drops
	// anything staged so far. Commit before adding again.
	DeleteAll() error
	Commit() error
	Release()
}
