package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	cellAnalyzer   = "cell_text"
	deletePageSize = 1000
)

var storedFields = []string{FileNameField, SheetNameField, cellsField}

// Bleve is the single writable index. Writers take turns through a
// semaphore; searches never wait for them and see the last commit.
type Bleve struct {
	path    string
	index   bleve.Index
	lock    *flock.Flock
	writer  *semaphore.Weighted
	queries *QueryCompiler
}

// NewBleve opens the index at path, creating it if needed. An empty path
// gives an in-memory index. On disk, a lock file next to the index keeps
// other processes from opening it.
func NewBleve(path string, queryCacheSize int) (*Bleve, error) {
	queries, err := NewQueryCompiler(queryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("Failed to create query cache: %v", err)
	}

	b := &Bleve{
		path:    path,
		writer:  semaphore.NewWeighted(1),
		queries: queries,
	}

	if path == "" {
		b.index, err = bleve.NewMemOnly(newIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("Bleve error while creating in-memory index: %v", err)
		}
		return b, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("Error creating index directory: %s: %v", path, err)
	}

	b.lock = flock.New(path + ".lock")
	locked, err := b.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("Failed to lock index %s: %v", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", IndexLockedError, path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Infof("Creating new index at %s", path)
		b.index, err = bleve.New(path, newIndexMapping())
	} else {
		b.index, err = bleve.Open(path)
	}
	if err != nil {
		_ = b.lock.Unlock()
		return nil, fmt.Errorf("Bleve error while opening index: %s: %v", path, err)
	}
	return b, nil
}

func newIndexMapping() mapping.IndexMapping {
	keyword := func() *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.IncludeInAll = false
		return fm
	}
	indexedOnly := func(fm *mapping.FieldMapping) *mapping.FieldMapping {
		fm.Store = false
		return fm
	}

	value := bleve.NewTextFieldMapping()
	value.Analyzer = cellAnalyzer
	value.Store = false
	value.IncludeInAll = false

	cells := bleve.NewTextFieldMapping()
	cells.Index = false
	cells.IncludeTermVectors = false
	cells.DocValues = false
	cells.IncludeInAll = false

	row := bleve.NewDocumentStaticMapping()
	row.AddFieldMappingsAt(FileNameField, keyword())
	row.AddFieldMappingsAt(SheetNameField, keyword())
	row.AddFieldMappingsAt(CellPositionField, indexedOnly(keyword()))
	row.AddFieldMappingsAt(CellCtxField, indexedOnly(keyword()))
	row.AddFieldMappingsAt(CellValueField, value)
	row.AddFieldMappingsAt(cellsField, cells)

	im := bleve.NewIndexMapping()
	// lowercase unicode words, no stop words and no stemming
	_ = im.AddCustomAnalyzer(cellAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	im.DefaultMapping = row
	im.DefaultAnalyzer = cellAnalyzer
	im.DefaultField = CellValueField
	return im
}

func (b *Bleve) Writer(ctx context.Context) (Writer, error) {
	if err := b.writer.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &bleveWriter{b: b, batch: b.index.NewBatch()}, nil
}

func (b *Bleve) Search(ctx context.Context, q string, queryType QueryType, limit int, offset int) ([]*Document, error) {
	compiled, err := b.queries.Compile(queryType, q)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(compiled, limit, offset, false)
	req.Fields = storedFields
	req.SortBy([]string{"-_score", "_id"})
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		log.Errorf("Error while searching bleve index: %s", err)
		return nil, err
	}

	docs := make([]*Document, 0, len(results.Hits))
	for _, hit := range results.Hits {
		doc, err := documentFromHit(hit)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (b *Bleve) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close waits for the current writer, then closes the index and drops the
// lock file.
func (b *Bleve) Close() error {
	if err := b.writer.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer b.writer.Release(1)

	err := b.index.Close()
	if b.lock != nil {
		if uerr := b.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

type bleveWriter struct {
	b        *Bleve
	batch    *bleve.Batch
	released bool
}

func (w *bleveWriter) Add(doc *Document) error {
	if w.released {
		return IndexClosedError
	}
	if err := doc.validate(); err != nil {
		return err
	}

	fields, err := doc.fields()
	if err != nil {
		return fmt.Errorf("%w: %v", InvalidDocumentError, err)
	}
	if err := w.batch.Index(doc.ID, fields); err != nil {
		return fmt.Errorf("Bleve error while staging document %s: %v", doc.ID, err)
	}
	return nil
}

func (w *bleveWriter) DeleteAll() error {
	if w.released {
		return IndexClosedError
	}
	w.batch.Reset()

	total, err := w.b.index.DocCount()
	if err != nil {
		return fmt.Errorf("Bleve error while counting documents: %v", err)
	}

	// No commit can land while we hold the writer, so paging is stable.
	for from := 0; uint64(from) < total; {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), deletePageSize, from, false)
		req.SortBy([]string{"_id"})
		results, err := w.b.index.Search(req)
		if err != nil {
			return fmt.Errorf("Bleve error while listing documents: %v", err)
		}
		if len(results.Hits) == 0 {
			break
		}
		for _, hit := range results.Hits {
			w.batch.Delete(hit.ID)
		}
		from += len(results.Hits)
	}
	log.Debugf("Staged deletion of %d documents", total)
	return nil
}

func (w *bleveWriter) Commit() error {
	if w.released {
		return IndexClosedError
	}
	staged := w.batch.Size()
	if err := w.b.index.Batch(w.batch); err != nil {
		return fmt.Errorf("Bleve error while committing batch: %v", err)
	}
	w.batch.Reset()
	log.Tracef("Committed %d operations", staged)
	return nil
}

func (w *bleveWriter) Release() {
	if w.released {
		return
	}
	w.released = true
	w.b.writer.Release(1)
}
