package indexer

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"hurracloud.io/jadwal/internal/backend"
	"hurracloud.io/jadwal/internal/extract"
	"hurracloud.io/jadwal/internal/indexer/utils"
)

// FileIndexer ingests a single file synchronously.
type FileIndexer struct {
	Backend           backend.SearchBackend
	FileSizeThreshold int
}

// IndexFile extracts every record of filePath and commits them as one batch.
// The file is fully parsed before the writer is taken, so a broken file never
// holds up other writers. It returns the number of committed documents.
func (i *FileIndexer) IndexFile(ctx context.Context, filePath string) (int, error) {
	log.Tracef("Indexing %s", filePath)

	if err := utils.CheckFile(filePath, i.FileSizeThreshold); err != nil {
		return 0, fmt.Errorf("File not indexable: %w", err)
	}

	records, err := extract.Extract(filePath)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		log.Debugf("No rows found in %s", filePath)
		return 0, nil
	}

	docs := make([]*backend.Document, 0, len(records))
	for _, record := range records {
		docs = append(docs, backend.Assemble(record))
	}

	w, err := i.Backend.Writer(ctx)
	if err != nil {
		return 0, fmt.Errorf("Failed to acquire index writer: %w", err)
	}
	defer w.Release()

	for _, doc := range docs {
		if err := w.Add(doc); err != nil {
			return 0, fmt.Errorf("Failed to add row of %s: %w", filePath, err)
		}
	}
	if err := w.Commit(); err != nil {
		return 0, fmt.Errorf("Failed to commit %s: %w", filePath, err)
	}

	return len(docs), nil
}
