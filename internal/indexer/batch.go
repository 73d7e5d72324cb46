package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/sirupsen/logrus"
)

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`)

// Excludes matches paths that are never dispatched, by base name or by full
// path.
type Excludes struct {
	patterns []string
}

func NewExcludes(patterns []string) *Excludes {
	e := &Excludes{}
	for _, pattern := range patterns {
		if doublestar.ValidatePattern(pattern) {
			e.patterns = append(e.patterns, pattern)
			log.Debugf("Added ExcludePattern: %s", pattern)
			continue
		}
		log.Warningf("Invalid glob was provided in ExcludePatterns, escaping pattern: %s", pattern)
		e.patterns = append(e.patterns, globEscaper.Replace(pattern))
	}
	return e
}

func (e *Excludes) Match(path string) bool {
	if e == nil {
		return false
	}
	base := filepath.Base(path)
	for _, pattern := range e.patterns {
		if doublestar.MatchUnvalidated(pattern, base) || doublestar.PathMatchUnvalidated(pattern, path) {
			return true
		}
	}
	return false
}

// Reindex replaces the whole index with the contents of dir. The directory is
// checked first; nothing is deleted unless it is readable. Deletion is
// committed before any entry is dispatched, and entries are dispatched
// without waiting for them. Subdirectories are not descended into.
func (i *Indexer) Reindex(ctx context.Context, dir string) ([]DispatchResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", InvalidDirectoryError, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", InvalidDirectoryError, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", InvalidDirectoryError, dir, err)
	}

	log.Infof("Reindexing %s (%d entries)", dir, len(entries))
	if err := i.wipe(ctx); err != nil {
		return nil, err
	}

	results := make([]DispatchResult, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if i.excludes.Match(path) {
			log.Debugf("Skipping excluded %s", path)
			results = append(results, DispatchResult{FilePath: path, Outcome: OutcomeExcluded})
			continue
		}

		err := i.Ingest(path)
		if err != nil {
			log.Warningf("Not dispatching %s: %v", path, err)
		}
		results = append(results, newDispatchResult(path, err))
	}
	return results, nil
}

func (i *Indexer) wipe(ctx context.Context) error {
	w, err := i.Backend.Writer(ctx)
	if err != nil {
		return fmt.Errorf("Failed to acquire index writer: %w", err)
	}
	defer w.Release()

	if err := w.DeleteAll(); err != nil {
		return fmt.Errorf("Failed to clear index: %w", err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("Failed to commit index deletion: %w", err)
	}
	return nil
}
