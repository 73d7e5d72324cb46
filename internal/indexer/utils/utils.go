package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"
)

var (
	NotAFileError        = errors.New("Not a regular file")
	FileTooLargeError    = errors.New("File is larger than threshold")
	ContentMismatchError = errors.New("File content does not match its extension")
)

// expectedMIME lists, per extension, the MIME types a file's sniffed type (or
// one of its parents) must be.
var expectedMIME = map[string][]string{
	".xlsx": {"application/zip"},
	".xlsm": {"application/zip"},
	".xls":  {"application/x-ole-storage", "application/vnd.ms-excel"},
	".csv":  {"text/plain"},
	".tsv":  {"text/plain"},
	".txt":  {"text/plain"},
	".pdf":  {"application/pdf"},
}

// CheckFile verifies path is a regular file below maxFileSizeMB whose content
// is what its extension claims. A zero threshold disables the size check.
func CheckFile(path string, maxFileSizeMB int) error {
	log.Tracef("Checking if %v is indexable", path)

	stat, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := stat.Mode(); !mode.IsRegular() {
		return fmt.Errorf("%w: %s", NotAFileError, path)
	}

	if maxFileSizeMB > 0 && int(stat.Size()/(1024*1024)) >= maxFileSizeMB {
		log.Infof("File %s (size=%d bytes) is larger than threshold %dMB, will not index", path, stat.Size(), maxFileSizeMB)
		return fmt.Errorf("%w: %s is %d bytes", FileTooLargeError, path, stat.Size())
	}

	expected, ok := expectedMIME[strings.ToLower(filepath.Ext(path))]
	if !ok || stat.Size() == 0 {
		return nil
	}

	detectedMIME, err := mimetype.DetectFile(path)
	if err != nil {
		log.Warningf("Could not detect MIME for %s. Assuming file is indexable", path)
		return nil
	}

	for mime := detectedMIME; mime != nil; mime = mime.Parent() {
		for _, want := range expected {
			if mime.Is(want) {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %s looks like %s", ContentMismatchError, path, detectedMIME.String())
}
