// Package nfefile reads NFe XML files from disk, applying the
// collaborator-side checks (extension, non-empty, size cap) before the
// ingestion core ever sees the content.
package nfefile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Doc is one file's content, named for batch error reporting.
type Doc struct {
	Name    string
	Content string
}

// Check validates a file's name and size without reading it.
func Check(path string, maxBytes int64) error {
	if !strings.EqualFold(filepath.Ext(path), ".xml") {
		return fmt.Errorf("%s: file must have a .xml extension", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: file is empty", filepath.Base(path))
	}
	if info.Size() > maxBytes {
		return fmt.Errorf("%s: file exceeds the %d byte limit", filepath.Base(path), maxBytes)
	}
	return nil
}

// Load reads a single document file after checking it.
func Load(path string, maxBytes int64) (Doc, error) {
	if err := Check(path, maxBytes); err != nil {
		return Doc{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Doc{}, err
	}
	return Doc{Name: filepath.Base(path), Content: string(data)}, nil
}

// LoadDir loads every acceptable .xml file in dir, in name order,
// skipping files that fail the checks with a logged warning. It errors
// when the directory yields no usable document at all.
func LoadDir(dir string, maxBytes int64) ([]Doc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var docs []Doc
	for _, name := range names {
		doc, err := Load(filepath.Join(dir, name), maxBytes)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", name, err)
			continue
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no usable XML documents found in %s", dir)
	}
	return docs, nil
}
