// Package parser turns source wiki files into documents. Each supported
// format has its own parser; ForFile picks the right one from the file's
// detected type. A single file may yield several documents (MediaWiki dumps
// and TiddlyWiki bundles carry many pages per file).
package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// Parser extracts the documents contained in one source file.
type Parser interface {
	Parse(file models.FileInfo, data []byte) ([]*models.Document, error)
}

// ForFile returns the parser for a discovered file. Extensions that several
// tools share are sniffed: an .xml file must look like a MediaWiki export and
// an .html file must carry a TiddlyWiki store area, otherwise the file is
// rejected rather than parsed into garbage.
func ForFile(file models.FileInfo, data []byte) (Parser, error) {
	switch file.Type {
	case models.FileTypeMarkdown:
		return &MarkdownParser{}, nil
	case models.FileTypeMediaWiki:
		if !bytes.Contains(head(data), []byte("<mediawiki")) {
			return nil, fmt.Errorf("parser: %s is not a mediawiki export: %w", file.Name, apperr.ErrParse)
		}
		return &MediaWikiParser{}, nil
	case models.FileTypeTiddlyWiki:
		if !bytes.Contains(data, []byte(`id="storeArea"`)) {
			return nil, fmt.Errorf("parser: %s has no tiddlywiki store area: %w", file.Name, apperr.ErrParse)
		}
		return &TiddlyWikiParser{}, nil
	case models.FileTypeDokuWiki:
		return &DokuWikiParser{}, nil
	default:
		return nil, fmt.Errorf("parser: no parser for type %q: %w", file.Type, apperr.ErrParse)
	}
}

// head caps sniffing at the first kilobyte.
func head(data []byte) []byte {
	if len(data) > 1024 {
		return data[:1024]
	}
	return data
}

// stem returns the file name without its extension, the last-resort document
// title for formats that carry none.
func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
