// Package models defines the domain types for Raido.
package models

import "time"

// FileType identifies the source wiki format of an input file.
type FileType string

// Recognized source formats.
const (
	FileTypeMarkdown   FileType = "markdown"
	FileTypeMediaWiki  FileType = "mediawiki"
	FileTypeTiddlyWiki FileType = "tiddlywiki"
	FileTypeDokuWiki   FileType = "dokuwiki"
	FileTypeUnknown    FileType = "unknown"
)

// FileInfo describes one candidate file discovered under the source root.
type FileInfo struct {
	FullPath     string    `json:"full_path"`
	RelativePath string    `json:"relative_path"`
	Name         string    `json:"name"`
	Type         FileType  `json:"type"`
	ModifiedTime time.Time `json:"modified_time"`

	// DocumentCreated/DocumentModified are inferred from file metadata and,
	// where a format carries its own timestamps, refined by the parser.
	DocumentCreated  time.Time `json:"document_created,omitempty"`
	DocumentModified time.Time `json:"document_modified,omitempty"`
}

// VaultFile is metadata for one file in the output vault.
type VaultFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is one migratable unit of content. The title is fixed at creation
// and is the document's identity (compared case-insensitively everywhere);
// Backlinks is populated once per pipeline run, after the reference graph is
// built, and is overwritten, not appended to, when a document is reused.
type Document struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Format     FileType  `json:"format"`
	SourcePath string    `json:"source_path"`
	Tags       []string  `json:"tags,omitempty"`
	Created    time.Time `json:"created,omitempty"`
	Modified   time.Time `json:"modified,omitempty"`
	Backlinks  []string  `json:"backlinks,omitempty"`
}
