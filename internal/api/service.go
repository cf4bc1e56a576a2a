package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/storage"
)

// Service coordinates catalog and vault reads for the API layer. The API is
// read-only: the vault is produced by migration runs, never edited here.
type Service struct {
	db    *catalog.DB
	store storage.Provider
}

// NewService creates a new API service.
func NewService(db *catalog.DB, store storage.Provider) *Service {
	return &Service{db: db, store: store}
}

// DocumentDetail is the response payload for a single migrated document,
// with the final file content read back from the vault.
type DocumentDetail struct {
	catalog.DocumentRow
	VaultPath string `json:"vault_path"`
	Content   string `json:"content"`
}

// Status returns the latest recorded run.
func (s *Service) Status(ctx context.Context) (*catalog.RunRow, error) {
	return s.db.LatestRun()
}

// ListDocuments returns migrated documents, optionally filtered by vault folder.
func (s *Service) ListDocuments(ctx context.Context, limit, offset int, folder string) ([]catalog.DocumentRow, int, error) {
	return s.db.ListDocuments(limit, offset, folder)
}

// GetDocument returns one migrated document by slug, including the written
// vault file content.
func (s *Service) GetDocument(ctx context.Context, slug string) (*DocumentDetail, error) {
	row, err := s.db.GetDocument(slug)
	if err != nil {
		return nil, err
	}
	vaultPath := row.VaultPath()
	data, err := s.store.Read(vaultPath)
	if err != nil {
		return nil, fmt.Errorf("api: read %s: %w", vaultPath, err)
	}
	return &DocumentDetail{
		DocumentRow: *row,
		VaultPath:   vaultPath,
		Content:     string(data),
	}, nil
}

// GraphNode is a node in the reference graph. Slug is empty for titles that
// are referenced but were never migrated.
type GraphNode struct {
	ID   string `json:"id"`
	Slug string `json:"slug,omitempty"`
}

// Graph returns the reference graph of the latest run: one node per migrated
// document plus one per referenced-but-missing title, and the link edges.
func (s *Service) Graph(ctx context.Context) ([]GraphNode, []catalog.LinkRow, error) {
	docs, err := s.db.AllDocuments()
	if err != nil {
		return nil, nil, err
	}
	links, err := s.db.Links()
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]GraphNode, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		nodes = append(nodes, GraphNode{ID: d.Title, Slug: d.Slug})
		seen[strings.ToLower(d.Title)] = struct{}{}
	}
	for _, l := range links {
		for _, title := range []string{l.Source, l.Target} {
			k := strings.ToLower(title)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			nodes = append(nodes, GraphNode{ID: title})
		}
	}
	return nodes, links, nil
}

// Backlinks returns the titles of documents linking to target.
func (s *Service) Backlinks(ctx context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// Broken returns the unresolved references of the latest run.
func (s *Service) Broken(ctx context.Context) ([]catalog.BrokenRow, error) {
	return s.db.BrokenRefs()
}

// Failures returns the per-file failures of the latest run.
func (s *Service) Failures(ctx context.Context) ([]catalog.FailureRow, error) {
	return s.db.Failures()
}

// Search delegates to the catalog's document search.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.Search(query, limit)
}
