package api

import "github.com/starford/raido/internal/catalog"

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []catalog.DocumentRow `json:"documents"`
	Total     int                   `json:"total"`
}

// GraphResponse wraps the reference graph of the latest run.
type GraphResponse struct {
	Nodes []GraphNode       `json:"nodes"`
	Links []catalog.LinkRow `json:"links"`
}

// BacklinksResponse wraps the backlink lookup for one target.
type BacklinksResponse struct {
	Target    string   `json:"target"`
	Backlinks []string `json:"backlinks"`
}

// BrokenResponse wraps the broken references of the latest run.
type BrokenResponse struct {
	BrokenReferences []catalog.BrokenRow `json:"broken_references"`
	Total            int                 `json:"total"`
}

// FailuresResponse wraps the per-file failures of the latest run.
type FailuresResponse struct {
	Failures []catalog.FailureRow `json:"failures"`
	Total    int                  `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results"`
}
