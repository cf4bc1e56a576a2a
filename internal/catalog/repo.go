package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// RunRow represents a row in the runs table.
type RunRow struct {
	ID                string        `json:"id"`
	State             string        `json:"state"`
	FilesDiscovered   int           `json:"files_discovered"`
	FilesSucceeded    int           `json:"files_succeeded"`
	FilesFailed       int           `json:"files_failed"`
	DocumentsParsed   int           `json:"documents_parsed"`
	DocumentsWritten  int           `json:"documents_written"`
	AttachmentsCopied int           `json:"attachments_copied"`
	BrokenReferences  int           `json:"broken_references"`
	Cancelled         bool          `json:"cancelled"`
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
}

// DocumentRow represents a migrated document in the documents table. Body is
// stored for search and only populated on single-document reads.
type DocumentRow struct {
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	SourcePath string    `json:"source_path"`
	Format     string    `json:"format"`
	Folder     string    `json:"folder"`
	Checksum   string    `json:"checksum"`
	Tags       []string  `json:"tags"`
	Backlinks  []string  `json:"backlinks"`
	Body       string    `json:"-"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// VaultPath returns the document's location relative to the vault root.
func (d DocumentRow) VaultPath() string {
	if d.Folder == "" {
		return d.Slug + ".md"
	}
	return d.Folder + "/" + d.Slug + ".md"
}

// LinkRow is one resolved reference edge, by document title.
type LinkRow struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// BrokenRow is one unresolved reference recorded during a run.
type BrokenRow struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FailureRow is one per-file failure recorded during a run.
type FailureRow struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ReplaceRun records the outcome of one migration run in a single
// transaction: the run row is appended to the run history, while document,
// link, broken-reference and failure rows from earlier runs are dropped and
// replaced wholesale. The catalog always describes the latest run only.
func (db *DB) ReplaceRun(run RunRow, docs []DocumentRow, links []LinkRow, broken []BrokenRow, failures []FailureRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"documents", "links", "broken_refs", "failures"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("catalog: clear %s: %w", table, err)
		}
	}
	ftsClear(tx)

	_, err = tx.Exec(`
		INSERT INTO runs (id, state, files_discovered, files_succeeded, files_failed,
			documents_parsed, documents_written, attachments_copied, broken_references,
			cancelled, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.State, run.FilesDiscovered, run.FilesSucceeded, run.FilesFailed,
		run.DocumentsParsed, run.DocumentsWritten, run.AttachmentsCopied, run.BrokenReferences,
		run.Cancelled, run.StartedAt, run.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("catalog: insert run: %w", err)
	}

	for _, d := range docs {
		tagsJSON, _ := json.Marshal(emptyNotNil(d.Tags))
		backlinksJSON, _ := json.Marshal(emptyNotNil(d.Backlinks))
		_, err = tx.Exec(`
			INSERT INTO documents (slug, title, source_path, format, folder, checksum, tags, backlinks, body, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET
				title       = excluded.title,
				source_path = excluded.source_path,
				format      = excluded.format,
				folder      = excluded.folder,
				checksum    = excluded.checksum,
				tags        = excluded.tags,
				backlinks   = excluded.backlinks,
				body        = excluded.body,
				updated_at  = excluded.updated_at
		`, d.Slug, d.Title, d.SourcePath, d.Format, d.Folder, d.Checksum,
			string(tagsJSON), string(backlinksJSON), d.Body, d.UpdatedAt)
		if err != nil {
			return fmt.Errorf("catalog: insert document %q: %w", d.Slug, err)
		}
		if err := ftsUpsert(tx, d.Slug, d.Title, d.Body, d.Tags); err != nil {
			return err
		}
	}

	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(l.Source, l.Target); err != nil {
				return fmt.Errorf("catalog: insert link: %w", err)
			}
		}
	}

	for _, b := range broken {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO broken_refs (source, target) VALUES (?, ?)`, b.Source, b.Target); err != nil {
			return fmt.Errorf("catalog: insert broken ref: %w", err)
		}
	}

	for _, f := range failures {
		if _, err := tx.Exec(`INSERT INTO failures (run_id, path, message) VALUES (?, ?, ?)`, run.ID, f.Path, f.Message); err != nil {
			return fmt.Errorf("catalog: insert failure: %w", err)
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recently started run, or apperr.ErrNotFound
// when the catalog has never recorded one.
func (db *DB) LatestRun() (*RunRow, error) {
	row := db.conn.QueryRow(`
		SELECT id, state, files_discovered, files_succeeded, files_failed,
		       documents_parsed, documents_written, attachments_copied, broken_references,
		       cancelled, started_at, duration_ms
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1
	`)
	var r RunRow
	var durationMS int64
	err := row.Scan(&r.ID, &r.State, &r.FilesDiscovered, &r.FilesSucceeded, &r.FilesFailed,
		&r.DocumentsParsed, &r.DocumentsWritten, &r.AttachmentsCopied, &r.BrokenReferences,
		&r.Cancelled, &r.StartedAt, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: latest run: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: latest run: %w", err)
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return &r, nil
}

// ListDocuments returns migrated documents ordered by title, optionally
// filtered to one vault folder, plus the total count for the filter.
func (db *DB) ListDocuments(limit, offset int, folder string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where, args := "", []any{}
	if folder != "" {
		where = `WHERE folder = ?`
		args = append(args, folder)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT slug, title, source_path, format, folder, checksum, tags, backlinks, updated_at
		FROM documents `+where+`
		ORDER BY title
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// AllDocuments returns every migrated document, body excluded, ordered by title.
func (db *DB) AllDocuments() ([]DocumentRow, error) {
	rows, err := db.conn.Query(`
		SELECT slug, title, source_path, format, folder, checksum, tags, backlinks, updated_at
		FROM documents
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDocument returns one migrated document by slug, body included.
func (db *DB) GetDocument(slug string) (*DocumentRow, error) {
	row := db.conn.QueryRow(`
		SELECT slug, title, source_path, format, folder, checksum, tags, backlinks, updated_at, body
		FROM documents
		WHERE slug = ?
	`, slug)

	var d DocumentRow
	var tagsJSON, backlinksJSON string
	err := row.Scan(&d.Slug, &d.Title, &d.SourcePath, &d.Format, &d.Folder, &d.Checksum,
		&tagsJSON, &backlinksJSON, &d.UpdatedAt, &d.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: document %q: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get document: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
	_ = json.Unmarshal([]byte(backlinksJSON), &d.Backlinks)
	return &d, nil
}

// Backlinks returns the titles of every document that links to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? COLLATE NOCASE ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("catalog: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Links returns every reference edge recorded for the latest run.
func (db *DB) Links() ([]LinkRow, error) {
	rows, err := db.conn.Query(`SELECT source, target FROM links ORDER BY source, target`)
	if err != nil {
		return nil, fmt.Errorf("catalog: links: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var l LinkRow
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// BrokenRefs returns the unresolved references recorded for the latest run.
func (db *DB) BrokenRefs() ([]BrokenRow, error) {
	rows, err := db.conn.Query(`SELECT source, target FROM broken_refs ORDER BY source, target`)
	if err != nil {
		return nil, fmt.Errorf("catalog: broken refs: %w", err)
	}
	defer rows.Close()

	var out []BrokenRow
	for rows.Next() {
		var b BrokenRow
		if err := rows.Scan(&b.Source, &b.Target); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Failures returns the per-file failures recorded for the latest run, in
// insertion order.
func (db *DB) Failures() ([]FailureRow, error) {
	rows, err := db.conn.Query(`SELECT path, message FROM failures ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("catalog: failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRow
	for rows.Next() {
		var f FailureRow
		if err := rows.Scan(&f.Path, &f.Message); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(rows rowScanner) (DocumentRow, error) {
	var d DocumentRow
	var tagsJSON, backlinksJSON string
	if err := rows.Scan(&d.Slug, &d.Title, &d.SourcePath, &d.Format, &d.Folder, &d.Checksum,
		&tagsJSON, &backlinksJSON, &d.UpdatedAt); err != nil {
		return d, fmt.Errorf("catalog: scan document: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &d.Tags)
	_ = json.Unmarshal([]byte(backlinksJSON), &d.Backlinks)
	return d, nil
}

func emptyNotNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
