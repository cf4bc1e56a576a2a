// Package pipeline orchestrates one migration run: discover source files,
// parse every document, build the corpus-wide reference graph and slug
// registry, then convert and write each document with references rewritten.
// Parsing fully completes before any writing starts, so a reference from
// document A to document B resolves no matter which file was discovered
// first. One file's failure never aborts the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/attach"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/resolver"
	"github.com/starford/raido/internal/storage"
)

// Scanner enumerates candidate source files.
type Scanner interface {
	Scan(ctx context.Context) ([]models.FileInfo, error)
}

// Converter renders one parsed document as output file content.
type Converter interface {
	Convert(doc *models.Document) (string, error)
}

// Classifier picks the vault folder for one document.
type Classifier interface {
	Folder(doc *models.Document) string
}

// AttachmentCopier copies referenced attachment files into the vault.
type AttachmentCopier interface {
	CopyAll(ctx context.Context, names []string) (attach.Result, error)
}

// Progress is one notification to the run observer. It carries no
// control-flow significance.
type Progress struct {
	State   State
	Index   int
	Total   int
	File    string
	Message string
}

// Observer receives progress notifications during a run.
type Observer func(Progress)

// Written describes one document file produced by a run.
type Written struct {
	Doc      *models.Document
	Slug     string
	Folder   string
	Path     string // relative to the vault root
	Content  string
	Checksum string
}

// parsedFile keeps the association between a discovered file and the
// documents parsed out of it, so the write phase never has to re-match
// files to documents by name.
type parsedFile struct {
	file models.FileInfo
	docs []*models.Document
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClassifier sets the folder classifier. Without one, every document
// lands in the vault root.
func WithClassifier(c Classifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithCopier enables attachment copying after the write phase.
func WithCopier(c AttachmentCopier) Option {
	return func(p *Pipeline) { p.copier = c }
}

// WithObserver installs a progress observer.
func WithObserver(fn Observer) Option {
	return func(p *Pipeline) { p.observer = fn }
}

// WithLogger sets the run logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithParserSelector overrides how parsers are chosen for discovered files.
func WithParserSelector(fn func(models.FileInfo, []byte) (parser.Parser, error)) Option {
	return func(p *Pipeline) { p.parserFor = fn }
}

// Pipeline runs one migration. It is single-threaded: phases execute
// strictly in order and files are processed one at a time, in discovery
// order. A Pipeline holds run state and must not be shared across
// concurrent runs.
type Pipeline struct {
	scanner    Scanner
	converter  Converter
	classifier Classifier
	copier     AttachmentCopier
	vault      storage.Provider
	resolver   *resolver.Resolver
	graph      *graph.Graph
	observer   Observer
	log        *slog.Logger

	parserFor func(models.FileInfo, []byte) (parser.Parser, error)
	readFile  func(string) ([]byte, error)

	docs    []*models.Document
	written []Written
}

// New assembles a pipeline. The resolver is shared with the converter so
// that broken references recorded during conversion are visible here.
func New(scanner Scanner, converter Converter, vault storage.Provider, res *resolver.Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		scanner:   scanner,
		converter: converter,
		vault:     vault,
		resolver:  res,
		graph:     graph.New(),
		log:       slog.Default(),
		parserFor: parser.ForFile,
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Documents returns every document parsed by the last run.
func (p *Pipeline) Documents() []*models.Document { return p.docs }

// Written returns the document files produced by the last run.
func (p *Pipeline) Written() []Written { return p.written }

// Graph returns the reference graph built by the last run.
func (p *Pipeline) Graph() *graph.Graph { return p.graph }

// BrokenReferences returns the unresolved references recorded by the last run.
func (p *Pipeline) BrokenReferences() []resolver.BrokenRef {
	return p.resolver.BrokenReferences()
}

// Run executes one migration. Per-file errors are recorded in the result
// and never abort the batch; cancellation stops the run at the next file
// boundary and returns the partial result without an error. A non-nil error
// is returned only when the run cannot proceed at all (the source tree
// could not be scanned).
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		State:     StateScanning,
		StartedAt: time.Now(),
	}
	p.docs = nil
	p.written = nil
	p.resolver.Clear()

	finish := func(state State) *Result {
		res.State = state
		res.BrokenReferences = len(p.resolver.BrokenReferences())
		res.Duration = time.Since(res.StartedAt)
		return res
	}

	// Phase 1: scan.
	p.notify(Progress{State: StateScanning, Message: "scanning source tree"})
	files, err := p.scanner.Scan(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			res.Cancelled = true
			return finish(StateCancelled), nil
		}
		finish(StateFailed)
		return res, fmt.Errorf("pipeline: scan: %w", err)
	}
	res.FilesDiscovered = len(files)
	if len(files) == 0 {
		p.graph.Clear()
		p.log.Info("nothing to migrate")
		return finish(StateCompleted), nil
	}

	// Phase 2: parse everything before writing anything.
	res.State = StateParsing
	p.notify(Progress{State: StateParsing, Total: len(files), Message: "parsing documents"})
	var parsed []parsedFile
	for i, f := range files {
		if ctx.Err() != nil {
			res.Cancelled = true
			return finish(StateCancelled), nil
		}
		p.notify(Progress{State: StateParsing, Index: i + 1, Total: len(files), File: f.RelativePath})

		docs, err := p.parseFile(f)
		if err != nil {
			p.log.Warn("parse failed", slog.String("file", f.RelativePath), slog.String("error", err.Error()))
			res.fail(f.FullPath, err.Error())
			res.FilesFailed++
			continue
		}
		parsed = append(parsed, parsedFile{file: f, docs: docs})
		p.docs = append(p.docs, docs...)
		res.DocumentsParsed += len(docs)
	}

	// Phase 3: graph, registry, backlinks. Never fails.
	res.State = StateGraphBuilding
	p.notify(Progress{State: StateGraphBuilding, Message: "building reference graph"})
	p.graph.Build(p.docs)
	p.resolver.RegisterDocuments(p.docs)
	for _, d := range p.docs {
		d.Backlinks = p.graph.Incoming(d.Title)
	}

	// Phase 4: convert and write, one file at a time.
	res.State = StateConverting
	attachments := make(map[string]struct{})
	for i, pf := range parsed {
		if ctx.Err() != nil {
			res.Cancelled = true
			return finish(StateCancelled), nil
		}
		p.notify(Progress{State: StateConverting, Index: i + 1, Total: len(parsed), File: pf.file.RelativePath})

		if err := p.migrateFile(pf, attachments, res); err != nil {
			p.log.Warn("migration failed", slog.String("file", pf.file.RelativePath), slog.String("error", err.Error()))
			res.fail(pf.file.FullPath, err.Error())
			res.FilesFailed++
			continue
		}
		res.FilesSucceeded++
	}

	p.copyAttachments(ctx, attachments, res)

	if !res.Success() {
		return finish(StateFailed), nil
	}
	state := finish(StateCompleted)
	p.notify(Progress{State: StateCompleted, Total: len(files), Message: "migration complete"})
	return state, nil
}

// parseFile reads one source file and parses it into documents. A file that
// yields zero documents counts as a parse failure.
func (p *Pipeline) parseFile(f models.FileInfo) ([]*models.Document, error) {
	data, err := p.readFile(f.FullPath)
	if err != nil {
		return nil, fmt.Errorf("read: %v", err)
	}
	pr, err := p.parserFor(f, data)
	if err != nil {
		return nil, err
	}
	docs, err := pr.Parse(f, data)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents in %s", f.Name)
	}
	return docs, nil
}

// migrateFile converts and writes every document parsed from one file. The
// first document that fails fails the whole file.
func (p *Pipeline) migrateFile(pf parsedFile, attachments map[string]struct{}, res *Result) error {
	for _, doc := range pf.docs {
		content, err := p.converter.Convert(doc)
		if err != nil {
			return err
		}

		s, ok := p.resolver.Slug(doc.Title)
		if !ok {
			return fmt.Errorf("no slug registered for %q", doc.Title)
		}
		folder := ""
		if p.classifier != nil {
			folder = p.classifier.Folder(doc)
		}
		outPath := s + ".md"
		if folder != "" {
			outPath = path.Join(folder, outPath)
		}

		data := []byte(content)
		if err := p.vault.Write(outPath, data); err != nil {
			return err
		}

		p.written = append(p.written, Written{
			Doc:      doc,
			Slug:     s,
			Folder:   folder,
			Path:     outPath,
			Content:  content,
			Checksum: checksum.Sum(data),
		})
		res.DocumentsWritten++
		for _, name := range attach.Collect(content) {
			attachments[name] = struct{}{}
		}
	}
	return nil
}

// copyAttachments copies the attachments referenced by written documents.
// Copy problems are report material, never per-file failures.
func (p *Pipeline) copyAttachments(ctx context.Context, attachments map[string]struct{}, res *Result) {
	if p.copier == nil || len(attachments) == 0 {
		return
	}
	names := make([]string, 0, len(attachments))
	for name := range attachments {
		names = append(names, name)
	}
	sort.Strings(names)

	copied, err := p.copier.CopyAll(ctx, names)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.log.Warn("attachment copy failed", slog.String("error", err.Error()))
	}
	res.AttachmentsCopied = copied.Copied
	res.AttachmentsSkipped = copied.Skipped
	res.AttachmentsMissing = len(copied.Missing)
}

func (p *Pipeline) notify(pr Progress) {
	if p.observer != nil {
		p.observer(pr)
	}
}
