// Package resolver maps document titles to output slugs and rewrites inline
// references against that registry. Lookups are case-insensitive; targets
// with no registered document are rewritten to a best-effort sanitized link
// and optionally recorded as broken.
package resolver

import (
	"fmt"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/slug"
	"github.com/starford/raido/internal/wikilink"
)

// BrokenRef is one unresolved reference occurrence, deduplicated per
// source/target pair.
type BrokenRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// CollisionHandler is called when two distinct titles sanitize to the same
// slug. The later registration keeps the slug.
type CollisionHandler func(title, existing, slug string)

// Option configures a Resolver.
type Option func(*Resolver)

// WithCollisionHandler installs a callback for slug collisions.
func WithCollisionHandler(fn CollisionHandler) Option {
	return func(r *Resolver) { r.onCollision = fn }
}

// Resolver holds the title registry and the broken references gathered while
// resolving. It is not safe for concurrent use.
type Resolver struct {
	slugs       map[string]string // lowercased title -> slug
	owners      map[string]string // slug -> lowercased title registered last
	broken      []BrokenRef
	seen        map[BrokenRef]struct{}
	onCollision CollisionHandler
}

// New returns an empty resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	r.Clear()
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clear drops every registration and recorded broken reference.
func (r *Resolver) Clear() {
	r.slugs = make(map[string]string)
	r.owners = make(map[string]string)
	r.broken = nil
	r.seen = make(map[BrokenRef]struct{})
}

func key(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// RegisterTitle adds one title to the registry and returns its slug.
// Re-registering a title (in any casing) overwrites the earlier entry.
func (r *Resolver) RegisterTitle(title string) (string, error) {
	k := key(title)
	if k == "" {
		return "", fmt.Errorf("resolver: register title: %w", apperr.ErrInvalidArgument)
	}
	s := slug.Sanitize(title)
	if owner, ok := r.owners[s]; ok && owner != k && r.onCollision != nil {
		r.onCollision(strings.TrimSpace(title), owner, s)
	}
	r.slugs[k] = s
	r.owners[s] = k
	return s, nil
}

// RegisterDocuments registers every document title and returns how many were
// accepted. Documents with blank titles are skipped.
func (r *Resolver) RegisterDocuments(docs []*models.Document) int {
	n := 0
	for _, d := range docs {
		if _, err := r.RegisterTitle(d.Title); err == nil {
			n++
		}
	}
	return n
}

// Slug looks up the registered slug for a title.
func (r *Resolver) Slug(title string) (string, bool) {
	s, ok := r.slugs[key(title)]
	return s, ok
}

// Len returns the number of registered titles.
func (r *Resolver) Len() int { return len(r.slugs) }

// Resolve rewrites every reference in body to a Markdown link pointing at
// the target's slug file: [[T]] becomes [T](t.md) and [[T|D]] becomes
// [D](t.md). A target with no registered document still gets a best-effort
// link built from its sanitized title, and is recorded as broken when track
// is set and source is non-blank. External URL targets pass through.
func (r *Resolver) Resolve(body, source string, track bool) string {
	return wikilink.Pattern.ReplaceAllStringFunc(body, func(m string) string {
		ref := wikilink.Split(m[2 : len(m)-2])
		if ref.Target == "" || wikilink.IsExternal(ref.Target) {
			return m
		}
		s, ok := r.slugs[key(ref.Target)]
		if !ok {
			s = slug.Sanitize(ref.Target)
			if track {
				r.record(source, ref.Target)
			}
		}
		display := ref.Display
		if display == "" {
			display = ref.Target
		}
		return "[" + display + "](" + s + ".md)"
	})
}

// ResolveWiki rewrites references in place while keeping the bracket syntax,
// for vaults that read wiki links natively: [[T]] becomes [[t-slug|T]], or
// plain [[t-slug]] when the shown text would equal the slug. Unresolved
// targets fall back to their sanitized form exactly as in Resolve.
func (r *Resolver) ResolveWiki(body, source string, track bool) string {
	return wikilink.Pattern.ReplaceAllStringFunc(body, func(m string) string {
		ref := wikilink.Split(m[2 : len(m)-2])
		if ref.Target == "" || wikilink.IsExternal(ref.Target) {
			return m
		}
		s, ok := r.slugs[key(ref.Target)]
		if !ok {
			s = slug.Sanitize(ref.Target)
			if track {
				r.record(source, ref.Target)
			}
		}
		display := ref.Display
		if display == "" {
			display = ref.Target
		}
		if display == s {
			return "[[" + s + "]]"
		}
		return "[[" + s + "|" + display + "]]"
	})
}

// record stores one broken reference, deduplicated per source/target pair.
// Anonymous resolutions (blank source) are rewritten but never recorded.
func (r *Resolver) record(source, target string) {
	source = strings.TrimSpace(source)
	if source == "" {
		return
	}
	ref := BrokenRef{Source: source, Target: target}
	if _, ok := r.seen[ref]; ok {
		return
	}
	r.seen[ref] = struct{}{}
	r.broken = append(r.broken, ref)
}

// BrokenReferences returns the broken references recorded so far, in
// first-seen order.
func (r *Resolver) BrokenReferences() []BrokenRef {
	out := make([]BrokenRef, len(r.broken))
	copy(out, r.broken)
	return out
}

// BrokenReferencesFor returns the broken references recorded for one source
// document, compared case-insensitively.
func (r *Resolver) BrokenReferencesFor(source string) []BrokenRef {
	k := key(source)
	var out []BrokenRef
	for _, b := range r.broken {
		if key(b.Source) == k {
			out = append(out, b)
		}
	}
	return out
}
