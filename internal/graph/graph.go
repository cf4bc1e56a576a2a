// Package graph holds the corpus-wide reference graph built from document
// bodies. Nodes are document titles, edges point from a referencing document
// to its target. Titles are compared case-insensitively; the casing seen
// first is the one reported back.
package graph

import (
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/wikilink"
)

// Graph is an in-memory directed graph keyed by lowercased title.
// It is not safe for concurrent use.
type Graph struct {
	names    map[string]string
	outgoing map[string]map[string]struct{}
	incoming map[string]map[string]struct{}
	edges    int
}

// New returns an empty graph.
func New() *Graph {
	g := &Graph{}
	g.Clear()
	return g
}

// Clear drops every node and edge.
func (g *Graph) Clear() {
	g.names = make(map[string]string)
	g.outgoing = make(map[string]map[string]struct{})
	g.incoming = make(map[string]map[string]struct{})
	g.edges = 0
}

func key(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// AddNode registers a title. Blank titles are ignored; re-adding an existing
// title (in any casing) is a no-op.
func (g *Graph) AddNode(title string) {
	k := key(title)
	if k == "" {
		return
	}
	if _, ok := g.names[k]; !ok {
		g.names[k] = strings.TrimSpace(title)
	}
}

// AddEdge records source -> target, creating either node as needed. The edge
// set is idempotent: repeated inserts keep the count stable. Self references
// are kept and later surface as one-node cycles.
func (g *Graph) AddEdge(source, target string) {
	sk, tk := key(source), key(target)
	if sk == "" || tk == "" {
		return
	}
	g.AddNode(source)
	g.AddNode(target)
	if _, ok := g.outgoing[sk][tk]; ok {
		return
	}
	if g.outgoing[sk] == nil {
		g.outgoing[sk] = make(map[string]struct{})
	}
	if g.incoming[tk] == nil {
		g.incoming[tk] = make(map[string]struct{})
	}
	g.outgoing[sk][tk] = struct{}{}
	g.incoming[tk][sk] = struct{}{}
	g.edges++
}

// AddEdges records one edge per target from a single source.
func (g *Graph) AddEdges(source string, targets []string) {
	for _, t := range targets {
		g.AddEdge(source, t)
	}
}

// HasNode reports whether the title is registered, in any casing.
func (g *Graph) HasNode(title string) bool {
	_, ok := g.names[key(title)]
	return ok
}

// HasEdge reports whether source -> target is recorded.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.outgoing[key(source)][key(target)]
	return ok
}

// NodeCount returns the number of registered titles.
func (g *Graph) NodeCount() int { return len(g.names) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Nodes returns every registered title in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Outgoing returns the titles the given document references, sorted. Unknown
// titles yield nil.
func (g *Graph) Outgoing(title string) []string {
	return g.resolve(g.outgoing[key(title)])
}

// Incoming returns the titles that reference the given document, sorted.
// These are the document's backlinks.
func (g *Graph) Incoming(title string) []string {
	return g.resolve(g.incoming[key(title)])
}

func (g *Graph) resolve(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, g.names[k])
	}
	sort.Strings(out)
	return out
}

// Orphans returns the titles nothing references, sorted. A document whose
// only reference is itself still counts as referenced.
func (g *Graph) Orphans() []string {
	var out []string
	for k, name := range g.names {
		if len(g.incoming[k]) == 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Build replaces the graph contents from a document set. All titles are
// registered first so that references resolve regardless of document order;
// referenced titles with no document of their own still become nodes.
func (g *Graph) Build(docs []*models.Document) {
	g.Clear()
	for _, d := range docs {
		g.AddNode(d.Title)
	}
	for _, d := range docs {
		g.AddEdges(d.Title, wikilink.Extract(d.Body))
	}
}
