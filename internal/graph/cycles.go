package graph

import "sort"

// node colors for the depth-first walk.
const (
	white = iota // unvisited
	gray         // on the current path
	black        // fully explored
)

// DetectCycles walks the graph depth-first and returns the reference cycles
// it finds, each as the sequence of titles forming the loop, closed by
// repeating the starting title. A self reference comes back as [A A]. The
// walk visits every node once, so overlapping cycles through
// already-explored nodes are not enumerated separately; the result is a
// diagnostic sample, not an exhaustive census.
func (g *Graph) DetectCycles() [][]string {
	color := make(map[string]int, len(g.names))
	var cycles [][]string
	var path []string

	keys := make([]string, 0, len(g.names))
	for k := range g.names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var walk func(k string)
	walk = func(k string) {
		color[k] = gray
		path = append(path, k)

		next := make([]string, 0, len(g.outgoing[k]))
		for t := range g.outgoing[k] {
			next = append(next, t)
		}
		sort.Strings(next)

		for _, t := range next {
			switch color[t] {
			case white:
				walk(t)
			case gray:
				start := 0
				for i, p := range path {
					if p == t {
						start = i
						break
					}
				}
				cycle := make([]string, 0, len(path)-start+1)
				for _, p := range path[start:] {
					cycle = append(cycle, g.names[p])
				}
				cycle = append(cycle, g.names[t])
				cycles = append(cycles, cycle)
			}
		}

		path = path[:len(path)-1]
		color[k] = black
	}

	for _, k := range keys {
		if color[k] == white {
			walk(k)
		}
	}
	return cycles
}
