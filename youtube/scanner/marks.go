package scanner

import "golang.org/x/net/html"

// marks remembers which elements a scan already handled. Visual and title
// handling are tracked separately. The set belongs to one render tree and
// is cleared when the page generation changes.
type marks struct {
	generation uint64
	visual     map[*html.Node]struct{}
	title      map[*html.Node]struct{}
}

func newMarks() *marks {
	return &marks{
		visual: make(map[*html.Node]struct{}),
		title:  make(map[*html.Node]struct{}),
	}
}

// sync drops every mark when the render tree was replaced.
func (m *marks) sync(generation uint64) {
	if generation == m.generation {
		return
	}
	m.reset()
	m.generation = generation
}

func (m *marks) reset() {
	clear(m.visual)
	clear(m.title)
}

func (m *marks) hasVisual(n *html.Node) bool {
	_, ok := m.visual[n]
	return ok
}

func (m *marks) markVisual(n *html.Node) { m.visual[n] = struct{}{} }

func (m *marks) hasTitle(n *html.Node) bool {
	_, ok := m.title[n]
	return ok
}

func (m *marks) markTitle(n *html.Node) { m.title[n] = struct{}{} }

func (m *marks) len() int { return len(m.visual) + len(m.title) }
