// Package page holds a parsed YouTube page: its URL, its element tree and
// its document title. It stands in for the browser DOM.
//
// A Page is not safe for concurrent use. The session loop owns it.
package page

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ytget/blackout/errs"
)

// Page is a live, mutable YouTube page.
type Page struct {
	url        *url.URL
	doc        *goquery.Document
	generation uint64

	observers map[int]func(string)
	nextObs   int
	notifying bool
}

// New wraps an already parsed document.
func New(u *url.URL, doc *goquery.Document) *Page {
	if u == nil {
		u = &url.URL{}
	}
	return &Page{url: u, doc: doc, observers: make(map[int]func(string))}
}

// Parse reads an HTML document for pageURL.
func Parse(pageURL string, r io.Reader) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := ParseDocument(r)
	if err != nil {
		return nil, err
	}
	return New(u, doc), nil
}

// ParseDocument parses r and rejects input that carries no markup at all.
func ParseDocument(r io.Reader) (*goquery.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	if !bytes.Contains(bytes.TrimSpace(data), []byte("<")) {
		return nil, errs.ErrNotHTML
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrNotHTML, err)
	}
	return doc, nil
}

// URL returns the page's current location.
func (p *Page) URL() *url.URL { return p.url }

// Doc returns the current render tree.
func (p *Page) Doc() *goquery.Document { return p.doc }

// Generation counts render tree replacements.
func (p *Page) Generation() uint64 { return p.generation }

// Navigate changes the location without replacing the render tree, like a
// single-page-app route change.
func (p *Page) Navigate(rawURL string) error {
	u, err := p.url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	p.url = u
	return nil
}

// Replace swaps in a new render tree. Title observers stay attached and
// are notified if the title changed.
func (p *Page) Replace(doc *goquery.Document) {
	before := p.Title()
	p.doc = doc
	p.generation++
	if after := p.Title(); after != before {
		p.notify(after)
	}
}

// Title returns the document title.
func (p *Page) Title() string {
	if p.doc == nil {
		return ""
	}
	return p.doc.Find("head title").First().Text()
}

// SetTitle writes the document title and notifies observers.
// Writing the current value is a no-op.
func (p *Page) SetTitle(t string) {
	if p.doc == nil || p.Title() == t {
		return
	}
	sel := p.doc.Find("head title").First()
	if sel.Length() == 0 {
		head := p.doc.Find("head").First()
		if head.Length() == 0 {
			return
		}
		node := &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.Get(0).AppendChild(node)
		sel = head.ChildrenFiltered("title").Last()
	}
	sel.SetText(t)
	p.notify(t)
}

// ObserveTitle registers fn for title changes. Calling the returned
// function detaches it.
func (p *Page) ObserveTitle(fn func(title string)) (detach func()) {
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	return func() { delete(p.observers, id) }
}

// Observers returns the number of attached title observers.
func (p *Page) Observers() int { return len(p.observers) }

func (p *Page) notify(t string) {
	// Observers may set the title themselves; they run once per change
	// chain and see the latest value.
	if p.notifying {
		return
	}
	p.notifying = true
	defer func() { p.notifying = false }()

	for i := 0; i < 8; i++ {
		for _, fn := range p.snapshotObservers() {
			fn(t)
		}
		latest := p.Title()
		if latest == t {
			return
		}
		t = latest
	}
}

func (p *Page) snapshotObservers() []func(string) {
	fns := make([]func(string), 0, len(p.observers))
	for i := 0; i < p.nextObs; i++ {
		if fn, ok := p.observers[i]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Render writes the document as HTML.
func (p *Page) Render(w io.Writer) error {
	if p.doc == nil {
		return errs.ErrNotHTML
	}
	for _, n := range p.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

// HTML renders the document to a string.
func (p *Page) HTML() (string, error) {
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// QueryParam returns the named query parameter of the page location.
func (p *Page) QueryParam(name string) string {
	return p.url.Query().Get(name)
}

// Contains reports whether the page location contains s.
func (p *Page) Contains(s string) bool {
	return s != "" && strings.Contains(p.url.String(), s)
}
