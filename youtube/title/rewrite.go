// Package title removes match scores from pipe-delimited video titles.
//
// A title such as "Highlights | Real Madrid 3-1 Barcelona | LaLiga" becomes
// "Real Madrid vs Barcelona". Titles without a score are left alone.
package title

import (
	"regexp"
	"strings"
)

var (
	// scoreSegmentRe matches "TeamA 1-0 TeamB" inside a single pipe segment.
	// The first group is lazy so the first score in the segment wins.
	scoreSegmentRe = regexp.MustCompile(`^(.+?) ([0-9]+-[0-9]+) (.+)$`)

	// pipedScoreRe requires the score to sit between two explicit pipes.
	pipedScoreRe = regexp.MustCompile(`\|\s*(.*?)\s+\d+-\d+\s+(.*?)\s+\|`)
)

// Rewriter turns a spoiler-bearing title into a neutral one.
// ok is false when the rewriter has no opinion.
type Rewriter interface {
	Rewrite(title string) (rewritten string, ok bool)
}

// RewriterFunc adapts a function to the Rewriter interface.
type RewriterFunc func(title string) (string, bool)

// Rewrite calls f(title).
func (f RewriterFunc) Rewrite(title string) (string, bool) { return f(title) }

// Default is the built-in split-based rewriter.
var Default Rewriter = RewriterFunc(Rewrite)

// Rewrite splits title on "|" and returns "TeamA vs TeamB" for the first
// segment shaped like "TeamA 1-0 TeamB". Titles without a pipe are never
// rewritten.
func Rewrite(title string) (string, bool) {
	if !strings.Contains(title, "|") {
		return "", false
	}
	for _, part := range strings.Split(title, "|") {
		m := scoreSegmentRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		if out, ok := versus(m[1], m[3]); ok {
			return out, true
		}
	}
	return "", false
}

// RewritePiped is the strict form of Rewrite: the score segment must be
// enclosed by a pipe on each side. Every title it rewrites, Rewrite rewrites
// to the same value.
func RewritePiped(title string) (string, bool) {
	m := pipedScoreRe.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return versus(m[1], m[2])
}

// HasPipedScore reports whether title carries a score between two pipes.
// Leading decorations such as a "(1) " notification count are allowed.
func HasPipedScore(title string) bool {
	return pipedScoreRe.MatchString(title)
}

func versus(a, b string) (string, bool) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", false
	}
	return a + " vs " + b, true
}
