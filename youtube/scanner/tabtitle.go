package scanner

import (
	"strings"

	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/youtube/page"
	"github.com/ytget/blackout/youtube/title"
)

const tabTitleSuffix = " - YouTube"

// TitleGuard keeps the document title of a blocked watch page free of
// scores. While engaged it corrects every title update, including updates
// made after the scan that engaged it.
type TitleGuard struct {
	rewriter title.Rewriter
	page     *page.Page
	detach   func()
	enforced int
}

// NewTitleGuard returns a released guard.
func NewTitleGuard(rw title.Rewriter) *TitleGuard {
	if rw == nil {
		rw = title.Default
	}
	return &TitleGuard{rewriter: rw}
}

// Engage attaches the guard to p and corrects the current title. It
// attaches at most once per page; engaging an already guarded page only
// re-checks the title. It reports whether the title was changed.
func (g *TitleGuard) Engage(p *page.Page) bool {
	if g.page != p {
		g.Release()
		g.page = p
		g.detach = p.ObserveTitle(func(t string) { g.enforce(t) })
		logger.WithComponent(logger.ComponentScanner).Debug("Tab title guard engaged", map[string]interface{}{
			"url": p.URL().String(),
		})
	}
	return g.enforce(p.Title())
}

// Release detaches the guard. Releasing a released guard is a no-op.
func (g *TitleGuard) Release() {
	if g.detach != nil {
		g.detach()
		logger.WithComponent(logger.ComponentScanner).Debug("Tab title guard released", nil)
	}
	g.detach = nil
	g.page = nil
}

// Engaged reports whether the guard is attached to a page.
func (g *TitleGuard) Engaged() bool { return g.page != nil }

// Enforced counts the title corrections made so far.
func (g *TitleGuard) Enforced() int { return g.enforced }

func (g *TitleGuard) enforce(current string) bool {
	if g.page == nil || !title.HasPipedScore(current) {
		return false
	}
	rw, ok := g.rewriter.Rewrite(current)
	if !ok || strings.HasPrefix(current, rw) {
		return false
	}
	want := rw + tabTitleSuffix
	g.enforced++
	g.page.SetTitle(want)
	logger.WithComponent(logger.ComponentScanner).Info("Enforced tab title", map[string]interface{}{
		"title": want,
	})
	return true
}
