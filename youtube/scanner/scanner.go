// Package scanner finds the elements of a YouTube page that reveal a blocked
// video and suppresses them: thumbnails are blacked out and match scores are
// removed from titles.
//
// A scan is synchronous and idempotent. Running it again on an unchanged
// page performs no mutation, so hosts may scan after every change event.
package scanner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/types"
	"github.com/ytget/blackout/youtube/page"
	"github.com/ytget/blackout/youtube/playlist"
	"github.com/ytget/blackout/youtube/title"
)

// Category identifies one family of page elements.
type Category int

const (
	CategoryThumbnail Category = iota
	CategoryLockup
	CategoryHeader
	CategoryEndScreen
	CategoryVideoWall
	CategoryPanel
	CategoryWatch
	CategoryTab
	numCategories
)

var categoryNames = [numCategories]string{
	"thumbnail", "lockup", "header", "end_screen", "video_wall", "panel", "watch", "tab",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// Categories lists every category in scan order.
func Categories() []Category {
	out := make([]Category, numCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Counts is the per-category outcome of a scan.
type Counts struct {
	Suppressed int `json:"suppressed"`
	Retitled   int `json:"retitled"`
}

// Report summarizes one scan.
type Report struct {
	Counts       [numCategories]Counts `json:"-"`
	Mutations    int                   `json:"mutations"`
	GuardEngaged bool                  `json:"guard_engaged"`
	WatchBlocked bool                  `json:"watch_blocked"`
}

// Category returns the counts for c.
func (r Report) Category(c Category) Counts {
	if c < 0 || c >= numCategories {
		return Counts{}
	}
	return r.Counts[c]
}

// Suppressed totals the suppressed elements across categories.
func (r Report) Suppressed() int {
	n := 0
	for _, c := range r.Counts {
		n += c.Suppressed
	}
	return n
}

// Retitled totals the rewritten titles across categories.
func (r Report) Retitled() int {
	n := 0
	for _, c := range r.Counts {
		n += c.Retitled
	}
	return n
}

// ByName returns the non-zero counts keyed by category name.
func (r Report) ByName() map[string]Counts {
	out := make(map[string]Counts)
	for i, c := range r.Counts {
		if c != (Counts{}) {
			out[Category(i).String()] = c
		}
	}
	return out
}

// Scanner applies a blocklist to pages. It keeps per-page marks and the
// tab title guard, so one Scanner serves one page at a time and must not be
// used concurrently.
type Scanner struct {
	playlistID string
	rewriter   title.Rewriter
	marks      *marks
	guard      *TitleGuard
	page       *page.Page
}

// New creates a Scanner for the tracked playlist. A nil rewriter uses
// title.Default.
func New(playlistID string, rw title.Rewriter) *Scanner {
	if rw == nil {
		rw = title.Default
	}
	return &Scanner{
		playlistID: playlistID,
		rewriter:   rw,
		marks:      newMarks(),
		guard:      NewTitleGuard(rw),
	}
}

// PlaylistID returns the tracked playlist id.
func (s *Scanner) PlaylistID() string { return s.playlistID }

// Guard exposes the tab title guard.
func (s *Scanner) Guard() *TitleGuard { return s.guard }

// Reset forgets every mark and releases the title guard, as when the page
// is detached.
func (s *Scanner) Reset() {
	s.marks.reset()
	s.guard.Release()
	s.page = nil
}

// Scan suppresses every blocked element of p. With an empty blocklist it
// returns an empty report without touching the page.
func (s *Scanner) Scan(p *page.Page, bl types.Blocklist) Report {
	var r Report
	if p == nil || p.Doc() == nil || bl.Empty() {
		return r
	}
	if s.page != p {
		s.Reset()
		s.page = p
	}
	s.marks.sync(p.Generation())

	sc := &scan{Scanner: s, page: p, doc: p.Doc(), bl: bl, report: &r}
	sc.thumbnails()
	sc.lockups()
	sc.header()
	sc.endScreen()
	sc.videoWall()
	sc.panel()
	sc.watch()

	if r.Mutations > 0 {
		logger.WithComponent(logger.ComponentScanner).Debug("Scan complete", map[string]interface{}{
			"mutations":  r.Mutations,
			"suppressed": r.Suppressed(),
			"retitled":   r.Retitled(),
		})
	}
	return r
}

// scan carries the state of one pass.
type scan struct {
	*Scanner
	page   *page.Page
	doc    *goquery.Document
	bl     types.Blocklist
	report *Report
}

func (sc *scan) mutated(changed bool) bool {
	if changed {
		sc.report.Mutations++
	}
	return changed
}

// suppress blacks out every element of sel.
func (sc *scan) suppress(c Category, sel *goquery.Selection) {
	if sel.Length() == 0 {
		return
	}
	a := sc.mutated(page.SetStyle(sel, "filter", "brightness(0)"))
	b := sc.mutated(page.SetStyle(sel, "background-color", "black"))
	if a || b {
		sc.report.Counts[c].Suppressed++
	}
}

func (sc *scan) hideOverlays(link *goquery.Selection) {
	sc.mutated(page.SetStyle(link.Find(overlaySel), "display", "none"))
}

// rewrite returns the neutral form of text, if it has one.
func (sc *scan) rewrite(text string) (string, bool) {
	return sc.rewriter.Rewrite(strings.TrimSpace(text))
}

// retitle rewrites the text of el and, when withAttr is set, its title
// attribute. The title mark is only set when a rewrite happened.
func (sc *scan) retitle(c Category, el *goquery.Selection, withAttr bool) (string, bool) {
	el = el.First()
	if el.Length() == 0 || sc.marks.hasTitle(el.Get(0)) {
		return "", false
	}
	rw, ok := sc.rewrite(el.Text())
	if !ok {
		return "", false
	}
	changed := sc.mutated(page.SetText(el, rw))
	if withAttr {
		changed = sc.mutated(page.SetAttr(el, "title", rw)) || changed
	}
	sc.marks.markTitle(el.Get(0))
	if changed {
		sc.report.Counts[c].Retitled++
	}
	return rw, true
}

// channelBlocked reports whether el links to the blocked channel.
func (sc *scan) channelBlocked(el *goquery.Selection) bool {
	if sc.bl.Channel.IsZero() || el.Length() == 0 {
		return false
	}
	blocked := false
	el.Find(channelLinkSel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if sc.bl.Channel.MatchesHref(a.AttrOr("href", "")) {
			blocked = true
		}
		return !blocked
	})
	return blocked
}

func (sc *scan) videoBlocked(id string) bool {
	return id != "" && sc.bl.HasVideo(id)
}

func isThumbnailLink(link *goquery.Selection) bool {
	return link.AttrOr("id", "") == "thumbnail" ||
		link.HasClass("ytd-thumbnail") ||
		link.Find(thumbnailImgSel).Length() > 0
}

func (sc *scan) thumbnails() {
	log := logger.WithComponent(logger.ComponentScanner)
	sc.doc.Find(thumbnailSelector(sc.playlistID)).Each(func(_ int, link *goquery.Selection) {
		node := link.Get(0)
		if sc.marks.hasVisual(node) {
			return
		}
		href := link.AttrOr("href", "")
		if href == "" || link.AttrOr("id", "") == "wc-endpoint" || !isThumbnailLink(link) {
			return
		}

		videoID := playlist.VideoIDFromHref(href)
		container := link.Closest(rendererSel)
		if sc.videoBlocked(videoID) || sc.channelBlocked(container) {
			sc.suppress(CategoryThumbnail, link)
			sc.hideOverlays(link)
			sc.marks.markVisual(node)
			if videoID == "" {
				videoID = "unknown"
			}
			log.Debug("Blacked out video", map[string]interface{}{"video_id": videoID})
			if container.Length() > 0 {
				sc.retitle(CategoryThumbnail, container.Find(videoTitleSel), true)
			}
			return
		}

		if sc.playlistID != "" && playlist.ListIDFromHref(href) == sc.playlistID {
			sc.suppress(CategoryThumbnail, link)
			sc.hideOverlays(link)
			sc.marks.markVisual(node)
		}
	})
}

func (sc *scan) lockups() {
	sc.doc.Find(lockupSel).Each(func(_ int, lockup *goquery.Selection) {
		node := lockup.Get(0)
		if sc.marks.hasVisual(node) {
			return
		}
		link := lockup.Find(lockupLinkSel).First()
		if link.Length() == 0 {
			return
		}
		videoID := playlist.VideoIDFromHref(link.AttrOr("href", ""))
		if videoID == "" {
			return
		}
		if !sc.videoBlocked(videoID) && !sc.channelBlocked(lockup) {
			return
		}
		sc.suppress(CategoryLockup, lockup.Find(lockupImageSel).First())
		el := lockup.Find(lockupTitleSel).First()
		if el.Length() == 0 {
			el = lockup.Find(lockupHeadingSel).First()
		}
		if rw, ok := sc.retitle(CategoryLockup, el, false); ok {
			sc.mutated(page.SetAttr(lockup.Find(lockupTitleLinkSel).First(), "title", rw))
		}
		sc.marks.markVisual(node)
	})
}

func (sc *scan) header() {
	if !sc.page.Contains(sc.playlistID) {
		return
	}
	sc.doc.Find(headerImageSel).Each(func(_ int, img *goquery.Selection) {
		sc.suppress(CategoryHeader, img)
	})
}

func (sc *scan) endScreen() {
	sc.doc.Find(endScreenCardSel).Each(func(_ int, card *goquery.Selection) {
		node := card.Get(0)
		if sc.marks.hasVisual(node) {
			return
		}
		href := card.Find("a").First().AttrOr("href", "")
		if href == "" {
			return
		}
		blocked := (sc.playlistID != "" && strings.Contains(href, sc.playlistID)) ||
			sc.videoBlocked(playlist.VideoIDFromHref(href))
		if !blocked {
			return
		}
		sc.suppress(CategoryEndScreen, card.Find(endScreenImageSel).First())
		sc.marks.markVisual(node)
	})
}

func (sc *scan) videoWall() {
	sc.doc.Find(videoWallSel).Each(func(_ int, still *goquery.Selection) {
		node := still.Get(0)
		if sc.marks.hasVisual(node) {
			return
		}
		videoID := playlist.VideoIDFromHref(still.AttrOr("href", ""))
		if videoID == "" {
			return
		}
		if !sc.videoBlocked(videoID) && !sc.channelBlocked(still) {
			return
		}
		sc.suppress(CategoryVideoWall, still.Find(videoWallImageSel).First())
		sc.retitle(CategoryVideoWall, still.Find(videoWallTitleSel), false)
		sc.marks.markVisual(node)
	})
}

func (sc *scan) panel() {
	if sc.playlistID == "" {
		return
	}
	sc.doc.Find(panelRowSel).Each(func(_ int, row *goquery.Selection) {
		href := row.Find(panelEndpointSel).First().AttrOr("href", "")
		if !strings.Contains(href, sc.playlistID) {
			return
		}
		videoID := playlist.VideoIDFromHref(href)
		if videoID == "" {
			return
		}
		if !sc.videoBlocked(videoID) && !sc.channelBlocked(row) {
			return
		}

		if thumb := row.Find(panelThumbSel).First(); thumb.Length() > 0 && !sc.marks.hasVisual(thumb.Get(0)) {
			sc.suppress(CategoryPanel, thumb)
			sc.marks.markVisual(thumb.Get(0))
		}

		el := row.Find(videoTitleSel).First()
		_, hasTitle := el.Attr("title")
		rw, ok := sc.retitle(CategoryPanel, el, hasTitle)
		if !ok {
			return
		}
		if label, ok := el.Attr("aria-label"); ok {
			if newLabel, ok := sc.rewrite(label); ok {
				sc.mutated(page.SetAttr(el, "aria-label", newLabel))
			}
		}
		logger.WithComponent(logger.ComponentScanner).Debug("Rewrote playlist panel title", map[string]interface{}{
			"title": rw,
		})
	})
}

// watchBlocked reports whether the active watch page shows a blocked video.
func (sc *scan) watchBlocked() bool {
	if sc.videoBlocked(sc.page.QueryParam("v")) {
		return true
	}
	return sc.channelBlocked(sc.doc.Find(watchMetadataSel).First())
}

func (sc *scan) watch() {
	if !sc.watchBlocked() {
		sc.guard.Release()
		return
	}
	sc.report.WatchBlocked = true

	el := sc.doc.Find(watchTitleSel).First()
	if el.Length() == 0 {
		el = sc.doc.Find(watchHeadingSel).First()
	}
	if rw, ok := sc.retitle(CategoryWatch, el, true); ok {
		logger.WithComponent(logger.ComponentScanner).Info("Updated watch page title", map[string]interface{}{
			"title": rw,
		})
	}

	if sc.mutated(sc.guard.Engage(sc.page)) {
		sc.report.Counts[CategoryTab].Retitled++
	}
	sc.report.GuardEngaged = sc.guard.Engaged()
}
