package scanner

import (
	"strings"
	"testing"

	"github.com/ytget/blackout/types"
	"github.com/ytget/blackout/youtube/page"
)

const tracked = "PLtracked0001"

func mustPage(t *testing.T, pageURL, body string) *page.Page {
	t.Helper()
	p, err := page.Parse(pageURL, strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	return p
}

func mustHTML(t *testing.T, p *page.Page) string {
	t.Helper()
	out, err := p.HTML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func blocklist(ids ...string) types.Blocklist {
	return types.Blocklist{PlaylistID: tracked, Videos: types.NewBlockSet(ids...)}
}

func isSuppressed(p *page.Page, sel string) bool {
	s := p.Doc().Find(sel).First()
	return page.Style(s, "filter") == "brightness(0)" && page.Style(s, "background-color") == "black"
}

const homeFeed = `<html><head><title>YouTube</title></head><body>
<ytd-rich-item-renderer id="one">
  <a id="thumbnail" class="yt-simple-endpoint" href="/watch?v=abc12345678"><img src="a.jpg"><div class="ytThumbnailHoverOverlayViewModelScrim"></div></a>
  <a id="video-title" href="/watch?v=abc12345678">Highlights | Real Madrid 3-1 Barcelona | LaLiga</a>
</ytd-rich-item-renderer>
<ytd-rich-item-renderer id="two">
  <a id="thumbnail" href="/watch?v=xyz98765432"><img src="b.jpg"></a>
  <a id="video-title" href="/watch?v=xyz98765432">Highlights | Lyon 2-2 Nice | Ligue 1</a>
</ytd-rich-item-renderer>
<ytd-video-renderer id="three">
  <a id="thumbnail" href="/watch?v=chn12345678"><img src="c.jpg"></a>
  <a id="video-title" href="/watch?v=chn12345678">| Inter 1-0 Milan |</a>
  <a class="channel" href="/channel/UC123">Club</a>
</ytd-video-renderer>
<ytd-grid-video-renderer id="four">
  <a id="thumbnail" href="/playlist?list=` + tracked + `"><img src="d.jpg"></a>
  <a class="text" href="/playlist?list=` + tracked + `">View full playlist</a>
</ytd-grid-video-renderer>
</body></html>`

func TestScan_Membership(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/", homeFeed)
	r := New(tracked, nil).Scan(p, blocklist("abc12345678"))

	if !isSuppressed(p, "#one a#thumbnail") {
		t.Fatal("blocked video thumbnail not suppressed")
	}
	if isSuppressed(p, "#two a#thumbnail") {
		t.Fatal("unblocked video thumbnail suppressed")
	}
	if got := page.Style(p.Doc().Find("#one .ytThumbnailHoverOverlayViewModelScrim"), "display"); got != "none" {
		t.Fatalf("overlay display got %q want none", got)
	}

	title := p.Doc().Find("#one #video-title")
	if got := title.Text(); got != "Real Madrid vs Barcelona" {
		t.Fatalf("got %q want %q", got, "Real Madrid vs Barcelona")
	}
	if got := title.AttrOr("title", ""); got != "Real Madrid vs Barcelona" {
		t.Fatalf("title attribute got %q", got)
	}
	if got := p.Doc().Find("#two #video-title").Text(); got != "Highlights | Lyon 2-2 Nice | Ligue 1" {
		t.Fatalf("unblocked title changed to %q", got)
	}
	if r.Category(CategoryThumbnail).Retitled != 1 {
		t.Fatalf("retitled got %d want 1", r.Category(CategoryThumbnail).Retitled)
	}
	if r.Mutations == 0 {
		t.Fatal("expected mutations")
	}
}

func TestScan_Idempotent(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/", homeFeed)
	s := New(tracked, nil)
	bl := blocklist("abc12345678")
	bl.Channel = types.BlockedChannel{ID: "UC123"}

	first := s.Scan(p, bl)
	if first.Mutations == 0 {
		t.Fatal("first scan should mutate")
	}
	before := mustHTML(t, p)

	second := s.Scan(p, bl)
	if second.Mutations != 0 {
		t.Fatalf("second scan made %d mutations", second.Mutations)
	}
	if after := mustHTML(t, p); after != before {
		t.Fatal("second scan changed the document")
	}

	// A fresh scanner has no marks but must still leave the page unchanged.
	third := New(tracked, nil).Scan(p, bl)
	if third.Mutations != 0 {
		t.Fatalf("fresh scanner made %d mutations", third.Mutations)
	}
}

func TestScan_Channel(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/", homeFeed)
	bl := blocklist("zzz12345678")
	bl.Channel = types.BlockedChannel{ID: "UC123"}
	New(tracked, nil).Scan(p, bl)

	if !isSuppressed(p, "#three a#thumbnail") {
		t.Fatal("thumbnail under blocked channel not suppressed")
	}
	if got := p.Doc().Find("#three #video-title").Text(); got != "Inter vs Milan" {
		t.Fatalf("got %q want Inter vs Milan", got)
	}
	if isSuppressed(p, "#two a#thumbnail") {
		t.Fatal("thumbnail of another channel suppressed")
	}
}

func TestScan_ChannelOnlyBlocklist(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/", homeFeed)
	bl := types.Blocklist{PlaylistID: tracked, Channel: types.BlockedChannel{Handle: "@nobody", ID: "UC123"}}
	r := New(tracked, nil).Scan(p, bl)
	if r.Mutations == 0 || !isSuppressed(p, "#three a#thumbnail") {
		t.Fatal("a channel alone must be enough to scan")
	}
}

func TestScan_PlaylistFallback(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/", homeFeed)
	New(tracked, nil).Scan(p, blocklist("abc12345678"))

	if !isSuppressed(p, "#four a#thumbnail") {
		t.Fatal("playlist thumbnail not suppressed")
	}
	if _, ok := p.Doc().Find("#four a.text").Attr("style"); ok {
		t.Fatal("text link to the playlist must not be styled")
	}
}

func TestScan_EmptyBlocklistIsNoop(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/watch?v=abc12345678&list="+tracked, homeFeed)
	before := mustHTML(t, p)

	r := New(tracked, nil).Scan(p, types.Blocklist{PlaylistID: tracked})
	if r.Mutations != 0 || r.Suppressed() != 0 || r.GuardEngaged {
		t.Fatalf("unexpected report %+v", r)
	}
	if after := mustHTML(t, p); after != before {
		t.Fatal("empty blocklist changed the document")
	}
}

const watchPage = `<html><head><title>(1) Highlights | Real Madrid 3-1 Barcelona | LaLiga - YouTube</title></head><body>
<ytd-watch-metadata>
  <div id="title"><h1 class="style-scope"><yt-formatted-string>Highlights | Real Madrid 3-1 Barcelona | LaLiga</yt-formatted-string></h1></div>
  <a class="owner" href="/@club">Club</a>
</ytd-watch-metadata>
<ytd-playlist-panel-video-renderer id="row1">
  <a id="wc-endpoint" href="/watch?v=abc12345678&list=` + tracked + `&index=1">
    <div id="thumbnail-container"><img src="p.jpg"></div>
    <span id="video-title" title="Highlights | Real Madrid 3-1 Barcelona | LaLiga" aria-label="Highlights | Real Madrid 3-1 Barcelona | LaLiga 9 minutes">Highlights | Real Madrid 3-1 Barcelona | LaLiga</span>
  </a>
  <a id="thumbnail"><img src="thumb.jpg"></a>
</ytd-playlist-panel-video-renderer>
<ytd-playlist-panel-video-renderer id="row2">
  <a id="wc-endpoint" href="/watch?v=xyz98765432&list=` + tracked + `&index=2"><span id="video-title">Highlights | Lyon 2-2 Nice | Ligue 1</span></a>
  <a id="thumbnail"><img src="thumb2.jpg"></a>
</ytd-playlist-panel-video-renderer>
<yt-lockup-view-model id="lock1">
  <a href="/watch?v=abc12345678"><yt-thumbnail-view-model><img src="l.jpg"></yt-thumbnail-view-model></a>
  <h3><a class="yt-lockup-metadata-view-model__title" href="/watch?v=abc12345678"><span>Highlights | Real Madrid 3-1 Barcelona | LaLiga</span></a></h3>
</yt-lockup-view-model>
<yt-lockup-view-model id="lock2">
  <a href="/watch?v=xyz98765432"><yt-thumbnail-view-model><img src="l2.jpg"></yt-thumbnail-view-model></a>
</yt-lockup-view-model>
<div class="ytp-ce-element ytp-ce-video" id="card1"><a href="https://www.youtube.com/watch?v=abc12345678"></a><div class="ytp-ce-covering-image"></div></div>
<div class="ytp-ce-element ytp-ce-playlist" id="card2"><a href="https://www.youtube.com/playlist?list=` + tracked + `"></a><div class="ytp-ce-covering-image"></div></div>
<div class="ytp-ce-element ytp-ce-video" id="card3"><a href="https://www.youtube.com/watch?v=xyz98765432"></a><div class="ytp-ce-covering-image"></div></div>
<a class="ytp-videowall-still" id="wall1" href="/watch?v=abc12345678"><div class="ytp-videowall-still-image"></div><span class="ytp-videowall-still-info-title">Highlights | Real Madrid 3-1 Barcelona | LaLiga</span></a>
<a class="ytp-modern-videowall-still" id="wall2" href="/watch?v=xyz98765432"><div class="ytp-videowall-still-image"></div></a>
</body></html>`

func TestScan_WatchPageCategories(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/watch?v=abc12345678&list="+tracked, watchPage)
	r := New(tracked, nil).Scan(p, blocklist("abc12345678"))

	if !r.WatchBlocked || !r.GuardEngaged {
		t.Fatalf("watch page should be blocked and guarded: %+v", r)
	}
	h := p.Doc().Find("ytd-watch-metadata yt-formatted-string")
	if h.Text() != "Real Madrid vs Barcelona" || h.AttrOr("title", "") != "Real Madrid vs Barcelona" {
		t.Fatalf("watch heading got %q", h.Text())
	}
	if got := p.Title(); got != "Real Madrid vs Barcelona - YouTube" {
		t.Fatalf("tab title got %q", got)
	}

	// playlist panel
	if !isSuppressed(p, "#row1 a#thumbnail") {
		t.Fatal("panel thumbnail not suppressed")
	}
	if _, ok := p.Doc().Find("#row1 a#wc-endpoint").Attr("style"); ok {
		t.Fatal("panel wrapper link must not be styled")
	}
	row := p.Doc().Find("#row1 #video-title")
	if row.Text() != "Real Madrid vs Barcelona" || row.AttrOr("title", "") != "Real Madrid vs Barcelona" {
		t.Fatalf("panel title got %q / %q", row.Text(), row.AttrOr("title", ""))
	}
	if got := row.AttrOr("aria-label", ""); got != "Real Madrid vs Barcelona" {
		t.Fatalf("aria-label got %q", got)
	}
	if isSuppressed(p, "#row2 a#thumbnail") {
		t.Fatal("unblocked panel row suppressed")
	}
	if _, ok := p.Doc().Find("#row2 #video-title").Attr("title"); ok {
		t.Fatal("title attribute must only be mirrored when present")
	}

	// suggested lockups
	if !isSuppressed(p, "#lock1 img") || isSuppressed(p, "#lock2 img") {
		t.Fatal("lockup suppression wrong")
	}
	if got := p.Doc().Find("#lock1 h3 span").Text(); got != "Real Madrid vs Barcelona" {
		t.Fatalf("lockup title got %q", got)
	}
	if got := p.Doc().Find("#lock1 a.yt-lockup-metadata-view-model__title").AttrOr("title", ""); got != "Real Madrid vs Barcelona" {
		t.Fatalf("lockup link title got %q", got)
	}

	// end screen
	if !isSuppressed(p, "#card1 .ytp-ce-covering-image") || !isSuppressed(p, "#card2 .ytp-ce-covering-image") {
		t.Fatal("end screen cards not suppressed")
	}
	if isSuppressed(p, "#card3 .ytp-ce-covering-image") {
		t.Fatal("unblocked end screen card suppressed")
	}

	// video wall
	if !isSuppressed(p, "#wall1 .ytp-videowall-still-image") || isSuppressed(p, "#wall2 .ytp-videowall-still-image") {
		t.Fatal("video wall suppression wrong")
	}
	if got := p.Doc().Find("#wall1 .ytp-videowall-still-info-title").Text(); got != "Real Madrid vs Barcelona" {
		t.Fatalf("video wall title got %q", got)
	}

	for _, c := range []Category{CategoryPanel, CategoryLockup, CategoryEndScreen, CategoryVideoWall, CategoryWatch, CategoryTab} {
		if r.Category(c) == (Counts{}) {
			t.Fatalf("category %s reported nothing", c)
		}
	}
}

func TestScan_WatchBlockedByChannel(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/watch?v=zzz12345678", watchPage)
	bl := blocklist("aaa12345678")
	bl.Channel = types.BlockedChannel{Handle: "@club"}
	r := New(tracked, nil).Scan(p, bl)
	if !r.WatchBlocked {
		t.Fatal("watch page of the blocked channel should be blocked")
	}
	if got := p.Title(); got != "Real Madrid vs Barcelona - YouTube" {
		t.Fatalf("tab title got %q", got)
	}
}

func TestScan_Header(t *testing.T) {
	body := `<html><head></head><body><ytd-playlist-header-renderer><yt-img-shadow><img id="hero" src="h.jpg"></yt-img-shadow></ytd-playlist-header-renderer></body></html>`

	p := mustPage(t, "https://www.youtube.com/playlist?list="+tracked, body)
	r := New(tracked, nil).Scan(p, blocklist("abc12345678"))
	if !isSuppressed(p, "#hero") || r.Category(CategoryHeader).Suppressed != 1 {
		t.Fatal("header image on the tracked playlist page not suppressed")
	}

	other := mustPage(t, "https://www.youtube.com/playlist?list=PLother000", body)
	New(tracked, nil).Scan(other, blocklist("abc12345678"))
	if isSuppressed(other, "#hero") {
		t.Fatal("header image of another playlist suppressed")
	}
}

func TestTitleGuard(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/watch?v=abc12345678", watchPage)
	s := New(tracked, nil)
	bl := blocklist("abc12345678")

	s.Scan(p, bl)
	s.Scan(p, bl)
	if p.Observers() != 1 {
		t.Fatalf("got %d title observers want 1", p.Observers())
	}

	// the host changes the title after the scan
	p.SetTitle("Highlights | Lyon 2-2 Nice | Ligue 1 - YouTube")
	if got := p.Title(); got != "Lyon vs Nice - YouTube" {
		t.Fatalf("got %q want %q", got, "Lyon vs Nice - YouTube")
	}
	p.SetTitle("Lyon vs Nice (extended) - YouTube")
	if got := p.Title(); got != "Lyon vs Nice (extended) - YouTube" {
		t.Fatalf("title without a score must be kept, got %q", got)
	}

	// leaving the blocked video releases the guard
	if err := p.Navigate("/watch?v=xyz98765432"); err != nil {
		t.Fatal(err)
	}
	r := s.Scan(p, bl)
	if r.GuardEngaged || s.Guard().Engaged() || p.Observers() != 0 {
		t.Fatalf("guard still engaged: %+v observers=%d", r, p.Observers())
	}
	p.SetTitle("Highlights | Lyon 2-2 Nice | Ligue 1 - YouTube")
	if got := p.Title(); got != "Highlights | Lyon 2-2 Nice | Ligue 1 - YouTube" {
		t.Fatalf("released guard rewrote %q", got)
	}
}

func TestScan_NewRenderTreeClearsMarks(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/", homeFeed)
	s := New(tracked, nil)
	bl := blocklist("abc12345678")
	s.Scan(p, bl)

	doc, err := page.ParseDocument(strings.NewReader(homeFeed))
	if err != nil {
		t.Fatal(err)
	}
	p.Replace(doc)
	if r := s.Scan(p, bl); r.Mutations == 0 {
		t.Fatal("new render tree should be scanned again")
	}
	if !isSuppressed(p, "#one a#thumbnail") {
		t.Fatal("thumbnail in the new render tree not suppressed")
	}
}

func TestReset(t *testing.T) {
	p := mustPage(t, "https://www.youtube.com/watch?v=abc12345678", watchPage)
	s := New(tracked, nil)
	s.Scan(p, blocklist("abc12345678"))
	if s.marks.len() == 0 {
		t.Fatal("expected marks after a scan")
	}
	s.Reset()
	if s.marks.len() != 0 || s.Guard().Engaged() || p.Observers() != 0 {
		t.Fatal("reset left state behind")
	}
}

func TestCategoryString(t *testing.T) {
	if CategoryEndScreen.String() != "end_screen" || Category(99).String() != "unknown" {
		t.Fatal("unexpected category names")
	}
	if len(Categories()) != int(numCategories) {
		t.Fatal("Categories() incomplete")
	}
}
