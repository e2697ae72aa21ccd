package scanner

// Element selectors for the YouTube desktop layout. They change whenever
// YouTube ships a new renderer, so they are kept together here.
const (
	thumbnailLinkSel = `a#thumbnail, a.ytd-thumbnail`
	thumbnailImgSel  = `img, .yt-core-image`
	overlaySel       = `.ytThumbnailHoverOverlayViewModelScrim, .ytThumbnailHoverOverlayScrim, .ytThumbnailHoverViewModelScrim`
	rendererSel      = `ytd-rich-item-renderer, ytd-video-renderer, ytd-grid-video-renderer, ytd-playlist-video-renderer, ytd-compact-video-renderer`
	videoTitleSel    = `#video-title`
	channelLinkSel   = `a[href*="/channel/"], a[href*="/@"]`

	lockupSel          = `yt-lockup-view-model`
	lockupLinkSel      = `a[href*="/watch?v="]`
	lockupImageSel     = `yt-thumbnail-view-model img, .yt-lockup-view-model__content-image`
	lockupTitleSel     = `.yt-lockup-metadata-view-model__title span`
	lockupHeadingSel   = `h3 a`
	lockupTitleLinkSel = `a.yt-lockup-metadata-view-model__title`

	headerImageSel = `ytd-playlist-header-renderer img, ytd-hero-playlist-thumbnail-renderer img, yt-content-preview-image-view-model img`

	endScreenCardSel  = `.ytp-ce-playlist, .ytp-ce-video`
	endScreenImageSel = `.ytp-ce-covering-image`

	videoWallSel      = `.ytp-videowall-still, .ytp-modern-videowall-still`
	videoWallImageSel = `img, .ytp-videowall-still-image`
	videoWallTitleSel = `.ytp-videowall-still-info-title`

	panelRowSel      = `ytd-playlist-panel-video-renderer`
	panelEndpointSel = `a#wc-endpoint`
	panelThumbSel    = `a#thumbnail`

	watchMetadataSel = `ytd-watch-metadata`
	watchTitleSel    = `ytd-watch-metadata #title h1 yt-formatted-string`
	watchHeadingSel  = `ytd-watch-metadata #title h1`
)

// thumbnailSelector adds links that reference the tracked playlist.
func thumbnailSelector(playlistID string) string {
	if playlistID == "" {
		return thumbnailLinkSel
	}
	return thumbnailLinkSel + `, a[href*="` + playlistID + `"]`
}
