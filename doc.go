// Package blackout hides every video of one YouTube playlist wherever it
// shows up on a YouTube page, so match results are not spoiled.
//
// Features:
//   - Playlist resolution into a block set of video ids plus the owning channel
//   - Thumbnail blackout across feeds, suggestions, end screens, the video wall
//     and the playlist panel
//   - Score removal from titles, including the browser tab title
//   - Optional user rule scripts (goja or otto) for title rewriting
//
// One-shot use:
//
//	report, err := blackout.New().
//		WithPlaylist("PLISuFiQTdKDWLIeau9w3aVwtiFsKwarBe").
//		Filter(ctx, pageURL, in, out)
//
// Long-lived hosts run Session() and feed it page changes.
package blackout
