package errs

import (
	"errors"
)

var (
	// ErrNetworkFailure indicates that the playlist page could not be fetched or read.
	ErrNetworkFailure = errors.New("network failure")
	// ErrPatternMiss indicates that an expected identifier was absent from a page.
	ErrPatternMiss = errors.New("pattern miss")
	// ErrInvalidPlaylist indicates that a playlist id or URL could not be parsed.
	ErrInvalidPlaylist = errors.New("invalid playlist")
	// ErrNotHTML indicates that a response or file does not carry an HTML document.
	ErrNotHTML = errors.New("not an html document")
	// ErrScriptFailed indicates that a rewrite script could not be loaded or executed.
	ErrScriptFailed = errors.New("rewrite script failed")
	// ErrSessionClosed indicates that the session loop has stopped.
	ErrSessionClosed = errors.New("session closed")
)

// IsRecoverable reports whether err only means "nothing to suppress yet".
// Network failures and pattern misses never stop a session.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNetworkFailure) || errors.Is(err, ErrPatternMiss)
}
