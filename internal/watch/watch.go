// Package watch keeps a filtered copy of an HTML snapshot file up to date.
//
// Every write to the input file replaces the session's render tree. The
// first scan of new content, and each later scan that changed the page,
// writes the filtered page to the output file.
package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/session"
	"github.com/ytget/blackout/youtube/page"
	"github.com/ytget/blackout/youtube/scanner"
)

const (
	defaultPageURL  = "https://www.youtube.com/"
	defaultDebounce = 100 * time.Millisecond
)

// Watcher feeds file changes into a session.
type Watcher struct {
	sess     *session.Session
	input    string
	output   string
	pageURL  string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	// dirty is set when new file content reached the page and has not been
	// written out yet.
	dirty atomic.Bool
}

// New creates a watcher for input. output may be empty to only log scans.
func New(sess *session.Session, input, output, pageURL string) (*Watcher, error) {
	in, err := filepath.Abs(input)
	if err != nil {
		return nil, err
	}
	var out string
	if output != "" {
		if out, err = filepath.Abs(output); err != nil {
			return nil, err
		}
		if out == in {
			return nil, errors.New("output file must differ from the watched file")
		}
	}
	if pageURL == "" {
		pageURL = defaultPageURL
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		sess:     sess,
		input:    in,
		output:   out,
		pageURL:  pageURL,
		debounce: defaultDebounce,
		watcher:  fsw,
	}, nil
}

// WithDebounce sets how long writes must settle before a reload.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Run loads the input, attaches it to the session and follows changes
// until ctx is done. The session must be running.
func (w *Watcher) Run(ctx context.Context) error {
	log := logger.WithComponent(logger.ComponentWatch)
	defer func() { _ = w.watcher.Close() }()

	w.sess.OnScan(w.onScan)
	// Editors often replace the file, so watch its directory.
	if err := w.watcher.Add(filepath.Dir(w.input)); err != nil {
		return fmt.Errorf("watch %s: %w", w.input, err)
	}
	if err := w.load(); err != nil {
		return err
	}
	log.Info("Watching snapshot", map[string]interface{}{"input": w.input, "output": w.output})

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.shouldProcessEvent(event) {
				log.Debug("File change detected", map[string]interface{}{
					"file": event.Name,
					"op":   event.Op.String(),
				})
				debounce.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", map[string]interface{}{"error": err.Error()})
		case <-debounce.C:
			if err := w.reload(); err != nil {
				log.Warn("Reload failed", map[string]interface{}{"error": err.Error()})
			}
		case <-ctx.Done():
			log.Info("Stopping snapshot watcher")
			return nil
		}
	}
}

func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	return filepath.Clean(event.Name) == w.input
}

func (w *Watcher) load() error {
	f, err := os.Open(w.input)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	p, err := page.Parse(w.pageURL, f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", w.input, err)
	}
	w.dirty.Store(true)
	return w.sess.Attach(p)
}

// reload swaps the new file content in as the page's render tree.
func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.input)
	if err != nil {
		return err
	}
	doc, err := page.ParseDocument(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", w.input, err)
	}
	var attached bool
	if err := w.sess.Mutate(func(p *page.Page) {
		if p != nil {
			p.Replace(doc)
			w.dirty.Store(true)
			attached = true
		}
	}); err != nil {
		return err
	}
	if !attached {
		return w.load()
	}
	return nil
}

// onScan runs on the session loop. The output is written after every scan
// that follows new file content, even when nothing was blocked, and after
// any scan that mutated the page.
func (w *Watcher) onScan(p *page.Page, r scanner.Report) {
	if w.output == "" {
		return
	}
	if !w.dirty.Swap(false) && r.Mutations == 0 {
		return
	}
	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		logger.WithComponent(logger.ComponentWatch).Error("Render failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := writeFile(w.output, buf.Bytes()); err != nil {
		logger.WithComponent(logger.ComponentWatch).Error("Write failed", map[string]interface{}{
			"output": w.output,
			"error":  err.Error(),
		})
		return
	}
	logger.WithComponent(logger.ComponentWatch).Info("Wrote filtered page", map[string]interface{}{
		"output":     w.output,
		"suppressed": r.Suppressed(),
		"retitled":   r.Retitled(),
	})
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
