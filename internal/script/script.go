// Package script lets users supply their own title rewrite rule as a small
// JavaScript file.
//
// The script must define a global function rewriteTitle(title) that returns
// the replacement string, or null/undefined to defer to the built-in rule.
// Scripts run in goja by default; otto is available as an alternative engine.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ytget/blackout/errs"
	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/youtube/title"
)

// FuncName is the global function a rule script must define.
const FuncName = "rewriteTitle"

// DefaultTimeout bounds a single rewriteTitle call.
const DefaultTimeout = 250 * time.Millisecond

// Engine selects the JavaScript interpreter.
type Engine string

const (
	EngineGoja Engine = "goja"
	EngineOtto Engine = "otto"
)

// ParseEngine maps a configuration value to an Engine. Empty means goja.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case "", EngineGoja:
		return EngineGoja, nil
	case EngineOtto:
		return EngineOtto, nil
	default:
		return "", fmt.Errorf("unknown script engine %q", s)
	}
}

// vm runs one loaded script. Implementations are not safe for concurrent use.
type vm interface {
	// call returns ok=false when the script has no opinion.
	call(t string, timeout time.Duration) (out string, ok bool, err error)
}

var errTimeout = errors.New("script timed out")

// Rewriter is a title.Rewriter backed by a user script. Calls are
// serialized and results are memoized.
type Rewriter struct {
	name     string
	engine   Engine
	timeout  time.Duration
	fallback title.Rewriter

	mu    sync.Mutex
	vm    vm
	cache *MemoryCache

	calls    atomic.Int64
	failures atomic.Int64
}

// Load reads and compiles the script at path.
func Load(path string, engine Engine) (*Rewriter, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errs.ErrScriptFailed, path, err)
	}
	return New(path, string(src), engine)
}

// New compiles src. name is used in error positions and logs.
func New(name, src string, engine Engine) (*Rewriter, error) {
	var (
		machine vm
		err     error
	)
	switch engine {
	case EngineGoja, "":
		engine = EngineGoja
		machine, err = newGojaVM(name, src)
	case EngineOtto:
		machine, err = newOttoVM(src)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", errs.ErrScriptFailed, engine)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrScriptFailed, name, err)
	}
	logger.WithComponent(logger.ComponentScript).Info("Loaded title rule script", map[string]interface{}{
		"script": name,
		"engine": string(engine),
	})
	return &Rewriter{
		name:     name,
		engine:   engine,
		timeout:  DefaultTimeout,
		fallback: title.Default,
		vm:       machine,
		cache:    NewMemoryCache(0),
	}, nil
}

// WithTimeout changes the per-call limit.
func (r *Rewriter) WithTimeout(d time.Duration) *Rewriter {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// WithFallback replaces the rule used when the script defers or fails.
func (r *Rewriter) WithFallback(fb title.Rewriter) *Rewriter {
	if fb != nil {
		r.fallback = fb
	}
	return r
}

// Engine reports which interpreter runs the script.
func (r *Rewriter) Engine() Engine { return r.engine }

// Calls counts script invocations. Cache hits are not counted.
func (r *Rewriter) Calls() int64 { return r.calls.Load() }

// Failures counts invocations that errored, timed out or were rejected.
func (r *Rewriter) Failures() int64 { return r.failures.Load() }

// Rewrite implements title.Rewriter.
func (r *Rewriter) Rewrite(t string) (string, bool) {
	if e, ok := r.cache.Get(t); ok {
		return e.Value, e.OK
	}
	out, ok := r.rewrite(t)
	r.cache.Set(t, Entry{Value: out, OK: ok})
	return out, ok
}

func (r *Rewriter) rewrite(t string) (string, bool) {
	r.mu.Lock()
	r.calls.Add(1)
	out, ok, err := r.vm.call(t, r.timeout)
	r.mu.Unlock()

	log := logger.WithComponent(logger.ComponentScript)
	switch {
	case err != nil:
		r.failures.Add(1)
		log.Warn("Title rule script failed, using built-in rule", map[string]interface{}{
			"script": r.name,
			"error":  err.Error(),
		})
		return r.fallback.Rewrite(t)
	case !ok || strings.TrimSpace(out) == "":
		return r.fallback.Rewrite(t)
	case title.HasPipedScore(out):
		r.failures.Add(1)
		log.Warn("Title rule script kept the score, using built-in rule", map[string]interface{}{
			"script": r.name,
			"result": out,
		})
		return r.fallback.Rewrite(t)
	}
	return out, out != t
}
