package meet

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Abdu732a/jitsi/pkg/log"
)

// Readiness is the process-wide bootstrap library state. It starts unset,
// moves to Ready or Failed exactly once, and is read-only thereafter.
type Readiness int

const (
	ReadinessUnset  Readiness = 0
	ReadinessReady  Readiness = 1
	ReadinessFailed Readiness = 2
)

func (r Readiness) String() string {
	switch r {
	case ReadinessUnset:
		return "unset"
	case ReadinessReady:
		return "ready"
	case ReadinessFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ScriptFetcher loads the external bootstrap script. Implementations are
// injected so tests can simulate success and failure.
type ScriptFetcher interface {
	Fetch(ctx context.Context) error
}

// EntryProbe reports whether the library entry point is already present,
// e.g. on re-entry into a page where the widget was previously embedded.
// May be nil.
type EntryProbe func() bool

// Loader ensures the bootstrap script is loaded at most once per process
// lifetime.
type Loader struct {
	fetcher ScriptFetcher
	probe   EntryProbe
	timeout time.Duration

	mu        sync.Mutex
	started   bool
	readiness Readiness
	lastErr   error
}

// NewLoader creates a loader around the given fetcher. probe may be nil.
func NewLoader(fetcher ScriptFetcher, probe EntryProbe) *Loader {
	return &Loader{
		fetcher: fetcher,
		probe:   probe,
		timeout: 30 * time.Second,
	}
}

// EnsureLoaded triggers the script load on first call and returns the
// current readiness. The load itself is asynchronous; callers re-check via
// Readiness. Safe for concurrent use; the script is fetched at most once.
func (l *Loader) EnsureLoaded() Readiness {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		l.started = true
		if l.probe != nil && l.probe() {
			// Entry point already present, no injection needed.
			l.readiness = ReadinessReady
			log.Debug("Bootstrap library already present, skipping script load")
			return l.readiness
		}
		go l.load()
	}
	return l.readiness
}

// Readiness returns the current readiness without triggering a load.
func (l *Loader) Readiness() Readiness {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readiness
}

// Err returns the load error, if the load failed.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Loader) load() {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	err := l.fetcher.Fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		// No automatic retry; readiness stays failed for the process
		// lifetime. Only the constructor-availability poll retries.
		l.readiness = ReadinessFailed
		l.lastErr = fmt.Errorf("%w: %v", ErrLoadFailure, err)
		log.Errorf("Bootstrap script load failed: %v", err)
		return
	}
	l.readiness = ReadinessReady
	log.Info("Bootstrap script loaded")
}

// HTTPFetcher fetches the bootstrap script over HTTP.
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// Fetch performs a single GET of the script URL. Any non-2xx response is a
// load failure.
func (f *HTTPFetcher) Fetch(ctx context.Context) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, f.URL)
	}
	return nil
}
