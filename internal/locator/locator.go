// Package locator maps model identifiers to local model files.
//
// Resolution scans <registry>/blobs for files carrying the model signature
// and picks the largest one. Results are cached per identifier and
// revalidated against the filesystem on every hit. When nothing is found,
// EnsureAvailable asks the registry tool to pull the model and scans again.
package locator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"lmrun/internal/common/fsutil"
	"lmrun/internal/errs"
	"lmrun/internal/metrics"
)

// DefaultRegistryDir is used when neither Options nor $OLLAMA_MODELS name one.
const DefaultRegistryDir = "~/.ollama/models"

// Options configure a Locator.
type Options struct {
	// RegistryDir defaults to $OLLAMA_MODELS, then DefaultRegistryDir.
	RegistryDir string
	// Registry defaults to a ShellRegistry with the ollama scripts.
	Registry RegistryClient
	// CacheTTL bounds how long a resolved path is trusted; zero keeps
	// entries until they are found stale.
	CacheTTL time.Duration
	// Magic defaults to "GGUF".
	Magic  []byte
	Logger zerolog.Logger
}

// Locator resolves identifiers against one registry directory.
type Locator struct {
	mu       sync.RWMutex
	dir      string
	cache    *ttlcache.Cache[string, string]
	registry RegistryClient
	magic    []byte
	log      zerolog.Logger
	fetches  singleflight.Group
}

// New builds a Locator and starts its cache expiry loop. Call Close when done.
func New(opts Options) *Locator {
	l := &Locator{
		registry: opts.Registry,
		magic:    opts.Magic,
		log:      opts.Logger,
	}
	if l.registry == nil {
		l.registry = NewShellRegistry("", "")
	}
	if len(l.magic) == 0 {
		l.magic = []byte("GGUF")
	}
	ttl := opts.CacheTTL
	if ttl < 0 {
		ttl = 0
	}
	l.cache = ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go l.cache.Start()
	l.setDir(opts.RegistryDir)
	return l
}

// Close stops the cache expiration loop.
func (l *Locator) Close() { l.cache.Stop() }

// RegistryDirectory returns the expanded registry root.
func (l *Locator) RegistryDirectory() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dir
}

// SetRegistryDirectory switches the registry root and drops every cached path.
func (l *Locator) SetRegistryDirectory(dir string) {
	l.setDir(dir)
	l.cache.DeleteAll()
}

func (l *Locator) setDir(dir string) {
	if strings.TrimSpace(dir) == "" {
		dir = os.Getenv("OLLAMA_MODELS")
	}
	if strings.TrimSpace(dir) == "" {
		dir = DefaultRegistryDir
	}
	if exp, err := fsutil.ExpandHome(dir); err == nil {
		dir = exp
	}
	l.mu.Lock()
	l.dir = dir
	l.mu.Unlock()
}

// Resolve returns the local model path for id or a not-found error.
func (l *Locator) Resolve(id string) (string, error) {
	if item := l.cache.Get(id); item != nil {
		p := item.Value()
		if _, err := os.Stat(p); err == nil {
			metrics.LocatorLookup("hit")
			return p, nil
		}
		l.cache.Delete(id)
		metrics.LocatorLookup("stale")
		l.log.Debug().Str("event", "cache_stale").Str("model", id).Str("path", p).Msg("cached model path vanished; rescanning")
	}

	blobs := filepath.Join(l.RegistryDirectory(), BlobsDir)
	p, err := scanLargest(blobs, l.magic)
	if err != nil {
		l.log.Debug().Str("event", "scan_failed").Str("dir", blobs).Err(err).Msg("registry scan failed")
	}
	if p == "" {
		metrics.LocatorLookup("not_found")
		return "", errs.NotFound(id)
	}
	metrics.LocatorLookup("miss")
	l.cache.Set(id, p, ttlcache.DefaultTTL)
	l.log.Debug().Str("event", "resolved").Str("model", id).Str("path", p).Msg("model resolved")
	return p, nil
}

// EnsureAvailable resolves id, pulling it through the registry tool first
// when no local file exists. Concurrent calls for the same id share one pull.
// The shared pull is not tied to any caller's context: a caller that gives up
// returns ctx.Err() while the pull keeps going for the others.
func (l *Locator) EnsureAvailable(ctx context.Context, id string) (string, error) {
	if p, err := l.Resolve(id); err == nil {
		return p, nil
	} else if !errs.IsNotFound(err) {
		return "", err
	}

	pullCtx := context.WithoutCancel(ctx)
	ch := l.fetches.DoChan(id, func() (any, error) {
		// another caller may have finished a pull while we waited
		if p, err := l.Resolve(id); err == nil {
			return p, nil
		}
		if err := l.fetch(pullCtx, id); err != nil {
			return "", err
		}
		return l.Resolve(id)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (l *Locator) fetch(ctx context.Context, id string) (err error) {
	defer func() { metrics.Fetch(err) }()
	present, err := l.registry.Has(ctx, id)
	if err != nil {
		return err
	}
	if present {
		l.log.Info().Str("event", "fetch_skip").Str("model", id).Msg("registry lists model; skipping pull")
		return nil
	}
	l.log.Info().Str("event", "fetch_start").Str("model", id).Msg("pulling model")
	start := time.Now()
	if err := l.registry.Pull(ctx, id); err != nil {
		l.log.Error().Str("event", "fetch_failed").Str("model", id).Err(err).Msg("pull failed")
		var e *errs.Error
		if errors.As(err, &e) {
			return err
		}
		return errs.New(errs.KindFetchFailed, err, "pull %s", id)
	}
	l.log.Info().Str("event", "fetch_done").Str("model", id).Dur("dur", time.Since(start)).Msg("model pulled")
	return nil
}

// IsDirectPath reports whether id names a file rather than a registry
// entry: it contains a path separator or ends in ".gguf".
func IsDirectPath(id string) bool {
	return strings.ContainsRune(id, '/') ||
		strings.ContainsRune(id, filepath.Separator) ||
		strings.HasSuffix(strings.ToLower(id), ".gguf")
}
