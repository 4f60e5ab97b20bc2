// Package standards loads and serves the quality standard specifications
// the verification engine judges against, and extracts new specifications
// from standards-document text.
package standards

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/fsnotify/fsnotify"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// Registry serves the current standard specification from a JSON file. The
// file is a flat mapping of parameter name to requirement text; a missing or
// unparseable file yields an empty spec rather than an error, so the engine
// keeps its total contract and simply fails the coverage gate.
//
// Keys in the file are canonicalized against the parameter vocabulary so
// near-miss spellings in hand-edited standard files still bind to the
// parameters the engine tracks.
type Registry struct {
	filePath string
	vocab    *domain.ParameterVocabulary
	logger   *slog.Logger

	mu   sync.RWMutex
	spec domain.StandardSpec
}

// NewRegistry creates a registry over the standard file and performs the
// initial load.
func NewRegistry(filePath string, vocab *domain.ParameterVocabulary, logger *slog.Logger) *Registry {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		filePath: filePath,
		vocab:    vocab,
		logger:   logger.With("component", "standards"),
	}
	r.Reload()
	return r
}

// Current returns the standard spec as of the last load. The returned map
// must be treated as read-only.
func (r *Registry) Current() domain.StandardSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spec
}

// Name returns the standard's display name, derived from the file name.
func (r *Registry) Name() string {
	base := filepath.Base(r.filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FilePath returns the path of the standard file.
func (r *Registry) FilePath() string { return r.filePath }

// Exists reports whether the standard file is present on disk.
func (r *Registry) Exists() bool {
	info, err := os.Stat(r.filePath)
	return err == nil && !info.IsDir()
}

// Reload re-reads the standard file. Absence or a parse failure loads an
// empty spec and logs the cause; the previous spec is always replaced so a
// deleted file does not keep serving stale requirements.
func (r *Registry) Reload() {
	spec := r.load()

	r.mu.Lock()
	r.spec = spec
	r.mu.Unlock()

	r.logger.Info("standard loaded", "file", r.filePath, "parameters", len(spec))
}

func (r *Registry) load() domain.StandardSpec {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		r.logger.Warn("standard file unavailable, serving empty spec",
			"file", r.filePath, "error", err)
		return domain.StandardSpec{}
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("standard file unparseable, serving empty spec",
			"file", r.filePath, "error", err)
		return domain.StandardSpec{}
	}

	spec := make(domain.StandardSpec, len(raw))
	for key, text := range raw {
		canonical := r.canonicalize(key)
		if canonical != key {
			r.logger.Debug("standard key canonicalized", "from", key, "to", canonical)
		}
		spec[canonical] = text
	}
	return spec
}

// canonicalize maps a standard-file key onto the vocabulary's parameter
// names: exact match first, then a normalized comparison, then an edit
// distance of at most 2 over the normalized forms. Keys that match nothing
// are kept verbatim.
func (r *Registry) canonicalize(key string) string {
	if r.vocab.Has(key) {
		return key
	}

	normalized := normalizeKey(key)
	for _, name := range r.vocab.Parameters() {
		if normalizeKey(name) == normalized {
			return name
		}
	}

	for _, name := range r.vocab.Parameters() {
		if levenshtein.ComputeDistance(normalizeKey(name), normalized) <= 2 {
			return name
		}
	}

	return key
}

// normalizeKey lowercases and collapses separators so "Moisture Content",
// "moisture-content", and "moisture_content" all compare equal.
func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}

// Watch reloads the registry whenever the standard file changes, until ctx
// is cancelled. The watch is on the containing directory so editors that
// replace the file (write to temp, rename over) are still observed.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.filePath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(r.filePath)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				r.logger.Info("standard file changed, reloading",
					"file", r.filePath, "op", event.Op.String())
				r.Reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Warn("standard file watch error", "error", err)
			}
		}
	}()

	return nil
}
