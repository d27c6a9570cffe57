// ABOUTME: Builtin twin persona templates loaded from TOML manifests
// ABOUTME: Watches the template directory and hot-reloads on changes

package twins

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// Template is a builtin persona definition users can start a twin from.
type Template struct {
	Slug               string   `toml:"-"`
	Name               string   `toml:"name"`
	Description        string   `toml:"description"`
	Tags               []string `toml:"tags"`
	SuggestedQuestions []string `toml:"suggested_questions"`
}

// TemplateLibrary holds the twin templates parsed from a directory of TOML
// manifests. Reload replaces the whole set atomically; a broken manifest is
// skipped with a logged warning rather than failing the reload.
type TemplateLibrary struct {
	mu        sync.RWMutex
	dir       string
	templates map[string]Template
	logger    *slog.Logger
}

// NewTemplateLibrary creates a library over the given directory and performs
// the initial load. An empty dir yields an empty library with no error.
// Pass nil logger for slog.Default.
func NewTemplateLibrary(dir string, logger *slog.Logger) (*TemplateLibrary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lib := &TemplateLibrary{
		dir:       dir,
		templates: make(map[string]Template),
		logger:    logger.With("component", "templates"),
	}
	if dir != "" {
		if err := lib.Reload(); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Reload re-reads every *.toml manifest in the directory.
func (l *TemplateLibrary) Reload() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("reading template directory: %w", err)
	}

	templates := make(map[string]Template)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		var tmpl Template
		path := filepath.Join(l.dir, entry.Name())
		if _, err := toml.DecodeFile(path, &tmpl); err != nil {
			l.logger.Warn("skipping unparseable template", "path", path, "error", err)
			continue
		}
		if tmpl.Name == "" {
			l.logger.Warn("skipping template without a name", "path", path)
			continue
		}

		tmpl.Slug = strings.TrimSuffix(entry.Name(), ".toml")
		templates[tmpl.Slug] = tmpl
	}

	l.mu.Lock()
	l.templates = templates
	l.mu.Unlock()

	l.logger.Info("templates loaded", "count", len(templates))
	return nil
}

// Get returns the template with the given slug.
func (l *TemplateLibrary) Get(slug string) (Template, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tmpl, ok := l.templates[slug]
	return tmpl, ok
}

// List returns all templates sorted by name.
func (l *TemplateLibrary) List() []Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Template, 0, len(l.templates))
	for _, tmpl := range l.templates {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Watch reloads the library whenever a manifest in the directory changes.
// Blocks until ctx is cancelled; callers run it in a goroutine.
func (l *TemplateLibrary) Watch(ctx context.Context) error {
	if l.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watching template directory: %w", err)
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			if err := l.Reload(); err != nil {
				l.logger.Error("template reload failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("template watcher error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
