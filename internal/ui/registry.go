package ui

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/raveportal/pageshare/internal/bind"
)

//go:embed templates/*.html
var bundled embed.FS

// ErrTemplateNotFound is returned when rendering with an unknown key.
var ErrTemplateNotFound = errors.New("template not found")

// ShareViewTemplate is the key of the share dialog template.
const ShareViewTemplate = "user-search-view"

// Registry holds the view templates, keyed by file base name without the
// .html extension.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*template.Template

	fsys     fs.FS
	dir      string
	messages *Messages
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDir loads templates from dir on disk instead of the bundled set.
func WithDir(dir string) RegistryOption {
	return func(r *Registry) {
		if dir != "" {
			r.dir = dir
			r.fsys = os.DirFS(dir)
		}
	}
}

// WithMessages sets the catalog behind the message template func.
func WithMessages(m *Messages) RegistryOption {
	return func(r *Registry) { r.messages = m }
}

// WithRegistryLogger sets the registry's logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry loads every template.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	sub, err := fs.Sub(bundled, "templates")
	if err != nil {
		return nil, err
	}
	r := &Registry{fsys: sub, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.messages == nil {
		if r.messages, err = NewMessages(""); err != nil {
			return nil, err
		}
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load parses all templates and swaps them in at once. On error the
// previous set stays in place.
func (r *Registry) Load() error {
	names, err := fs.Glob(r.fsys, "*.html")
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}

	funcs := template.FuncMap{"message": r.messages.Get}
	set := make(map[string]*template.Template, len(names))
	for _, name := range names {
		src, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", name, err)
		}
		key := strings.TrimSuffix(path.Base(name), ".html")
		t, err := template.New(key).Funcs(funcs).Parse(string(src))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		set[key] = t
	}

	r.mu.Lock()
	r.templates = set
	r.mu.Unlock()
	return nil
}

// Keys lists the loaded template keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.templates))
	for k := range r.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns a view template for key. The template is resolved on every
// execution so reloads take effect on the next render.
func (r *Registry) Lookup(key string) bind.Template {
	return func(vm map[string]any) (string, error) {
		r.mu.RLock()
		t, ok := r.templates[key]
		r.mu.RUnlock()
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, key)
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, vm); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
}

// Watch reloads the templates whenever a file in the template directory
// changes. It blocks until ctx is cancelled. Bundled templates cannot be
// watched.
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		return errors.New("watching templates requires a template directory")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("watching %s: %w", r.dir, err)
	}
	r.logger.Info("watching templates", "dir", r.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".html") || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) {
				continue
			}
			if err := r.Load(); err != nil {
				r.logger.Error("template reload failed", "file", ev.Name, "error", err)
				continue
			}
			r.logger.Info("templates reloaded", "file", ev.Name, "op", ev.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("template watcher error", "error", err)
		}
	}
}
