package siteconfig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxDocumentSize bounds how much of a remote document is read.
const maxDocumentSize = 4 << 20

// Source yields the raw bytes of a published document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPSource reads {BaseURL}data.config, bypassing caches.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func (s HTTPSource) URL() string {
	base := s.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + Filename
}

func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.URL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: status %d", s.URL(), resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.URL(), err)
	}
	return body, nil
}

// FileSource reads a document from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return b, nil
}

// Loader turns a Source into a configuration. It never fails: whatever goes
// wrong, the site renders the built-in defaults instead of an empty page.
type Loader struct {
	source Source
	logger *slog.Logger
}

type LoaderOption func(*Loader)

func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

func NewLoader(source Source, opts ...LoaderOption) *Loader {
	l := &Loader{source: source}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Load fetches, merges and normalizes the published document, or returns
// Default on any failure.
func (l *Loader) Load(ctx context.Context) SiteConfig {
	cfg, err := l.load(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "using default site configuration", "error", err)
		return Default()
	}
	return cfg
}

func (l *Loader) load(ctx context.Context) (SiteConfig, error) {
	if l.source == nil {
		return SiteConfig{}, fmt.Errorf("no document source configured")
	}
	raw, err := l.source.Fetch(ctx)
	if err != nil {
		return SiteConfig{}, err
	}
	_, cfg, err := MergeText(raw)
	return cfg, err
}
