package loader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/smallnest/docchat/log"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// ErrUnsupportedFormat is wrapped in a LoadError when no loader handles an extension.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// LoadError reports a file that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Metadata keys set on every loaded document.
const (
	SourceKey = "source"
	FormatKey = "format"
)

// LoadFunc parses an open file into documents.
type LoadFunc func(ctx context.Context, f *os.File, size int64) ([]schema.Document, error)

// Registry maps lower-case file extensions to loaders.
type Registry struct {
	loaders map[string]LoadFunc
}

// NewRegistry returns a registry with text, markdown, PDF, HTML and CSV loaders.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]LoadFunc)}
	r.Register(loadText, ".txt", ".text")
	r.Register(loadMarkdown, ".md", ".markdown")
	r.Register(loadPDF, ".pdf")
	r.Register(loadHTML, ".html", ".htm")
	r.Register(loadCSV, ".csv")
	return r
}

// Register installs fn for the given extensions, replacing existing entries.
func (r *Registry) Register(fn LoadFunc, exts ...string) {
	for _, ext := range exts {
		r.loaders[strings.ToLower(ext)] = fn
	}
}

// Extensions lists the supported extensions in sorted order.
func (r *Registry) Extensions() []string {
	return slices.Sorted(maps.Keys(r.loaders))
}

// Load reads path with the loader registered for its extension. Every
// returned document has "source" set to the file's base name and "format"
// set to its extension without the dot.
func (r *Registry) Load(ctx context.Context, path string) ([]schema.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := r.loaders[ext]
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	docs, err := fn(ctx, f, info.Size())
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	source := filepath.Base(path)
	format := strings.TrimPrefix(ext, ".")
	out := docs[:0]
	for _, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		doc.Metadata[SourceKey] = source
		doc.Metadata[FormatKey] = format
		out = append(out, doc)
	}
	log.Debug("loaded %d documents from %s", len(out), source)
	return out, nil
}

var defaultRegistry = NewRegistry()

// Load reads path with the default registry.
func Load(ctx context.Context, path string) ([]schema.Document, error) {
	return defaultRegistry.Load(ctx, path)
}

func loadText(ctx context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	return documentloaders.NewText(f).Load(ctx)
}

func loadPDF(ctx context.Context, f *os.File, size int64) ([]schema.Document, error) {
	return documentloaders.NewPDF(f, size).Load(ctx)
}

func loadCSV(ctx context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	return documentloaders.NewCSV(f).Load(ctx)
}
