package extract

import (
	"context"
	"fmt"
	"strings"

	"FilingsScanner/internal/domain"
)

// Format converts one kind of stored filing (pdf, xml, ...) into text.
type Format interface {
	Name() string
	Extract(ctx context.Context, path string) (string, error)
}

// Registry keeps a mapping from file extensions to their formats.
type Registry struct {
	formats map[string]Format
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: map[string]Format{}}
}

// Register adds or replaces a format; names are case-insensitive.
func (r *Registry) Register(format Format) {
	if r.formats == nil {
		r.formats = map[string]Format{}
	}
	r.formats[strings.ToLower(format.Name())] = format
}

// Resolve returns the format for extension or ErrUnsupportedFormat.
func (r *Registry) Resolve(extension string) (Format, error) {
	if format, ok := r.formats[strings.ToLower(extension)]; ok {
		return format, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, extension)
}

// FormatFunc adapts a plain function into a Format.
type FormatFunc struct {
	Ext string
	Fn  func(ctx context.Context, path string) (string, error)
}

func (f FormatFunc) Name() string { return f.Ext }

func (f FormatFunc) Extract(ctx context.Context, path string) (string, error) {
	return f.Fn(ctx, path)
}
