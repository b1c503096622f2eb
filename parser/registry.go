package parser

import (
	"fmt"

	"github.com/lavandejoey/gorag/gerr"
)

// Registry dispatches a file extension to the Parser that handles it.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a Registry with the built-in text/markdown/PDF
// parsers registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{&TextParser{}, &PDFParser{}} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser registered for format (a bare extension, no dot).
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gerr.ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Register adds or overrides the parser for format.
func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}
