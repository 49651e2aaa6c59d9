package parser

import "fmt"

// Registry maps file extensions to parsers. Formats are tried by the loader
// in registration order.
type Registry struct {
	parsers map[string]Parser
	order   []string
}

func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	// Register built-in parsers
	for _, p := range []Parser{&TSVParser{}, &XLSXParser{}} {
		for _, f := range p.SupportedFormats() {
			r.Register(f, p)
		}
	}
	return r
}

func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return p, nil
}

// Register adds or replaces the parser for format. A new format goes to the
// end of the lookup order.
func (r *Registry) Register(format string, p Parser) {
	if _, ok := r.parsers[format]; !ok {
		r.order = append(r.order, format)
	}
	r.parsers[format] = p
}

// Formats returns the registered formats in lookup order.
func (r *Registry) Formats() []string {
	return append([]string(nil), r.order...)
}
