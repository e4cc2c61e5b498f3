package parser

import "fmt"

type Registry struct {
	parsers map[Format]Parser
}

// NewRegistry returns a registry with the CSV, text and PDF parsers.
func NewRegistry(opts Options) *Registry {
	opts = opts.withDefaults()
	r := &Registry{parsers: make(map[Format]Parser)}
	csv := &CSVParser{opts: opts}
	txt := &TextParser{opts: opts}
	pdf := &PDFParser{opts: opts}

	for _, p := range []Parser{csv, txt, pdf} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

func (r *Registry) Get(format Format) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for %q", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Detect resolves the parser for a path by its suffix.
func (r *Registry) Detect(path string) (Format, Parser, error) {
	format, err := Detect(path)
	if err != nil {
		return "", nil, err
	}
	p, err := r.Get(format)
	if err != nil {
		return "", nil, err
	}
	return format, p, nil
}

func (r *Registry) Register(format Format, p Parser) {
	r.parsers[format] = p
}
