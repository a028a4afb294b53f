package extractor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Extractor turns one stored file into plain text for chunking.
type Extractor interface {
	Extract(r io.Reader) (string, error)
}

// Registry maps a lowercased file extension (".txt") to its extractor.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

func (r *Registry) ForFile(name string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(name))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported document format %q", ext)
	}
	return e, nil
}

func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}
