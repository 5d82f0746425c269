// Package parser defines the source-parsing collaborator consumed by the
// indexing pipeline. Parsing is a black box from the pipeline's point of
// view: a failed parse means skip-and-log, never a pipeline abort.
package parser

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Result holds what the pipeline needs from a parsed file. Symbol-level
// detail beyond names is deliberately not modeled here.
type Result struct {
	Name     string   // display name, usually the base filename
	FileType string   // extension without the dot, e.g. "go", "py"
	Symbols  []string // function/method names
	Classes  []string // type/class names
	Imports  []string // imported module paths
	Snippet  string   // leading excerpt used for embeddings and keyword match
	OK       bool     // false when the file could not be parsed
	Err      string   // parse error detail when OK is false
}

// Parser extracts indexable metadata from file content.
type Parser interface {
	Parse(path string, content []byte) (*Result, error)
}

// MetadataParser is the built-in lexical parser. It extracts names by
// pattern rather than building a syntax tree, which is enough to feed the
// embedder and the keyword scorer across languages.
type MetadataParser struct {
	snippetLen int
}

// NewMetadataParser returns a parser with the default snippet length.
func NewMetadataParser() *MetadataParser {
	return &MetadataParser{snippetLen: 512}
}

var (
	funcPattern   = regexp.MustCompile(`(?m)^\s*(?:func|def|function|fn)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	classPattern  = regexp.MustCompile(`(?m)^\s*(?:type|class|struct|interface)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	importPattern = regexp.MustCompile(`(?m)^\s*(?:import|from|require|use)\s+["']?([A-Za-z0-9_./@-]+)`)
)

// Parse implements Parser.
func (p *MetadataParser) Parse(path string, content []byte) (*Result, error) {
	text := string(content)

	res := &Result{
		Name:     filepath.Base(path),
		FileType: strings.TrimPrefix(filepath.Ext(path), "."),
		OK:       true,
	}

	for _, m := range funcPattern.FindAllStringSubmatch(text, -1) {
		res.Symbols = append(res.Symbols, m[1])
	}
	for _, m := range classPattern.FindAllStringSubmatch(text, -1) {
		res.Classes = append(res.Classes, m[1])
	}
	for _, m := range importPattern.FindAllStringSubmatch(text, -1) {
		res.Imports = append(res.Imports, m[1])
	}

	snippet := text
	if len(snippet) > p.snippetLen {
		cut := p.snippetLen
		// Back off continuation bytes so the cut never splits a rune.
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	res.Snippet = strings.TrimSpace(snippet)

	return res, nil
}
