// Package graph implements the Knowledge Graph Indexer (C3): syntax
// extraction into nodes and edges, the staleness protocol, and impact
// analysis (the latter two delegate to internal/store, which already owns
// the closure table as a materialized, invalidatable cache).
package graph

import "github.com/dotcommander/memengine/internal/models"

// Extracted is the result of walking one file's syntax tree: the set of
// nodes and edges the file directly contributes, per spec.md section 4.3's
// extraction protocol.
type Extracted struct {
	Nodes []*models.GraphNode
	Edges []*models.GraphEdge
}

// LanguageExtractor is the pluggable per-language syntax walker. Adding a
// new language means implementing this interface and registering it in
// ExtractorFor; no other package needs to change.
type LanguageExtractor interface {
	// Extract parses source (the full file content) and returns the nodes
	// and edges it contributes, per the extraction protocol of spec.md
	// section 4.3. filePath is used to build node labels
	// ("<file_path>:<symbol>" / "<file_path>") and is not re-derived from
	// source.
	Extract(projectID, filePath string, source []byte) (Extracted, error)
}

// ExtractorFor returns the LanguageExtractor registered for a file
// extension (e.g. ".go", ".ts"), or nil if no extractor recognizes it.
func ExtractorFor(filePath string) LanguageExtractor {
	ext := fileExt(filePath)
	switch ext {
	case ".go":
		return goExtractor{}
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return tsJSExtractor{}
	case ".py":
		return pythonExtractor{}
	default:
		return nil
	}
}

func fileExt(filePath string) string {
	for i := len(filePath) - 1; i >= 0; i-- {
		c := filePath[i]
		if c == '/' {
			break
		}
		if c == '.' {
			return filePath[i:]
		}
	}
	return ""
}

// fileLabel is the node label convention for a whole file:
// "<file_path>" per spec.md section 4.3.
func fileLabel(filePath string) string { return filePath }

// symbolLabel is the node label convention for a symbol inside a file:
// "<file_path>:<symbol>".
func symbolLabel(filePath, symbol string) string { return filePath + ":" + symbol }
