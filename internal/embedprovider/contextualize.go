package embedprovider

import (
	"fmt"
	"strings"

	"github.com/dotcommander/memengine/internal/models"
)

// Contextualizable is the minimal shape Contextualize needs from a memory or
// code chunk: enough to build the header spec.md section 4.2 describes.
type Contextualizable struct {
	FilePath   string
	ChunkKind  models.ChunkKind
	SymbolName string
	Lines      [2]int // [start, end]; zero means omit
	Content    string
}

// Contextualize prepends a short header (file path / chunk kind / symbol
// name / lines) to the payload, then two newlines, then the content.
// Embedding is always performed over this contextualized text; the stored
// vector is always this contextualized embedding, while the raw content is
// kept separately for display, per spec.md section 4.2.
func Contextualize(c Contextualizable) string {
	var parts []string
	if c.FilePath != "" {
		parts = append(parts, "file: "+c.FilePath)
	}
	if c.ChunkKind != "" {
		parts = append(parts, "kind: "+string(c.ChunkKind))
	}
	if c.SymbolName != "" {
		parts = append(parts, "symbol: "+c.SymbolName)
	}
	if c.Lines[0] > 0 || c.Lines[1] > 0 {
		parts = append(parts, fmt.Sprintf("lines: %d-%d", c.Lines[0], c.Lines[1]))
	}
	if len(parts) == 0 {
		return c.Content
	}
	header := strings.Join(parts, " | ")
	return header + "\n\n" + c.Content
}

// ContextualizeMemory builds the Contextualizable view of a memory for
// embedding, using its primary related file and chunk metadata.
func ContextualizeMemory(m *models.Memory) string {
	return Contextualize(Contextualizable{
		FilePath:   m.PrimaryFile(),
		ChunkKind:  m.ChunkKind,
		SymbolName: symbolFromContextPrefix(m.ContextPrefix),
		Lines:      [2]int{m.ChunkStartLine, m.ChunkEndLine},
		Content:    m.Content,
	})
}

func symbolFromContextPrefix(prefix string) string {
	return prefix
}
