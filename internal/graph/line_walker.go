package graph

import "github.com/dotcommander/memengine/internal/models"

// lineWalker accumulates nodes and edges for the regex/line-based
// extractors (tsJSExtractor, pythonExtractor). It mirrors goWalker's id
// bookkeeping without the go/ast-specific parts.
type lineWalker struct {
	projectID string
	filePath  string
	language  string

	nodes []*models.GraphNode
	edges []*models.GraphEdge
}

func (w *lineWalker) labelFilePath(label string) string {
	if label == w.filePath || len(label) > len(w.filePath) && label[:len(w.filePath)+1] == w.filePath+":" {
		return w.filePath
	}
	return ""
}

func (w *lineWalker) addNode(kind models.NodeKind, label string, start, end int) {
	w.nodes = append(w.nodes, &models.GraphNode{
		ID:         models.NodeID(w.projectID, w.filePath, label, kind),
		ProjectID:  w.projectID,
		Kind:       kind,
		Label:      label,
		FilePath:   w.filePath,
		Language:   w.language,
		LineStart:  start,
		LineEnd:    end,
		Layer:      models.NodeLayerStructural,
		Source:     models.NodeSourceAST,
		Confidence: models.NodeConfidenceConfirmed,
	})
}

func (w *lineWalker) addExternalNode(kind models.NodeKind, label string) {
	w.nodes = append(w.nodes, &models.GraphNode{
		ID:         models.NodeID(w.projectID, w.labelFilePath(label), label, kind),
		ProjectID:  w.projectID,
		Kind:       kind,
		Label:      label,
		Layer:      models.NodeLayerStructural,
		Source:     models.NodeSourceAST,
		Confidence: models.NodeConfidenceSpeculative,
	})
}

func (w *lineWalker) addEdge(fromLabel string, fromKind models.NodeKind, toLabel string, toKind models.NodeKind, typ models.EdgeType) {
	fromID := models.NodeID(w.projectID, w.labelFilePath(fromLabel), fromLabel, fromKind)
	toID := models.NodeID(w.projectID, w.labelFilePath(toLabel), toLabel, toKind)
	w.edges = append(w.edges, &models.GraphEdge{
		ID:         models.EdgeID(w.projectID, fromID, toID, typ),
		ProjectID:  w.projectID,
		FromID:     fromID,
		ToID:       toID,
		Type:       typ,
		Weight:     1.0,
		Confidence: 1.0,
	})
}
