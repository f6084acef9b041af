package graph

import (
	"testing"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/stretchr/testify/require"
)

const goFixture = `package widget

import "fmt"

type Widget struct {
	Name string
}

type Stringer interface {
	String() string
}

func (w *Widget) String() string {
	return describe(w)
}

func describe(w *Widget) string {
	fmt.Println(w.Name)
	return w.Name
}

var Factory = func() *Widget {
	return &Widget{}
}
`

func TestGoExtractorEmitsFileNode(t *testing.T) {
	ext := ExtractorFor("widget.go")
	require.NotNil(t, ext)

	out, err := ext.Extract("proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	require.True(t, hasNode(out.Nodes, models.NodeKindFile, "widget.go"))
}

func TestGoExtractorEmitsImportEdge(t *testing.T) {
	ext := ExtractorFor("widget.go")
	out, err := ext.Extract("proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeImports, "fmt"))
}

func TestGoExtractorEmitsStructAndMethod(t *testing.T) {
	ext := ExtractorFor("widget.go")
	out, err := ext.Extract("proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	require.True(t, hasNode(out.Nodes, models.NodeKindClass, "widget.go:Widget"))
	require.True(t, hasNode(out.Nodes, models.NodeKindInterface, "widget.go:Stringer"))
	require.True(t, hasNode(out.Nodes, models.NodeKindFunction, "widget.go:Widget.String"))
	require.True(t, hasNode(out.Nodes, models.NodeKindFunction, "widget.go:describe"))
}

func TestGoExtractorEmitsCallEdge(t *testing.T) {
	ext := ExtractorFor("widget.go")
	out, err := ext.Extract("proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	var found bool
	methodID := models.NodeID("proj1", "widget.go", "widget.go:Widget.String", models.NodeKindFunction)
	for _, e := range out.Edges {
		if e.Type == models.EdgeCalls && e.FromID == methodID {
			found = true
		}
	}
	require.True(t, found, "expected a calls edge from Widget.String")
}

func TestGoExtractorEmitsExportsForExportedNames(t *testing.T) {
	ext := ExtractorFor("widget.go")
	out, err := ext.Extract("proj1", "widget.go", []byte(goFixture))
	require.NoError(t, err)

	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeExports, "widget.go:Widget"))
	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeExports, "widget.go:Factory"))
	require.False(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeExports, "widget.go:describe"))
}

func TestExtractorForUnknownExtensionReturnsNil(t *testing.T) {
	require.Nil(t, ExtractorFor("README.md"))
}

func hasNode(nodes []*models.GraphNode, kind models.NodeKind, label string) bool {
	for _, n := range nodes {
		if n.Kind == kind && n.Label == label {
			return true
		}
	}
	return false
}

func hasEdgeToLabel(edges []*models.GraphEdge, nodes []*models.GraphNode, typ models.EdgeType, toLabel string) bool {
	byID := make(map[string]string, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n.Label
	}
	for _, e := range edges {
		if e.Type == typ && byID[e.ToID] == toLabel {
			return true
		}
	}
	return false
}
