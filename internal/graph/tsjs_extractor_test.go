package graph

import (
	"testing"

	"github.com/dotcommander/memengine/internal/models"
	"github.com/stretchr/testify/require"
)

const tsFixture = `import { helper } from './helper';

export class Widget extends Base implements Stringer {
	render() {
		helper();
		return this.describe();
	}

	describe() {
		return 'widget';
	}
}

export function build() {
	return new Widget();
}
`

func TestTSExtractorEmitsClassAndMethods(t *testing.T) {
	ext := ExtractorFor("widget.ts")
	require.NotNil(t, ext)

	out, err := ext.Extract("proj1", "widget.ts", []byte(tsFixture))
	require.NoError(t, err)

	require.True(t, hasNode(out.Nodes, models.NodeKindClass, "widget.ts:Widget"))
	require.True(t, hasNode(out.Nodes, models.NodeKindFunction, "widget.ts:Widget.render"))
	require.True(t, hasNode(out.Nodes, models.NodeKindFunction, "widget.ts:build"))
	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeImports, "./helper"))
	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeExtends, "widget.ts:Base"))
	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeImplements, "widget.ts:Stringer"))
}

const pyFixture = `from collections import namedtuple

class Widget(Base):
    def render(self):
        helper()
        return self.describe()

    def describe(self):
        return "widget"


def build():
    return Widget()
`

func TestPythonExtractorEmitsClassAndMethods(t *testing.T) {
	ext := ExtractorFor("widget.py")
	require.NotNil(t, ext)

	out, err := ext.Extract("proj1", "widget.py", []byte(pyFixture))
	require.NoError(t, err)

	require.True(t, hasNode(out.Nodes, models.NodeKindClass, "widget.py:Widget"))
	require.True(t, hasNode(out.Nodes, models.NodeKindFunction, "widget.py:Widget.render"))
	require.True(t, hasNode(out.Nodes, models.NodeKindFunction, "widget.py:build"))
	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeImports, "collections"))
	require.True(t, hasEdgeToLabel(out.Edges, out.Nodes, models.EdgeExtends, "widget.py:Base"))
}
