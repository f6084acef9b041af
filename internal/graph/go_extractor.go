package graph

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"unicode"

	"github.com/dotcommander/memengine/internal/models"
)

// goExtractor implements LanguageExtractor for Go source using go/parser and
// go/ast: a self-hosting proof that the extraction protocol of spec.md
// section 4.3 works against this engine's own language. It is purely
// syntactic — call targets are recorded as written, with no type
// resolution, exactly as spec.md requires.
type goExtractor struct{}

func (goExtractor) Extract(projectID, filePath string, source []byte) (Extracted, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filePath, source, parser.ParseComments)
	if err != nil {
		return Extracted{}, fmt.Errorf("graph: parse %s: %w", filePath, err)
	}

	w := &goWalker{
		projectID: projectID,
		filePath:  filePath,
		fset:      fset,
	}
	w.emitFileNode()

	// Map receiver type name -> class node label, populated on a first pass
	// over type declarations so methods (visited in any order) can resolve
	// their enclosing container.
	for _, decl := range f.Decls {
		if gd, ok := decl.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
			w.walkTypeDecl(gd)
		}
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			switch d.Tok {
			case token.IMPORT:
				w.walkImportDecl(d)
			case token.VAR, token.CONST:
				w.walkVarConstDecl(d)
			}
		case *ast.FuncDecl:
			w.walkFuncDecl(d)
		}
	}
	w.walkExports(f)

	return Extracted{Nodes: w.nodes, Edges: w.edges}, nil
}

type goWalker struct {
	projectID string
	filePath  string
	fset      *token.FileSet

	nodes []*models.GraphNode
	edges []*models.GraphEdge

	// receiverClass maps a receiver type name to the class node label it
	// belongs to, so methods can emit defined_in against the right
	// container instead of always falling back to the file.
	receiverClass map[string]string

	// labelKind remembers the kind each local node label was created with,
	// so exports edges (which come from a symbol name, not a typed decl)
	// point at the right node kind.
	labelKind map[string]models.NodeKind
}

func (w *goWalker) lineRange(n ast.Node) (int, int) {
	return w.fset.Position(n.Pos()).Line, w.fset.Position(n.End()).Line
}

func (w *goWalker) addNode(kind models.NodeKind, label string, start, end int) {
	filePath := w.filePath
	if w.labelKind == nil {
		w.labelKind = make(map[string]models.NodeKind)
	}
	w.labelKind[label] = kind
	w.nodes = append(w.nodes, &models.GraphNode{
		ID:         models.NodeID(w.projectID, filePath, label, kind),
		ProjectID:  w.projectID,
		Kind:       kind,
		Label:      label,
		FilePath:   filePath,
		Language:   "go",
		LineStart:  start,
		LineEnd:    end,
		Layer:      models.NodeLayerStructural,
		Source:     models.NodeSourceAST,
		Confidence: models.NodeConfidenceConfirmed,
	})
}

func (w *goWalker) addExternalNode(kind models.NodeKind, label string) {
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

func (w *goWalker) addEdge(fromLabel string, fromKind models.NodeKind, toLabel string, toKind models.NodeKind, typ models.EdgeType) {
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

// labelFilePath recovers the file_path a label belongs to: the walker's file
// path for the file label itself or any label prefixed "<file>:", else ""
// (external module and call-target nodes, which have no file association).
func (w *goWalker) labelFilePath(label string) string {
	if label == w.filePath || strings.HasPrefix(label, w.filePath+":") {
		return w.filePath
	}
	return ""
}

func (w *goWalker) emitFileNode() {
	w.addNode(models.NodeKindFile, fileLabel(w.filePath), 1, 1)
}

func (w *goWalker) walkImportDecl(d *ast.GenDecl) {
	for _, spec := range d.Specs {
		imp, ok := spec.(*ast.ImportSpec)
		if !ok {
			continue
		}
		modulePath := strings.Trim(imp.Path.Value, `"`)
		w.addExternalNode(models.NodeKindModule, modulePath)
		w.addEdge(fileLabel(w.filePath), models.NodeKindFile, modulePath, models.NodeKindModule, models.EdgeImports)
	}
}

func (w *goWalker) walkTypeDecl(d *ast.GenDecl) {
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		start, end := w.lineRange(ts)
		label := symbolLabel(w.filePath, ts.Name.Name)

		switch t := ts.Type.(type) {
		case *ast.StructType:
			w.addNode(models.NodeKindClass, label, start, end)
			w.addEdge(label, models.NodeKindClass, fileLabel(w.filePath), models.NodeKindFile, models.EdgeDefinedIn)
			if w.receiverClass == nil {
				w.receiverClass = make(map[string]string)
			}
			w.receiverClass[ts.Name.Name] = label
			for _, field := range t.Fields.List {
				if len(field.Names) > 0 {
					continue // not embedded
				}
				if base := embeddedTypeName(field.Type); base != "" {
					target := symbolLabel(w.filePath, base)
					w.addExternalNode(models.NodeKindClass, target)
					w.addEdge(label, models.NodeKindClass, target, models.NodeKindClass, models.EdgeExtends)
				}
			}
		case *ast.InterfaceType:
			w.addNode(models.NodeKindInterface, label, start, end)
			w.addEdge(label, models.NodeKindInterface, fileLabel(w.filePath), models.NodeKindFile, models.EdgeDefinedIn)
			for _, m := range t.Methods.List {
				if len(m.Names) > 0 {
					continue // method signature, not an embedded interface
				}
				if base := embeddedTypeName(m.Type); base != "" {
					target := symbolLabel(w.filePath, base)
					w.addExternalNode(models.NodeKindInterface, target)
					w.addEdge(label, models.NodeKindInterface, target, models.NodeKindInterface, models.EdgeImplements)
				}
			}
		default:
			w.addNode(models.NodeKindTypeAlias, label, start, end)
			w.addEdge(label, models.NodeKindTypeAlias, fileLabel(w.filePath), models.NodeKindFile, models.EdgeDefinedIn)
		}
	}
}

func embeddedTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.StarExpr:
		return embeddedTypeName(t.X)
	default:
		return ""
	}
}

func (w *goWalker) walkFuncDecl(d *ast.FuncDecl) {
	if d.Name == nil {
		return
	}
	name := d.Name.Name
	container := fileLabel(w.filePath)
	containerKind := models.NodeKindFile

	if d.Recv != nil && len(d.Recv.List) > 0 {
		recvName := embeddedTypeName(d.Recv.List[0].Type)
		if cls, ok := w.receiverClass[recvName]; ok {
			container = cls
			containerKind = models.NodeKindClass
		}
		name = recvName + "." + name
	}

	start, end := w.lineRange(d)
	label := symbolLabel(w.filePath, name)
	w.addNode(models.NodeKindFunction, label, start, end)
	w.addEdge(label, models.NodeKindFunction, container, containerKind, models.EdgeDefinedIn)

	w.walkCallsAndClosures(d.Body, label)
}

func (w *goWalker) walkVarConstDecl(d *ast.GenDecl) {
	for _, spec := range d.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		for i, name := range vs.Names {
			if i >= len(vs.Values) {
				continue
			}
			fl, ok := vs.Values[i].(*ast.FuncLit)
			if !ok {
				continue
			}
			start, end := w.lineRange(fl)
			label := symbolLabel(w.filePath, name.Name)
			w.addNode(models.NodeKindFunction, label, start, end)
			w.addEdge(label, models.NodeKindFunction, fileLabel(w.filePath), models.NodeKindFile, models.EdgeDefinedIn)
			w.walkCallsAndClosures(fl.Body, label)
		}
	}
}

// walkCallsAndClosures walks a function body emitting calls edges from the
// enclosing container, and recursing into nested function literals
// (closures) as their own container per spec.md's "arrow-bound const or
// lambda declaration" clause.
func (w *goWalker) walkCallsAndClosures(body *ast.BlockStmt, containerLabel string) {
	if body == nil {
		return
	}
	var anon int
	ast.Inspect(body, func(n ast.Node) bool {
		switch expr := n.(type) {
		case *ast.CallExpr:
			target := callTargetText(expr.Fun)
			if target != "" {
				w.addExternalNode(models.NodeKindFunction, target)
				w.addEdge(containerLabel, models.NodeKindFunction, target, models.NodeKindFunction, models.EdgeCalls)
			}
		case *ast.FuncLit:
			anon++
			label := symbolLabel(w.filePath, fmt.Sprintf("%s.closure%d", lastSegment(containerLabel), anon))
			start, end := w.lineRange(expr)
			w.addNode(models.NodeKindFunction, label, start, end)
			w.addEdge(label, models.NodeKindFunction, containerLabel, models.NodeKindFunction, models.EdgeDefinedIn)
			w.walkCallsAndClosures(expr.Body, label)
			return false // already recursed manually
		}
		return true
	})
}

func lastSegment(label string) string {
	if i := strings.LastIndex(label, ":"); i >= 0 {
		return label[i+1:]
	}
	return label
}

// callTargetText renders a call expression's callee exactly as written
// (identifier or dotted member access), with no type resolution.
func callTargetText(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		if base := callTargetText(e.X); base != "" {
			return base + "." + e.Sel.Name
		}
		return e.Sel.Name
	default:
		return ""
	}
}

// walkExports emits exports(file, symbol) edges for every package-level
// exported identifier, Go's equivalent of an export clause.
func (w *goWalker) walkExports(f *ast.File) {
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue // methods are not independently exported symbols
			}
			if d.Name != nil && isExported(d.Name.Name) {
				w.emitExport(d.Name.Name)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if isExported(s.Name.Name) {
						w.emitExport(s.Name.Name)
					}
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if isExported(name.Name) {
							w.emitExport(name.Name)
						}
					}
				}
			}
		}
	}
}

func (w *goWalker) emitExport(symbol string) {
	label := symbolLabel(w.filePath, symbol)
	kind, ok := w.labelKind[label]
	if !ok {
		kind = models.NodeKindVariable
		w.addNode(kind, label, 0, 0)
	}
	w.addEdge(fileLabel(w.filePath), models.NodeKindFile, label, kind, models.EdgeExports)
}

func isExported(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}
