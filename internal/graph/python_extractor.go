package graph

import (
	"regexp"
	"strings"

	"github.com/dotcommander/memengine/internal/models"
)

// pythonExtractor is a line/regex-based syntax walker for Python files. It
// uses indentation instead of braces to track container scope, since
// Python has no lexical brace nesting to follow.
type pythonExtractor struct{}

var (
	pyImportRe     = regexp.MustCompile(`^(\s*)import\s+([\w.]+)(?:\s+as\s+\w+)?`)
	pyFromImportRe = regexp.MustCompile(`^(\s*)from\s+([\w.]+)\s+import\s+(.+)`)
	pyDefRe        = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(\w+)\s*\(`)
	pyClassRe      = regexp.MustCompile(`^(\s*)class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)
	pyCallRe       = regexp.MustCompile(`\b([\w.]+)\s*\(`)
)

type pyFrame struct {
	label  string
	kind   models.NodeKind
	indent int
}

func (pythonExtractor) Extract(projectID, filePath string, source []byte) (Extracted, error) {
	w := &lineWalker{projectID: projectID, filePath: filePath, language: "python"}
	w.addNode(models.NodeKindFile, fileLabel(filePath), 1, 1)

	stack := []pyFrame{{label: fileLabel(filePath), kind: models.NodeKindFile, indent: -1}}

	lines := strings.Split(string(source), "\n")
	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := indentWidth(line)

		for len(stack) > 1 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1]

		switch {
		case pyImportRe.MatchString(line):
			m := pyImportRe.FindStringSubmatch(line)
			modulePath := m[2]
			w.addExternalNode(models.NodeKindModule, modulePath)
			w.addEdge(fileLabel(filePath), models.NodeKindFile, modulePath, models.NodeKindModule, models.EdgeImports)
		case pyFromImportRe.MatchString(line):
			m := pyFromImportRe.FindStringSubmatch(line)
			modulePath, names := m[2], m[3]
			w.addExternalNode(models.NodeKindModule, modulePath)
			w.addEdge(fileLabel(filePath), models.NodeKindFile, modulePath, models.NodeKindModule, models.EdgeImports)
			for _, sym := range splitCommaList(strings.Trim(names, "()")) {
				sym = strings.TrimSpace(strings.Split(sym, " as ")[0])
				if sym == "" || sym == "*" {
					continue
				}
				w.addEdge(fileLabel(filePath), models.NodeKindFile, modulePath+":"+sym, models.NodeKindFunction, models.EdgeImportsSymbol)
			}
		case pyClassRe.MatchString(line):
			m := pyClassRe.FindStringSubmatch(line)
			name, bases := m[2], m[3]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindClass, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindClass, top.label, top.kind, models.EdgeDefinedIn)
			for _, base := range splitCommaList(bases) {
				base = strings.TrimSpace(base)
				if base == "" || base == "object" {
					continue
				}
				target := symbolLabel(filePath, base)
				w.addExternalNode(models.NodeKindClass, target)
				w.addEdge(label, models.NodeKindClass, target, models.NodeKindClass, models.EdgeExtends)
			}
			stack = append(stack, pyFrame{label: label, kind: models.NodeKindClass, indent: indent})
			continue
		case pyDefRe.MatchString(line):
			m := pyDefRe.FindStringSubmatch(line)
			name := m[2]
			var label string
			if top.kind == models.NodeKindClass {
				label = symbolLabel(filePath, lastSegment(top.label)+"."+name)
			} else {
				label = symbolLabel(filePath, name)
			}
			w.addNode(models.NodeKindFunction, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindFunction, top.label, top.kind, models.EdgeDefinedIn)
			stack = append(stack, pyFrame{label: label, kind: models.NodeKindFunction, indent: indent})
			continue
		}

		if top.kind == models.NodeKindFunction {
			for _, m := range pyCallRe.FindAllStringSubmatch(line, -1) {
				target := m[1]
				if pyKeywords[target] {
					continue
				}
				w.addExternalNode(models.NodeKindFunction, target)
				w.addEdge(top.label, models.NodeKindFunction, target, models.NodeKindFunction, models.EdgeCalls)
			}
		}
	}

	w.emitPythonExports(filePath)
	return Extracted{Nodes: w.nodes, Edges: w.edges}, nil
}

// emitPythonExports treats every module-level (file-defined_in) function or
// class whose name does not start with an underscore as exported, Python's
// informal export convention absent an __all__ analysis.
func (w *lineWalker) emitPythonExports(filePath string) {
	fileLbl := fileLabel(filePath)
	definedAtFile := make(map[string]models.NodeKind)
	for _, e := range w.edges {
		if e.Type == models.EdgeDefinedIn {
			for _, n := range w.nodes {
				if n.ID == e.FromID && (n.Kind == models.NodeKindFunction || n.Kind == models.NodeKindClass) {
					for _, target := range w.nodes {
						if target.ID == e.ToID && target.Label == fileLbl {
							definedAtFile[n.Label] = n.Kind
						}
					}
				}
			}
		}
	}
	for label, kind := range definedAtFile {
		symbol := lastSegment(label)
		if strings.HasPrefix(symbol, "_") {
			continue
		}
		w.addEdge(fileLbl, models.NodeKindFile, label, kind, models.EdgeExports)
	}
}

func indentWidth(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 8
		default:
			return n
		}
	}
	return n
}

var pyKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "with": true, "print": true,
	"def": true, "class": true, "return": true, "elif": true, "except": true,
}
