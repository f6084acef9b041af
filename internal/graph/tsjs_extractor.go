package graph

import (
	"regexp"
	"strings"

	"github.com/dotcommander/memengine/internal/models"
)

// tsJSExtractor is a line/regex-based syntax walker for TypeScript and
// JavaScript files. Full multi-language parsing is out of scope (see
// SPEC_FULL.md section 4.3); this extractor trades completeness for a
// dependency-free, single-pass implementation that still satisfies the
// extraction protocol's node and edge shapes.
type tsJSExtractor struct{}

var (
	tsImportRe       = regexp.MustCompile(`^\s*import\s+(?:type\s+)?(?:(\*\s+as\s+\w+)|({[^}]*})|(\w+))?\s*(?:,\s*({[^}]*}))?\s*from\s+['"]([^'"]+)['"]`)
	tsFunctionRe     = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s+(\w+)\s*\(`)
	tsArrowConstRe   = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*(?::\s*[^=]+)?=\s*(?:async\s*)?\([^)]*\)\s*(?::\s*[^=]+)?=>`)
	tsClassRe        = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?(?:\s+implements\s+([\w,\s]+))?`)
	tsInterfaceRe    = regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)(?:\s+extends\s+([\w,\s]+))?`)
	tsTypeAliasRe    = regexp.MustCompile(`^\s*(?:export\s+)?type\s+(\w+)\s*=`)
	tsEnumRe         = regexp.MustCompile(`^\s*(?:export\s+)?(?:const\s+)?enum\s+(\w+)`)
	tsMethodRe       = regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|static\s+|async\s+)*(\w+)\s*\([^)]*\)\s*(?::\s*[^{]+)?\{`)
	tsExportNamedRe  = regexp.MustCompile(`^\s*export\s*\{([^}]*)\}`)
	tsCallRe         = regexp.MustCompile(`\b([\w.$]+)\s*\(`)
)

func (tsJSExtractor) Extract(projectID, filePath string, source []byte) (Extracted, error) {
	w := &lineWalker{projectID: projectID, filePath: filePath, language: tsLanguageFor(filePath)}
	w.addNode(models.NodeKindFile, fileLabel(filePath), 1, 1)

	lines := strings.Split(string(source), "\n")
	// stack holds (label, kind, braceDepthAtOpen) for nested
	// containers opened by a class/function/method header.
	type frame struct {
		label string
		kind  models.NodeKind
		depth int
	}
	stack := []frame{{label: fileLabel(filePath), kind: models.NodeKindFile, depth: -1}}
	depth := 0

	for i, raw := range lines {
		lineNo := i + 1
		line := raw

		if m := tsImportRe.FindStringSubmatch(line); m != nil {
			modulePath := m[5]
			w.addExternalNode(models.NodeKindModule, modulePath)
			w.addEdge(fileLabel(filePath), models.NodeKindFile, modulePath, models.NodeKindModule, models.EdgeImports)
			for _, group := range []string{m[2], m[4]} {
				for _, sym := range splitNamedImports(group) {
					w.addEdge(fileLabel(filePath), models.NodeKindFile, modulePath+":"+sym, models.NodeKindFunction, models.EdgeImportsSymbol)
				}
			}
		}

		top := stack[len(stack)-1]

		switch {
		case tsFunctionRe.MatchString(line):
			name := tsFunctionRe.FindStringSubmatch(line)[1]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindFunction, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindFunction, top.label, top.kind, models.EdgeDefinedIn)
			stack = append(stack, frame{label: label, kind: models.NodeKindFunction, depth: depth})
		case tsArrowConstRe.MatchString(line):
			name := tsArrowConstRe.FindStringSubmatch(line)[1]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindFunction, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindFunction, top.label, top.kind, models.EdgeDefinedIn)
			stack = append(stack, frame{label: label, kind: models.NodeKindFunction, depth: depth})
		case tsClassRe.MatchString(line):
			m := tsClassRe.FindStringSubmatch(line)
			name, base, impls := m[1], m[2], m[3]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindClass, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindClass, top.label, top.kind, models.EdgeDefinedIn)
			if base != "" {
				target := symbolLabel(filePath, base)
				w.addExternalNode(models.NodeKindClass, target)
				w.addEdge(label, models.NodeKindClass, target, models.NodeKindClass, models.EdgeExtends)
			}
			for _, iface := range splitCommaList(impls) {
				target := symbolLabel(filePath, iface)
				w.addExternalNode(models.NodeKindInterface, target)
				w.addEdge(label, models.NodeKindClass, target, models.NodeKindInterface, models.EdgeImplements)
			}
			stack = append(stack, frame{label: label, kind: models.NodeKindClass, depth: depth})
		case tsInterfaceRe.MatchString(line):
			m := tsInterfaceRe.FindStringSubmatch(line)
			name, bases := m[1], m[2]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindInterface, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindInterface, top.label, top.kind, models.EdgeDefinedIn)
			for _, base := range splitCommaList(bases) {
				target := symbolLabel(filePath, base)
				w.addExternalNode(models.NodeKindInterface, target)
				w.addEdge(label, models.NodeKindInterface, target, models.NodeKindInterface, models.EdgeExtends)
			}
			stack = append(stack, frame{label: label, kind: models.NodeKindInterface, depth: depth})
		case tsTypeAliasRe.MatchString(line):
			name := tsTypeAliasRe.FindStringSubmatch(line)[1]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindTypeAlias, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindTypeAlias, top.label, top.kind, models.EdgeDefinedIn)
		case tsEnumRe.MatchString(line):
			name := tsEnumRe.FindStringSubmatch(line)[1]
			label := symbolLabel(filePath, name)
			w.addNode(models.NodeKindEnum, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindEnum, top.label, top.kind, models.EdgeDefinedIn)
			stack = append(stack, frame{label: label, kind: models.NodeKindEnum, depth: depth})
		case (top.kind == models.NodeKindClass) && tsMethodRe.MatchString(line) && !tsClassRe.MatchString(line):
			name := tsMethodRe.FindStringSubmatch(line)[1]
			label := symbolLabel(filePath, top.label[strings.LastIndex(top.label, ":")+1:]+"."+name)
			w.addNode(models.NodeKindFunction, label, lineNo, lineNo)
			w.addEdge(label, models.NodeKindFunction, top.label, top.kind, models.EdgeDefinedIn)
			stack = append(stack, frame{label: label, kind: models.NodeKindFunction, depth: depth})
		case tsExportNamedRe.MatchString(line):
			for _, sym := range splitNamedImports(tsExportNamedRe.FindStringSubmatch(line)[1]) {
				w.addEdge(fileLabel(filePath), models.NodeKindFile, symbolLabel(filePath, sym), models.NodeKindFunction, models.EdgeExports)
			}
		}

		if top.kind == models.NodeKindFunction || top.kind == models.NodeKindClass {
			for _, m := range tsCallRe.FindAllStringSubmatch(line, -1) {
				target := m[1]
				if isJSKeyword(target) {
					continue
				}
				w.addExternalNode(models.NodeKindFunction, target)
				w.addEdge(top.label, models.NodeKindFunction, target, models.NodeKindFunction, models.EdgeCalls)
			}
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		for len(stack) > 1 && depth <= stack[len(stack)-1].depth {
			stack = stack[:len(stack)-1]
		}
	}

	return Extracted{Nodes: w.nodes, Edges: w.edges}, nil
}

func tsLanguageFor(filePath string) string {
	switch fileExt(filePath) {
	case ".ts", ".tsx":
		return "typescript"
	default:
		return "javascript"
	}
}

func splitNamedImports(group string) []string {
	group = strings.Trim(strings.TrimSpace(group), "{}")
	if group == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(group, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, " as "); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		out = append(out, part)
	}
	return out
}

func splitCommaList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var jsKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "typeof": true, "new": true,
}

func isJSKeyword(name string) bool {
	return jsKeywords[name]
}
