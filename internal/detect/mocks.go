package detect

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"titanjudge/internal/pyast"
)

// MocksModule reports whether any test file under testsDir patches the named
// module. A match is a call whose callee ends in "patch", "patch.object", or
// "setattr" with an argument referencing the module: a string literal
// containing its name, a bare identifier equal to it, or an attribute chain
// rooted in it. Returns false when the directory does not exist.
func MocksModule(testsDir, module string) bool {
	info, err := os.Stat(testsDir)
	if err != nil || !info.IsDir() {
		return false
	}

	found := false
	_ = filepath.WalkDir(testsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}
		if fileMocksModule(path, module) {
			found = true
		}
		return nil
	})
	return found
}

func fileMocksModule(path, module string) bool {
	src, err := pyast.ParseFile(context.Background(), path)
	if err != nil {
		return false
	}
	defer src.Close()

	if src.HasSyntaxError() {
		return false
	}

	found := false
	pyast.Walk(src.Root(), func(n *sitter.Node) {
		if found || n.Type() != pyast.NodeCall {
			return
		}
		callee := src.DottedName(n.ChildByFieldName("function"))
		if callee == "" {
			return
		}
		switch {
		case strings.HasSuffix(callee, "patch"), strings.HasSuffix(callee, "patch.object"):
			if anyArgumentMentions(src, n, module, true) {
				found = true
			}
		case strings.HasSuffix(callee, "setattr"):
			if anyArgumentMentions(src, n, module, false) {
				found = true
			}
		}
	})
	return found
}

// anyArgumentMentions scans a call's positional arguments, and keyword
// argument values when includeKeywords is set, for a reference to module.
func anyArgumentMentions(src *pyast.Source, call *sitter.Node, module string, includeKeywords bool) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == pyast.NodeKeywordArgument {
			if !includeKeywords {
				continue
			}
			arg = arg.ChildByFieldName("value")
			if arg == nil {
				continue
			}
		}
		if mentionsModule(src, arg, module) {
			return true
		}
	}
	return false
}

// mentionsModule checks a single argument expression for a module reference.
func mentionsModule(src *pyast.Source, n *sitter.Node, module string) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case pyast.NodeString:
		return strings.Contains(src.Text(n), module)
	case pyast.NodeIdentifier:
		return src.Text(n) == module
	case pyast.NodeAttribute:
		return mentionsModule(src, n.ChildByFieldName("object"), module)
	}
	return false
}
