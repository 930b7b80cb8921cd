package detect

import (
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"titanjudge/internal/pyast"
)

// HasRotateCall reports whether the file invokes a rotate-family call with
// the given literal degrees. The value may appear as a positional literal, a
// keyword-argument literal, or a bare identifier assigned that literal
// earlier in the same lexical scope (module body or function body).
//
// Scopes are evaluated independently: a variable assigned in one function
// never satisfies a call in another. Syntax errors and unreadable files fail
// closed.
func HasRotateCall(path string, degrees int) bool {
	src, err := pyast.ParseFile(context.Background(), path)
	if err != nil {
		return false
	}
	defer src.Close()

	if src.HasSyntaxError() {
		return false
	}

	root := src.Root()
	if rotateInScope(src, root, root, degrees) {
		return true
	}

	found := false
	pyast.Walk(root, func(n *sitter.Node) {
		if found || n.Type() != pyast.NodeFunctionDef {
			return
		}
		body := n.ChildByFieldName("body")
		if body != nil && rotateInScope(src, n, body, degrees) {
			found = true
		}
	})
	return found
}

// rotateInScope checks one lexical scope. Assignments are collected from the
// scope body's direct statements only; calls are scanned across the whole
// scope subtree.
func rotateInScope(src *pyast.Source, scope, body *sitter.Node, degrees int) bool {
	assigned := scopeLiteralAssignments(src, body, degrees)

	found := false
	pyast.Walk(scope, func(n *sitter.Node) {
		if found || n.Type() != pyast.NodeCall {
			return
		}
		callee := src.DottedName(n.ChildByFieldName("function"))
		if callee == "" || !strings.HasSuffix(callee, "rotate") {
			return
		}
		if callMatchesValue(src, n, assigned, degrees) {
			found = true
		}
	})
	return found
}

// scopeLiteralAssignments collects names bound to the literal value by
// single-target assignments directly in the scope body.
func scopeLiteralAssignments(src *pyast.Source, body *sitter.Node, degrees int) map[string]bool {
	assigned := make(map[string]bool)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != pyast.NodeExpressionStatement || stmt.NamedChildCount() == 0 {
			continue
		}
		expr := stmt.NamedChild(0)
		if expr.Type() != pyast.NodeAssignment {
			continue
		}
		// Annotated assignments (x: int = 45) share the assignment node
		// shape but are not plain bindings here.
		if expr.ChildByFieldName("type") != nil {
			continue
		}
		left := expr.ChildByFieldName("left")
		right := expr.ChildByFieldName("right")
		if left != nil && left.Type() == pyast.NodeIdentifier && numericLiteralEquals(src, right, degrees) {
			assigned[src.Text(left)] = true
		}
	}
	return assigned
}

// callMatchesValue inspects every positional argument and keyword-argument
// value of a call.
func callMatchesValue(src *pyast.Source, call *sitter.Node, assigned map[string]bool, degrees int) bool {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == pyast.NodeKeywordArgument {
			arg = arg.ChildByFieldName("value")
			if arg == nil {
				continue
			}
		}
		if numericLiteralEquals(src, arg, degrees) {
			return true
		}
		if arg.Type() == pyast.NodeIdentifier && assigned[src.Text(arg)] {
			return true
		}
	}
	return false
}

// numericLiteralEquals decodes integer and float literals and compares their
// numeric value, so 45, 45.0, 0x2D and 4_5 all match 45.
func numericLiteralEquals(src *pyast.Source, n *sitter.Node, value int) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case pyast.NodeInteger:
		v, err := strconv.ParseInt(src.Text(n), 0, 64)
		return err == nil && v == int64(value)
	case pyast.NodeFloat:
		v, err := strconv.ParseFloat(src.Text(n), 64)
		return err == nil && v == float64(value)
	}
	return false
}
