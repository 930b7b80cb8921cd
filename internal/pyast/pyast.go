// Package pyast provides structural parsing of Python source files using
// tree-sitter. The detectors in internal/detect operate on the trees produced
// here rather than on raw text, so formatting, comments, and call style never
// affect the outcome.
package pyast

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Node types from the tree-sitter-python grammar that the detectors care
// about. See https://github.com/tree-sitter/tree-sitter-python.
const (
	NodeModule              = "module"
	NodeExpressionStatement = "expression_statement"
	NodeAssignment          = "assignment"
	NodeFunctionDef         = "function_definition"
	NodeCall                = "call"
	NodeKeywordArgument     = "keyword_argument"
	NodeIdentifier          = "identifier"
	NodeAttribute           = "attribute"
	NodeInteger             = "integer"
	NodeFloat               = "float"
	NodeString              = "string"
)

// Source is a parsed Python file. Callers must Close it to release the
// underlying tree-sitter tree.
type Source struct {
	content []byte
	tree    *sitter.Tree
}

// Parse parses Python source into a structural tree. Each call creates its
// own tree-sitter parser instance, so Parse is safe for concurrent use.
func Parse(ctx context.Context, content []byte) (*Source, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	return &Source{content: content, tree: tree}, nil
}

// ParseFile reads and parses a Python file from disk.
func ParseFile(ctx context.Context, path string) (*Source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(ctx, content)
}

// Close releases the parse tree.
func (s *Source) Close() {
	if s.tree != nil {
		s.tree.Close()
	}
}

// Root returns the module node of the parse tree, or nil if the parse
// produced no tree.
func (s *Source) Root() *sitter.Node {
	if s.tree == nil {
		return nil
	}
	return s.tree.RootNode()
}

// HasSyntaxError reports whether the parse tree contains error nodes.
// Detectors fail closed on syntactically invalid input.
func (s *Source) HasSyntaxError() bool {
	root := s.Root()
	return root == nil || root.HasError()
}

// Text returns the source text covered by a node.
func (s *Source) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(s.content[n.StartByte():n.EndByte()])
}

// DottedName returns the dotted name for an identifier or attribute node,
// e.g. "canvas.rotate" for the callee of canvas.rotate(45). Attribute chains
// rooted in a non-name expression (such as a call) collapse to their final
// attribute, matching how the trap rules treat them. Returns "" for anything
// else.
func (s *Source) DottedName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case NodeIdentifier:
		return s.Text(n)
	case NodeAttribute:
		attr := s.Text(n.ChildByFieldName("attribute"))
		if base := s.DottedName(n.ChildByFieldName("object")); base != "" {
			return base + "." + attr
		}
		return attr
	}
	return ""
}

// Walk visits n and every named descendant in preorder.
func Walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		Walk(n.NamedChild(i), visit)
	}
}
