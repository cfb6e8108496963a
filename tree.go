package pcfg

import (
	"fmt"
	"strings"
)

// Node represents a single node in parsing tree
type Node struct {
	// Symbol in current node, the token itself for leaves
	Symbol string `json:"symbol" yaml:"symbol"`

	// Children nodes
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree represents the parsing tree
type Tree struct {
	*Node
}

// Convert the node to string
func (n *Node) String() string {
	return n.repr(0)
}

// Repr get the string representation of the ndoe recursively
func (n *Node) repr(level int) string {
	// Don't wrap with parentheses when it's a leaf node
	prefix := strings.Repeat(" ", level*2)
	if level != 0 {
		prefix = "\n" + prefix
	}

	if n.Children == nil {
		return prefix + n.Symbol
	}

	childrenReprs := []string{}
	for _, child := range n.Children {
		childrenReprs = append(childrenReprs, child.repr(level+1))
	}
	return fmt.Sprintf(
		"%s(%s %s)",
		prefix,
		n.Symbol,
		strings.Join(childrenReprs, " "))
}

// Leaves returns the symbols of the leaves from left to right
func (n *Node) Leaves() []string {
	if n.Children == nil {
		return []string{n.Symbol}
	}
	leaves := []string{}
	for _, child := range n.Children {
		leaves = append(leaves, child.Leaves()...)
	}
	return leaves
}

// Tree converts the derivation into a parse tree. Unit paths are expanded and
// every symbol is kept.
func (e *Entry) Tree() *Tree {
	return &Tree{Node: e.node()}
}

func (e *Entry) node() *Node {
	var children []*Node
	if e.IsLeaf() {
		children = []*Node{{Symbol: string(e.Token)}}
	} else {
		children = []*Node{e.Left.node(), e.Right.node()}
	}
	for i := len(e.Path) - 1; i >= 0; i-- {
		children = []*Node{{Symbol: string(e.Path[i]), Children: children}}
	}
	return &Node{Symbol: string(e.Symbol), Children: children}
}

// Tree converts a derivation of this grammar into the parse tree of the
// original grammar: unit rules removed during conversion come back and only
// exported symbols and the start symbol appear as nodes. Children of hidden
// symbols are lifted into the closest visible ancestor.
func (g *CNFGrammar) Tree(e *Entry) *Tree {
	nodes := g.constructParsingTree(e)
	if len(nodes) == 1 && nodes[0].Children != nil {
		return &Tree{Node: nodes[0]}
	}
	return &Tree{Node: &Node{Symbol: string(e.Symbol), Children: nodes}}
}

func (g *CNFGrammar) constructParsingTree(e *Entry) []*Node {
	var treeNodes []*Node
	if e.IsLeaf() {
		treeNodes = []*Node{{Symbol: string(e.Token)}}
	} else {
		treeNodes = append(g.constructParsingTree(e.Left), g.constructParsingTree(e.Right)...)
	}

	// We are constructing the tree bottom-up, the path should be processed
	// in reversed order
	for i := len(e.Path) - 1; i >= 0; i-- {
		if g.IsExported(e.Path[i]) {
			treeNodes = []*Node{{Symbol: string(e.Path[i]), Children: treeNodes}}
		}
	}

	if g.IsExported(e.Symbol) || e.Symbol == g.Start {
		treeNodes = []*Node{{Symbol: string(e.Symbol), Children: treeNodes}}
	}
	return treeNodes
}
