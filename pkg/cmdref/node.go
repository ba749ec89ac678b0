package cmdref

import "regexp"

// Node is one validated level of a feature definition: the literal attributes
// defined at this level and the override branches below it.
type Node struct {
	// Attrs holds literal attributes defined at this level.
	Attrs map[AttrKey]Value

	// APIs maps lower-cased API flavor names to their branch.
	APIs map[string]*Node

	// Patterns holds product pattern branches in declaration order.
	Patterns []PatternBranch

	// Else is taken inside an API branch when no pattern matches.
	Else *Node

	// Line is the source line of the mapping.
	Line int
}

// PatternBranch is a /pattern/ selector and the branch it guards.
type PatternBranch struct {
	Key     string
	Pattern *regexp.Regexp
	Node    *Node
}

func newNode(line int) *Node {
	return &Node{
		Attrs: make(map[AttrKey]Value),
		APIs:  make(map[string]*Node),
		Line:  line,
	}
}

// HasSelectors reports whether the node has any override branch.
func (n *Node) HasSelectors() bool {
	return len(n.APIs) > 0 || len(n.Patterns) > 0 || n.Else != nil
}

// empty reports whether the node defines nothing at all.
func (n *Node) empty() bool {
	return len(n.Attrs) == 0 && !n.HasSelectors()
}
