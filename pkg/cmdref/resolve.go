package cmdref

import "strings"

// Resolve flattens a feature tree for the given API flavor and product.
//
// Literal attributes of the root are taken first. If the root has a branch
// for api (case-insensitive) it is entered and its literals override the
// inherited ones. Inside an API branch the first pattern selector matching
// product is entered, or else the else branch, repeating until no branch
// applies. Resolution never fails: with no matching branch the outermost
// literals are the result.
func Resolve(n *Node, api, product string) map[AttrKey]Value {
	acc := make(map[AttrKey]Value, len(n.Attrs))
	merge(acc, n)

	if api == "" {
		return acc
	}
	for cur := n.APIs[strings.ToLower(api)]; cur != nil; cur = cur.next(product) {
		merge(acc, cur)
	}
	return acc
}

// next picks the branch below n for product: the first matching pattern in
// declaration order, then else.
func (n *Node) next(product string) *Node {
	for _, p := range n.Patterns {
		if p.Pattern.MatchString(product) {
			return p.Node
		}
	}
	return n.Else
}

func merge(acc map[AttrKey]Value, n *Node) {
	for k, v := range n.Attrs {
		acc[k] = v
	}
}
