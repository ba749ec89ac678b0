package cmdref

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// regexpTag marks a scalar as a regexp literal.
const regexpTag = "!regexp"

// validator checks raw feature trees against the attribute schema and builds
// their Node form. It stops at the first violation.
type validator struct {
	source  string
	feature string
	apis    apiSet
}

func (v *validator) errorf(class ErrorClass, line int, format string, args ...any) *LoadError {
	return newLoadError(class, v.source, line, format, args...).WithFeature(v.feature)
}

// validateFeature validates the body of one top-level feature.
func (v *validator) validateFeature(body *yaml.Node, keyLine int) (*Node, error) {
	body = deref(body)
	if isNull(body) || isEmptyString(body) {
		return nil, v.errorf(ClassEmptyFeature, keyLine, "feature defines no attributes or branches")
	}
	if body.Kind != yaml.MappingNode {
		return nil, v.errorf(ClassTypeMismatch, body.Line, "feature body must be a mapping, got %s", nodeKindName(body))
	}
	n, err := v.mapping(body)
	if err != nil {
		return nil, err
	}
	if n.empty() {
		return nil, v.errorf(ClassEmptyFeature, keyLine, "feature defines no attributes or branches")
	}
	return n, nil
}

// mapping validates one mapping level. Every selector kind is accepted at
// every level; selectors the resolver never reaches (patterns and else at the
// root, APIs below an API branch) are kept in the tree but do not affect
// resolution.
func (v *validator) mapping(m *yaml.Node) (*Node, error) {
	n := newNode(m.Line)
	seen := make(map[string]int, len(m.Content)/2)

	for i := 0; i+1 < len(m.Content); i += 2 {
		keyNode, valNode := m.Content[i], deref(m.Content[i+1])

		if keyNode.Kind != yaml.ScalarNode {
			return nil, v.errorf(ClassUnsupportedKey, keyNode.Line, "mapping keys must be scalars, got %s", nodeKindName(keyNode))
		}
		key := keyNode.Value

		// API names are case-insensitive, so NXAPI and nxapi collide.
		norm := key
		if v.apis.has(key) {
			norm = strings.ToLower(key)
		}
		if prev, dup := seen[norm]; dup {
			return nil, v.errorf(ClassDuplicateKey, keyNode.Line, "already defined at line %d", prev).WithKey(key)
		}
		seen[norm] = keyNode.Line

		if attr, ok := LookupAttr(key); ok {
			val, err := v.value(attr.Spec(), valNode)
			if err != nil {
				return nil, err.WithKey(key)
			}
			n.Attrs[attr] = val
			continue
		}

		switch {
		case key == ElseKey:
			child, err := v.branch(key, keyNode, valNode)
			if err != nil {
				return nil, err
			}
			n.Else = child

		case isPatternKey(key):
			re, err := ParseRegexpLiteral(key)
			if err != nil {
				return nil, v.errorf(ClassUnsupportedKey, keyNode.Line, "invalid pattern selector").WithKey(key).WithCause(err)
			}
			child, err := v.branch(key, keyNode, valNode)
			if err != nil {
				return nil, err
			}
			n.Patterns = append(n.Patterns, PatternBranch{Key: key, Pattern: re, Node: child})

		case v.apis.has(key):
			child, err := v.branch(key, keyNode, valNode)
			if err != nil {
				return nil, err
			}
			n.APIs[norm] = child

		default:
			return nil, v.errorf(ClassUnsupportedKey, keyNode.Line, "not a known attribute or selector").WithKey(key)
		}
	}

	return n, nil
}

func (v *validator) branch(key string, keyNode, body *yaml.Node) (*Node, error) {
	if isNull(body) {
		return nil, v.errorf(ClassEmptyFeature, keyNode.Line, "selector branch is empty").WithKey(key)
	}
	if body.Kind != yaml.MappingNode {
		return nil, v.errorf(ClassTypeMismatch, body.Line, "selector branch must be a mapping, got %s", nodeKindName(body)).WithKey(key)
	}
	child, err := v.mapping(body)
	if err != nil {
		return nil, err
	}
	if child.empty() {
		return nil, v.errorf(ClassEmptyFeature, keyNode.Line, "selector branch is empty").WithKey(key)
	}
	return child, nil
}

// value checks a raw attribute value against spec and converts it.
func (v *validator) value(spec AttrSpec, node *yaml.Node) (Value, *LoadError) {
	switch node.Kind {
	case yaml.ScalarNode:
		val, err := v.scalar(node)
		if err != nil {
			return Value{}, err
		}
		if !spec.Kinds.Has(val.Kind()) {
			return Value{}, v.errorf(ClassTypeMismatch, node.Line, "%s value not allowed, expected %s", val.Kind(), spec.Kinds)
		}
		return val, nil

	case yaml.SequenceNode:
		elemKinds := spec.Kinds
		if spec.Cardinality == Scalar {
			if !spec.Kinds.Has(KindSequence) {
				return Value{}, v.errorf(ClassTypeMismatch, node.Line, "sequence value not allowed, expected %s", spec.Kinds)
			}
			elemKinds = anyScalar
		}
		elems := make([]Value, 0, len(node.Content))
		for _, item := range node.Content {
			item = deref(item)
			if item.Kind != yaml.ScalarNode {
				return Value{}, v.errorf(ClassTypeMismatch, item.Line, "sequence elements must be scalars, got %s", nodeKindName(item))
			}
			elem, err := v.scalar(item)
			if err != nil {
				return Value{}, err
			}
			if !elemKinds.Has(elem.Kind()) {
				return Value{}, v.errorf(ClassTypeMismatch, item.Line, "%s element not allowed, expected %s", elem.Kind(), elemKinds)
			}
			elems = append(elems, elem)
		}
		return SequenceValue(elems...), nil

	default:
		return Value{}, v.errorf(ClassTypeMismatch, node.Line, "%s value not allowed, expected %s", nodeKindName(node), spec.Kinds)
	}
}

// scalar converts a scalar node by its resolved tag.
func (v *validator) scalar(node *yaml.Node) (Value, *LoadError) {
	switch tag := node.ShortTag(); tag {
	case "!!str":
		return StringValue(node.Value), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, v.errorf(ClassTypeMismatch, node.Line, "invalid boolean %q", node.Value).WithCause(err)
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err != nil {
			return Value{}, v.errorf(ClassTypeMismatch, node.Line, "invalid integer %q", node.Value).WithCause(err)
		}
		return IntValue(i), nil
	case regexpTag:
		re, err := ParseRegexpLiteral(node.Value)
		if err != nil {
			return Value{}, v.errorf(ClassTypeMismatch, node.Line, "invalid regexp literal %q", node.Value).WithCause(err)
		}
		return RegexpValue(re, node.Value), nil
	case "!!null":
		return Value{}, v.errorf(ClassTypeMismatch, node.Line, "null value not allowed")
	default:
		return Value{}, v.errorf(ClassTypeMismatch, node.Line, "unsupported literal tag %s", tag)
	}
}

func deref(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func isEmptyString(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str" && strings.TrimSpace(n.Value) == ""
}

func nodeKindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "empty node"
	}
}
