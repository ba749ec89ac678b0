package cmdref

import "sort"

// Document is the plain-data view of one loaded source, used by lint
// policies and the dump command.
type Document struct {
	Source   string            `json:"source" yaml:"source"`
	Features []FeatureDocument `json:"features" yaml:"features"`
}

// FeatureDocument is the plain-data view of one feature.
type FeatureDocument struct {
	Name  string         `json:"name" yaml:"name"`
	Line  int            `json:"line" yaml:"line"`
	Index int            `json:"index" yaml:"index"`
	Tree  map[string]any `json:"tree" yaml:"tree"`
}

// Documents returns every loaded source with its features in declaration
// order. Sources without features are included with an empty list.
func (r *Reference) Documents() []Document {
	docs := make([]Document, len(r.sources))
	bySource := make(map[string]int, len(r.sources))
	for i, name := range r.sources {
		docs[i] = Document{Source: name, Features: []FeatureDocument{}}
		bySource[name] = i
	}

	for _, name := range r.order {
		f := r.features[name]
		i, ok := bySource[f.source]
		if !ok {
			continue
		}
		docs[i].Features = append(docs[i].Features, FeatureDocument{
			Name:  f.name,
			Line:  f.line,
			Index: f.index,
			Tree:  f.node.Tree(),
		})
	}

	for i := range docs {
		sort.SliceStable(docs[i].Features, func(a, b int) bool {
			return docs[i].Features[a].Index < docs[i].Features[b].Index
		})
	}
	return docs
}

// Tree renders n back into plain nested maps keyed the way the document
// wrote them.
func (n *Node) Tree() map[string]any {
	m := make(map[string]any, len(n.Attrs)+len(n.APIs)+len(n.Patterns)+1)
	for k, v := range n.Attrs {
		m[k.String()] = v.Interface()
	}
	for api, child := range n.APIs {
		m[api] = child.Tree()
	}
	for _, p := range n.Patterns {
		m[p.Key] = p.Node.Tree()
	}
	if n.Else != nil {
		m[ElseKey] = n.Else.Tree()
	}
	return m
}
