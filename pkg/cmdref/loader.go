package cmdref

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one command reference document.
type Source struct {
	// Name identifies the document in errors, usually its path.
	Name string

	// Data is the raw document content.
	Data []byte
}

// IsDocument reports whether path has a YAML document extension.
func IsDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ReadSources reads document sources from files, directories and glob
// patterns. Directories contribute every YAML file below them in lexical
// order. A pattern that matches nothing is an error.
func ReadSources(paths []string) ([]Source, error) {
	var sources []Source
	for _, path := range paths {
		files, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, newLoadError(ClassSource, file, 0, "failed to read source").WithCause(err)
			}
			sources = append(sources, Source{Name: file, Data: data})
		}
	}
	return sources, nil
}

// expandPath resolves one path argument to the files it names.
func expandPath(path string) ([]string, error) {
	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, newLoadError(ClassSource, path, 0, "invalid glob pattern").WithCause(err)
		}
		if len(matches) == 0 {
			return nil, newLoadError(ClassSource, path, 0, "pattern matched no files")
		}
		sort.Strings(matches)
		return matches, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, newLoadError(ClassSource, path, 0, "failed to stat source").WithCause(err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsDocument(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, newLoadError(ClassSource, path, 0, "failed to walk directory").WithCause(err)
	}
	sort.Strings(files)
	return files, nil
}

// SourcesFromFS reads the documents in fsys matching the given glob patterns.
func SourcesFromFS(fsys fs.FS, patterns ...string) ([]Source, error) {
	var names []string
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, newLoadError(ClassSource, pattern, 0, "invalid glob pattern").WithCause(err)
		}
		names = append(names, matches...)
	}
	sort.Strings(names)

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, newLoadError(ClassSource, name, 0, "failed to read source").WithCause(err)
		}
		sources = append(sources, Source{Name: name, Data: data})
	}
	return sources, nil
}

// featureDecl is one top-level feature as found in a document, before
// validation.
type featureDecl struct {
	name   string
	source string
	line   int
	body   *yaml.Node
}

// parseSource parses every YAML document in src and returns its top-level
// feature declarations in order. Empty content yields no declarations.
func parseSource(src Source) ([]featureDecl, error) {
	// yaml.v3 rejects a tab where a token could start, even in blank content.
	if len(bytes.TrimSpace(src.Data)) == 0 {
		return nil, nil
	}

	var decls []featureDecl

	dec := yaml.NewDecoder(bytes.NewReader(src.Data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newLoadError(ClassParse, src.Name, 0, "invalid YAML").WithCause(err)
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
			continue
		}

		root := deref(doc.Content[0])
		if isNull(root) {
			continue
		}
		if root.Kind != yaml.MappingNode {
			return nil, newLoadError(ClassParse, src.Name, root.Line, "top level must be a mapping of feature names, got %s", nodeKindName(root))
		}

		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i]
			if key.Kind != yaml.ScalarNode || key.Value == "" {
				return nil, newLoadError(ClassParse, src.Name, key.Line, "feature names must be non-empty scalars")
			}
			decls = append(decls, featureDecl{
				name:   key.Value,
				source: src.Name,
				line:   key.Line,
				body:   root.Content[i+1],
			})
		}
	}

	return decls, nil
}

// feature is a validated top-level feature.
type feature struct {
	name   string
	source string
	line   int
	index  int // position within its source
	node   *Node
}

// loadFeatures parses all sources, merges their features, rejects duplicate
// names and validates every feature. It returns the features keyed by name and
// the names in load order.
func loadFeatures(sources []Source, apis apiSet) (map[string]*feature, []string, error) {
	features := make(map[string]*feature)
	var order []string

	var decls []featureDecl
	perSource := make(map[string]int)
	for _, src := range sources {
		ds, err := parseSource(src)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range ds {
			if prev, dup := features[d.name]; dup {
				return nil, nil, newLoadError(ClassDuplicateFeature, d.source, d.line,
					"already defined at %s", location(prev.source, prev.line)).WithFeature(d.name)
			}
			features[d.name] = &feature{
				name:   d.name,
				source: d.source,
				line:   d.line,
				index:  perSource[d.source],
			}
			perSource[d.source]++
			order = append(order, d.name)
		}
		decls = append(decls, ds...)
	}

	for _, d := range decls {
		v := &validator{source: d.source, feature: d.name, apis: apis}
		node, err := v.validateFeature(d.body, d.line)
		if err != nil {
			return nil, nil, err
		}
		features[d.name].node = node
	}

	return features, order, nil
}

func location(source string, line int) string {
	if line > 0 {
		return fmt.Sprintf("%s:%d", source, line)
	}
	return source
}
