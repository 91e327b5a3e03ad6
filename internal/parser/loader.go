package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Format selects how a spec file is read.
type Format string

// Supported formats. FormatAuto picks TOML for .toml files and YAML otherwise.
const (
	FormatAuto   Format = ""
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatIndent Format = "indent"
)

// ErrUnsupportedFormat is returned for an unknown Format value.
var ErrUnsupportedFormat = errors.New("unsupported spec format")

// ParseFormat maps a settings or flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatYAML, FormatTOML, FormatIndent:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "auto":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Load reads the spec file at path into an ordered Mapping. All scalar
// leaves are returned as their source text; typing happens later.
//
// With FormatIndent an unreadable file is not an error: the fallback parser
// logs it and returns an empty mapping.
func Load(fsys afero.Fs, path string, format Format) (*Mapping, error) {
	if format == FormatAuto {
		format = detectFormat(path)
	}

	switch format {
	case FormatIndent:
		return LoadIndented(fsys, path), nil
	case FormatYAML, FormatTOML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	if format == FormatTOML {
		return ParseTOML(data)
	}
	return ParseYAML(data)
}

func detectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ParseYAML decodes YAML into a Mapping, preserving key order.
func ParseYAML(data []byte) (*Mapping, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing spec file: %w", err)
	}

	// An empty document decodes to a zero node.
	if root.Kind == 0 {
		return NewMapping(), nil
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return NewMapping(), nil
		}
		node = node.Content[0]
	}
	node = resolveAlias(node)

	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return NewMapping(), nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing spec file: top level must be a mapping, got %s", kindName(node.Kind))
	}

	w := yamlWalker{open: make(map[*yaml.Node]bool)}
	m, err := w.mapping(node)
	if err != nil {
		return nil, fmt.Errorf("parsing spec file: %w", err)
	}
	return m, nil
}

// yamlWalker converts a node tree into Mappings. open holds the collection
// nodes on the current path, so an alias back to one of them is reported
// instead of recursing forever.
type yamlWalker struct {
	open map[*yaml.Node]bool
}

func (w yamlWalker) enter(node *yaml.Node) error {
	if w.open[node] {
		return fmt.Errorf("line %d: alias refers to an enclosing node", node.Line)
	}
	w.open[node] = true
	return nil
}

func (w yamlWalker) mapping(node *yaml.Node) (*Mapping, error) {
	if err := w.enter(node); err != nil {
		return nil, err
	}
	defer delete(w.open, node)

	m := NewMapping()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		valueNode := resolveAlias(node.Content[i+1])

		// Merge keys (<<: *anchor) splice the referenced mapping in place.
		if keyNode.Tag == "!!merge" && valueNode.Kind == yaml.MappingNode {
			merged, err := w.mapping(valueNode)
			if err != nil {
				return nil, err
			}
			for _, k := range merged.Keys() {
				if _, exists := m.Get(k); !exists {
					v, _ := merged.Get(k)
					m.Set(k, v)
				}
			}
			continue
		}

		v, err := w.value(valueNode)
		if err != nil {
			return nil, err
		}
		m.Set(keyNode.Value, v)
	}
	return m, nil
}

func (w yamlWalker) value(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return w.mapping(node)
	case yaml.SequenceNode:
		if err := w.enter(node); err != nil {
			return nil, err
		}
		defer delete(w.open, node)

		items := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := w.value(resolveAlias(item))
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	default:
		if node.Tag == "!!null" {
			return "", nil
		}
		return node.Value, nil
	}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	default:
		return "unknown"
	}
}

// ParseTOML decodes TOML into a Mapping. Decoding loses key order, so keys
// are put back in the order they first appear in data. Keys that only
// occur inside inline tables follow, sorted.
func ParseTOML(data []byte) (*Mapping, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing spec file: %w", err)
	}
	return tomlMapping(raw, nil, tomlKeyOrder(data)), nil
}

// keySep joins key path parts.
const keySep = "\x00"

// tomlKeyOrder records the position at which each key path is first seen,
// from table headers and key/value lines.
func tomlKeyOrder(data []byte) map[string]int {
	order := make(map[string]int)
	note := func(parts []string) {
		for i := 1; i <= len(parts); i++ {
			k := strings.Join(parts[:i], keySep)
			if _, seen := order[k]; !seen {
				order[k] = len(order)
			}
		}
	}

	var p unstable.Parser
	p.Reset(data)

	var table []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = tomlKeyParts(expr)
			note(table)
		case unstable.KeyValue:
			note(append(slices.Clone(table), tomlKeyParts(expr)...))
		}
	}
	return order
}

func tomlKeyParts(expr *unstable.Node) []string {
	var parts []string
	it := expr.Key()
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func tomlMapping(raw map[string]any, path []string, order map[string]int) *Mapping {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}

	prefix := strings.Join(path, keySep)
	position := func(k string) (int, bool) {
		if prefix == "" {
			i, ok := order[k]
			return i, ok
		}
		i, ok := order[prefix+keySep+k]
		return i, ok
	}
	sort.Slice(keys, func(a, b int) bool {
		pa, okA := position(keys[a])
		pb, okB := position(keys[b])
		switch {
		case okA && okB:
			return pa < pb
		case okA != okB:
			return okA
		default:
			return keys[a] < keys[b]
		}
	})

	m := NewMapping()
	for _, k := range keys {
		m.Set(k, tomlValue(raw[k], append(slices.Clone(path), k), order))
	}
	return m
}

// tomlValue converts a decoded value. Tables inside arrays share the array's
// path, matching how [[array]] headers are recorded.
func tomlValue(v any, path []string, order map[string]int) any {
	switch t := v.(type) {
	case map[string]any:
		return tomlMapping(t, path, order)
	case []any:
		items := make([]any, 0, len(t))
		for _, item := range t {
			items = append(items, tomlValue(item, path, order))
		}
		return items
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(t)
	}
}
