package meta

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

const (
	// KeyCkptName is the workflow key naming the checkpoint model
	KeyCkptName = "ckpt_name"
	// KeySamplerName is the workflow key naming a sampler
	KeySamplerName = "sampler_name"

	// MaxSamplerNames is how many sampler values are kept
	MaxSamplerNames = 2
)

// Fields holds the values pulled out of a generation metadata document.
// An empty CkptName means none was found.
type Fields struct {
	CkptName     string
	SamplerNames []string
}

// ExtractFields parses jsonText and collects the first ckpt_name and up to
// two sampler_name scalar values. Parse failures and empty input yield
// zero Fields.
func ExtractFields(jsonText string) Fields {
	if strings.TrimSpace(jsonText) == "" {
		return Fields{}
	}
	root, err := parseOrdered(jsonText)
	if err != nil {
		return Fields{}
	}

	var fields Fields
	if ckpt := collectValues(root, KeyCkptName, 1); len(ckpt) > 0 {
		fields.CkptName = ckpt[0]
	}
	fields.SamplerNames = collectValues(root, KeySamplerName, MaxSamplerNames)
	return fields
}

type nodeKind int

const (
	kindString nodeKind = iota
	kindNumber
	kindBool
	kindNull
	kindObject
	kindArray
)

// node is a JSON value that remembers object key order, which
// map[string]any would lose. For scalars, scalar holds the string value,
// the number literal or "true"/"false".
type node struct {
	kind   nodeKind
	scalar string
	keys   []string
	values []*node
}

func (n *node) isScalar() bool {
	return n.kind == kindString || n.kind == kindNumber || n.kind == kindBool
}

func parseOrdered(text string) (*node, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	root, err := readNode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return root, nil
}

func readNode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		n := &node{kind: kindArray}
		if v == '{' {
			n.kind = kindObject
		}
		var index map[string]int
		for dec.More() {
			var key string
			if n.kind == kindObject {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ = keyTok.(string)
			}
			child, err := readNode(dec)
			if err != nil {
				return nil, err
			}
			if n.kind == kindArray {
				n.values = append(n.values, child)
				continue
			}
			// A repeated key keeps its first position and takes the last value
			if index == nil {
				index = make(map[string]int)
			}
			if pos, ok := index[key]; ok {
				n.values[pos] = child
				continue
			}
			index[key] = len(n.keys)
			n.keys = append(n.keys, key)
			n.values = append(n.values, child)
		}
		// closing delimiter
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case string:
		return &node{kind: kindString, scalar: v}, nil
	case json.Number:
		return &node{kind: kindNumber, scalar: v.String()}, nil
	case bool:
		return &node{kind: kindBool, scalar: strconv.FormatBool(v)}, nil
	default:
		return &node{kind: kindNull}, nil
	}
}

// collectValues walks root in pre-order. Within an object, its own matching
// keys are checked before any nested value is descended into; array elements
// are visited in order. Only scalar leaves count, and duplicates are kept.
func collectValues(root *node, key string, limit int) []string {
	var results []string

	var walk func(n *node)
	walk = func(n *node) {
		if len(results) >= limit {
			return
		}
		if n.kind == kindObject {
			for i, k := range n.keys {
				if k == key && n.values[i].isScalar() {
					results = append(results, n.values[i].scalar)
					if len(results) >= limit {
						return
					}
				}
			}
		}
		for _, child := range n.values {
			walk(child)
			if len(results) >= limit {
				return
			}
		}
	}

	walk(root)
	return results
}
