// Package tuplefile reads rebuild input from YAML or JSON documents.
//
// A document is either a bare list of tuples or a mapping with a "tuples" key.
package tuplefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

type document struct {
	Tuples []types.Tuple `yaml:"tuples"`
}

// Decode reads every tuple from r. JSON input is accepted since it is valid YAML.
func Decode(r io.Reader) ([]types.Tuple, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []types.Tuple{}, nil
	}
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("tuplefile: parse: %w", err)
	}
	if len(root.Content) == 0 {
		return []types.Tuple{}, nil
	}
	node := root.Content[0]
	switch node.Kind {
	case yaml.SequenceNode:
		var tuples []types.Tuple
		if err := node.Decode(&tuples); err != nil {
			return nil, fmt.Errorf("tuplefile: decode tuples: %w", err)
		}
		return nonNil(tuples), nil
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("tuplefile: decode document: %w", err)
		}
		return nonNil(doc.Tuples), nil
	default:
		return nil, errors.New("tuplefile: expected a list of tuples or a mapping with a tuples key")
	}
}

func Load(path string) ([]types.Tuple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func nonNil(t []types.Tuple) []types.Tuple {
	if t == nil {
		return []types.Tuple{}
	}
	return t
}
