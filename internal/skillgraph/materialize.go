package skillgraph

import (
	types "github.com/yungbote/skillgraph-backend/internal/domain"
)

// UnknownDisplayName is rendered when no accessor of the fallback chain matches.
const UnknownDisplayName = "Unknown"

type displayNameAccessor func(types.Properties) (string, bool)

func propertyAccessor(key string) displayNameAccessor {
	return func(p types.Properties) (string, bool) {
		v, ok := p.Get(key)
		if !ok {
			return "", false
		}
		s := v.String()
		return s, s != ""
	}
}

// Evaluated in order, first match wins.
var displayNameChain = []displayNameAccessor{
	propertyAccessor("name"),
	propertyAccessor("id"),
}

func DisplayName(p types.Properties) string {
	for _, get := range displayNameChain {
		if s, ok := get(p); ok {
			return s
		}
	}
	return UnknownDisplayName
}

// Materialize flattens triples into the {nodes, links} payload. Nodes are
// deduplicated by element id in first-seen order; every triple yields one link.
func Materialize(triples []types.Triple) types.Visualization {
	out := types.Visualization{
		Nodes: make([]types.VisNode, 0, len(triples)),
		Links: make([]types.VisLink, 0, len(triples)),
	}
	seen := make(map[string]struct{}, len(triples)*2)
	add := func(n types.NodeRecord) {
		if _, ok := seen[n.ElementID]; ok {
			return
		}
		seen[n.ElementID] = struct{}{}
		out.Nodes = append(out.Nodes, visNode(n))
	}
	for _, t := range triples {
		add(t.Source)
		add(t.Target)
		out.Links = append(out.Links, types.VisLink{
			Source: t.Source.ElementID,
			Target: t.Target.ElementID,
			Type:   t.Type,
		})
	}
	return out
}

func visNode(n types.NodeRecord) types.VisNode {
	props := make(types.Properties, len(n.Properties))
	for k, v := range n.Properties {
		props[k] = v
	}
	typ := UnknownDisplayName
	if len(n.Labels) > 0 && n.Labels[0] != "" {
		typ = n.Labels[0]
	}
	return types.VisNode{
		ID:          n.ElementID,
		DisplayName: DisplayName(n.Properties),
		Type:        typ,
		Properties:  props,
	}
}
