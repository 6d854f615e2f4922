package graph

import "fmt"

// Snapshot is one fully merged graph, committed to a backend as a unit.
// Slices keep insertion order, which is also traversal discovery order.
type Snapshot struct {
	Entities      []EntityNode
	Skills        []SkillNode
	Relationships []Relationship
}

func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Entities) == 0 && len(s.Skills) == 0 && len(s.Relationships) == 0)
}

// Validate checks that every relationship points at an entity and a skill of the snapshot.
func (s *Snapshot) Validate() error {
	if s == nil {
		return nil
	}
	entities := make(map[EntityKey]struct{}, len(s.Entities))
	for _, e := range s.Entities {
		entities[e.Key()] = struct{}{}
	}
	skills := make(map[string]struct{}, len(s.Skills))
	for _, sk := range s.Skills {
		skills[sk.Name] = struct{}{}
	}
	for _, r := range s.Relationships {
		if _, ok := entities[r.Entity]; !ok {
			return fmt.Errorf("relationship %s-[%s]->%s: unknown entity", r.Entity, r.Type, r.Skill)
		}
		if _, ok := skills[r.Skill]; !ok {
			return fmt.Errorf("relationship %s-[%s]->%s: unknown skill", r.Entity, r.Type, r.Skill)
		}
	}
	return nil
}

// Triples walks relationships in order and returns at most limit triples.
// limit <= 0 means no bound.
func (s *Snapshot) Triples(limit int) []Triple {
	if s == nil || len(s.Relationships) == 0 {
		return []Triple{}
	}
	entities := make(map[EntityKey]EntityNode, len(s.Entities))
	for _, e := range s.Entities {
		entities[e.Key()] = e
	}
	n := len(s.Relationships)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Triple, 0, n)
	for _, r := range s.Relationships[:n] {
		e := entities[r.Entity]
		sk := SkillNode{Name: r.Skill}
		out = append(out, Triple{
			Source: NodeRecord{
				ElementID:  EntityElementID(r.Entity),
				Labels:     e.Labels(),
				Properties: e.NodeProperties(),
			},
			Type: string(r.Type),
			Target: NodeRecord{
				ElementID:  SkillElementID(sk.Name),
				Labels:     []string{SkillLabel},
				Properties: sk.NodeProperties(),
			},
		})
	}
	return out
}

// NodeRecord is a node as returned by a traversal.
type NodeRecord struct {
	ElementID  string
	Labels     []string
	Properties Properties
}

// Triple is one (source)-[type]->(target) match.
type Triple struct {
	Source NodeRecord
	Type   string
	Target NodeRecord
}
