package graph

import (
	"regexp"
	"strings"
)

// EntityKind is the primary label of an entity node.
type EntityKind string

const (
	KindProject EntityKind = "Project"
	KindPage    EntityKind = "Page"
)

// RelationType tags the edge from an entity to a skill.
type RelationType string

const (
	RelUses      RelationType = "USES"
	RelRelatesTo RelationType = "RELATES_TO"
)

// Source labels. These become secondary labels on entity nodes.
const (
	SourceGitHub = "GitHub"
	SourceNotion = "Notion"
)

// SkillLabel is the label carried by every skill node.
const SkillLabel = "Skill"

var (
	labelRe   = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
	relTypeRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// ValidLabel reports whether s can be interpolated as a node label.
func ValidLabel(s string) bool { return labelRe.MatchString(s) }

// ValidRelationType reports whether s can be interpolated as a relationship type.
func ValidRelationType(s string) bool { return relTypeRe.MatchString(s) }

// Tuple is one pre-extracted record handed to the store by a source.
type Tuple struct {
	ID           string       `json:"id" yaml:"id" validate:"required"`
	Kind         EntityKind   `json:"kind" yaml:"kind" validate:"required,graphlabel"`
	RelationType RelationType `json:"relationType" yaml:"relationType" validate:"required,reltype"`
	Skills       []string     `json:"skills" yaml:"skills"`
	Source       string       `json:"source,omitempty" yaml:"source,omitempty" validate:"omitempty,graphlabel"`
	Properties   Properties   `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// EntityKey identifies an entity node. IDs are unique within a kind.
type EntityKey struct {
	Kind EntityKind
	ID   string
}

func (k EntityKey) String() string { return string(k.Kind) + ":" + k.ID }

type EntityNode struct {
	ID         string
	Kind       EntityKind
	Source     string
	Properties Properties
}

func (e EntityNode) Key() EntityKey { return EntityKey{Kind: e.Kind, ID: e.ID} }

// Labels returns the primary label first, then the source label when set.
func (e EntityNode) Labels() []string {
	out := []string{string(e.Kind)}
	if e.Source != "" && e.Source != string(e.Kind) {
		out = append(out, e.Source)
	}
	return out
}

// NodeProperties flattens the entity into the property map stored on the node.
// Reserved keys override caller supplied extras.
func (e EntityNode) NodeProperties() Properties {
	out := make(Properties, len(e.Properties)+3)
	for k, v := range e.Properties {
		out[k] = v
	}
	out["id"] = String(e.ID)
	out["kind"] = String(string(e.Kind))
	if e.Source != "" {
		out["source"] = String(e.Source)
	}
	return out
}

type SkillNode struct {
	Name string
}

func (s SkillNode) NodeProperties() Properties {
	return Properties{"name": String(s.Name)}
}

type Relationship struct {
	Entity EntityKey
	Skill  string
	Type   RelationType
}

// NormalizeSkill trims and lower-cases a skill name.
func NormalizeSkill(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ElementID is the identity used for nodes outside of backends that assign their own.
func EntityElementID(k EntityKey) string { return "entity:" + k.String() }

func SkillElementID(name string) string { return "skill:" + name }
