package domain

import "github.com/yungbote/skillgraph-backend/internal/domain/graph"

type (
	EntityKind    = graph.EntityKind
	RelationType  = graph.RelationType
	Tuple         = graph.Tuple
	EntityKey     = graph.EntityKey
	EntityNode    = graph.EntityNode
	SkillNode     = graph.SkillNode
	Relationship  = graph.Relationship
	Snapshot      = graph.Snapshot
	NodeRecord    = graph.NodeRecord
	Triple        = graph.Triple
	Value         = graph.Value
	Properties    = graph.Properties
	VisNode       = graph.VisNode
	VisLink       = graph.VisLink
	Visualization = graph.Visualization
	RebuildResult = graph.RebuildResult
	RebuildError  = graph.RebuildError
)

const (
	KindProject  = graph.KindProject
	KindPage     = graph.KindPage
	RelUses      = graph.RelUses
	RelRelatesTo = graph.RelRelatesTo
	SourceGitHub = graph.SourceGitHub
	SourceNotion = graph.SourceNotion
	SkillLabel   = graph.SkillLabel
)

var (
	ErrStoreUnavailable = graph.ErrStoreUnavailable
	ErrDuplicateEntity  = graph.ErrDuplicateEntity
	ErrMalformedTuple   = graph.ErrMalformedTuple
)

func Unavailable(op string, err error) error { return graph.Unavailable(op, err) }

func EntityElementID(k EntityKey) string { return graph.EntityElementID(k) }

func SkillElementID(name string) string { return graph.SkillElementID(name) }

func PropertiesFromMap(m map[string]any) Properties { return graph.PropertiesFromMap(m) }

func ValidLabel(s string) bool { return graph.ValidLabel(s) }

func ValidRelationType(s string) bool { return graph.ValidRelationType(s) }

func StringValue(s string) Value { return graph.String(s) }

func IntValue(i int64) Value { return graph.Int(i) }

func BoolValue(b bool) Value { return graph.Bool(b) }

func EmptyVisualization() Visualization { return graph.EmptyVisualization() }

func NormalizeSkill(name string) string { return graph.NormalizeSkill(name) }
