// Package skillgraph holds the merge and materialization algorithms of the skill graph.
// Both are pure; persistence lives in internal/data/graph.
package skillgraph

import (
	"errors"
	"fmt"
	"sort"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/domain/graph"
)

type MergeOptions struct {
	// AbortOnMalformed turns a malformed tuple into a rebuild failure instead of a skip.
	AbortOnMalformed bool
}

type MalformedTuple struct {
	Index  int
	Reason string
}

type MergeReport struct {
	Applied   int
	Malformed []MalformedTuple
}

// Result summarizes a merged snapshot in the shape returned to rebuild callers.
func (r MergeReport) Result(s *types.Snapshot) types.RebuildResult {
	out := types.RebuildResult{MalformedSkipped: len(r.Malformed)}
	if s != nil {
		out.EntitiesProcessed = len(s.Entities)
		out.SkillsProcessed = len(s.Skills)
	}
	return out
}

type relKey struct {
	entity types.EntityKey
	typ    types.RelationType
	skill  string
}

// Merge folds tuples into one snapshot. Entities are keyed by (kind, id) and may
// appear once per pass; skills are found-or-created by normalized name; an edge is
// added only if the identical (entity, type, skill) edge is absent.
//
// On abort the returned error is a *types.RebuildError and the snapshot is nil.
func Merge(tuples []types.Tuple, opts MergeOptions) (*types.Snapshot, MergeReport, error) {
	snap := &types.Snapshot{
		Entities:      make([]types.EntityNode, 0, len(tuples)),
		Skills:        []types.SkillNode{},
		Relationships: []types.Relationship{},
	}
	var report MergeReport

	entities := make(map[types.EntityKey]struct{}, len(tuples))
	skills := make(map[string]struct{})
	rels := make(map[relKey]struct{})

	for i, raw := range tuples {
		t := normalizeTuple(raw)
		if err := checkTuple(t); err != nil {
			if opts.AbortOnMalformed {
				return nil, report, &types.RebuildError{Applied: report.Applied, Index: i, Err: err}
			}
			report.Malformed = append(report.Malformed, MalformedTuple{Index: i, Reason: err.Error()})
			continue
		}

		entity := types.EntityNode{
			ID:         t.ID,
			Kind:       t.Kind,
			Source:     t.Source,
			Properties: copyProperties(t.Properties),
		}
		key := entity.Key()
		if _, dup := entities[key]; dup {
			return nil, report, &types.RebuildError{
				Applied: report.Applied,
				Index:   i,
				Err:     fmt.Errorf("%w: %s", types.ErrDuplicateEntity, key),
			}
		}
		entities[key] = struct{}{}
		snap.Entities = append(snap.Entities, entity)

		for _, name := range normalizeSkills(t.Skills) {
			if _, ok := skills[name]; !ok {
				skills[name] = struct{}{}
				snap.Skills = append(snap.Skills, types.SkillNode{Name: name})
			}
			rk := relKey{entity: key, typ: t.RelationType, skill: name}
			if _, ok := rels[rk]; ok {
				continue
			}
			rels[rk] = struct{}{}
			snap.Relationships = append(snap.Relationships, types.Relationship{
				Entity: key,
				Skill:  name,
				Type:   t.RelationType,
			})
		}
		report.Applied++
	}

	if err := snap.Validate(); err != nil {
		return nil, report, &types.RebuildError{Applied: report.Applied, Index: len(tuples), Err: err}
	}
	return snap, report, nil
}

// normalizeSkills returns the distinct non-blank normalized names, sorted.
func normalizeSkills(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		n := graph.NormalizeSkill(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func copyProperties(p types.Properties) types.Properties {
	if len(p) == 0 {
		return nil
	}
	out := make(types.Properties, len(p))
	for k, v := range p {
		if v.IsZero() {
			continue
		}
		out[k] = v
	}
	return out
}

// IsAbort reports whether err came from an aborted merge.
func IsAbort(err error) bool {
	var re *types.RebuildError
	return errors.As(err, &re)
}
