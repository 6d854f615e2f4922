package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/platform/neo4jdb"
)

// entityMarkerLabel scopes deletes to nodes this service owns.
const entityMarkerLabel = "SkillGraphEntity"

// Neo4jBackend writes snapshots with MERGE semantics inside one write transaction.
type Neo4jBackend struct {
	client *neo4jdb.Client
	log    *logger.Logger

	schemaMu sync.Mutex
	schema   map[string]bool
}

func NewNeo4jBackend(client *neo4jdb.Client, log *logger.Logger) *Neo4jBackend {
	return &Neo4jBackend{
		client: client,
		log:    log.With("backend", "neo4j"),
		schema: map[string]bool{},
	}
}

func (b *Neo4jBackend) Name() string { return "neo4j" }

func (b *Neo4jBackend) available() error {
	if b.client == nil || b.client.Driver == nil {
		return types.Unavailable("neo4j backend", errClosed)
	}
	return nil
}

// schemaStatements lists the schema the backend relies on. Entity ids are
// indexed on the marker label only; a uniqueness constraint on a kind label
// would collide with nodes of that label owned by someone else.
func schemaStatements() map[string]string {
	return map[string]string{
		types.SkillLabel: `CREATE CONSTRAINT skill_name_unique IF NOT EXISTS FOR (s:Skill) REQUIRE s.name IS UNIQUE`,
		entityMarkerLabel: fmt.Sprintf(
			"CREATE INDEX skillgraph_entity_id IF NOT EXISTS FOR (e:%s) ON (e.id)", entityMarkerLabel,
		),
	}
}

// Best-effort schema init. Schema changes cannot share a transaction with writes.
func (b *Neo4jBackend) ensureSchema(ctx context.Context, session neo4j.SessionWithContext) {
	b.schemaMu.Lock()
	defer b.schemaMu.Unlock()

	for key, q := range schemaStatements() {
		if b.schema[key] {
			continue
		}
		res, err := session.Run(ctx, q, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			b.log.Warn("neo4j schema init failed (continuing)", "label", key, "error", err)
			continue
		}
		b.schema[key] = true
	}
}

type entityGroup struct {
	kind   string
	source string
}

type relGroup struct {
	kind string
	typ  string
}

// entityMergeQuery matches only marked nodes, so an unrelated node with the
// same kind and id is never adopted.
func entityMergeQuery(g entityGroup) string {
	extra := ""
	if g.source != "" && g.source != g.kind {
		extra = ", e:" + g.source
	}
	return fmt.Sprintf(`
UNWIND $rows AS r
MERGE (e:%s:%s {id: r.id})
SET e = r.props%s
`, entityMarkerLabel, g.kind, extra)
}

func relMergeQuery(g relGroup) string {
	return fmt.Sprintf(`
UNWIND $rows AS r
MATCH (e:%s:%s {id: r.id})
MATCH (s:Skill {name: r.skill})
MERGE (e)-[:%s]->(s)
`, entityMarkerLabel, g.kind, g.typ)
}

func (b *Neo4jBackend) Replace(ctx context.Context, snap *types.Snapshot) error {
	if err := b.available(); err != nil {
		return err
	}
	if snap == nil {
		snap = &types.Snapshot{}
	}

	entityRows := map[entityGroup][]map[string]any{}
	for _, e := range snap.Entities {
		kind := string(e.Kind)
		if !types.ValidLabel(kind) || (e.Source != "" && !types.ValidLabel(e.Source)) {
			return fmt.Errorf("neo4j backend: invalid label on entity %s", e.Key())
		}
		g := entityGroup{kind: kind, source: e.Source}
		entityRows[g] = append(entityRows[g], map[string]any{
			"id":    e.ID,
			"props": e.NodeProperties().Map(),
		})
	}

	skillNames := make([]string, 0, len(snap.Skills))
	for _, s := range snap.Skills {
		skillNames = append(skillNames, s.Name)
	}

	relRows := map[relGroup][]map[string]any{}
	relOrder := make([]relGroup, 0)
	for _, r := range snap.Relationships {
		if !types.ValidRelationType(string(r.Type)) {
			return fmt.Errorf("neo4j backend: invalid relationship type %q", r.Type)
		}
		g := relGroup{kind: string(r.Entity.Kind), typ: string(r.Type)}
		if _, ok := relRows[g]; !ok {
			relOrder = append(relOrder, g)
		}
		relRows[g] = append(relRows[g], map[string]any{"id": r.Entity.ID, "skill": r.Skill})
	}

	session := b.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: b.client.Database,
	})
	defer session.Close(ctx)

	b.ensureSchema(ctx, session)

	groups := make([]entityGroup, 0, len(entityRows))
	for g := range entityRows {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].kind != groups[j].kind {
			return groups[i].kind < groups[j].kind
		}
		return groups[i].source < groups[j].source
	})

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := runConsume(ctx, tx, fmt.Sprintf(
			"MATCH (n) WHERE n:%s OR n:%s DETACH DELETE n", types.SkillLabel, entityMarkerLabel,
		), nil); err != nil {
			return nil, err
		}

		for _, g := range groups {
			if err := runConsume(ctx, tx, entityMergeQuery(g), map[string]any{"rows": entityRows[g]}); err != nil {
				return nil, err
			}
		}

		if len(skillNames) > 0 {
			if err := runConsume(ctx, tx, `
UNWIND $names AS name
MERGE (:Skill {name: name})
`, map[string]any{"names": skillNames}); err != nil {
				return nil, err
			}
		}

		for _, g := range relOrder {
			if err := runConsume(ctx, tx, relMergeQuery(g), map[string]any{"rows": relRows[g]}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return classifyNeo4j("neo4j backend: replace", err)
	}
	return nil
}

func (b *Neo4jBackend) Triples(ctx context.Context, limit int) ([]types.Triple, error) {
	if err := b.available(); err != nil {
		return nil, err
	}
	session := b.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: b.client.Database,
	})
	defer session.Close(ctx)

	q := fmt.Sprintf("MATCH (n:%s)-[r]->(m:%s) RETURN n, r, m", entityMarkerLabel, types.SkillLabel)
	params := map[string]any{}
	if limit > 0 {
		q += " LIMIT $limit"
		params["limit"] = int64(limit)
	}

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, q, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		triples := make([]types.Triple, 0, len(records))
		for _, rec := range records {
			t, err := decodeTriple(rec)
			if err != nil {
				return nil, err
			}
			triples = append(triples, t)
		}
		return triples, nil
	})
	if err != nil {
		return nil, classifyNeo4j("neo4j backend: triples", err)
	}
	triples, _ := out.([]types.Triple)
	if triples == nil {
		triples = []types.Triple{}
	}
	return triples, nil
}

func decodeTriple(rec *neo4j.Record) (types.Triple, error) {
	nRaw, _ := rec.Get("n")
	rRaw, _ := rec.Get("r")
	mRaw, _ := rec.Get("m")
	n, ok1 := nRaw.(neo4j.Node)
	r, ok2 := rRaw.(neo4j.Relationship)
	m, ok3 := mRaw.(neo4j.Node)
	if !ok1 || !ok2 || !ok3 {
		return types.Triple{}, fmt.Errorf("unexpected record shape %v", rec.Keys)
	}
	return types.Triple{
		Source: nodeRecord(n),
		Type:   r.Type,
		Target: nodeRecord(m),
	}, nil
}

// nodeRecord puts the primary label first: the kind property for entities,
// Skill for skills. The marker label is dropped.
func nodeRecord(n neo4j.Node) types.NodeRecord {
	props := types.PropertiesFromMap(n.Props)
	primary := ""
	if v, ok := props.Get("kind"); ok {
		primary = v.String()
	}
	labels := make([]string, 0, len(n.Labels))
	rest := make([]string, 0, len(n.Labels))
	for _, l := range n.Labels {
		switch {
		case l == entityMarkerLabel:
		case l == primary || (primary == "" && l == types.SkillLabel):
			labels = append(labels, l)
		default:
			rest = append(rest, l)
		}
	}
	sort.Strings(rest)
	return types.NodeRecord{
		ElementID:  n.ElementId,
		Labels:     append(labels, rest...),
		Properties: props,
	}
}

func runConsume(ctx context.Context, tx neo4j.ManagedTransaction, q string, params map[string]any) error {
	res, err := tx.Run(ctx, q, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func (b *Neo4jBackend) Ping(ctx context.Context) error {
	if err := b.available(); err != nil {
		return err
	}
	return b.client.Ping(ctx)
}

func (b *Neo4jBackend) Close(ctx context.Context) error {
	return b.client.Close(ctx)
}

func classifyNeo4j(op string, err error) error {
	if neo4j.IsConnectivityError(err) {
		return types.Unavailable(op, err)
	}
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) && strings.HasPrefix(nerr.Code, "Neo.ClientError.Security.") {
		return types.Unavailable(op, err)
	}
	return classify(op, fmt.Errorf("%s: %w", op, err))
}
