package skillgraph

import (
	"encoding/json"
	"testing"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/domain/graph"
)

func node(id string, labels []string, props types.Properties) types.NodeRecord {
	return types.NodeRecord{ElementID: id, Labels: labels, Properties: props}
}

func TestMaterializeDedupsNodesNotLinks(t *testing.T) {
	a := node("a", []string{"Project", "GitHub"}, types.Properties{"id": graph.String("proj")})
	x := node("x", []string{"Skill"}, types.Properties{"name": graph.String("skillX")})
	y := node("y", []string{"Skill"}, types.Properties{"name": graph.String("skillY")})

	viz := Materialize([]types.Triple{
		{Source: a, Type: "USES", Target: x},
		{Source: a, Type: "USES", Target: y},
		{Source: a, Type: "USES", Target: y},
	})
	if len(viz.Nodes) != 3 {
		t.Fatalf("nodes: want=%d got=%d", 3, len(viz.Nodes))
	}
	if len(viz.Links) != 3 {
		t.Fatalf("links: want=%d got=%d", 3, len(viz.Links))
	}
	if viz.Nodes[0].ID != "a" || viz.Nodes[0].Type != "Project" || viz.Nodes[0].DisplayName != "proj" {
		t.Fatalf("first node: got=%+v", viz.Nodes[0])
	}
	if viz.Links[1] != (types.VisLink{Source: "a", Target: "y", Type: "USES"}) {
		t.Fatalf("link: got=%+v", viz.Links[1])
	}
}

func TestDisplayNameFallbackChain(t *testing.T) {
	cases := []struct {
		name  string
		props types.Properties
		want  string
	}{
		{"name wins", types.Properties{"name": graph.String("go"), "id": graph.String("x")}, "go"},
		{"id fallback", types.Properties{"id": graph.String("page-1")}, "page-1"},
		{"empty name skipped", types.Properties{"name": graph.String(""), "id": graph.String("page-2")}, "page-2"},
		{"int id", types.Properties{"id": graph.Int(42)}, "42"},
		{"unknown", types.Properties{"other": graph.Bool(true)}, UnknownDisplayName},
		{"nil", nil, UnknownDisplayName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayName(tc.props); got != tc.want {
				t.Fatalf("want=%q got=%q", tc.want, got)
			}
		})
	}
}

func TestMaterializeUnknownNode(t *testing.T) {
	viz := Materialize([]types.Triple{{
		Source: node("s", nil, nil),
		Type:   "USES",
		Target: node("t", []string{"Skill"}, types.Properties{}),
	}})
	if viz.Nodes[0].DisplayName != "Unknown" || viz.Nodes[1].DisplayName != "Unknown" {
		t.Fatalf("want Unknown display names, got=%+v", viz.Nodes)
	}
}

func TestMaterializeEmptyEncodesArrays(t *testing.T) {
	raw, err := json.Marshal(Materialize(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"nodes":[],"links":[]}` {
		t.Fatalf("got=%s", raw)
	}
}

func TestEndToEndSnapshotMaterializes(t *testing.T) {
	snap, report, err := Merge([]types.Tuple{
		{ID: "proj1", Kind: types.KindProject, RelationType: types.RelUses, Skills: []string{"python", "docker"}},
		{ID: "page1", Kind: types.KindPage, RelationType: types.RelRelatesTo, Skills: []string{"python"}},
	}, MergeOptions{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	res := report.Result(snap)
	if res.EntitiesProcessed != 2 || res.SkillsProcessed != 2 {
		t.Fatalf("result: got=%+v", res)
	}
	viz := Materialize(snap.Triples(200))
	if len(viz.Nodes) != 4 || len(viz.Links) != 3 {
		t.Fatalf("nodes/links: want=4/3 got=%d/%d", len(viz.Nodes), len(viz.Links))
	}
	names := map[string]bool{}
	for _, n := range viz.Nodes {
		names[n.DisplayName] = true
	}
	for _, want := range []string{"proj1", "page1", "python", "docker"} {
		if !names[want] {
			t.Fatalf("missing node %q in %+v", want, viz.Nodes)
		}
	}
}
