package graph

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValueJSON(t *testing.T) {
	var props Properties
	if err := json.Unmarshal([]byte(`{"name":"go","stars":12,"fork":false}`), &props); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := props["stars"].AsInt(); !ok || v != 12 {
		t.Fatalf("stars: want=12 got=%v ok=%v", v, ok)
	}
	if v, ok := props["fork"].AsBool(); !ok || v {
		t.Fatalf("fork: want=false got=%v ok=%v", v, ok)
	}
	raw, err := json.Marshal(Properties{"name": String("go")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"name":"go"}` {
		t.Fatalf("got=%s", raw)
	}
}

func TestValueRejectsNested(t *testing.T) {
	var props Properties
	if err := json.Unmarshal([]byte(`{"meta":{"a":1}}`), &props); err == nil {
		t.Fatalf("expected error for nested object")
	}
}

func TestTupleYAML(t *testing.T) {
	var tuples []Tuple
	src := `
- id: proj1
  kind: Project
  relationType: USES
  skills: [python, docker]
  properties:
    stars: 3
`
	if err := yaml.Unmarshal([]byte(src), &tuples); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(tuples) != 1 || tuples[0].Kind != KindProject || len(tuples[0].Skills) != 2 {
		t.Fatalf("got=%+v", tuples)
	}
	if v, ok := tuples[0].Properties["stars"].AsInt(); !ok || v != 3 {
		t.Fatalf("stars: got=%v ok=%v", v, ok)
	}
}

func TestValidIdentifiers(t *testing.T) {
	if !ValidLabel("Project") || ValidLabel("project") || ValidLabel("Pro ject") || ValidLabel("") {
		t.Fatalf("ValidLabel mismatch")
	}
	if !ValidRelationType("RELATES_TO") || ValidRelationType("Uses") || ValidRelationType("USES]->(x") {
		t.Fatalf("ValidRelationType mismatch")
	}
}
