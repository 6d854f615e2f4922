package graph

type VisNode struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Type        string     `json:"type"`
	Properties  Properties `json:"properties"`
}

type VisLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

type Visualization struct {
	Nodes []VisNode `json:"nodes"`
	Links []VisLink `json:"links"`
}

// EmptyVisualization is the renderable payload returned in degraded mode.
func EmptyVisualization() Visualization {
	return Visualization{Nodes: []VisNode{}, Links: []VisLink{}}
}

type RebuildResult struct {
	EntitiesProcessed int `json:"entitiesProcessed"`
	SkillsProcessed   int `json:"skillsProcessed"`
	MalformedSkipped  int `json:"malformedSkipped"`
}
