package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRebuildCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("LOG_MODE", "test")
	file := filepath.Join(dir, "tuples.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
- id: api
  kind: Project
  relationType: USES
  skills: [go, postgres]
`), 0o644))

	out, err := execute(t, "rebuild", "--file", file)
	require.NoError(t, err)

	var res struct {
		EntitiesProcessed int `json:"entitiesProcessed"`
		SkillsProcessed   int `json:"skillsProcessed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.EntitiesProcessed)
	assert.Equal(t, 2, res.SkillsProcessed)
}

func TestRebuildRequiresFile(t *testing.T) {
	_, err := execute(t, "rebuild")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestQueryOnEmptyStore(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_MODE", "test")

	out, err := execute(t, "query", "--limit", "10")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"links":[]}`, out)
}
