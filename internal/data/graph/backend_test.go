package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/skillgraph-backend/internal/domain"
	"github.com/yungbote/skillgraph-backend/internal/platform/badgerdb"
	"github.com/yungbote/skillgraph-backend/internal/platform/logger"
	"github.com/yungbote/skillgraph-backend/internal/platform/neo4jdb"
	"github.com/yungbote/skillgraph-backend/internal/platform/sqldb"
	"github.com/yungbote/skillgraph-backend/internal/skillgraph"
)

type backendFactory func(t *testing.T) Backend

func backends(t *testing.T) map[string]backendFactory {
	t.Helper()
	log := logger.Nop()
	out := map[string]backendFactory{
		"memory": func(t *testing.T) Backend { return NewMemoryBackend() },
		"badger": func(t *testing.T) Backend {
			db, err := badgerdb.Open(log, badgerdb.Config{InMemory: true})
			require.NoError(t, err)
			return NewBadgerBackend(db, log)
		},
		"sqlite": func(t *testing.T) Backend {
			dsn := filepath.Join(t.TempDir(), "skillgraph.db")
			db, err := sqldb.Open(context.Background(), log, sqldb.Config{Driver: sqldb.DriverSQLite, DSN: dsn, Silent: true})
			require.NoError(t, err)
			b, err := NewSQLBackend(context.Background(), db, log)
			require.NoError(t, err)
			return b
		},
	}
	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		out["postgres"] = func(t *testing.T) Backend {
			db, err := sqldb.Open(context.Background(), log, sqldb.Config{Driver: sqldb.DriverPostgres, DSN: dsn, Silent: true})
			require.NoError(t, err)
			b, err := NewSQLBackend(context.Background(), db, log)
			require.NoError(t, err)
			return b
		}
	}
	if uri := os.Getenv("TEST_NEO4J_URI"); uri != "" {
		out["neo4j"] = func(t *testing.T) Backend {
			client, err := neo4jdb.New(context.Background(), log, neo4jdb.Config{
				URI:            uri,
				User:           os.Getenv("TEST_NEO4J_USER"),
				Password:       os.Getenv("TEST_NEO4J_PASSWORD"),
				ConnectTimeout: 5 * time.Second,
			})
			require.NoError(t, err)
			return NewNeo4jBackend(client, log)
		}
	}
	return out
}

func mergeTuples(t *testing.T, tuples []types.Tuple) *types.Snapshot {
	t.Helper()
	snap, _, err := skillgraph.Merge(tuples, skillgraph.MergeOptions{})
	require.NoError(t, err)
	return snap
}

var scenarioTuples = []types.Tuple{
	{ID: "proj1", Kind: types.KindProject, Source: types.SourceGitHub, RelationType: types.RelUses, Skills: []string{"python", "docker"}},
	{ID: "page1", Kind: types.KindPage, Source: types.SourceNotion, RelationType: types.RelRelatesTo, Skills: []string{"python"}},
}

func TestBackendsReplaceAndQuery(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close(ctx) })

			require.NoError(t, b.Replace(ctx, mergeTuples(t, scenarioTuples)))

			triples, err := b.Triples(ctx, 200)
			require.NoError(t, err)
			require.Len(t, triples, 3)

			viz := skillgraph.Materialize(triples)
			assert.Len(t, viz.Nodes, 4)
			assert.Len(t, viz.Links, 3)

			byName := map[string]types.VisNode{}
			for _, n := range viz.Nodes {
				byName[n.DisplayName] = n
			}
			assert.Equal(t, "Project", byName["proj1"].Type)
			assert.Equal(t, "Page", byName["page1"].Type)
			assert.Equal(t, types.SkillLabel, byName["python"].Type)
			assert.Equal(t, types.SkillLabel, byName["docker"].Type)

			linkTypes := map[string]int{}
			for _, l := range viz.Links {
				linkTypes[l.Type]++
			}
			assert.Equal(t, map[string]int{"USES": 2, "RELATES_TO": 1}, linkTypes)
		})
	}
}

func TestBackendsReplaceIsFullReplace(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close(ctx) })

			require.NoError(t, b.Replace(ctx, mergeTuples(t, scenarioTuples)))
			require.NoError(t, b.Replace(ctx, mergeTuples(t, []types.Tuple{
				{ID: "other", Kind: types.KindProject, RelationType: types.RelUses, Skills: []string{"rust"}},
			})))

			triples, err := b.Triples(ctx, 0)
			require.NoError(t, err)
			require.Len(t, triples, 1)
			name, _ := triples[0].Target.Properties.Get("name")
			assert.Equal(t, "rust", name.String())

			require.NoError(t, b.Replace(ctx, &types.Snapshot{}))
			triples, err = b.Triples(ctx, 200)
			require.NoError(t, err)
			assert.Empty(t, triples)
		})
	}
}

func TestBackendsHonorLimit(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close(ctx) })

			require.NoError(t, b.Replace(ctx, mergeTuples(t, scenarioTuples)))
			triples, err := b.Triples(ctx, 2)
			require.NoError(t, err)
			assert.Len(t, triples, 2)
		})
	}
}

func TestBackendsKeepExtraProperties(t *testing.T) {
	for name, factory := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			t.Cleanup(func() { _ = b.Close(ctx) })

			require.NoError(t, b.Replace(ctx, mergeTuples(t, []types.Tuple{{
				ID:           "repo",
				Kind:         types.KindProject,
				RelationType: types.RelUses,
				Skills:       []string{"go"},
				Properties: types.Properties{
					"name":  types.StringValue("skillgraph"),
					"stars": types.IntValue(7),
				},
			}})))
			triples, err := b.Triples(ctx, 1)
			require.NoError(t, err)
			require.Len(t, triples, 1)
			assert.Equal(t, "skillgraph", skillgraph.DisplayName(triples[0].Source.Properties))
			stars, ok := triples[0].Source.Properties.Get("stars")
			require.True(t, ok)
			n, _ := stars.AsInt()
			assert.Equal(t, int64(7), n)
		})
	}
}

func TestClosedBackendIsUnavailable(t *testing.T) {
	for name, factory := range backends(t) {
		if name == "sqlite" || name == "postgres" || name == "neo4j" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := factory(t)
			require.NoError(t, b.Close(ctx))
			_, err := b.Triples(ctx, 10)
			assert.True(t, errors.Is(err, types.ErrStoreUnavailable), "got %v", err)
		})
	}
}
