//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/dossier/internal/core"
	"github.com/agenthands/dossier/internal/core/dedupe"
	"github.com/agenthands/dossier/internal/core/graph"
	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/core/normalize"
	"github.com/agenthands/dossier/internal/core/orchestrator"
	"github.com/agenthands/dossier/internal/driver"
	"github.com/agenthands/dossier/internal/scanner"
	"github.com/agenthands/dossier/internal/scanner/synthetic"
	"github.com/agenthands/dossier/internal/store/memory"
)

func connectMemgraph(t *testing.T) *driver.MemgraphDriver {
	t.Helper()
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("MEMGRAPH_URI")
	if uri == "" {
		t.Skip("Skipping integration test: MEMGRAPH_URI not set")
	}

	ctx := context.Background()
	d, err := driver.NewMemgraphDriver(ctx, uri, os.Getenv("MEMGRAPH_USER"), os.Getenv("MEMGRAPH_PASSWORD"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.BuildIndices(ctx))
	t.Cleanup(func() { _ = d.Close(context.Background()) })
	return d
}

func TestFullFlowWithGraph(t *testing.T) {
	d := connectMemgraph(t)
	ctx := context.Background()

	reg := scanner.NewRegistry().MustRegister(synthetic.Default(synthetic.Options{})...)
	orch := orchestrator.New(reg, orchestrator.Options{MaxConcurrency: 4}, zerolog.Nop())
	agg := dedupe.NewAggregator(normalize.Normalizer{DefaultCountryCode: "1"})
	projector := graph.NewProjector(d, zerolog.Nop())
	engine := core.NewEngine(orch, agg, memory.New(), projector, zerolog.Nop())

	q, err := model.NewQuery(model.QueryTypeEmail, "graph-flow@example.com")
	require.NoError(t, err)

	outcome, err := engine.Submit(ctx, q)
	require.NoError(t, err)
	require.Equal(t, model.QueryStatusCompleted, outcome.Status)
	require.NotEmpty(t, outcome.Entities)

	res, err := d.ExecuteQuery(ctx,
		`MATCH (:Query {uuid: $uuid})-[:RESOLVED]->(e:Entity) RETURN count(e) AS count`,
		map[string]interface{}{"uuid": q.ID})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	count, _ := res.Records[0].Get("count")
	assert.Equal(t, int64(len(outcome.Entities)), count)

	t.Cleanup(func() {
		_, _ = d.ExecuteQuery(context.Background(),
			`MATCH (q:Query {uuid: $uuid}) OPTIONAL MATCH (q)-[:RESOLVED]->(e) DETACH DELETE q, e`,
			map[string]interface{}{"uuid": q.ID})
	})
}

func TestLinkedThroughSharedContact(t *testing.T) {
	d := connectMemgraph(t)
	ctx := context.Background()
	projector := graph.NewProjector(d, zerolog.Nop())

	first, err := model.NewQuery(model.QueryTypeEmail, "link-a@example.com")
	require.NoError(t, err)
	second, err := model.NewQuery(model.QueryTypePhone, "+15550109999")
	require.NoError(t, err)

	a := model.Entity{
		ID:     "0d6d2f2e-1a53-5f0e-8c6b-5e1b6c1f0a01",
		Keys:   []string{"email:link-a@example.com", "phone:+15550109999"},
		Fields: map[string]model.Field{"name": {Value: "Link A"}},
	}
	b := model.Entity{
		ID:     "0d6d2f2e-1a53-5f0e-8c6b-5e1b6c1f0a02",
		Keys:   []string{"phone:+15550109999"},
		Fields: map[string]model.Field{"name": {Value: "Link B"}},
	}
	require.NoError(t, projector.Project(ctx, first, 0.7, []model.Entity{a}))
	require.NoError(t, projector.Project(ctx, second, 0.6, []model.Entity{b}))

	t.Cleanup(func() {
		_, _ = d.ExecuteQuery(context.Background(),
			`MATCH (n) WHERE n.uuid IN $uuids OR n.key IN $keys DETACH DELETE n`,
			map[string]interface{}{
				"uuids": []string{first.ID, second.ID, a.ID, b.ID},
				"keys":  a.Keys,
			})
	})

	linked, err := projector.Linked(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, b.ID, linked[0].UUID)
	assert.Equal(t, "Link B", linked[0].Name)
	assert.Equal(t, "phone:+15550109999", linked[0].Via)
}
