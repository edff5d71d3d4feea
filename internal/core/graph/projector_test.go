package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/driver"
)

func testEntities() (model.Query, []model.Entity) {
	q := model.Query{ID: "q-1", Type: model.QueryTypeEmail, Value: "alice@example.com", SubmittedAt: time.Unix(0, 0).UTC()}
	entities := []model.Entity{
		{
			ID:         "e-1",
			QueryID:    "q-1",
			Keys:       []string{"email:alice@example.com", "phone:+15550100"},
			Fields:     map[string]model.Field{"name": {Value: "Alice Smith", Source: "people_search", Confidence: 0.8}},
			Confidence: 0.8,
		},
		{ID: "e-2", QueryID: "q-1", Fields: map[string]model.Field{"username": {Value: "alice"}}, Confidence: 0.4},
	}
	return q, entities
}

func TestProject(t *testing.T) {
	mock := &MockDriver{}
	p := NewProjector(mock, zerolog.Nop())
	q, entities := testEntities()

	err := p.Project(context.Background(), q, 0.9, entities)

	require.NoError(t, err)
	// query + 2 entities + 2 contacts
	require.Len(t, mock.Executed, 5)
	assert.Equal(t, driver.SaveQueryNodeQuery, mock.Executed[0].Query)
	assert.Equal(t, "q-1", mock.Executed[0].Params["uuid"])

	assert.Equal(t, driver.SaveEntityNodeQuery, mock.Executed[1].Query)
	assert.Equal(t, "Alice Smith", mock.Executed[1].Params["name"])
	assert.Contains(t, mock.Executed[1].Params["fields"], `"Alice Smith"`)

	assert.Equal(t, driver.SaveContactEdgeQuery, mock.Executed[2].Query)
	assert.Equal(t, "email", mock.Executed[2].Params["kind"])
	assert.Equal(t, "alice@example.com", mock.Executed[2].Params["value"])
	assert.Equal(t, "phone", mock.Executed[3].Params["kind"])

	assert.Equal(t, "e-2", mock.Executed[4].Params["uuid"])
	assert.Equal(t, []string{}, mock.Executed[4].Params["keys"])
}

func TestProject_DriverError(t *testing.T) {
	mock := &MockDriver{Err: errors.New("connection reset"), FailOn: driver.SaveContactEdgeQuery}
	p := NewProjector(mock, zerolog.Nop())
	q, entities := testEntities()

	err := p.Project(context.Background(), q, 0.9, entities)

	assert.ErrorContains(t, err, "connection reset")
	assert.ErrorContains(t, err, "email:alice@example.com")
}

func TestLinked(t *testing.T) {
	mock := &MockDriver{MockResult: neo4j.EagerResult{
		Records: []*neo4j.Record{
			{Keys: []string{"uuid", "name", "via"}, Values: []any{"e-9", "A. Smith", "phone:+15550100"}},
		},
	}}
	p := NewProjector(mock, zerolog.Nop())

	linked, err := p.Linked(context.Background(), "e-1", 0)

	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, LinkedEntity{UUID: "e-9", Name: "A. Smith", Via: "phone:+15550100"}, linked[0])
	assert.Equal(t, 25, mock.Executed[0].Params["limit"])
}
