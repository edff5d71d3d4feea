package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/store"
)

func newQuery(t *testing.T) model.Query {
	t.Helper()
	q, err := model.NewQuery(model.QueryTypePhone, "+15550100")
	require.NoError(t, err)
	return q
}

func TestQueryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := newQuery(t)

	require.NoError(t, s.CreateQuery(ctx, q))
	assert.ErrorIs(t, s.CreateQuery(ctx, q), store.ErrAlreadyExists)

	rec, err := s.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusPending, rec.Status)

	err = s.UpdateQueryStatus(ctx, q.ID, model.QueryStatusCompleted, 1, "")
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	require.NoError(t, s.UpdateQueryStatus(ctx, q.ID, model.QueryStatusProcessing, 0, ""))
	require.NoError(t, s.UpdateQueryStatus(ctx, q.ID, model.QueryStatusCompleted, 0.75, ""))

	rec, err = s.GetQuery(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueryStatusCompleted, rec.Status)
	assert.Equal(t, 0.75, rec.Confidence)

	err = s.UpdateQueryStatus(ctx, q.ID, model.QueryStatusFailed, 0, "late")
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
}

func TestUnknownQuery(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetQuery(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateQueryStatus(ctx, "missing", model.QueryStatusProcessing, 0, ""), store.ErrNotFound)
	assert.ErrorIs(t, s.SaveResults(ctx, "missing", nil), store.ErrNotFound)
	assert.ErrorIs(t, s.SaveEntities(ctx, "missing", nil), store.ErrNotFound)
}

func TestSaveResults_InsertOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := newQuery(t)
	require.NoError(t, s.CreateQuery(ctx, q))

	first := map[string]model.ScannerResult{"carrier": {ScannerName: "carrier", Status: model.ResultStatusCompleted, Confidence: 0.6}}
	second := map[string]model.ScannerResult{
		"carrier": {ScannerName: "carrier", Status: model.ResultStatusFailed},
		"people":  {ScannerName: "people", Status: model.ResultStatusTimeout},
	}
	require.NoError(t, s.SaveResults(ctx, q.ID, first))
	require.NoError(t, s.SaveResults(ctx, q.ID, second))

	results, err := s.ListResults(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, model.ResultStatusCompleted, results["carrier"].Status)
}

func TestSaveEntities(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := newQuery(t)
	require.NoError(t, s.CreateQuery(ctx, q))

	require.NoError(t, s.SaveEntities(ctx, q.ID, []model.Entity{{ID: "b"}, {ID: "a"}}))
	require.NoError(t, s.SaveEntities(ctx, q.ID, []model.Entity{{ID: "b", Confidence: 0.5}}))

	entities, err := s.ListEntities(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "a", entities[0].ID)
	assert.Equal(t, 0.5, entities[1].Confidence)
}
