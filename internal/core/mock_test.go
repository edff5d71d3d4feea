package core

import (
	"context"
	"errors"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/store"
)

type MockProjector struct {
	Calls    int
	Entities []model.Entity
	Err      error
}

func (m *MockProjector) Project(ctx context.Context, q model.Query, confidence float64, entities []model.Entity) error {
	m.Calls++
	m.Entities = entities
	return m.Err
}

// FailingStore wraps a store and fails SaveEntities.
type FailingStore struct {
	store.Store
}

func (f FailingStore) SaveEntities(ctx context.Context, queryID string, entities []model.Entity) error {
	return errors.New("disk full")
}
