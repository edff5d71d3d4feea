// Package store defines the single persistence boundary for queries, scanner
// results and merged entities.
package store

import (
	"context"
	"errors"

	"github.com/agenthands/dossier/internal/core/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyExists     = errors.New("already exists")
)

type Store interface {
	// CreateQuery stores q as pending.
	CreateQuery(ctx context.Context, q model.Query) error
	// UpdateQueryStatus moves a query along its lifecycle. Confidence and
	// reason are recorded alongside the new status.
	UpdateQueryStatus(ctx context.Context, queryID string, status model.QueryStatus, confidence float64, reason string) error
	GetQuery(ctx context.Context, queryID string) (model.QueryRecord, error)

	// SaveResults is insert-only: a result already stored for a
	// (query, scanner) pair is never overwritten.
	SaveResults(ctx context.Context, queryID string, results map[string]model.ScannerResult) error
	ListResults(ctx context.Context, queryID string) (map[string]model.ScannerResult, error)

	SaveEntities(ctx context.Context, queryID string, entities []model.Entity) error
	ListEntities(ctx context.Context, queryID string) ([]model.Entity, error)

	Close() error
}
