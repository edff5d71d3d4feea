package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agenthands/dossier/internal/core/dedupe"
	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/core/orchestrator"
	"github.com/agenthands/dossier/internal/store"
)

const reasonNoneCompleted = "no scanner completed"

// Projector receives the entities of every completed query.
type Projector interface {
	Project(ctx context.Context, q model.Query, confidence float64, entities []model.Entity) error
}

// Engine runs a query through its whole lifecycle:
// pending -> processing -> scanners -> aggregation -> completed|failed.
type Engine struct {
	Orchestrator *orchestrator.Orchestrator
	Aggregator   *dedupe.Aggregator
	Store        store.Store
	Graph        Projector
	logger       zerolog.Logger
}

func NewEngine(o *orchestrator.Orchestrator, a *dedupe.Aggregator, s store.Store, graph Projector, logger zerolog.Logger) *Engine {
	return &Engine{
		Orchestrator: o,
		Aggregator:   a,
		Store:        s,
		Graph:        graph,
		logger:       logger.With().Str("component", "engine").Logger(),
	}
}

// Submit blocks until every scanner has settled and the results are
// aggregated. A query where no scanner completed is marked failed but its
// results are still stored and returned.
func (e *Engine) Submit(ctx context.Context, q model.Query) (*model.Outcome, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := e.Store.CreateQuery(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	if err := e.Store.UpdateQueryStatus(ctx, q.ID, model.QueryStatusProcessing, 0, ""); err != nil {
		return nil, fmt.Errorf("failed to start query: %w", err)
	}

	results, err := e.Orchestrator.Run(ctx, q)
	if err != nil {
		e.fail(ctx, q, err.Error())
		return nil, fmt.Errorf("failed to run scanners: %w", err)
	}

	// Persist what was gathered even if the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.Store.SaveResults(persistCtx, q.ID, results); err != nil {
		e.fail(persistCtx, q, err.Error())
		return nil, fmt.Errorf("failed to save results: %w", err)
	}

	entities := e.Aggregator.Aggregate(q, results)
	if err := e.Store.SaveEntities(persistCtx, q.ID, entities); err != nil {
		e.fail(persistCtx, q, err.Error())
		return nil, fmt.Errorf("failed to save entities: %w", err)
	}

	outcome := &model.Outcome{
		Query:      q,
		Status:     model.QueryStatusCompleted,
		Results:    results,
		Entities:   entities,
		Confidence: model.OverallConfidence(results),
	}
	reason := ""
	if model.ResultCounts(results)[model.ResultStatusCompleted] == 0 {
		outcome.Status = model.QueryStatusFailed
		reason = reasonNoneCompleted
	}

	if e.Graph != nil && outcome.Status == model.QueryStatusCompleted {
		if err := e.Graph.Project(persistCtx, q, outcome.Confidence, entities); err != nil {
			e.logger.Warn().Err(err).Str("query_id", q.ID).Msg("Failed to project entities into graph")
		}
	}

	if err := e.Store.UpdateQueryStatus(persistCtx, q.ID, outcome.Status, outcome.Confidence, reason); err != nil {
		return nil, fmt.Errorf("failed to finish query: %w", err)
	}

	e.logger.Info().
		Str("query_id", q.ID).
		Str("status", string(outcome.Status)).
		Int("results", len(results)).
		Int("entities", len(entities)).
		Float64("confidence", outcome.Confidence).
		Msg("Query finished")
	return outcome, nil
}

// Outcome reloads a stored query with its results and entities.
func (e *Engine) Outcome(ctx context.Context, queryID string) (*model.Outcome, error) {
	rec, err := e.Store.GetQuery(ctx, queryID)
	if err != nil {
		return nil, err
	}
	results, err := e.Store.ListResults(ctx, queryID)
	if err != nil {
		return nil, err
	}
	entities, err := e.Store.ListEntities(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return &model.Outcome{
		Query:      rec.Query,
		Status:     rec.Status,
		Results:    results,
		Entities:   entities,
		Confidence: rec.Confidence,
	}, nil
}

func (e *Engine) fail(ctx context.Context, q model.Query, reason string) {
	if err := e.Store.UpdateQueryStatus(ctx, q.ID, model.QueryStatusFailed, 0, reason); err != nil {
		e.logger.Error().Err(err).Str("query_id", q.ID).Msg("Failed to mark query failed")
	}
}
