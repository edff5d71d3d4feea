package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/store"
)

var _ store.Store = (*DB)(nil)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	invalidTextFormat   = "22P02"
)

// missing reports whether err means the query row does not exist.
// Malformed ids fail the uuid cast rather than matching nothing.
func missing(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == invalidTextFormat || pgErr.Code == foreignKeyViolation)
}

func (db *DB) CreateQuery(ctx context.Context, q model.Query) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO queries (id, type, value, status, submitted_at)
		VALUES ($1::uuid, $2, $3, 'pending', $4)
	`, q.ID, string(q.Type), q.Value, q.SubmittedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("query %s: %w", q.ID, store.ErrAlreadyExists)
	}
	return err
}

// UpdateQueryStatus locks the row so concurrent transitions serialize.
func (db *DB) UpdateQueryStatus(ctx context.Context, queryID string, status model.QueryStatus, confidence float64, reason string) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM queries WHERE id = $1::uuid FOR UPDATE`, queryID).Scan(&current)
	if missing(err) {
		return fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !model.QueryStatus(current).CanTransition(status) {
		return fmt.Errorf("query %s %s -> %s: %w", queryID, current, status, store.ErrInvalidTransition)
	}
	_, err = tx.Exec(ctx, `
		UPDATE queries SET status = $2, confidence = $3, error = $4, updated_at = now()
		WHERE id = $1::uuid
	`, queryID, string(status), model.ClampConfidence(confidence), reason)
	return err
}

func (db *DB) GetQuery(ctx context.Context, queryID string) (model.QueryRecord, error) {
	var (
		rec   model.QueryRecord
		qtype string
		state string
	)
	err := db.Pool.QueryRow(ctx, `
		SELECT id::text, type, value, submitted_at, status, confidence, error, updated_at
		FROM queries WHERE id = $1::uuid
	`, queryID).Scan(&rec.Query.ID, &qtype, &rec.Query.Value, &rec.Query.SubmittedAt, &state, &rec.Confidence, &rec.Error, &rec.UpdatedAt)
	if missing(err) {
		return model.QueryRecord{}, fmt.Errorf("query %s: %w", queryID, store.ErrNotFound)
	}
	if err != nil {
		return model.QueryRecord{}, err
	}
	rec.Query.Type = model.QueryType(qtype)
	rec.Status = model.QueryStatus(state)
	return rec, nil
}

func (db *DB) SaveResults(ctx context.Context, queryID string, results map[string]model.ScannerResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for name, r := range results {
		batch.Queue(`
			INSERT INTO scanner_results (query_id, scanner_name, status, data, confidence, execution_ns, error, attempts)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (query_id, scanner_name) DO NOTHING
		`, queryID, name, string(r.Status), r.Data, r.Confidence, r.ExecutionTime.Nanoseconds(), r.Error, r.Attempts)
	}
	return db.sendBatch(ctx, batch)
}

func (db *DB) ListResults(ctx context.Context, queryID string) (map[string]model.ScannerResult, error) {
	if _, err := db.GetQuery(ctx, queryID); err != nil {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT scanner_name, status, data, confidence, execution_ns, error, attempts
		FROM scanner_results WHERE query_id = $1::uuid
	`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]model.ScannerResult)
	for rows.Next() {
		var (
			r      model.ScannerResult
			status string
			execNS int64
		)
		if err := rows.Scan(&r.ScannerName, &status, &r.Data, &r.Confidence, &execNS, &r.Error, &r.Attempts); err != nil {
			return nil, err
		}
		r.Status = model.ResultStatus(status)
		r.ExecutionTime = time.Duration(execNS)
		out[r.ScannerName] = r
	}
	return out, rows.Err()
}

func (db *DB) SaveEntities(ctx context.Context, queryID string, entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entities {
		keys := e.Keys
		if keys == nil {
			keys = []string{}
		}
		invalid := e.Invalid
		if invalid == nil {
			invalid = []model.InvalidField{}
		}
		batch.Queue(`
			INSERT INTO entities (query_id, id, keys, fields, invalid, confidence, sources)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7)
			ON CONFLICT (query_id, id) DO UPDATE SET
				keys = EXCLUDED.keys,
				fields = EXCLUDED.fields,
				invalid = EXCLUDED.invalid,
				confidence = EXCLUDED.confidence,
				sources = EXCLUDED.sources
		`, queryID, e.ID, keys, e.Fields, invalid, e.Confidence, e.Sources)
	}
	return db.sendBatch(ctx, batch)
}

func (db *DB) ListEntities(ctx context.Context, queryID string) ([]model.Entity, error) {
	if _, err := db.GetQuery(ctx, queryID); err != nil {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT id::text, keys, fields, invalid, confidence, sources
		FROM entities WHERE query_id = $1::uuid ORDER BY id
	`, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e := model.Entity{QueryID: queryID}
		if err := rows.Scan(&e.ID, &e.Keys, &e.Fields, &e.Invalid, &e.Confidence, &e.Sources); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (db *DB) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := db.Pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if missing(err) {
				return fmt.Errorf("batch statement %d: %w", i, store.ErrNotFound)
			}
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return br.Close()
}
