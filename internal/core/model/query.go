package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type QueryType string

const (
	QueryTypeEmail    QueryType = "email"
	QueryTypePhone    QueryType = "phone"
	QueryTypeUsername QueryType = "username"
	QueryTypeName     QueryType = "name"
)

var ErrInvalidQuery = errors.New("invalid query")

// ParseQueryType accepts the lower-cased wire names only.
func ParseQueryType(s string) (QueryType, error) {
	t := QueryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown query type %q", ErrInvalidQuery, s)
	}
	return t, nil
}

func (t QueryType) Valid() bool {
	switch t {
	case QueryTypeEmail, QueryTypePhone, QueryTypeUsername, QueryTypeName:
		return true
	}
	return false
}

// Query is immutable once created. Its lifecycle status lives in the store.
type Query struct {
	ID          string    `json:"id"`
	Type        QueryType `json:"type"`
	Value       string    `json:"value"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func NewQuery(t QueryType, value string) (Query, error) {
	q := Query{
		ID:          uuid.New().String(),
		Type:        t,
		Value:       strings.TrimSpace(value),
		SubmittedAt: time.Now().UTC(),
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

func (q Query) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("%w: unknown query type %q", ErrInvalidQuery, q.Type)
	}
	if strings.TrimSpace(q.Value) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidQuery)
	}
	return nil
}

type QueryStatus string

const (
	QueryStatusPending    QueryStatus = "pending"
	QueryStatusProcessing QueryStatus = "processing"
	QueryStatusCompleted  QueryStatus = "completed"
	QueryStatusFailed     QueryStatus = "failed"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// pending -> processing -> completed|failed
func (s QueryStatus) CanTransition(next QueryStatus) bool {
	switch s {
	case QueryStatusPending:
		return next == QueryStatusProcessing
	case QueryStatusProcessing:
		return next == QueryStatusCompleted || next == QueryStatusFailed
	}
	return false
}

func (s QueryStatus) Terminal() bool {
	return s == QueryStatusCompleted || s == QueryStatusFailed
}
