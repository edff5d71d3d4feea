package dedupe

import (
	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/core/normalize"
)

// Aggregator turns every scanner result of one query into merged entities.
// It is pure and never fails; unusable input degrades to flagged fields.
type Aggregator struct {
	Deduplicator *Deduplicator
}

func NewAggregator(n normalize.Normalizer) *Aggregator {
	return &Aggregator{Deduplicator: NewDeduplicator(n)}
}

func (a *Aggregator) Aggregate(q model.Query, results map[string]model.ScannerResult) []model.Entity {
	records := ExtractRecords(q, results)
	return a.Deduplicator.DeduplicateEntities(q.ID, records)
}
