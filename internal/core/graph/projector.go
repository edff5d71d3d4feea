package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/driver"
)

// Projector writes merged entities into the identity graph:
// (:Query)-[:RESOLVED]->(:Entity)-[:HAS_CONTACT]->(:Contact).
type Projector struct {
	Driver driver.GraphDriver
	logger zerolog.Logger
	now    func() time.Time
}

func NewProjector(d driver.GraphDriver, logger zerolog.Logger) *Projector {
	return &Projector{
		Driver: d,
		logger: logger.With().Str("component", "graph").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type LinkedEntity struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Via  string `json:"via"`
}

func (p *Projector) Project(ctx context.Context, q model.Query, confidence float64, entities []model.Entity) error {
	_, err := p.Driver.ExecuteQuery(ctx, driver.SaveQueryNodeQuery, map[string]interface{}{
		"uuid":         q.ID,
		"type":         string(q.Type),
		"value":        q.Value,
		"submitted_at": q.SubmittedAt,
		"confidence":   confidence,
	})
	if err != nil {
		return fmt.Errorf("failed to save query node: %w", err)
	}

	now := p.now()
	for _, e := range entities {
		fields, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode fields of entity %s: %w", e.ID, err)
		}
		keys := e.Keys
		if keys == nil {
			keys = []string{}
		}
		_, err = p.Driver.ExecuteQuery(ctx, driver.SaveEntityNodeQuery, map[string]interface{}{
			"query_uuid": q.ID,
			"uuid":       e.ID,
			"name":       displayName(e),
			"keys":       keys,
			"fields":     string(fields),
			"confidence": e.Confidence,
			"updated_at": now,
		})
		if err != nil {
			return fmt.Errorf("failed to save entity %s: %w", e.ID, err)
		}

		for _, key := range e.Keys {
			kind, value, _ := strings.Cut(key, ":")
			_, err := p.Driver.ExecuteQuery(ctx, driver.SaveContactEdgeQuery, map[string]interface{}{
				"entity_uuid": e.ID,
				"key":         key,
				"kind":        kind,
				"value":       value,
			})
			if err != nil {
				return fmt.Errorf("failed to link entity %s to %s: %w", e.ID, key, err)
			}
		}
	}

	p.logger.Debug().Str("query_id", q.ID).Int("entities", len(entities)).Msg("Projected entities")
	return nil
}

// Linked returns entities that share a contact with entityID.
func (p *Projector) Linked(ctx context.Context, entityID string, limit int) ([]LinkedEntity, error) {
	if limit <= 0 {
		limit = 25
	}
	res, err := p.Driver.ExecuteQuery(ctx, driver.LinkedEntitiesQuery, map[string]interface{}{
		"uuid":  entityID,
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	var out []LinkedEntity
	for _, rec := range res.Records {
		uuid, _ := rec.Get("uuid")
		name, _ := rec.Get("name")
		via, _ := rec.Get("via")
		le := LinkedEntity{}
		le.UUID, _ = uuid.(string)
		le.Name, _ = name.(string)
		le.Via, _ = via.(string)
		out = append(out, le)
	}
	return out, nil
}

func displayName(e model.Entity) string {
	if f, ok := e.Fields["name"]; ok {
		if s, ok := f.Value.(string); ok {
			return s
		}
	}
	if len(e.Keys) > 0 {
		_, v, _ := strings.Cut(e.Keys[0], ":")
		return v
	}
	return e.ID
}
