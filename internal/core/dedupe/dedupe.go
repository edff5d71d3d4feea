package dedupe

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/agenthands/dossier/internal/core/community"
	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/core/normalize"
)

const (
	fieldEmail = "email"
	fieldPhone = "phone"
)

var contactFields = []string{fieldEmail, fieldPhone}

// entityNamespace seeds deterministic entity IDs.
var entityNamespace = uuid.MustParse("5b0c3a62-1f0e-4b7d-9a51-3c2f8e6d4a10")

type Deduplicator struct {
	Normalizer normalize.Normalizer
	Detector   community.Detector
}

func NewDeduplicator(n normalize.Normalizer) *Deduplicator {
	return &Deduplicator{
		Normalizer: n,
		Detector:   community.NewComponentDetector(),
	}
}

type prepared struct {
	original model.Record
	fields   map[string]interface{}
	keys     []string
	invalid  []model.InvalidField
}

// DeduplicateEntities groups records sharing a normalized email or phone and
// merges each group into one entity. Within a group the highest-confidence
// value of every field wins and every other distinct value is kept as an
// alternate. Records without a usable key become entities of their own.
func (d *Deduplicator) DeduplicateEntities(queryID string, records []model.Record) []model.Entity {
	if len(records) == 0 {
		return nil
	}

	items := d.prepare(records)
	byID := make(map[string]*prepared, len(items))
	nodes := make([]model.Record, 0, len(items))
	for i := range items {
		byID[items[i].original.ID] = &items[i]
		nodes = append(nodes, items[i].original)
	}

	var edges []community.Edge
	firstByKey := make(map[string]string)
	for _, it := range items {
		for _, key := range it.keys {
			if first, ok := firstByKey[key]; ok {
				edges = append(edges, community.Edge{SourceID: first, TargetID: it.original.ID, Key: key})
				continue
			}
			firstByKey[key] = it.original.ID
		}
	}

	components, err := d.Detector.Detect(nodes, edges)
	if err != nil {
		// Fall back to one entity per record rather than losing data.
		components = make([][]model.Record, 0, len(nodes))
		for _, n := range nodes {
			components = append(components, []model.Record{n})
		}
	}

	entities := make([]model.Entity, 0, len(components))
	for _, component := range components {
		group := make([]*prepared, 0, len(component))
		for _, rec := range component {
			group = append(group, byID[rec.ID])
		}
		entities = append(entities, merge(queryID, group))
	}

	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	return entities
}

// MergeEntities re-deduplicates the sources behind existing entities. Feeding
// DeduplicateEntities output back through it returns the same entities.
func (d *Deduplicator) MergeEntities(entities []model.Entity) []model.Entity {
	if len(entities) == 0 {
		return nil
	}
	queryID := entities[0].QueryID
	var records []model.Record
	for _, e := range entities {
		records = append(records, e.Sources...)
	}
	return d.DeduplicateEntities(queryID, records)
}

func (d *Deduplicator) prepare(records []model.Record) []prepared {
	items := make([]prepared, 0, len(records))
	seen := make(map[string]bool, len(records))

	// Records sharing an ID are renamed in a fixed order so the result does
	// not depend on input order.
	records = append([]model.Record(nil), records...)
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return fmt.Sprint(a.Fields) < fmt.Sprint(b.Fields)
	})

	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("record#%d", i)
		}
		if seen[id] {
			id = fmt.Sprintf("%s~%d", id, i)
		}
		seen[id] = true

		original := rec
		original.ID = id
		original.Confidence = model.ClampConfidence(rec.Confidence)

		it := prepared{original: original, fields: make(map[string]interface{}, len(rec.Fields))}
		for k, v := range rec.Fields {
			it.fields[k] = v
		}

		for _, field := range contactFields {
			v, ok := it.fields[field]
			if !ok {
				continue
			}
			value, reason := d.normalizeContact(field, v)
			if reason != "" {
				delete(it.fields, field)
				it.invalid = append(it.invalid, model.InvalidField{
					Field:  field,
					Raw:    fmt.Sprint(v),
					Reason: reason,
					Source: rec.Source,
				})
				continue
			}
			it.fields[field] = value
			it.keys = append(it.keys, field+":"+value)
		}
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].original.ID < items[j].original.ID })
	return items
}

// normalizeContact returns the canonical value, or a non-empty reason when
// the raw value is unusable.
func (d *Deduplicator) normalizeContact(field string, v interface{}) (string, string) {
	s, ok := contactString(field, v)
	if !ok {
		return "", "not a string"
	}
	switch field {
	case fieldEmail:
		res := d.Normalizer.Email(s)
		if !res.Valid {
			return "", res.Reason
		}
		return res.Value, ""
	case fieldPhone:
		res := d.Normalizer.Phone(s)
		if !res.Valid {
			return "", res.Reason
		}
		return res.Value, ""
	}
	return s, ""
}

// contactString accepts phone numbers decoded from JSON as numbers.
func contactString(field string, v interface{}) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if field != fieldPhone {
		return "", false
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case json.Number:
		if _, err := n.Int64(); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

func merge(queryID string, group []*prepared) model.Entity {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i].original, group[j].original
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ID < b.ID
	})

	entity := model.Entity{
		QueryID: queryID,
		Fields:  make(map[string]model.Field),
	}
	keySet := make(map[string]bool)
	scores := make([]float64, 0, len(group))

	for _, it := range group {
		rec := it.original
		scores = append(scores, rec.Confidence)
		entity.Sources = append(entity.Sources, rec)
		entity.Invalid = append(entity.Invalid, it.invalid...)
		for _, k := range it.keys {
			keySet[k] = true
		}

		names := make([]string, 0, len(it.fields))
		for name := range it.fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			v := it.fields[name]
			existing, ok := entity.Fields[name]
			if !ok {
				entity.Fields[name] = model.Field{Value: v, Source: rec.Source, Confidence: rec.Confidence}
				continue
			}
			if sameValue(existing.Value, v) || hasAlternate(existing.Alternates, v) {
				continue
			}
			existing.Alternates = append(existing.Alternates, model.Alternate{
				Value:      v,
				Source:     rec.Source,
				Confidence: rec.Confidence,
			})
			entity.Fields[name] = existing
		}
	}

	for k := range keySet {
		entity.Keys = append(entity.Keys, k)
	}
	sort.Strings(entity.Keys)
	entity.Confidence = model.CombineConfidence(scores...)
	entity.ID = entityID(queryID, entity.Keys, group)
	return entity
}

// entityID is stable across queries for keyed entities, so the same identity
// found twice resolves to the same node downstream.
func entityID(queryID string, keys []string, group []*prepared) string {
	if len(keys) > 0 {
		return uuid.NewSHA1(entityNamespace, []byte(strings.Join(keys, "|"))).String()
	}
	ids := make([]string, 0, len(group))
	for _, it := range group {
		ids = append(ids, it.original.ID)
	}
	sort.Strings(ids)
	return uuid.NewSHA1(entityNamespace, []byte(queryID+"|"+strings.Join(ids, "|"))).String()
}

func hasAlternate(alts []model.Alternate, v interface{}) bool {
	for _, a := range alts {
		if sameValue(a.Value, v) {
			return true
		}
	}
	return false
}

// sameValue compares strings ignoring case and runs of whitespace.
func sameValue(a, b interface{}) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.EqualFold(strings.Join(strings.Fields(as), " "), strings.Join(strings.Fields(bs), " "))
	}
	return reflect.DeepEqual(a, b)
}
