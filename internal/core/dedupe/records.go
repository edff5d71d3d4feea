package dedupe

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agenthands/dossier/internal/core/model"
)

const (
	recordsKey    = "records"
	confidenceKey = "confidence"
)

// ExtractRecords turns the completed results of a query into records.
//
// A payload with a "records" list yields one record per object in it, and
// the payload's other top-level keys are copied into every such record
// unless the record sets them itself; otherwise the payload itself is one
// record. Records for email and phone queries that lack that contact field
// are attributed to the query subject.
func ExtractRecords(q model.Query, results map[string]model.ScannerResult) []model.Record {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var records []model.Record
	for _, name := range names {
		res := results[name]
		if res.Status != model.ResultStatusCompleted || len(res.Data) == 0 {
			continue
		}

		var raw []map[string]interface{}
		if list, ok := res.Data[recordsKey]; ok {
			raw = withShared(objects(list), res.Data)
		} else {
			raw = []map[string]interface{}{res.Data}
		}

		for i, obj := range raw {
			rec, ok := toRecord(fmt.Sprintf("%s#%d", name, i), name, res.Confidence, obj)
			if !ok {
				continue
			}
			attachSubject(q, &rec)
			records = append(records, rec)
		}
	}
	return records
}

func toRecord(id, source string, fallback float64, obj map[string]interface{}) (model.Record, bool) {
	rec := model.Record{
		ID:         id,
		Source:     source,
		Confidence: model.ClampConfidence(fallback),
		Fields:     make(map[string]interface{}, len(obj)),
	}
	for k, v := range obj {
		switch k {
		case recordsKey:
			continue
		case confidenceKey:
			if c, ok := toFloat(v); ok {
				rec.Confidence = model.ClampConfidence(c)
			}
			continue
		}
		if v == nil {
			continue
		}
		rec.Fields[k] = v
	}
	return rec, len(rec.Fields) > 0
}

func attachSubject(q model.Query, rec *model.Record) {
	var field string
	switch q.Type {
	case model.QueryTypeEmail:
		field = fieldEmail
	case model.QueryTypePhone:
		field = fieldPhone
	default:
		return
	}
	if _, ok := rec.Fields[field]; !ok {
		rec.Fields[field] = q.Value
	}
}

// withShared copies payload-level fields into each record. The payload's
// confidence is not shared; it already is the fallback for every record.
func withShared(list []map[string]interface{}, payload map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, obj := range list {
		merged := make(map[string]interface{}, len(obj)+len(payload))
		for k, v := range payload {
			if k == recordsKey || k == confidenceKey {
				continue
			}
			merged[k] = v
		}
		for k, v := range obj {
			merged[k] = v
		}
		out = append(out, merged)
	}
	return out
}

func objects(v interface{}) []map[string]interface{} {
	switch list := v.(type) {
	case []map[string]interface{}:
		return list
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
