package model

import "time"

// Record is one entity-like observation pulled out of a scanner result.
type Record struct {
	ID         string                 `json:"id"` // "<scanner>#<index>"
	Source     string                 `json:"source"`
	Confidence float64                `json:"confidence"`
	Fields     map[string]interface{} `json:"fields"`
}

type Alternate struct {
	Value      interface{} `json:"value"`
	Source     string      `json:"source"`
	Confidence float64     `json:"confidence"`
}

// Field holds the winning value for one attribute plus every conflicting
// value seen for it.
type Field struct {
	Value      interface{} `json:"value"`
	Source     string      `json:"source"`
	Confidence float64     `json:"confidence"`
	Alternates []Alternate `json:"alternates,omitempty"`
}

// InvalidField is a contact value that failed normalization.
type InvalidField struct {
	Field  string `json:"field"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// Entity is a deduplicated identity merged from one or more records that
// share an equivalence key.
type Entity struct {
	ID         string           `json:"id"`
	QueryID    string           `json:"query_id"`
	Keys       []string         `json:"keys"`
	Fields     map[string]Field `json:"fields"`
	Invalid    []InvalidField   `json:"invalid,omitempty"`
	Confidence float64          `json:"confidence"`
	Sources    []Record         `json:"sources"`
}

// Outcome is what a submission hands back to its caller.
type Outcome struct {
	Query      Query                    `json:"query"`
	Status     QueryStatus              `json:"status"`
	Results    map[string]ScannerResult `json:"results"`
	Entities   []Entity                 `json:"entities"`
	Confidence float64                  `json:"confidence"`
}

// QueryRecord is the stored view of a query and its lifecycle.
type QueryRecord struct {
	Query      Query       `json:"query"`
	Status     QueryStatus `json:"status"`
	Confidence float64     `json:"confidence"`
	Error      string      `json:"error,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
