package model

import (
	"math"
	"time"
)

type ResultStatus string

const (
	ResultStatusCompleted ResultStatus = "completed"
	ResultStatusFailed    ResultStatus = "failed"
	ResultStatusTimeout   ResultStatus = "timeout"
)

// ScannerResult is produced once per (query, scanner) pair and never mutated.
type ScannerResult struct {
	ScannerName   string                 `json:"scanner_name"`
	Status        ResultStatus           `json:"status"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Confidence    float64                `json:"confidence"`
	ExecutionTime time.Duration          `json:"execution_time"`
	Error         string                 `json:"error,omitempty"`
	Attempts      int                    `json:"attempts"`
}

// ClampConfidence maps any input into [0,1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// CombineConfidence is a noisy-OR: independent corroborating sources raise
// the combined score without ever exceeding 1.
func CombineConfidence(scores ...float64) float64 {
	miss := 1.0
	for _, c := range scores {
		miss *= 1 - ClampConfidence(c)
	}
	return ClampConfidence(1 - miss)
}

// OverallConfidence derives a query's confidence from its completed results.
func OverallConfidence(results map[string]ScannerResult) float64 {
	scores := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Status == ResultStatusCompleted {
			scores = append(scores, r.Confidence)
		}
	}
	if len(scores) == 0 {
		return 0
	}
	return CombineConfidence(scores...)
}

// ResultCounts tallies results by status.
func ResultCounts(results map[string]ScannerResult) map[ResultStatus]int {
	counts := make(map[ResultStatus]int, 3)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
