package scanner

import (
	"context"

	"github.com/agenthands/dossier/internal/core/model"
)

// Func adapts a closure into a Scanner. Handles nil means every query type.
type Func struct {
	ScannerName     string
	ScannerCategory string
	Handles         []model.QueryType
	Disabled        bool
	Fn              func(ctx context.Context, q model.Query) (Output, error)
}

func (f *Func) Name() string     { return f.ScannerName }
func (f *Func) Category() string { return f.ScannerCategory }
func (f *Func) Enabled() bool    { return !f.Disabled }

func (f *Func) CanHandle(q model.Query) bool {
	if len(f.Handles) == 0 {
		return true
	}
	for _, t := range f.Handles {
		if t == q.Type {
			return true
		}
	}
	return false
}

func (f *Func) Scan(ctx context.Context, q model.Query) (Output, error) {
	return f.Fn(ctx, q)
}
