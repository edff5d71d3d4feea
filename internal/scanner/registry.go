package scanner

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/agenthands/dossier/internal/core/model"
)

var (
	ErrDuplicateScanner = errors.New("scanner already registered")
	ErrInvalidScanner   = errors.New("invalid scanner")
)

// Stats is a point-in-time view of the registry.
type Stats struct {
	Total      int            `json:"total"`
	Enabled    int            `json:"enabled"`
	ByCategory map[string]int `json:"by_category"`
}

// Registry holds the scanners available to a process. It is built at
// startup and handed to the orchestrator; duplicate names are rejected.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]Scanner
}

func NewRegistry() *Registry {
	return &Registry{scanners: make(map[string]Scanner)}
}

func (r *Registry) Register(s Scanner) error {
	if isNil(s) {
		return fmt.Errorf("%w: nil scanner", ErrInvalidScanner)
	}
	name := s.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidScanner)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scanners[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScanner, name)
	}
	r.scanners[name] = s
	return nil
}

// MustRegister panics on error. Only for wiring fixed scanner sets at startup.
func (r *Registry) MustRegister(scanners ...Scanner) *Registry {
	for _, s := range scanners {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Get(name string) (Scanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[name]
	return s, ok
}

// List returns every scanner ordered by name.
func (r *Registry) List() []Scanner {
	return r.filter(func(Scanner) bool { return true })
}

func (r *Registry) ListByCategory(category string) []Scanner {
	return r.filter(func(s Scanner) bool { return s.Category() == category })
}

// Eligible returns the enabled scanners that accept q, ordered by name.
func (r *Registry) Eligible(q model.Query) []Scanner {
	return r.filter(func(s Scanner) bool { return isEnabled(s) && s.CanHandle(q) })
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.scanners), ByCategory: make(map[string]int)}
	for _, s := range r.scanners {
		if isEnabled(s) {
			stats.Enabled++
		}
		stats.ByCategory[s.Category()]++
	}
	return stats
}

func (r *Registry) filter(keep func(Scanner) bool) []Scanner {
	r.mu.RLock()
	out := make([]Scanner, 0, len(r.scanners))
	for _, s := range r.scanners {
		if keep(s) {
			out = append(out, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// isNil also catches a nil pointer stored in the interface.
func isNil(s Scanner) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
