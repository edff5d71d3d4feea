package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/dossier/internal/core/model"
)

func stub(name, category string, handles ...model.QueryType) *Func {
	return &Func{
		ScannerName:     name,
		ScannerCategory: category,
		Handles:         handles,
		Fn: func(ctx context.Context, q model.Query) (Output, error) {
			return Output{}, nil
		},
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stub("breach", "email")))

	err := r.Register(stub("breach", "other"))

	assert.ErrorIs(t, err, ErrDuplicateScanner)
	s, ok := r.Get("breach")
	require.True(t, ok)
	assert.Equal(t, "email", s.Category(), "original registration is kept")
}

func TestRegister_RejectsInvalid(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(nil), ErrInvalidScanner)
	assert.ErrorIs(t, r.Register(stub("", "email")), ErrInvalidScanner)

	var typedNil *Func
	assert.ErrorIs(t, r.Register(typedNil), ErrInvalidScanner)
	assert.Zero(t, r.Stats().Total)
}

func TestGet_Missing(t *testing.T) {
	s, ok := NewRegistry().Get("nope")
	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestListByCategory(t *testing.T) {
	r := NewRegistry().MustRegister(
		stub("zeta", "email"),
		stub("alpha", "email"),
		stub("carrier", "phone"),
	)

	emails := r.ListByCategory("email")

	require.Len(t, emails, 2)
	assert.Equal(t, "alpha", emails[0].Name())
	assert.Equal(t, "zeta", emails[1].Name())
	assert.Empty(t, r.ListByCategory("social"))
	assert.Len(t, r.List(), 3)
}

func TestStats(t *testing.T) {
	off := stub("off", "phone")
	off.Disabled = true
	r := NewRegistry().MustRegister(stub("a", "email"), stub("b", "email"), off)

	stats := r.Stats()

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Enabled)
	assert.Equal(t, map[string]int{"email": 2, "phone": 1}, stats.ByCategory)
	assert.Equal(t, stats, r.Stats(), "stats is a pure read")
}

func TestEligible(t *testing.T) {
	off := stub("off", "email")
	off.Disabled = true
	r := NewRegistry().MustRegister(
		stub("email_only", "email", model.QueryTypeEmail),
		stub("phone_only", "phone", model.QueryTypePhone),
		stub("anything", "misc"),
		off,
	)

	eligible := r.Eligible(model.Query{Type: model.QueryTypeEmail, Value: "a@b.com"})

	require.Len(t, eligible, 2)
	assert.Equal(t, "anything", eligible[0].Name())
	assert.Equal(t, "email_only", eligible[1].Name())
}

func TestMustRegister_PanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry().MustRegister(stub("x", "a"), stub("x", "b"))
	})
}

func TestErrorKinds(t *testing.T) {
	transient := Transient("s", context.DeadlineExceeded)
	invalid := Invalid("s", assert.AnError)

	assert.True(t, IsTransient(transient))
	assert.False(t, IsValidation(transient))
	assert.ErrorIs(t, transient, context.DeadlineExceeded)

	assert.True(t, IsValidation(invalid))
	assert.False(t, IsTransient(invalid))
	assert.Contains(t, invalid.Error(), "invalid input")
}
