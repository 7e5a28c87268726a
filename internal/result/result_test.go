package result_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/result"
)

func oids(entries []result.Entry) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.Object.Identifier()
	}
	return out
}

func TestResultOrderingAndOIDTiebreak(t *testing.T) {
	r := result.New(false)
	r.Add(fixtures.NewPoint(3, 0), 5)
	r.Add(fixtures.NewPoint(1, 0), 5)
	r.Add(fixtures.NewPoint(2, 0), 1)

	require.Equal(t, []uint64{2, 1, 3}, oids(r.Entries()))
	min, ok := r.MinKey()
	require.True(t, ok)
	require.Equal(t, 1.0, min)
	max, ok := r.MaxKey()
	require.True(t, ok)
	require.Equal(t, 5.0, max)
}

func TestResultCutWithoutTie(t *testing.T) {
	r := result.New(false)
	for i := uint64(1); i <= 5; i++ {
		r.Add(fixtures.NewPoint(i, 0), float64(i))
	}
	r.Cut(3)
	require.Equal(t, []uint64{1, 2, 3}, oids(r.Entries()))
}

func TestResultCutRetainsTies(t *testing.T) {
	r := result.New(true)
	r.Add(fixtures.NewPoint(1, 0), 1)
	r.Add(fixtures.NewPoint(2, 0), 2)
	r.Add(fixtures.NewPoint(3, 0), 2)
	r.Add(fixtures.NewPoint(4, 0), 2)
	r.Add(fixtures.NewPoint(5, 0), 3)

	r.Cut(2)
	// entries 2,3 tie at key=2 with the cut boundary entry; both ride along.
	require.Equal(t, []uint64{1, 2, 3, 4}, oids(r.Entries()))
}

func TestResultCutFirstRetainsTies(t *testing.T) {
	r := result.New(true)
	r.Add(fixtures.NewPoint(1, 0), 1)
	r.Add(fixtures.NewPoint(2, 0), 2)
	r.Add(fixtures.NewPoint(3, 0), 2)
	r.Add(fixtures.NewPoint(4, 0), 3)

	r.CutFirst(2)
	require.Equal(t, []uint64{2, 3, 4}, oids(r.Entries()))
}

func TestResultSetAlgebra(t *testing.T) {
	a := result.New(false)
	a.Add(fixtures.NewPoint(1, 0), 1)
	a.Add(fixtures.NewPoint(2, 0), 2)

	b := result.New(false)
	b.Add(fixtures.NewPoint(2, 0), 9)
	b.Add(fixtures.NewPoint(3, 0), 3)

	inter := a.Intersection(b)
	require.Equal(t, []uint64{2}, oids(inter.Entries()))

	union := a.Union(b)
	require.ElementsMatch(t, []uint64{1, 2, 3}, oids(union.Entries()))
}

func TestResultPrecision(t *testing.T) {
	approx := result.New(false)
	approx.Add(fixtures.NewPoint(1, 0), 1)
	approx.Add(fixtures.NewPoint(2, 0), 2)
	approx.Add(fixtures.NewPoint(99, 0), 2)

	truth := result.New(false)
	truth.Add(fixtures.NewPoint(1, 0), 1)
	truth.Add(fixtures.NewPoint(2, 0), 2)

	require.InDelta(t, 2.0/3.0, approx.Precision(truth), 1e-9)
}
