package result_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/result"
)

func TestConstrainedResultPartitionsByPredicate(t *testing.T) {
	c := result.NewConstrained(false)
	c.Add(fixtures.NewPoint(1, 0), 1, true)
	c.Add(fixtures.NewPoint(2, 0), 2, false)
	c.Add(fixtures.NewPoint(3, 0), 3, true)

	require.Equal(t, 3, c.Size())
	require.Equal(t, []uint64{1, 3}, oids(c.Satisfying().Entries()))
	require.Equal(t, []uint64{2}, oids(c.NotSatisfying().Entries()))
}

func TestConstrainedResultCutResyncsViews(t *testing.T) {
	c := result.NewConstrained(false)
	c.Add(fixtures.NewPoint(1, 0), 1, true)
	c.Add(fixtures.NewPoint(2, 0), 2, false)
	c.Add(fixtures.NewPoint(3, 0), 3, true)
	c.Add(fixtures.NewPoint(4, 0), 4, false)

	c.Cut(2)

	require.Equal(t, 2, c.Size())
	require.Equal(t, []uint64{1}, oids(c.Satisfying().Entries()))
	require.Equal(t, []uint64{2}, oids(c.NotSatisfying().Entries()))
}
