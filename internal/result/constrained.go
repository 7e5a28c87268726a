package result

import "github.com/tuannm99/arboretum/internal/contract"

// ConstrainedResult extends Result with two parallel views partitioning
// every master entry by a caller-supplied predicate — the satisfying and
// not_satisfying lists the intra-constrained kNN variants report their
// aggregate relation against (spec §4.6). Every entry belongs to exactly
// one view; a removal from the master is mirrored into whichever view
// holds it.
type ConstrainedResult struct {
	Result
	satisfying    *Result
	notSatisfying *Result
}

func NewConstrained(tie bool) *ConstrainedResult {
	return &ConstrainedResult{
		Result:        *New(tie),
		satisfying:    New(tie),
		notSatisfying: New(tie),
	}
}

// Add inserts obj into the master list and into exactly one of the two
// views according to satisfies.
func (c *ConstrainedResult) Add(obj contract.Object, key float64, satisfies bool) {
	c.Result.Add(obj, key)
	if satisfies {
		c.satisfying.Add(obj, key)
	} else {
		c.notSatisfying.Add(obj, key)
	}
}

func (c *ConstrainedResult) Satisfying() *Result    { return c.satisfying }
func (c *ConstrainedResult) NotSatisfying() *Result { return c.notSatisfying }

// Cut trims the master list and removes whatever fell out of it from
// both views, preserving the "every entry belongs to exactly one view"
// invariant.
func (c *ConstrainedResult) Cut(k int) {
	c.Result.Cut(k)
	c.resync()
}

// CutFirst is CutFirst's master-plus-views counterpart.
func (c *ConstrainedResult) CutFirst(k int) {
	c.Result.CutFirst(k)
	c.resync()
}

func (c *ConstrainedResult) resync() {
	kept := oidSet(&c.Result)
	c.satisfying = filterByOID(c.satisfying, kept)
	c.notSatisfying = filterByOID(c.notSatisfying, kept)
}

func filterByOID(r *Result, kept map[uint64]Entry) *Result {
	out := New(r.tie)
	for _, e := range r.entries {
		if _, ok := kept[e.Object.Identifier()]; ok {
			out.Add(e.Object, e.Key)
		}
	}
	return out
}
