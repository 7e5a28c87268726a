package mmtree

import (
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/pqueue"
	"github.com/tuannm99/arboretum/internal/result"
	"github.com/tuannm99/arboretum/internal/storage"
)

// regionLowerBound derives a provable lower bound on the distance from a
// query point q to any object known to lie in the given region, from q's
// distances to the node's two pivots (dq1, dq2) and their discriminating
// distance D. For the pivot requiring d(x,u) < D: if dq >= D, every such
// x satisfies d(q,x) >= dq - D by the triangle inequality; if dq < D, no
// bound is derivable this way. The symmetric case holds for d(x,u) >= D.
// The region's bound is the larger of the two pivots' individual bounds,
// since a region member must satisfy both simultaneously (spec §4.8).
func regionLowerBound(dq1, dq2, discriminant float64, region int) float64 {
	wantLess1 := region&2 != 0
	wantLess2 := region&1 != 0
	lb := boundFor(dq1, discriminant, wantLess1)
	if lb2 := boundFor(dq2, discriminant, wantLess2); lb2 > lb {
		lb = lb2
	}
	return lb
}

func boundFor(dq, discriminant float64, wantLess bool) float64 {
	if wantLess {
		if dq >= discriminant {
			return dq - discriminant
		}
		return 0
	}
	if dq < discriminant {
		return discriminant - dq
	}
	return 0
}

// objCandidate is the payload carried by a pqueue.KindObject entry: a
// fully deserialized candidate object at a known exact distance.
type objCandidate struct {
	obj  contract.Object
	dist float64
}

// Range collects every stored object within r of sample, pruning region
// subtrees whose lower bound exceeds r.
func (t *Tree) Range(sample contract.Object, r float64) (*result.Result, error) {
	res := result.New(false)
	err := t.walkNode(t.rootPageID(), sample, func(obj contract.Object, d float64) {
		if d <= r {
			res.Add(obj, d)
		}
	}, func(lowerBound float64) bool { return lowerBound <= r })
	return res, err
}

// walkNode recurses depth-first over the tree rooted at pageID, invoking
// visit for every object encountered (pivots and representatives alike)
// and using shouldDescend to prune region children whose lower bound
// cannot possibly hold a qualifying object.
func (t *Tree) walkNode(pageID uint32, sample contract.Object, visit func(contract.Object, float64), shouldDescend func(float64) bool) error {
	if pageID == storage.NoPage {
		return nil
	}
	page, err := t.pm.GetPage(pageID)
	if err != nil {
		return err
	}
	n, err := node.OpenMetricNode(page)
	if err != nil {
		_ = t.pm.ReleasePage(page)
		return err
	}

	if !n.HasPivots() {
		for i := 0; i < n.NumRepresentatives(); i++ {
			o := t.newObject()
			o.Deserialize(n.RepresentativeAt(i))
			visit(o, t.metric.Distance(sample, o))
		}
		return t.pm.ReleasePage(page)
	}

	u1 := t.newObject()
	u1.Deserialize(n.Pivot(0))
	u2 := t.newObject()
	u2.Deserialize(n.Pivot(1))
	dq1 := t.metric.Distance(sample, u1)
	dq2 := t.metric.Distance(sample, u2)
	discriminant := n.DiscriminatingDistance()
	visit(u1, dq1)
	visit(u2, dq2)

	children := make([]uint32, node.NumRegions)
	for region := 0; region < node.NumRegions; region++ {
		children[region] = n.Child(region)
	}
	if err := t.pm.ReleasePage(page); err != nil {
		return err
	}

	for region, childID := range children {
		if childID == storage.NoPage {
			continue
		}
		if !shouldDescend(regionLowerBound(dq1, dq2, discriminant, region)) {
			continue
		}
		if err := t.walkNode(childID, sample, visit, shouldDescend); err != nil {
			return err
		}
	}
	return nil
}

// KNN performs a best-first search driven by internal/pqueue, ordering
// both candidate objects and unexplored region subtrees by a single
// priority: an object's exact distance, or a subtree's provable lower
// bound. Once the k-bound is full, any popped entry whose priority
// already exceeds the current k-th distance proves no remaining entry
// can improve the result, and the search stops.
func (t *Tree) KNN(sample contract.Object, k int) (*result.Result, error) {
	res := result.New(false)
	if k <= 0 {
		return res, nil
	}

	q := pqueue.NewHeap()
	q.Push(pqueue.NewEntry(0, pqueue.KindNode, 0, t.rootPageID()))

	for q.Len() > 0 {
		e, _ := q.Pop()
		if res.Size() >= k {
			if maxKey, _ := res.MaxKey(); e.Priority > maxKey {
				break
			}
		}

		switch e.Kind {
		case pqueue.KindObject:
			cand := e.Payload.(objCandidate)
			if res.Size() < k {
				res.Add(cand.obj, cand.dist)
				continue
			}
			maxKey, _ := res.MaxKey()
			if cand.dist < maxKey {
				res.Add(cand.obj, cand.dist)
				res.Cut(k)
			}
		case pqueue.KindNode:
			pageID := e.Payload.(uint32)
			if err := t.expandForKNN(pageID, sample, q); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// expandForKNN opens the node at pageID and pushes its contents onto q:
// representatives or pivots as KindObject entries at their exact
// distance, region children as KindNode entries at their provable lower
// bound.
func (t *Tree) expandForKNN(pageID uint32, sample contract.Object, q pqueue.Queue) error {
	if pageID == storage.NoPage {
		return nil
	}
	page, err := t.pm.GetPage(pageID)
	if err != nil {
		return err
	}
	n, err := node.OpenMetricNode(page)
	if err != nil {
		_ = t.pm.ReleasePage(page)
		return err
	}

	if !n.HasPivots() {
		for i := 0; i < n.NumRepresentatives(); i++ {
			o := t.newObject()
			o.Deserialize(n.RepresentativeAt(i))
			d := t.metric.Distance(sample, o)
			q.Push(pqueue.NewEntry(d, pqueue.KindObject, 0, objCandidate{o, d}))
		}
		return t.pm.ReleasePage(page)
	}

	u1 := t.newObject()
	u1.Deserialize(n.Pivot(0))
	u2 := t.newObject()
	u2.Deserialize(n.Pivot(1))
	dq1 := t.metric.Distance(sample, u1)
	dq2 := t.metric.Distance(sample, u2)
	discriminant := n.DiscriminatingDistance()
	q.Push(pqueue.NewEntry(dq1, pqueue.KindObject, 0, objCandidate{u1, dq1}))
	q.Push(pqueue.NewEntry(dq2, pqueue.KindObject, 0, objCandidate{u2, dq2}))

	for region := 0; region < node.NumRegions; region++ {
		childID := n.Child(region)
		if childID == storage.NoPage {
			continue
		}
		lb := regionLowerBound(dq1, dq2, discriminant, region)
		q.Push(pqueue.NewEntry(lb, pqueue.KindNode, 0, childID))
	}
	return t.pm.ReleasePage(page)
}
