package btree

import (
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/storage"
)

// Search returns every stored object under key, in insertion order
// within the leaf followed by overflow-chain order, reconstructed via
// newObject().Deserialize. An absent key yields a nil, non-error result
// (spec §7, empty result is not an error).
func (t *Tree[K]) Search(key K) ([]contract.Object, error) {
	path, err := t.descendToLeaf(key)
	if err != nil {
		return nil, err
	}
	leafID := path[len(path)-1]
	leafPage, err := t.pm.GetPage(leafID)
	if err != nil {
		return nil, err
	}
	leaf, err := node.OpenLeafNode(leafPage, t.codec)
	if err != nil {
		_ = t.pm.ReleasePage(leafPage)
		return nil, err
	}

	var results []contract.Object
	if idx, found := leaf.FindFirst(key); found {
		for i := idx; i < leaf.NumEntries() && t.codec.Compare(leaf.EntryKey(i), key) == 0; i++ {
			obj := t.newObject()
			obj.Deserialize(leaf.ObjectAt(i))
			results = append(results, obj)
		}
		if leaf.HasOverflow() {
			objs, err := t.collectOverflow(leaf.OverflowPageID())
			if err != nil {
				_ = t.pm.ReleasePage(leafPage)
				return nil, err
			}
			results = append(results, objs...)
		}
	}

	if err := t.pm.ReleasePage(leafPage); err != nil {
		return nil, err
	}
	return results, nil
}

func (t *Tree[K]) collectOverflow(pageID uint32) ([]contract.Object, error) {
	var results []contract.Object
	for pageID != storage.NoPage {
		p, err := t.pm.GetPage(pageID)
		if err != nil {
			return nil, err
		}
		ov, err := node.OpenLeafOverflowNode(p)
		if err != nil {
			_ = t.pm.ReleasePage(p)
			return nil, err
		}
		for i := 0; i < ov.NumEntries(); i++ {
			obj := t.newObject()
			obj.Deserialize(ov.ObjectAt(i))
			results = append(results, obj)
		}
		next := ov.NextOverflowPageID()
		if err := t.pm.ReleasePage(p); err != nil {
			return nil, err
		}
		pageID = next
	}
	return results, nil
}

// Delete removes the single stored occurrence of key whose OID equals
// oid. It reports (false, nil) if no such occurrence exists. Deleting
// from the local leaf array never triggers a merge or rebalance: an
// under-full leaf is left as-is, since the tree only promises correct
// search results, not a minimum fill factor (spec §4.3 names only split
// behavior, not merge-on-delete, as a core obligation).
func (t *Tree[K]) Delete(key K, oid uint64) (bool, error) {
	path, err := t.descendToLeaf(key)
	if err != nil {
		return false, err
	}
	leafID := path[len(path)-1]
	leafPage, err := t.pm.GetPage(leafID)
	if err != nil {
		return false, err
	}
	leaf, err := node.OpenLeafNode(leafPage, t.codec)
	if err != nil {
		_ = t.pm.ReleasePage(leafPage)
		return false, err
	}

	idx, found := leaf.FindFirst(key)
	if found {
		for i := idx; i < leaf.NumEntries() && t.codec.Compare(leaf.EntryKey(i), key) == 0; i++ {
			obj := t.newObject()
			obj.Deserialize(leaf.ObjectAt(i))
			if obj.Identifier() == oid {
				leaf.DeleteLocal(i)
				return true, t.pm.ReleasePage(leafPage)
			}
		}
	}

	if !leaf.HasOverflow() {
		_ = t.pm.ReleasePage(leafPage)
		return false, nil
	}

	ok, err := t.deleteFromOverflow(leaf, oid)
	if err != nil {
		_ = t.pm.ReleasePage(leafPage)
		return false, err
	}
	return ok, t.pm.ReleasePage(leafPage)
}

// deleteFromOverflow walks leaf's overflow chain for an object matching
// oid, removing it and, if that empties the chain page, unlinking and
// disposing it (spec S2: "a full overflow node becoming empty is
// disposed and unlinked").
func (t *Tree[K]) deleteFromOverflow(leaf node.LeafNode[K], oid uint64) (bool, error) {
	prevID := storage.NoPage
	curID := leaf.OverflowPageID()

	for curID != storage.NoPage {
		curPage, err := t.pm.GetPage(curID)
		if err != nil {
			return false, err
		}
		ov, err := node.OpenLeafOverflowNode(curPage)
		if err != nil {
			_ = t.pm.ReleasePage(curPage)
			return false, err
		}

		matchIdx := -1
		for i := 0; i < ov.NumEntries(); i++ {
			obj := t.newObject()
			obj.Deserialize(ov.ObjectAt(i))
			if obj.Identifier() == oid {
				matchIdx = i
				break
			}
		}

		if matchIdx < 0 {
			next := ov.NextOverflowPageID()
			if err := t.pm.ReleasePage(curPage); err != nil {
				return false, err
			}
			prevID = curID
			curID = next
			continue
		}

		ov.DeleteElementAt(matchIdx)
		leaf.SetOverflowOccupation(leaf.OverflowOccupation() - 1)

		if ov.NumEntries() == 0 {
			next := ov.NextOverflowPageID()
			if prevID == storage.NoPage {
				leaf.SetOverflowPageID(next)
			} else {
				prevPage, err := t.pm.GetPage(prevID)
				if err != nil {
					_ = t.pm.ReleasePage(curPage)
					return false, err
				}
				prevOv, err := node.OpenLeafOverflowNode(prevPage)
				if err != nil {
					_ = t.pm.ReleasePage(prevPage)
					_ = t.pm.ReleasePage(curPage)
					return false, err
				}
				prevOv.SetNextOverflowPageID(next)
				if err := t.pm.ReleasePage(prevPage); err != nil {
					_ = t.pm.ReleasePage(curPage)
					return false, err
				}
			}
			view := node.Acquire(t.pm, curPage)
			view.MarkDispose()
			return true, view.Close()
		}

		return true, t.pm.ReleasePage(curPage)
	}

	return false, nil
}
