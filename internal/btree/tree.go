package btree

import (
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/storage"
)

// Tree is a disk-backed B-tree over a PageManager, generic over the
// search-key type K via a node.KeyCodec. It stores contract.Object
// values keyed by K, routing duplicate keys into overflow chains once a
// leaf is entirely one repeated, full key (spec §4.3), and splitting
// leaves and index nodes without ever separating a run of duplicates
// (spec §4.4, testable property 2).
type Tree[K any] struct {
	pm        storage.PageManager
	codec     node.KeyCodec[K]
	newObject func() contract.Object
	allowDups bool
}

// Open attaches a Tree to pm, initializing a fresh empty-leaf root if the
// store has no pages yet, or reading the existing root id from the
// header page otherwise. newObject must return a zero-value instance
// whose Deserialize will be called to reconstruct stored objects.
func Open[K any](pm storage.PageManager, codec node.KeyCodec[K], newObject func() contract.Object, allowDups bool) (*Tree[K], error) {
	t := &Tree[K]{pm: pm, codec: codec, newObject: newObject, allowDups: allowDups}
	if pm.IsEmpty() {
		root, err := pm.NewPage()
		if err != nil {
			return nil, err
		}
		node.NewLeafNode(root, codec)
		if err := pm.ReleasePage(root); err != nil {
			return nil, err
		}
		t.setRootPageID(root.ID())
		if err := pm.WriteHeaderPage(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree[K]) rootPageID() uint32 { return readRootPageID(t.pm.HeaderPage().Bytes()) }

func (t *Tree[K]) setRootPageID(id uint32) {
	writeRootPageID(t.pm.HeaderPage().Bytes(), id)
	t.pm.HeaderPage().MarkDirty()
}

// descendToLeaf walks from the root to the leaf that would hold key,
// returning the full root-to-leaf page id path. It never holds more than
// one page pinned at a time: each index page is inspected and released
// before its child is fetched, which is sound only because the core is
// single-threaded and synchronous (spec §5) — a split elsewhere between
// release and the next GetPage cannot happen.
func (t *Tree[K]) descendToLeaf(key K) ([]uint32, error) {
	path := make([]uint32, 0, 4)
	id := t.rootPageID()
	for {
		path = append(path, id)
		page, err := t.pm.GetPage(id)
		if err != nil {
			return nil, err
		}
		if node.Header{Page: page}.TypeTag() == node.TypeLeaf {
			if err := t.pm.ReleasePage(page); err != nil {
				return nil, err
			}
			return path, nil
		}
		idxNode, err := node.OpenIndexNode(page, t.codec)
		if err != nil {
			_ = t.pm.ReleasePage(page)
			return nil, err
		}
		i := idxNode.Find(key)
		if i < idxNode.NumEntries() && t.codec.Compare(idxNode.EntryKey(i), key) == 0 {
			i++ // a key equal to a separator lives in that separator's right child
		}
		child := idxNode.ChildAt(i - 1)
		if err := t.pm.ReleasePage(page); err != nil {
			return nil, err
		}
		id = child
	}
}

// Insert adds (key, obj) to the tree. If the tree disallows duplicates
// and key already exists, it returns ErrDuplication. If obj would not
// fit even in a freshly emptied leaf, it returns ErrOversizeObject
// without touching any page.
func (t *Tree[K]) Insert(key K, obj contract.Object) error {
	serialized := obj.Serialize()
	if len(serialized)+t.codec.Size+4 > node.EmptyLeafFreeSpace(t.pm.PageSize(), t.codec) {
		return ErrOversizeObject
	}

	path, err := t.descendToLeaf(key)
	if err != nil {
		return err
	}

	leafID := path[len(path)-1]
	leafPage, err := t.pm.GetPage(leafID)
	if err != nil {
		return err
	}
	leaf, err := node.OpenLeafNode(leafPage, t.codec)
	if err != nil {
		_ = t.pm.ReleasePage(leafPage)
		return err
	}

	switch leaf.InsertLocal(key, serialized, t.allowDups) {
	case node.InsertSuccess:
		return t.pm.ReleasePage(leafPage)
	case node.InsertDuplication:
		_ = t.pm.ReleasePage(leafPage)
		return ErrDuplication
	default: // node.InsertNodeFull
		count := leaf.NumEntries()
		pureDuplicate := count > 0 &&
			t.codec.Compare(leaf.EntryKey(0), key) == 0 &&
			t.codec.Compare(leaf.EntryKey(count-1), key) == 0
		if pureDuplicate {
			return t.insertOverflow(leaf, leafPage, serialized)
		}
		if err := t.pm.ReleasePage(leafPage); err != nil {
			return err
		}
		return t.split(path, key, serialized)
	}
}

// insertOverflow routes a duplicate object into leaf's overflow chain,
// allocating a new chained page if the current tail is also full (spec
// §4.3). The leaf page itself only changes its bookkeeping fields, never
// its entry array, so it is always released rather than split.
func (t *Tree[K]) insertOverflow(leaf node.LeafNode[K], leafPage *storage.Page, object []byte) error {
	if leaf.OverflowPageID() == storage.NoPage {
		newPage, err := t.pm.NewPage()
		if err != nil {
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		ov := node.NewLeafOverflowNode(newPage)
		if ov.Insert(object) != node.InsertSuccess {
			_ = t.pm.DisposePage(newPage)
			_ = t.pm.ReleasePage(leafPage)
			return ErrOversizeObject
		}
		leaf.SetOverflowPageID(newPage.ID())
		leaf.SetOverflowOccupation(leaf.OverflowOccupation() + 1)
		if err := t.pm.ReleasePage(newPage); err != nil {
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		return t.pm.ReleasePage(leafPage)
	}

	curID := leaf.OverflowPageID()
	for {
		curPage, err := t.pm.GetPage(curID)
		if err != nil {
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		ov, err := node.OpenLeafOverflowNode(curPage)
		if err != nil {
			_ = t.pm.ReleasePage(curPage)
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		if next := ov.NextOverflowPageID(); next != storage.NoPage {
			if err := t.pm.ReleasePage(curPage); err != nil {
				_ = t.pm.ReleasePage(leafPage)
				return err
			}
			curID = next
			continue
		}

		if ov.Insert(object) == node.InsertSuccess {
			leaf.SetOverflowOccupation(leaf.OverflowOccupation() + 1)
			if err := t.pm.ReleasePage(curPage); err != nil {
				_ = t.pm.ReleasePage(leafPage)
				return err
			}
			return t.pm.ReleasePage(leafPage)
		}

		newPage, err := t.pm.NewPage()
		if err != nil {
			_ = t.pm.ReleasePage(curPage)
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		newOv := node.NewLeafOverflowNode(newPage)
		if newOv.Insert(object) != node.InsertSuccess {
			_ = t.pm.DisposePage(newPage)
			_ = t.pm.ReleasePage(curPage)
			_ = t.pm.ReleasePage(leafPage)
			return ErrOversizeObject
		}
		ov.SetNextOverflowPageID(newPage.ID())
		leaf.SetOverflowOccupation(leaf.OverflowOccupation() + 1)
		if err := t.pm.ReleasePage(newPage); err != nil {
			_ = t.pm.ReleasePage(curPage)
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		if err := t.pm.ReleasePage(curPage); err != nil {
			_ = t.pm.ReleasePage(leafPage)
			return err
		}
		return t.pm.ReleasePage(leafPage)
	}
}

// split breaks a full leaf in two at FindMedian, relinks the sibling
// chain, places the pending insert on whichever side now owns its key,
// and propagates a separator entry into the parent (spec §4.4).
func (t *Tree[K]) split(path []uint32, key K, object []byte) error {
	leafID := path[len(path)-1]
	leafPage, err := t.pm.GetPage(leafID)
	if err != nil {
		return err
	}
	leaf, err := node.OpenLeafNode(leafPage, t.codec)
	if err != nil {
		_ = t.pm.ReleasePage(leafPage)
		return err
	}

	newLeafPage, err := t.pm.NewPage()
	if err != nil {
		_ = t.pm.ReleasePage(leafPage)
		return err
	}
	newLeaf := node.NewLeafNode(newLeafPage, t.codec)

	median := leaf.FindMedian()
	count := leaf.NumEntries()

	type moved struct {
		key K
		obj []byte
	}
	items := make([]moved, 0, count-median)
	for i := median; i < count; i++ {
		items = append(items, moved{key: leaf.EntryKey(i), obj: append([]byte(nil), leaf.ObjectAt(i)...)})
	}
	for range items {
		leaf.DeleteLocal(median)
	}
	for _, it := range items {
		if newLeaf.InsertLocal(it.key, it.obj, true) != node.InsertSuccess {
			_ = t.pm.ReleasePage(leafPage)
			_ = t.pm.ReleasePage(newLeafPage)
			return ErrCorruptMeta
		}
	}

	oldNext := leaf.NextPageID()
	newLeaf.SetPreviousPageID(leafID)
	newLeaf.SetNextPageID(oldNext)
	leaf.SetNextPageID(newLeafPage.ID())
	if oldNext != storage.NoPage {
		nextPage, err := t.pm.GetPage(oldNext)
		if err != nil {
			_ = t.pm.ReleasePage(leafPage)
			_ = t.pm.ReleasePage(newLeafPage)
			return err
		}
		nextLeaf, err := node.OpenLeafNode(nextPage, t.codec)
		if err != nil {
			_ = t.pm.ReleasePage(nextPage)
			_ = t.pm.ReleasePage(leafPage)
			_ = t.pm.ReleasePage(newLeafPage)
			return err
		}
		nextLeaf.SetPreviousPageID(newLeafPage.ID())
		if err := t.pm.ReleasePage(nextPage); err != nil {
			_ = t.pm.ReleasePage(leafPage)
			_ = t.pm.ReleasePage(newLeafPage)
			return err
		}
	}

	target := leaf
	if newLeaf.NumEntries() > 0 && t.codec.Compare(key, newLeaf.EntryKey(0)) >= 0 {
		target = newLeaf
	}
	res := target.InsertLocal(key, object, t.allowDups)
	if res != node.InsertSuccess {
		_ = t.pm.ReleasePage(leafPage)
		_ = t.pm.ReleasePage(newLeafPage)
		if res == node.InsertDuplication {
			return ErrDuplication
		}
		return ErrCorruptMeta
	}

	sepKey := newLeaf.EntryKey(0)
	rightChild := newLeafPage.ID()

	if err := t.pm.ReleasePage(leafPage); err != nil {
		_ = t.pm.ReleasePage(newLeafPage)
		return err
	}
	if err := t.pm.ReleasePage(newLeafPage); err != nil {
		return err
	}

	return t.insertIntoParent(path[:len(path)-1], sepKey, rightChild)
}

// insertIntoParent places a freshly promoted (separator, rightChild)
// pair into the nearest ancestor index node, splitting it (and
// recursing further up) if it has no room, or growing a new root if the
// split reached the top of the tree.
func (t *Tree[K]) insertIntoParent(ancestors []uint32, sepKey K, rightChild uint32) error {
	if len(ancestors) == 0 {
		oldRootID := t.rootPageID()
		newRootPage, err := t.pm.NewPage()
		if err != nil {
			return err
		}
		newRoot := node.NewIndexNode(newRootPage, t.codec)
		newRoot.SetLeftmostChild(oldRootID)
		newRoot.InsertEntryAt(0, sepKey, rightChild)
		t.setRootPageID(newRootPage.ID())
		if err := t.pm.WriteHeaderPage(); err != nil {
			_ = t.pm.ReleasePage(newRootPage)
			return err
		}
		return t.pm.ReleasePage(newRootPage)
	}

	parentID := ancestors[len(ancestors)-1]
	parentPage, err := t.pm.GetPage(parentID)
	if err != nil {
		return err
	}
	parent, err := node.OpenIndexNode(parentPage, t.codec)
	if err != nil {
		_ = t.pm.ReleasePage(parentPage)
		return err
	}

	idx := parent.Find(sepKey)
	if parent.FreeSpace() > 0 {
		parent.InsertEntryAt(idx, sepKey, rightChild)
		return t.pm.ReleasePage(parentPage)
	}

	return t.splitIndex(ancestors[:len(ancestors)-1], parent, parentPage, idx, sepKey, rightChild)
}

// splitIndex splits a full index node around the entry being inserted,
// promoting the resulting median key to the grandparent rather than
// copying it down — index nodes, unlike leaves, never duplicate a
// separator across the split.
func (t *Tree[K]) splitIndex(ancestors []uint32, parent node.IndexNode[K], parentPage *storage.Page, insertIdx int, sepKey K, rightChild uint32) error {
	type ent struct {
		key   K
		child uint32
	}
	count := parent.NumEntries()
	merged := make([]ent, 0, count+1)
	for i := 0; i < count; i++ {
		if i == insertIdx {
			merged = append(merged, ent{sepKey, rightChild})
		}
		merged = append(merged, ent{parent.EntryKey(i), parent.EntryChild(i)})
	}
	if insertIdx == count {
		merged = append(merged, ent{sepKey, rightChild})
	}

	leftmost := parent.LeftmostChild()
	medianPos := len(merged) / 2
	promotedKey := merged[medianPos].key
	rightLeftmost := merged[medianPos].child

	newIndexPage, err := t.pm.NewPage()
	if err != nil {
		_ = t.pm.ReleasePage(parentPage)
		return err
	}
	newIndex := node.NewIndexNode(newIndexPage, t.codec)
	newIndex.SetLeftmostChild(rightLeftmost)
	for i := medianPos + 1; i < len(merged); i++ {
		newIndex.InsertEntryAt(i-medianPos-1, merged[i].key, merged[i].child)
	}

	for parent.NumEntries() > 0 {
		parent.DeleteEntryAt(0)
	}
	parent.SetLeftmostChild(leftmost)
	for i := 0; i < medianPos; i++ {
		parent.InsertEntryAt(i, merged[i].key, merged[i].child)
	}

	if err := t.pm.ReleasePage(parentPage); err != nil {
		_ = t.pm.ReleasePage(newIndexPage)
		return err
	}
	if err := t.pm.ReleasePage(newIndexPage); err != nil {
		return err
	}

	return t.insertIntoParent(ancestors, promotedKey, newIndexPage.ID())
}
