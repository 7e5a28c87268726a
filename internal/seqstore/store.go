// Package seqstore implements the sequential scanner ("dummy tree") of
// spec §4.4: a singly-linked chain of pages, each holding as many
// serialized objects as fit, with no ordering at all. It is the ground
// truth the query package's brute-force algorithms validate metric-tree
// results against, and the simplest possible persistent object store.
package seqstore

import (
	"github.com/tuannm99/arboretum/internal/bx"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/storage"
)

const offHeadPageID = 0

// Store is a sequential chain of storage.Page-backed nodes, head pointer
// kept in the header page. Insert always tries the current head first;
// once it reports NodeFull, a fresh page becomes the new head and links
// to the previous one — O(1) amortized per insert (spec §4.4).
type Store struct {
	pm        storage.PageManager
	newObject func() contract.Object
}

// Open attaches a Store to pm, allocating an empty head page if the
// store has no pages yet.
func Open(pm storage.PageManager, newObject func() contract.Object) (*Store, error) {
	s := &Store{pm: pm, newObject: newObject}
	if pm.IsEmpty() {
		head, err := pm.NewPage()
		if err != nil {
			return nil, err
		}
		node.NewSequentialNode(head)
		if err := pm.ReleasePage(head); err != nil {
			return nil, err
		}
		s.setHeadPageID(head.ID())
		if err := pm.WriteHeaderPage(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) headPageID() uint32 {
	return bx.U32At(s.pm.HeaderPage().Bytes(), offHeadPageID)
}

func (s *Store) setHeadPageID(id uint32) {
	bx.PutU32At(s.pm.HeaderPage().Bytes(), offHeadPageID, id)
	s.pm.HeaderPage().MarkDirty()
}

// Insert appends obj to the chain, allocating a new head page if the
// current one is full.
func (s *Store) Insert(obj contract.Object) error {
	serialized := obj.Serialize()

	headID := s.headPageID()
	headPage, err := s.pm.GetPage(headID)
	if err != nil {
		return err
	}
	head, err := node.OpenSequentialNode(headPage)
	if err != nil {
		_ = s.pm.ReleasePage(headPage)
		return err
	}

	if head.Append(serialized) == node.InsertSuccess {
		return s.pm.ReleasePage(headPage)
	}

	newHeadPage, err := s.pm.NewPage()
	if err != nil {
		_ = s.pm.ReleasePage(headPage)
		return err
	}
	newHead := node.NewSequentialNode(newHeadPage)
	if newHead.Append(serialized) != node.InsertSuccess {
		_ = s.pm.DisposePage(newHeadPage)
		_ = s.pm.ReleasePage(headPage)
		return ErrOversizeObject
	}
	newHead.SetNextPageID(headID)
	s.setHeadPageID(newHeadPage.ID())
	if err := s.pm.WriteHeaderPage(); err != nil {
		_ = s.pm.ReleasePage(headPage)
		_ = s.pm.ReleasePage(newHeadPage)
		return err
	}
	if err := s.pm.ReleasePage(newHeadPage); err != nil {
		_ = s.pm.ReleasePage(headPage)
		return err
	}
	return s.pm.ReleasePage(headPage)
}

// Walk invokes visit for every stored object in chain order (head page
// first, the most recently filled pages before the oldest), stopping
// early if visit returns false. It is the shared traversal every query
// in the query package is built from.
func (s *Store) Walk(visit func(contract.Object) bool) error {
	id := s.headPageID()
	for id != storage.NoPage {
		page, err := s.pm.GetPage(id)
		if err != nil {
			return err
		}
		n, err := node.OpenSequentialNode(page)
		if err != nil {
			_ = s.pm.ReleasePage(page)
			return err
		}
		next := n.NextPageID()
		count := n.NumEntries()
		cont := true
		for i := 0; i < count && cont; i++ {
			obj := s.newObject()
			obj.Deserialize(n.ObjectAt(i))
			cont = visit(obj)
		}
		if err := s.pm.ReleasePage(page); err != nil {
			return err
		}
		if !cont {
			return nil
		}
		id = next
	}
	return nil
}
