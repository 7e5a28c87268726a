// Package arboretum is the top-level facade over the disk-backed
// indexing engine in internal/*: opening a directory as a Store wires up
// the buffer pool, the sequential scanner, and a B-tree index together,
// the way the teacher's root package aliases and thinly wraps its
// internal/engine types rather than re-implementing them.
package arboretum

import (
	"github.com/tuannm99/arboretum/internal/btree"
	"github.com/tuannm99/arboretum/internal/bufferpool"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/mmtree"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/query"
	"github.com/tuannm99/arboretum/internal/result"
	"github.com/tuannm99/arboretum/internal/seqstore"
	"github.com/tuannm99/arboretum/internal/storage"
)

// Re-exported so callers need not import internal/* directly for the
// common path.
type (
	Object  = contract.Object
	Metric  = contract.Metric
	Result  = result.Result
	KeyCodec[K any] = node.KeyCodec[K]
)

// Store bundles the three access paths spec.md's components provide over
// one directory of Object values: a scanner for ground-truth queries, a
// B-tree for point/range lookups by key K, and an MM partition tree for
// approximate similarity search — all three backed by independent
// buffer pools over the same directory, since each keeps its own page
// numbering.
type Store[K any] struct {
	dir       string
	metric    contract.Metric
	newObject func() contract.Object

	scanPool *bufferpool.Pool
	idxPool  *bufferpool.Pool
	mmPool   *bufferpool.Pool

	Scanner *seqstore.Store
	Index   *btree.Tree[K]
	MM      *mmtree.Tree
}

// Open attaches a Store to dir, creating it on first use. base names the
// family of segment files (dir/base.seq.*, dir/base.idx.*, dir/base.mm.*);
// pageSize and capacity configure every underlying buffer pool identically.
func Open[K any](dir, base string, pageSize, capacity int, codec node.KeyCodec[K], newObject func() contract.Object, metric contract.Metric, allowDups bool) (*Store[K], error) {
	scanPool, err := bufferpool.Open(storage.LocalFileSet{Dir: dir, Base: base + ".seq"}, pageSize, capacity)
	if err != nil {
		return nil, err
	}
	idxPool, err := bufferpool.Open(storage.LocalFileSet{Dir: dir, Base: base + ".idx"}, pageSize, capacity)
	if err != nil {
		_ = scanPool.Close()
		return nil, err
	}
	mmPool, err := bufferpool.Open(storage.LocalFileSet{Dir: dir, Base: base + ".mm"}, pageSize, capacity)
	if err != nil {
		_ = scanPool.Close()
		_ = idxPool.Close()
		return nil, err
	}

	scanner, err := seqstore.Open(scanPool, newObject)
	if err != nil {
		_ = scanPool.Close()
		_ = idxPool.Close()
		_ = mmPool.Close()
		return nil, err
	}
	index, err := btree.Open(idxPool, codec, newObject, allowDups)
	if err != nil {
		_ = scanPool.Close()
		_ = idxPool.Close()
		_ = mmPool.Close()
		return nil, err
	}
	mm, err := mmtree.Open(mmPool, metric, newObject)
	if err != nil {
		_ = scanPool.Close()
		_ = idxPool.Close()
		_ = mmPool.Close()
		return nil, err
	}

	return &Store[K]{
		dir:       dir,
		metric:    metric,
		newObject: newObject,
		scanPool:  scanPool,
		idxPool:   idxPool,
		mmPool:    mmPool,
		Scanner:   scanner,
		Index:     index,
		MM:        mm,
	}, nil
}

// Close flushes and releases every buffer pool backing the store.
func (s *Store[K]) Close() error {
	var firstErr error
	for _, p := range []*bufferpool.Pool{s.scanPool, s.idxPool, s.mmPool} {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Insert adds obj to every access path at once: the scanner (by
// append), the B-tree (keyed by key), and the MM tree (by similarity).
func (s *Store[K]) Insert(key K, obj contract.Object) error {
	if err := s.Scanner.Insert(obj); err != nil {
		return err
	}
	if err := s.Index.Insert(key, obj); err != nil {
		return err
	}
	return s.MM.Insert(obj)
}

// Range delegates to the scanner, the ground truth every approximate
// result is checked against (spec §4.4, testable property 9).
func (s *Store[K]) Range(sample contract.Object, r float64) (*result.Result, error) {
	return query.Range(s.Scanner, s.metric, sample, r)
}

// KNN delegates to the scanner's brute-force kNN.
func (s *Store[K]) KNN(sample contract.Object, k int, tie, tiebreaker bool) (*result.Result, error) {
	return query.KNN(s.Scanner, s.metric, sample, k, tie, tiebreaker)
}

// ApproxKNN delegates to the MM partition tree's best-first search,
// which may diverge from Scanner-backed KNN on a still-unbalanced tree
// (spec §4.8 describes a skeleton, not a query-optimal metric tree).
func (s *Store[K]) ApproxKNN(sample contract.Object, k int) (*result.Result, error) {
	return s.MM.KNN(sample, k)
}
