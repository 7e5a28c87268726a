package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSet abstracts the on-disk segment files backing one store, the way
// the teacher's storage.FileSet does for a relation's heap/index files.
type FileSet interface {
	OpenSegment(segNo int32) (*os.File, error)
}

var _ FileSet = (*LocalFileSet)(nil)

// LocalFileSet is a directory + base name; segments are named Base,
// Base.1, Base.2, ... as each fills up to SegmentSize.
type LocalFileSet struct {
	Dir  string
	Base string
}

func (lfs LocalFileSet) OpenSegment(segNo int32) (*os.File, error) {
	name := lfs.Base
	if segNo > 0 {
		name = fmt.Sprintf("%s.%d", lfs.Base, segNo)
	}
	if err := os.MkdirAll(lfs.Dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(lfs.Dir, name)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
}
