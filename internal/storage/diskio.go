package storage

import (
	"io"
	"log/slog"
	"os"
)

// Disk maps a logical page id to (segment, offset) within a FileSet and
// performs the raw, whole-page reads/writes. It knows nothing about node
// layouts, pinning, or caching — those belong to the buffer pool layer
// built on top of PageManager.
type Disk struct {
	pageSize int
}

func NewDisk(pageSize int) *Disk {
	if pageSize < MinPageSize {
		pageSize = DefaultPageSize
	}
	return &Disk{pageSize: pageSize}
}

func (d *Disk) PageSize() int { return d.pageSize }

func (d *Disk) pagesPerSegment() int64 {
	return SegmentSize / int64(d.pageSize)
}

func (d *Disk) locate(id uint32) (segNo int32, offset int64) {
	pps := d.pagesPerSegment()
	segNo = int32(int64(id) / pps)
	offset = (int64(id) % pps) * int64(d.pageSize)
	return segNo, offset
}

// ReadPage reads exactly PageSize bytes for id into dst, zero-filling any
// portion past the current end of file (a lazily-initialized page reads
// as all-zero).
func (d *Disk) ReadPage(fs FileSet, id uint32, dst []byte) error {
	if len(dst) != d.pageSize {
		return ErrBadPageBuffer
	}
	segNo, off := d.locate(id)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return err
	}
	defer closeLogged(f)

	n, err := f.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < d.pageSize; i++ {
		dst[i] = 0
	}
	return nil
}

// WritePage durably writes src (exactly PageSize bytes) at id's location.
func (d *Disk) WritePage(fs FileSet, id uint32, src []byte) error {
	if len(src) != d.pageSize {
		return ErrBadPageBuffer
	}
	segNo, off := d.locate(id)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return err
	}
	defer closeLogged(f)

	n, err := f.WriteAt(src, off)
	if err != nil {
		return err
	}
	if n != d.pageSize {
		return ErrShortPageWrite
	}
	return nil
}

// CountPages scans the segment files of fs in order, stopping at the
// first empty one, and returns the total number of whole pages before it;
// used to recover the next free page id when a store is reopened without
// a header-page bootstrap.
func (d *Disk) CountPages(fs FileSet) (uint32, error) {
	var total uint32
	for segNo := int32(0); ; segNo++ {
		f, err := fs.OpenSegment(segNo)
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			return 0, err
		}
		info, statErr := f.Stat()
		_ = f.Close()
		if statErr != nil {
			return 0, statErr
		}
		if info.Size() <= 0 {
			break
		}
		total += uint32(info.Size() / int64(d.pageSize))
	}
	return total, nil
}

func closeLogged(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Warn("storage: close segment file failed", "err", err)
	}
}
