package mmtree

import "errors"

var (
	// ErrOversizeObject is returned when a single object cannot fit in
	// an otherwise-empty node even alone.
	ErrOversizeObject = errors.New("mmtree: object too large for an empty node")
)
