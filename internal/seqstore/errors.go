package seqstore

import "errors"

// ErrOversizeObject is returned when an object does not fit even in a
// freshly allocated, empty sequential page.
var ErrOversizeObject = errors.New("seqstore: object too large for an empty page")
