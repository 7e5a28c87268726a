package node

import "github.com/tuannm99/arboretum/internal/storage"

// View owns exactly one page pin obtained from a PageManager. Go has no
// destructors, so the "destructor-driven writeback" pattern of the
// original core becomes this explicit scoped-acquisition type: whoever
// calls Acquire takes ownership of the pin and must call Close exactly
// once on every control-flow exit, including error paths (spec §5, §9).
type View struct {
	pm      storage.PageManager
	page    *storage.Page
	dispose bool
	closed  bool
}

// Acquire wraps an already-pinned page, transferring ownership of that
// pin to the returned View.
func Acquire(pm storage.PageManager, page *storage.Page) *View {
	return &View{pm: pm, page: page}
}

func (v *View) Page() *storage.Page { return v.page }

// MarkDispose routes this pin to DisposePage instead of ReleasePage on
// Close — used once a page has been structurally removed (an emptied
// overflow node, a node merged away) within the operation that holds it.
func (v *View) MarkDispose() { v.dispose = true }

// Close disposes the pin if MarkDispose was called, without writing the
// page back; otherwise it writes the page back first if it is dirty and
// then releases the pin. Safe to call more than once; only the first call has
// any effect, so a deferred Close after an earlier explicit Close is a
// no-op rather than a double release.
func (v *View) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	if v.dispose {
		return v.pm.DisposePage(v.page)
	}
	if v.page.Dirty() {
		if err := v.pm.WritePage(v.page); err != nil {
			return err
		}
	}
	return v.pm.ReleasePage(v.page)
}
