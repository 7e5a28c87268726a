package storage

// PageManager is the contract the core depends on (spec §6.1). The core
// never touches file handles; every concrete implementation (buffer
// pools, caches, a plain pass-through to disk) lives outside this
// package and is treated as an external collaborator.
type PageManager interface {
	// NewPage returns a freshly allocated, zeroed page with a new id.
	NewPage() (*Page, error)

	// GetPage pins and returns the page with the given id. Concurrent
	// pins of the same id must observe the same underlying bytes.
	GetPage(id uint32) (*Page, error)

	// WritePage schedules the page's current bytes for durable storage.
	// It does not release the caller's pin.
	WritePage(p *Page) error

	// ReleasePage releases one pin obtained via NewPage or GetPage. If
	// the page is dirty, its bytes are written back before the pin is
	// dropped.
	ReleasePage(p *Page) error

	// DisposePage marks a page free and releases its id for reuse. The
	// caller must hold no other live pin on it.
	DisposePage(p *Page) error

	// HeaderPage returns the pinned, tree-wide metadata page. It is
	// pinned for the lifetime of the store and never appears in
	// PageSize()-sized allocation accounting.
	HeaderPage() *Page

	// WriteHeaderPage flushes the header page's current bytes.
	WriteHeaderPage() error

	// PageSize returns the constant page size for this store.
	PageSize() int

	// IsEmpty reports whether the store has no allocated pages besides
	// the header page.
	IsEmpty() bool

	// Close flushes outstanding dirty pages and releases resources.
	Close() error
}
