package printing

import (
	"context"
	"log"
	"os"
	"sync"
)

// Registry holds the live set of printers fetched from the backend.
// Each successful load replaces the snapshot wholesale; a failed load
// keeps the previous snapshot so printing stays attemptable while the
// directory listing is briefly stale.
type Registry struct {
	backend Backend
	logger  *log.Logger

	mu       sync.RWMutex
	printers []Printer
}

// NewRegistry creates a registry over the given backend.
func NewRegistry(backend Backend) *Registry {
	logger := log.New(os.Stdout, "[REGISTRY] ", log.LstdFlags|log.Lmsgprefix)
	return NewRegistryWithLogger(backend, logger)
}

// NewRegistryWithLogger creates a registry with a custom logger.
func NewRegistryWithLogger(backend Backend, logger *log.Logger) *Registry {
	return &Registry{backend: backend, logger: logger}
}

// LoadPrinters refreshes the snapshot, optionally filtered by class,
// and returns the current set. A transport failure is logged and the
// prior snapshot is returned unchanged; the caller never sees the
// error.
func (r *Registry) LoadPrinters(ctx context.Context, class Class) []Printer {
	printers, err := r.backend.ListPrinters(ctx, class)
	if err != nil {
		r.logger.Printf("Failed to load printers, keeping previous snapshot: %v", err)
		return r.Printers()
	}

	r.mu.Lock()
	r.printers = printers
	r.mu.Unlock()

	r.logger.Printf("Loaded %d printers", len(printers))
	return r.Printers()
}

// Printers returns a copy of the current snapshot.
func (r *Registry) Printers() []Printer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Printer(nil), r.printers...)
}

// Default returns the printer flagged as default, or the first one
// when no explicit default is configured.
func (r *Registry) Default() (Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.printers {
		if p.IsDefault {
			return p, true
		}
	}
	if len(r.printers) > 0 {
		return r.printers[0], true
	}
	return Printer{}, false
}

// Get returns the printer with the given id.
func (r *Registry) Get(id string) (Printer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.printers {
		if p.ID == id {
			return p, true
		}
	}
	return Printer{}, false
}
