// Package driver is the capability-record registry spec.md §4.6
// describes: drivers are registered by a plain interface rather than
// a virtual base class, the idiomatic-Go realization of DESIGN NOTES
// §9's "inheritance -> capability records" guidance.
package driver

import (
	"errors"

	"github.com/ringkrnl/ringkrnl/internal/config"
)

// Driver is the capability record every device driver implements.
type Driver interface {
	Name() string
	ID() uint8
	IRQ() uint8
	Init() error
	Shutdown()
	HandleInterrupt()
}

var (
	// ErrRegistryFull is returned by Register when config.MaxDrivers
	// entries are already registered.
	ErrRegistryFull = errors.New("driver: registry full")

	// ErrDuplicateID is returned by Register for an ID already in use.
	ErrDuplicateID = errors.New("driver: duplicate id")

	// ErrNotFound is returned by Unregister/GetByIRQ when no matching
	// entry exists.
	ErrNotFound = errors.New("driver: not found")
)

// Registry is the fixed-capacity driver table spec.md §4.6 specifies,
// constructed once in kernel_main before interrupts are enabled
// (DESIGN NOTES §9's singleton driver manager).
type Registry struct {
	entries [config.MaxDrivers]Driver
	count   int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds d to the registry.
func (r *Registry) Register(d Driver) error {
	if r.count >= config.MaxDrivers {
		return ErrRegistryFull
	}
	for i := 0; i < r.count; i++ {
		if r.entries[i].ID() == d.ID() {
			return ErrDuplicateID
		}
	}
	r.entries[r.count] = d
	r.count++
	return nil
}

// Unregister removes the driver with the given ID, calling Shutdown
// on it first.
func (r *Registry) Unregister(id uint8) error {
	for i := 0; i < r.count; i++ {
		if r.entries[i].ID() == id {
			r.entries[i].Shutdown()
			copy(r.entries[i:r.count-1], r.entries[i+1:r.count])
			r.count--
			r.entries[r.count] = nil
			return nil
		}
	}
	return ErrNotFound
}

// GetByIRQ returns the driver owning irq, or ErrNotFound.
func (r *Registry) GetByIRQ(irq uint8) (Driver, error) {
	for i := 0; i < r.count; i++ {
		if r.entries[i].IRQ() == irq {
			return r.entries[i], nil
		}
	}
	return nil, ErrNotFound
}

// Count returns the number of registered drivers.
func (r *Registry) Count() int { return r.count }

// ShutdownAll calls Shutdown on every registered driver, in
// registration order, the orderly-teardown path spec.md §4.6
// requires.
func (r *Registry) ShutdownAll() {
	for i := 0; i < r.count; i++ {
		r.entries[i].Shutdown()
	}
}
