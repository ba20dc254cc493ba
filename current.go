package relmap

import (
	"sync/atomic"

	"github.com/syssam/relmap/compiler/load"
)

var (
	current        atomic.Pointer[Configuration]
	defaultFactory atomic.Pointer[func() *Configuration]
)

func init() {
	ResetDefault()
}

// Current returns the process-wide configuration. On first use, or after
// ResetCurrent, it is created by the function registered with SetDefault.
// Until SetDefault is called the default configuration has no types.
func Current() *Configuration {
	if c := current.Load(); c != nil {
		return c
	}
	// Configurations are lazy, a losing candidate is dropped unbuilt.
	current.CompareAndSwap(nil, (*defaultFactory.Load())())
	return current.Load()
}

// SetCurrent replaces the process-wide configuration. Passing nil is the
// same as ResetCurrent.
func SetCurrent(c *Configuration) {
	current.Store(c)
}

// ResetCurrent drops the process-wide configuration. The next call to
// Current creates a new one.
func ResetCurrent() {
	current.Store(nil)
}

// SetDefault registers the function creating the process-wide
// configuration. It does not replace a configuration already in use.
func SetDefault(fn func() *Configuration) {
	defaultFactory.Store(&fn)
}

// ResetDefault restores the default configuration factory.
func ResetDefault() {
	SetDefault(func() *Configuration { return New(load.Types()) })
}
