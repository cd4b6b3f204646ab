package pvm

import "github.com/jamcore/jamcore/state"

// TransferContext is the host-call environment for an on-transfer
// invocation: the receiving service's PVM program runs with a narrower
// host-call surface than accumulation (no `new`, no further `transfer`,
// no governance calls), per spec.md §4.5's on-transfer host-call subset.
type TransferContext struct {
	*Context
	Overlay *state.Overlay
}

// NewTransferDispatch builds the host-call table for one on-transfer
// invocation.
func NewTransferDispatch(tc *TransferContext) map[uint32]HostCallFunc {
	return map[uint32]HostCallFunc{
		HostGasRemaining: func(c *Context) Result { return hostGasRemaining(&AccumulateContext{Context: c, Overlay: tc.Overlay}, c) },
		HostRead:         func(c *Context) Result { return hostRead(&AccumulateContext{Context: c, Overlay: tc.Overlay}, c) },
		HostWrite:        func(c *Context) Result { return hostWrite(&AccumulateContext{Context: c, Overlay: tc.Overlay}, c) },
		HostInfo:         func(c *Context) Result { return hostInfo(&AccumulateContext{Context: c, Overlay: tc.Overlay}, c) },
	}
}
