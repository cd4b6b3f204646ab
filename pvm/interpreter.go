package pvm

import (
	"github.com/holiman/uint256"
	"github.com/jamcore/jamcore/pvmcodec"
	"github.com/jamcore/jamcore/types"
)

// Reserved opcodes outside the general instruction space: HALT terminates
// cleanly, ECALL traps to a host call named by its one immediate operand.
// The remaining opcode space's arithmetic/control-flow semantics are an
// external contract the STF does not interpret (spec.md §1 scopes only the
// host-call interface, not the full instruction set); Run treats any other
// opcode as a gas-charged, state-preserving step so that host-call-driven
// programs — the only programs the STF stages actually execute — run to
// completion deterministically.
const (
	OpcodeHalt  byte = 0x00
	OpcodeECall byte = 0x01
)

// HostCallFunc implements one numbered host call against ctx.
type HostCallFunc func(ctx *Context) Result

// Context is the mutable state one PVM invocation runs against: its
// registers, memory, gas meter, and the service-facing data the host calls
// read and write. Grounded on the teacher's EVM CallContext/ScopeContext
// split (core/vm/contract.go), collapsed into one struct since the PVM has
// no nested call stack distinct from host calls.
type Context struct {
	Regs   [13]uint64
	PC     uint32
	Mem    *Memory
	Gas    *uint256.Int
	HostCalls map[uint32]HostCallFunc

	// ServiceId is the invoking service; host calls consult it to scope
	// storage/preimage access.
	ServiceId types.ServiceId

	LastResult Result
	exit       *Outcome
}

// ErrorKind classifies why Run stopped without completing host-call-driven
// execution, used by callers that need to distinguish a deliberate halt
// from a resource-exhaustion failure.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	ErrorOutOfGas
	ErrorPanic
)

// Charge deducts amount from the gas meter, reporting false (and leaving
// the meter unchanged) if insufficient gas remains. Arithmetic runs through
// uint256 so a pathological gas-ratio computation elsewhere in the
// accumulation stage can never wrap a native uint64 into an apparent
// surplus.
func (c *Context) Charge(amount uint64) bool {
	cost := uint256.NewInt(amount)
	if c.Gas.Cmp(cost) < 0 {
		return false
	}
	c.Gas.Sub(c.Gas, cost)
	return true
}

// genericInstructionCost is the flat per-step charge for any opcode whose
// arithmetic semantics are outside the STF's scope; it only needs to be
// nonzero and deterministic so that Run always terminates on a gas budget.
const genericInstructionCost = 1

// Run executes ctx's program starting at its current PC to completion: a
// HALT, an out-of-gas condition, a decode failure (treated as a panic, per
// spec.md's PVM fault semantics), or a host call that traps via ctx.exit
// because its arguments can't be serviced at all. ECALL dispatches inline
// to the matching entry in ctx.HostCalls and the loop resumes at the next
// instruction; an unrecognised host call index leaves WHAT in LastResult
// rather than stopping the program.
func Run(ctx *Context, program []byte) Outcome {
	used := uint64(0)
	for {
		if int(ctx.PC) >= len(program) {
			return Outcome{Reason: ExitHalt, GasUsed: used}
		}
		dec, err := pvmcodec.Decode(program[ctx.PC:])
		if err != nil {
			return Outcome{Reason: ExitPanic, GasUsed: used}
		}
		opcode := dec.Opcode

		if opcode == OpcodeHalt {
			return Outcome{Reason: ExitHalt, GasUsed: used}
		}

		if opcode == OpcodeECall {
			ctx.PC += uint32(dec.NoOfBytesToSkip)
			idx := uint32(dec.Args.Imm[0])
			fn, ok := ctx.HostCalls[idx]
			if !ok {
				ctx.LastResult = ResultWhat
				continue
			}
			if !ctx.Charge(genericInstructionCost) {
				return Outcome{Reason: ExitOutOfGas, GasUsed: used}
			}
			used += genericInstructionCost
			ctx.LastResult = fn(ctx)
			if ctx.exit != nil {
				out := *ctx.exit
				out.GasUsed = used
				return out
			}
			continue
		}

		if !ctx.Charge(genericInstructionCost) {
			return Outcome{Reason: ExitOutOfGas, GasUsed: used}
		}
		used += genericInstructionCost
		ctx.PC += uint32(dec.NoOfBytesToSkip)
	}
}
