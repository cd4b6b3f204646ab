package pvm

import (
	"github.com/jamcore/jamcore/config"
	"github.com/jamcore/jamcore/crypto"
	"github.com/jamcore/jamcore/state"
	"github.com/jamcore/jamcore/types"
)

// Host call numbers the accumulation stage's dispatch table recognises
// (spec.md §4.5). Numbers not listed here are free for future host calls
// and fall through to ResultWhat.
const (
	HostGasRemaining uint32 = iota
	HostFetch
	HostLookup
	HostRead
	HostWrite
	HostInfo
	HostNew
	HostTransfer
	HostYield
	HostBless
	HostAssign
	HostDesignate
	HostCheckpoint
	HostEject
	HostQuery
	HostSolicit
	HostForget
)

// AccumulateContext extends Context with the service-overlay access the
// accumulation host calls need: an Overlay to read/mutate δ, the invoking
// service, and the chain Config. None of the host calls here read Cfg; the
// service-id search span is the constant serviceIdSearchSpan.
type AccumulateContext struct {
	*Context
	Overlay *state.Overlay
	Cfg     *config.Config

	YieldedRoot *types.Hash // set by HostYield, consumed by the accumulation stage

	// Transfers accumulates balance moves hostTransfer has debited from the
	// caller but not yet credited to their destination; the accumulation
	// stage applies each one via a separate on-transfer PVM invocation
	// after this invocation completes without panicking.
	Transfers []DeferredTransfer
}

// DeferredTransfer is one balance move hostTransfer queued. The sender's
// balance is already debited by the time this is recorded (DeductBalance
// runs at call time); the destination is credited only when the
// accumulation stage later runs its on-transfer invocation.
type DeferredTransfer struct {
	From   types.ServiceId
	To     types.ServiceId
	Amount types.Balance
	Gas    types.Gas
}

// NewAccumulateDispatch builds the host-call table for one accumulation
// invocation. Calls with well-defined, deterministic semantics in
// spec.md's accumulate host-call list (gas, fetch, lookup, read, write,
// info, new, transfer, yield) are wired to real behaviour; the privileged
// governance calls (bless/assign/designate/checkpoint/eject/query/solicit/
// forget) are registered but return WHAT unconditionally — see DESIGN.md's
// "unimplemented accumulation host calls" decision.
func NewAccumulateDispatch(ac *AccumulateContext) map[uint32]HostCallFunc {
	return map[uint32]HostCallFunc{
		HostGasRemaining: func(c *Context) Result { return hostGasRemaining(ac, c) },
		HostFetch:        func(c *Context) Result { return hostFetch(ac, c) },
		HostLookup:       func(c *Context) Result { return hostLookup(ac, c) },
		HostRead:         func(c *Context) Result { return hostRead(ac, c) },
		HostWrite:        func(c *Context) Result { return hostWrite(ac, c) },
		HostInfo:         func(c *Context) Result { return hostInfo(ac, c) },
		HostNew:          func(c *Context) Result { return hostNew(ac, c) },
		HostTransfer:     func(c *Context) Result { return hostTransfer(ac, c) },
		HostYield:        func(c *Context) Result { return hostYield(ac, c) },
		HostBless:        stubWhat,
		HostAssign:       stubWhat,
		HostDesignate:    stubWhat,
		HostCheckpoint:   stubWhat,
		HostEject:        stubWhat,
		HostQuery:        stubWhat,
		HostSolicit:      stubWhat,
		HostForget:       stubWhat,
	}
}

func stubWhat(*Context) Result { return ResultWhat }

// hostGasRemaining writes the caller's remaining gas into register 0.
func hostGasRemaining(ac *AccumulateContext, c *Context) Result {
	c.Regs[0] = c.Gas.Uint64()
	return ResultOK
}

// hostFetch reads a 32-byte hash from memory at the address in Regs[0] and
// copies the invoking service's preimage with that hash into memory at the
// address in Regs[1], setting Regs[0] to its length. It returns WHO if the
// invoking service is missing and NONE if it holds no such preimage.
func hostFetch(ac *AccumulateContext, c *Context) Result {
	hashBytes, err := c.Mem.ReadAt(uint32(c.Regs[0]), 32)
	if err != nil {
		return ResultOOB
	}
	var h types.Hash
	copy(h[:], hashBytes)

	acc, ok := ac.Overlay.Service(c.ServiceId)
	if !ok {
		return ResultWho
	}
	preimage, ok := acc.Preimages[h]
	if !ok {
		return ResultNone
	}
	if err := c.Mem.WriteAt(uint32(c.Regs[1]), preimage); err != nil {
		return ResultOOB
	}
	c.Regs[0] = uint64(len(preimage))
	return ResultOK
}

// hostLookup reports whether a preimage is available, and if so the slot
// it became available at, for (service, hash, length) named by Regs[0]
// (service id), a hash at the address in Regs[1], and Regs[2] (length).
func hostLookup(ac *AccumulateContext, c *Context) Result {
	svc := types.ServiceId(c.Regs[0])
	hashBytes, err := c.Mem.ReadAt(uint32(c.Regs[1]), 32)
	if err != nil {
		return ResultOOB
	}
	var h types.Hash
	copy(h[:], hashBytes)
	length := uint32(c.Regs[2])

	acc, ok := ac.Overlay.Service(svc)
	if !ok {
		return ResultWho
	}
	st, ok := acc.PreimageLookup[state.PreimageKey{Hash: h, Length: length}]
	if !ok || !st.Available {
		return ResultNone
	}
	c.Regs[0] = uint64(st.AvailableAt)
	return ResultOK
}

// hostRead copies the invoking service's storage cell named by the hash at
// Regs[0] into the memory address at Regs[1].
func hostRead(ac *AccumulateContext, c *Context) Result {
	keyBytes, err := c.Mem.ReadAt(uint32(c.Regs[0]), 32)
	if err != nil {
		return ResultOOB
	}
	var key types.Hash
	copy(key[:], keyBytes)

	acc, ok := ac.Overlay.Service(c.ServiceId)
	if !ok {
		return ResultWho
	}
	v, ok := acc.Storage[key]
	if !ok {
		return ResultNone
	}
	if err := c.Mem.WriteAt(uint32(c.Regs[1]), v); err != nil {
		return ResultOOB
	}
	c.Regs[0] = uint64(len(v))
	return ResultOK
}

// hostWrite stores a value (length in Regs[2]) read from the memory
// address at Regs[1] under the storage key at Regs[0].
func hostWrite(ac *AccumulateContext, c *Context) Result {
	keyBytes, err := c.Mem.ReadAt(uint32(c.Regs[0]), 32)
	if err != nil {
		return ResultOOB
	}
	var key types.Hash
	copy(key[:], keyBytes)

	length := int(c.Regs[2])
	value, err := c.Mem.ReadAt(uint32(c.Regs[1]), length)
	if err != nil {
		return ResultOOB
	}

	acc := ac.Overlay.MutService(c.ServiceId)
	acc.Storage[key] = append([]byte(nil), value...)
	return ResultOK
}

// hostInfo writes the invoking service's balance and code hash into the
// memory address given in Regs[0].
func hostInfo(ac *AccumulateContext, c *Context) Result {
	acc, ok := ac.Overlay.Service(c.ServiceId)
	if !ok {
		return ResultWho
	}
	buf := make([]byte, 40)
	copy(buf[0:32], acc.CodeHash[:])
	bal := acc.Balance
	for i := 0; i < 8; i++ {
		buf[32+i] = byte(bal >> (8 * uint(i)))
	}
	if err := c.Mem.WriteAt(uint32(c.Regs[0]), buf); err != nil {
		return ResultOOB
	}
	return ResultOK
}

// serviceIdSearchSpan bounds the deterministic collision-avoidance walk
// hostNew performs when minting a fresh service id.
const serviceIdSearchSpan = 0x100000000 - 2*0x100

// hostNew creates a new service owned by the invoking accumulation, funded
// by a balance transfer of Regs[1] from the caller, with code hash read
// from the 32 bytes at Regs[0]. The new id is written to Regs[0] on
// success. A zero code hash is not a recoverable argument error: it would
// hand the rest of the codebase a service indistinguishable from one that
// deliberately carries no code (the accumulation stage's bookkeeping-only
// convention), so the invocation traps instead of returning a soft result.
func hostNew(ac *AccumulateContext, c *Context) Result {
	codeHashBytes, err := c.Mem.ReadAt(uint32(c.Regs[0]), 32)
	if err != nil {
		return ResultOOB
	}
	var codeHash types.Hash
	copy(codeHash[:], codeHashBytes)
	if codeHash == (types.Hash{}) {
		c.exit = &Outcome{Reason: ExitHostTrap}
		return ResultHuh
	}
	balance := types.Balance(c.Regs[1])

	caller := ac.Overlay.MutService(c.ServiceId)
	if !caller.DeductBalance(balance) {
		return ResultCash
	}

	id := nextServiceId(ac, c.ServiceId, codeHash)
	newAcc := state.NewServiceAccount()
	newAcc.CodeHash = codeHash
	newAcc.Balance = balance
	ac.Overlay.MutService(id)
	*ac.Overlay.MutService(id) = *newAcc

	c.Regs[0] = uint64(id)
	return ResultOK
}

// nextServiceId derives a candidate id deterministically from the seed
// (caller id and code hash) via BLAKE2b-256, then walks forward linearly
// until an unused id in [0x100, 2^32-0x100) is found (spec.md §8 testable
// property 7: ids never collide and always land in that reserved range).
func nextServiceId(ac *AccumulateContext, caller types.ServiceId, codeHash types.Hash) types.ServiceId {
	seed := crypto.Blake2b256([]byte{byte(caller), byte(caller >> 8), byte(caller >> 16), byte(caller >> 24)}, codeHash[:])
	start := uint32(seed[0]) | uint32(seed[1])<<8 | uint32(seed[2])<<16 | uint32(seed[3])<<24
	start = 0x100 + start%serviceIdSearchSpan
	for i := uint32(0); i < serviceIdSearchSpan; i++ {
		candidate := types.ServiceId(0x100 + (start-0x100+i)%serviceIdSearchSpan)
		if _, ok := ac.Overlay.Service(candidate); !ok {
			return candidate
		}
	}
	// Exhausting the entire id space is unreachable under any realistic
	// service count; returning the seed start keeps nextServiceId total.
	return types.ServiceId(start)
}

// hostTransfer debits the amount in Regs[1] from the invoking service's
// balance and queues a credit to the service named in Regs[0]. Regs[2] is
// the gas grant for the destination's on-transfer invocation; it must be at
// least the destination's MinGasOnTransfer, else the call returns LOW.
// The destination is not credited here: the accumulation stage
// applies the queued transfer by running the destination's code at the
// on-transfer entry point once this invocation finishes cleanly.
func hostTransfer(ac *AccumulateContext, c *Context) Result {
	dest := types.ServiceId(c.Regs[0])
	amount := types.Balance(c.Regs[1])
	gasGrant := types.Gas(c.Regs[2])

	if dest == c.ServiceId {
		return ResultHuh
	}
	destAcc, ok := ac.Overlay.Service(dest)
	if !ok {
		return ResultWho
	}
	if gasGrant < destAcc.MinGasOnTransfer {
		return ResultLow
	}
	caller := ac.Overlay.MutService(c.ServiceId)
	if !caller.DeductBalance(amount) {
		return ResultCash
	}
	ac.Transfers = append(ac.Transfers, DeferredTransfer{From: c.ServiceId, To: dest, Amount: amount, Gas: gasGrant})
	return ResultOK
}

// hostYield accepts a 32-byte accumulation root from the memory address in
// Regs[0] and records it for the accumulation stage to fold into the
// service's posted result; it performs no further state mutation (see
// DESIGN.md's "yield is a no-op accepting the hash" decision).
func hostYield(ac *AccumulateContext, c *Context) Result {
	b, err := c.Mem.ReadAt(uint32(c.Regs[0]), 32)
	if err != nil {
		return ResultOOB
	}
	var h types.Hash
	copy(h[:], b)
	ac.YieldedRoot = &h
	return ResultOK
}
