package state

import (
	"github.com/jamcore/jamcore/codec"
	"github.com/jamcore/jamcore/types"
)

// Encode/Decode pairs for each component, used by the dictionary
// serializer (C4) to turn a State into its Merklized byte representation
// and back. Grounded on the teacher's per-type _rlp.go encode/decode pair
// idiom (core/types/*_rlp.go), adapted to the codec package's
// Scanner/Encoder cursor instead of RLP streams.

func writeHashSlice(e *codec.Encoder, hs []types.Hash) {
	e.WriteSequenceLen(len(hs))
	for _, h := range hs {
		e.WriteBytes(h[:])
	}
}

func readHashSlice(s *codec.Scanner) ([]types.Hash, error) {
	n, err := s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	out := make([]types.Hash, n)
	for i := 0; i < n; i++ {
		h, err := s.ReadHash()
		if err != nil {
			return nil, err
		}
		out[i] = types.Hash(h)
	}
	return out, nil
}

func writeValidatorKeys(e *codec.Encoder, v types.ValidatorKeys) {
	e.WriteBytes(v.Bandersnatch[:])
	e.WriteBytes(v.Ed25519[:])
	e.WriteBytes(v.Bls[:])
	e.WriteBytes(v.Metadata[:])
}

func readValidatorKeys(s *codec.Scanner) (types.ValidatorKeys, error) {
	var v types.ValidatorKeys
	b, err := s.ReadBytes(32)
	if err != nil {
		return v, err
	}
	copy(v.Bandersnatch[:], b)
	b, err = s.ReadBytes(32)
	if err != nil {
		return v, err
	}
	copy(v.Ed25519[:], b)
	b, err = s.ReadBytes(144)
	if err != nil {
		return v, err
	}
	copy(v.Bls[:], b)
	b, err = s.ReadBytes(128)
	if err != nil {
		return v, err
	}
	copy(v.Metadata[:], b)
	return v, nil
}

func writeValidatorSet(e *codec.Encoder, vs []types.ValidatorKeys) {
	e.WriteSequenceLen(len(vs))
	for _, v := range vs {
		writeValidatorKeys(e, v)
	}
}

func readValidatorSet(s *codec.Scanner) ([]types.ValidatorKeys, error) {
	n, err := s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	out := make([]types.ValidatorKeys, n)
	for i := 0; i < n; i++ {
		v, err := readValidatorKeys(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodeAuthPool encodes one core's authorization pool or queue (α/φ are
// both sequences of hashes, same wire shape).
func EncodeAuthPool(hs []types.Hash) []byte {
	e := codec.NewEncoder()
	writeHashSlice(e, hs)
	return e.Bytes()
}

func DecodeAuthPool(b []byte) ([]types.Hash, error) {
	return readHashSlice(codec.NewScanner(b))
}

// EncodeBeta encodes the full β recent-blocks sequence.
func EncodeBeta(entries []RecentBlockEntry) []byte {
	e := codec.NewEncoder()
	e.WriteSequenceLen(len(entries))
	for _, entry := range entries {
		e.WriteBytes(entry.HeaderHash[:])
		e.WriteBytes(entry.ParentStateRoot[:])
		writeHashSlice(e, entry.ReportedHashes)
		writeHashSlice(e, entry.AccumulateMMR)
	}
	return e.Bytes()
}

func DecodeBeta(b []byte) ([]RecentBlockEntry, error) {
	s := codec.NewScanner(b)
	n, err := s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	out := make([]RecentBlockEntry, n)
	for i := 0; i < n; i++ {
		headerHash, err := s.ReadHash()
		if err != nil {
			return nil, err
		}
		parentRoot, err := s.ReadHash()
		if err != nil {
			return nil, err
		}
		reported, err := readHashSlice(s)
		if err != nil {
			return nil, err
		}
		mmr, err := readHashSlice(s)
		if err != nil {
			return nil, err
		}
		out[i] = RecentBlockEntry{
			HeaderHash:      types.Hash(headerHash),
			ParentStateRoot: types.Hash(parentRoot),
			ReportedHashes:  reported,
			AccumulateMMR:   mmr,
		}
	}
	return out, nil
}

// EncodeGamma encodes the safrole component.
func EncodeGamma(g SafroleState) []byte {
	e := codec.NewEncoder()
	e.WriteBytes(g.RingCommitment[:])
	e.WriteSequenceLen(len(g.SealingKeys))
	for _, k := range g.SealingKeys {
		e.WriteBytes(k[:])
	}
	e.WriteSequenceLen(len(g.TicketAccumulator))
	for _, t := range g.TicketAccumulator {
		e.WriteBytes(t.Id[:])
		e.WriteByte(t.EntryIndex)
	}
	writeValidatorSet(e, g.NextValidators)
	return e.Bytes()
}

func DecodeGamma(b []byte) (SafroleState, error) {
	s := codec.NewScanner(b)
	var g SafroleState
	commitment, err := s.ReadHash()
	if err != nil {
		return g, err
	}
	g.RingCommitment = types.Hash(commitment)
	n, err := s.ReadSequenceLen()
	if err != nil {
		return g, err
	}
	g.SealingKeys = make([]types.BandersnatchKey, n)
	for i := 0; i < n; i++ {
		kb, err := s.ReadBytes(32)
		if err != nil {
			return g, err
		}
		copy(g.SealingKeys[i][:], kb)
	}
	n, err = s.ReadSequenceLen()
	if err != nil {
		return g, err
	}
	g.TicketAccumulator = make([]TicketBody, n)
	for i := 0; i < n; i++ {
		id, err := s.ReadHash()
		if err != nil {
			return g, err
		}
		idx, err := s.ReadByte()
		if err != nil {
			return g, err
		}
		g.TicketAccumulator[i] = TicketBody{Id: types.Hash(id), EntryIndex: idx}
	}
	g.NextValidators, err = readValidatorSet(s)
	if err != nil {
		return g, err
	}
	return g, nil
}

// EncodePsi encodes the disputes component.
func EncodePsi(d DisputesState) []byte {
	e := codec.NewEncoder()
	writeHashSet(e, d.Good)
	writeHashSet(e, d.Bad)
	writeHashSet(e, d.Wonky)
	e.WriteSequenceLen(len(d.Offenders))
	offenders := make([]types.Hash, 0, len(d.Offenders))
	for k := range d.Offenders {
		offenders = append(offenders, types.Hash(k))
	}
	sortHashes(offenders)
	for _, k := range offenders {
		e.WriteBytes(k[:])
	}
	return e.Bytes()
}

func writeHashSet(e *codec.Encoder, set map[types.Hash]struct{}) {
	e.WriteSequenceLen(len(set))
	hs := make([]types.Hash, 0, len(set))
	for h := range set {
		hs = append(hs, h)
	}
	sortHashes(hs)
	for _, h := range hs {
		e.WriteBytes(h[:])
	}
}

// sortHashes sorts in place using Hash.Less; insertion sort is adequate
// since dispute sets are bounded by validator count, never block-size.
func sortHashes(hs []types.Hash) {
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && hs[j].Less(hs[j-1]); j-- {
			hs[j], hs[j-1] = hs[j-1], hs[j]
		}
	}
}

func DecodePsi(b []byte) (DisputesState, error) {
	s := codec.NewScanner(b)
	d := NewDisputesState()
	good, err := readHashSliceInto(s, d.Good)
	if err != nil {
		return d, err
	}
	_ = good
	if _, err := readHashSliceInto(s, d.Bad); err != nil {
		return d, err
	}
	if _, err := readHashSliceInto(s, d.Wonky); err != nil {
		return d, err
	}
	n, err := s.ReadSequenceLen()
	if err != nil {
		return d, err
	}
	for i := 0; i < n; i++ {
		kb, err := s.ReadBytes(32)
		if err != nil {
			return d, err
		}
		var k types.Ed25519Key
		copy(k[:], kb)
		d.Offenders[k] = struct{}{}
	}
	return d, nil
}

func readHashSliceInto(s *codec.Scanner, into map[types.Hash]struct{}) (int, error) {
	n, err := s.ReadSequenceLen()
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		h, err := s.ReadHash()
		if err != nil {
			return 0, err
		}
		into[types.Hash(h)] = struct{}{}
	}
	return n, nil
}

// EncodeServiceAccount encodes one δ entry's header and data maps.
func EncodeServiceAccount(a *ServiceAccount) []byte {
	e := codec.NewEncoder()
	e.WriteBytes(a.CodeHash[:])
	e.WriteFixedU64(uint64(a.Balance))
	e.WriteFixedU64(uint64(a.MinGasAccumulate))
	e.WriteFixedU64(uint64(a.MinGasOnTransfer))
	e.WriteSequenceLen(len(a.Storage))
	keys := make([]types.Hash, 0, len(a.Storage))
	for k := range a.Storage {
		keys = append(keys, k)
	}
	sortHashes(keys)
	for _, k := range keys {
		e.WriteBytes(k[:])
		e.WriteBytesSeq(a.Storage[k])
	}
	e.WriteSequenceLen(len(a.Preimages))
	keys = keys[:0]
	for k := range a.Preimages {
		keys = append(keys, k)
	}
	sortHashes(keys)
	for _, k := range keys {
		e.WriteBytes(k[:])
		e.WriteBytesSeq(a.Preimages[k])
	}
	e.WriteSequenceLen(len(a.PreimageLookup))
	pks := make([]PreimageKey, 0, len(a.PreimageLookup))
	for k := range a.PreimageLookup {
		pks = append(pks, k)
	}
	sortPreimageKeys(pks)
	for _, k := range pks {
		e.WriteBytes(k.Hash[:])
		e.WriteFixedU32(k.Length)
		st := a.PreimageLookup[k]
		e.WriteOptionalTag(st.Available)
		if st.Available {
			e.WriteFixedU32(uint32(st.AvailableAt))
		}
	}
	return e.Bytes()
}

func sortPreimageKeys(pks []PreimageKey) {
	for i := 1; i < len(pks); i++ {
		for j := i; j > 0 && (pks[j].Hash.Less(pks[j-1].Hash) || (pks[j].Hash == pks[j-1].Hash && pks[j].Length < pks[j-1].Length)); j-- {
			pks[j], pks[j-1] = pks[j-1], pks[j]
		}
	}
}

func DecodeServiceAccount(b []byte) (*ServiceAccount, error) {
	s := codec.NewScanner(b)
	a := NewServiceAccount()
	codeHash, err := s.ReadHash()
	if err != nil {
		return nil, err
	}
	a.CodeHash = types.Hash(codeHash)
	bal, err := s.ReadFixedU64()
	if err != nil {
		return nil, err
	}
	a.Balance = types.Balance(bal)
	g1, err := s.ReadFixedU64()
	if err != nil {
		return nil, err
	}
	a.MinGasAccumulate = types.Gas(g1)
	g2, err := s.ReadFixedU64()
	if err != nil {
		return nil, err
	}
	a.MinGasOnTransfer = types.Gas(g2)

	n, err := s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		k, err := s.ReadHash()
		if err != nil {
			return nil, err
		}
		v, err := s.ReadBytesSeq()
		if err != nil {
			return nil, err
		}
		a.Storage[types.Hash(k)] = append([]byte(nil), v...)
	}

	n, err = s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		k, err := s.ReadHash()
		if err != nil {
			return nil, err
		}
		v, err := s.ReadBytesSeq()
		if err != nil {
			return nil, err
		}
		a.Preimages[types.Hash(k)] = append([]byte(nil), v...)
	}

	n, err = s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		h, err := s.ReadHash()
		if err != nil {
			return nil, err
		}
		length, err := s.ReadFixedU32()
		if err != nil {
			return nil, err
		}
		avail, err := s.ReadOptionalTag()
		if err != nil {
			return nil, err
		}
		var st PreimageLookupStatus
		st.Available = avail
		if avail {
			at, err := s.ReadFixedU32()
			if err != nil {
				return nil, err
			}
			st.AvailableAt = types.TimeSlot(at)
		}
		a.PreimageLookup[PreimageKey{Hash: types.Hash(h), Length: length}] = st
	}
	return a, nil
}

// EncodeChi encodes the privileges component.
func EncodeChi(c Privileges) []byte {
	e := codec.NewEncoder()
	e.WriteFixedU32(uint32(c.Manager))
	e.WriteFixedU32(uint32(c.Assign))
	e.WriteFixedU32(uint32(c.Designate))
	e.WriteSequenceLen(len(c.GasBudgets))
	ids := make([]types.ServiceId, 0, len(c.GasBudgets))
	for id := range c.GasBudgets {
		ids = append(ids, id)
	}
	sortServiceIds(ids)
	for _, id := range ids {
		e.WriteFixedU32(uint32(id))
		e.WriteFixedU64(uint64(c.GasBudgets[id]))
	}
	return e.Bytes()
}

func sortServiceIds(ids []types.ServiceId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func DecodeChi(b []byte) (Privileges, error) {
	s := codec.NewScanner(b)
	c := NewPrivileges()
	m, err := s.ReadFixedU32()
	if err != nil {
		return c, err
	}
	c.Manager = types.ServiceId(m)
	a, err := s.ReadFixedU32()
	if err != nil {
		return c, err
	}
	c.Assign = types.ServiceId(a)
	d, err := s.ReadFixedU32()
	if err != nil {
		return c, err
	}
	c.Designate = types.ServiceId(d)
	n, err := s.ReadSequenceLen()
	if err != nil {
		return c, err
	}
	for i := 0; i < n; i++ {
		id, err := s.ReadFixedU32()
		if err != nil {
			return c, err
		}
		g, err := s.ReadFixedU64()
		if err != nil {
			return c, err
		}
		c.GasBudgets[types.ServiceId(id)] = types.Gas(g)
	}
	return c, nil
}

// EncodePi encodes the statistics component.
func EncodePi(p Statistics) []byte {
	e := codec.NewEncoder()
	e.WriteSequenceLen(len(p.Validators))
	vidx := make([]types.ValidatorIndex, 0, len(p.Validators))
	for k := range p.Validators {
		vidx = append(vidx, k)
	}
	for i := 1; i < len(vidx); i++ {
		for j := i; j > 0 && vidx[j] < vidx[j-1]; j-- {
			vidx[j], vidx[j-1] = vidx[j-1], vidx[j]
		}
	}
	for _, idx := range vidx {
		st := p.Validators[idx]
		e.WriteFixedU16(uint16(idx))
		e.WriteFixedU64(st.BlocksProduced)
		e.WriteFixedU64(st.TicketsPublished)
	}
	e.WriteSequenceLen(len(p.Services))
	ids := make([]types.ServiceId, 0, len(p.Services))
	for id := range p.Services {
		ids = append(ids, id)
	}
	sortServiceIds(ids)
	for _, id := range ids {
		st := p.Services[id]
		e.WriteFixedU32(uint32(id))
		e.WriteFixedU64(st.PreimagesServed)
		e.WriteFixedU64(st.GasUsed)
		e.WriteFixedU64(st.AccumulateInvocations)
	}
	return e.Bytes()
}

func DecodePi(b []byte) (Statistics, error) {
	s := codec.NewScanner(b)
	p := NewStatistics()
	n, err := s.ReadSequenceLen()
	if err != nil {
		return p, err
	}
	for i := 0; i < n; i++ {
		idx, err := s.ReadFixedU16()
		if err != nil {
			return p, err
		}
		bp, err := s.ReadFixedU64()
		if err != nil {
			return p, err
		}
		tp, err := s.ReadFixedU64()
		if err != nil {
			return p, err
		}
		p.Validators[types.ValidatorIndex(idx)] = ValidatorStats{BlocksProduced: bp, TicketsPublished: tp}
	}
	n, err = s.ReadSequenceLen()
	if err != nil {
		return p, err
	}
	for i := 0; i < n; i++ {
		id, err := s.ReadFixedU32()
		if err != nil {
			return p, err
		}
		ps, err := s.ReadFixedU64()
		if err != nil {
			return p, err
		}
		gu, err := s.ReadFixedU64()
		if err != nil {
			return p, err
		}
		ai, err := s.ReadFixedU64()
		if err != nil {
			return p, err
		}
		p.Services[types.ServiceId(id)] = ServiceStats{PreimagesServed: ps, GasUsed: gu, AccumulateInvocations: ai}
	}
	return p, nil
}

// EncodeRho encodes one core's pending-report slot. A nil report encodes
// as the single absent-optional byte.
func EncodeRho(p *PendingReport) []byte {
	e := codec.NewEncoder()
	e.WriteOptionalTag(p != nil)
	if p == nil {
		return e.Bytes()
	}
	writeWorkReport(e, p.Report)
	e.WriteFixedU32(uint32(p.Timeout))
	e.WriteBytesSeq(p.Availability)
	return e.Bytes()
}

func DecodeRho(b []byte) (*PendingReport, error) {
	s := codec.NewScanner(b)
	present, err := s.ReadOptionalTag()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	r, err := readWorkReport(s)
	if err != nil {
		return nil, err
	}
	t, err := s.ReadFixedU32()
	if err != nil {
		return nil, err
	}
	avail, err := s.ReadBytesSeq()
	if err != nil {
		return nil, err
	}
	return &PendingReport{Report: r, Timeout: types.TimeSlot(t), Availability: Bitfield(append([]byte(nil), avail...))}, nil
}

func writeWorkReport(e *codec.Encoder, r WorkReport) {
	e.WriteBytes(r.PackageHash[:])
	e.WriteFixedU16(uint16(r.Core))
	e.WriteBytes(r.Authorizer[:])
	e.WriteBytes(r.AnchorBlock[:])
	e.WriteFixedU32(uint32(r.Slot))
	writeHashSlice(e, r.Prerequisites)
	e.WriteFixedU64(r.GasRatioNum)
	e.WriteFixedU64(r.GasRatioDen)
	e.WriteFixedU32(uint32(r.ServiceId))
	e.WriteBytesSeq(r.Output)
}

func readWorkReport(s *codec.Scanner) (WorkReport, error) {
	var r WorkReport
	pkg, err := s.ReadHash()
	if err != nil {
		return r, err
	}
	r.PackageHash = types.Hash(pkg)
	core, err := s.ReadFixedU16()
	if err != nil {
		return r, err
	}
	r.Core = types.CoreIndex(core)
	auth, err := s.ReadHash()
	if err != nil {
		return r, err
	}
	r.Authorizer = types.Hash(auth)
	anchor, err := s.ReadHash()
	if err != nil {
		return r, err
	}
	r.AnchorBlock = types.Hash(anchor)
	slot, err := s.ReadFixedU32()
	if err != nil {
		return r, err
	}
	r.Slot = types.TimeSlot(slot)
	r.Prerequisites, err = readHashSlice(s)
	if err != nil {
		return r, err
	}
	r.GasRatioNum, err = s.ReadFixedU64()
	if err != nil {
		return r, err
	}
	r.GasRatioDen, err = s.ReadFixedU64()
	if err != nil {
		return r, err
	}
	svc, err := s.ReadFixedU32()
	if err != nil {
		return r, err
	}
	r.ServiceId = types.ServiceId(svc)
	r.Output, err = s.ReadBytesSeq()
	if err != nil {
		return r, err
	}
	r.Output = append([]byte(nil), r.Output...)
	return r, nil
}

// EncodeTheta encodes one slot's worth of ready-to-accumulate reports.
func EncodeTheta(reports []WorkReport) []byte {
	e := codec.NewEncoder()
	e.WriteSequenceLen(len(reports))
	for _, r := range reports {
		writeWorkReport(e, r)
	}
	return e.Bytes()
}

func DecodeTheta(b []byte) ([]WorkReport, error) {
	s := codec.NewScanner(b)
	n, err := s.ReadSequenceLen()
	if err != nil {
		return nil, err
	}
	out := make([]WorkReport, n)
	for i := 0; i < n; i++ {
		r, err := readWorkReport(s)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// EncodeXiRing encodes one ring slot of ξ: a set of accumulated package
// hashes.
func EncodeXiRing(hs []types.Hash) []byte {
	e := codec.NewEncoder()
	cp := append([]types.Hash(nil), hs...)
	sortHashes(cp)
	writeHashSlice(e, cp)
	return e.Bytes()
}

func DecodeXiRing(b []byte) ([]types.Hash, error) {
	return readHashSlice(codec.NewScanner(b))
}
