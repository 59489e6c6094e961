package crdtpatch

import (
	"github.com/ugorji/go/codec"

	"jcrdt/common"
	"jcrdt/varint"
)

var cborHandle codec.CborHandle

// EncodeBinary serialises a patch to the binary wire format (spec §4.5):
// header | clock_table | ops. A node's own id is never written explicitly
// — the decoder reconstructs it by walking the patch session's clock
// forward by each operation's span, so only cross-reference operands
// (container ids, anchors, value refs) spend bytes on relative-id
// encoding.
func EncodeBinary(p *Patch) ([]byte, error) {
	var buf []byte
	var err error

	if buf, err = varint.AppendVu57(buf, uint64(len(p.operations))); err != nil {
		return nil, err
	}
	if buf, err = varint.AppendVu57(buf, p.Span()); err != nil {
		return nil, err
	}

	table := p.ClockTable()
	if buf, err = varint.AppendVu57(buf, uint64(len(table))); err != nil {
		return nil, err
	}
	for _, entry := range table {
		if entry.Time > varint.MaxVu57 {
			return nil, common.ErrInvalidRelativeId{Message: "time exceeds 2^57-1"}
		}
		if buf, err = varint.AppendVu57(buf, uint64(entry.Sid)); err != nil {
			return nil, err
		}
		if buf, err = varint.AppendVu57(buf, entry.Time); err != nil {
			return nil, err
		}
	}

	running := p.id.Time
	for _, op := range p.operations {
		if op.ID() != (common.Ts{Sid: p.id.Sid, Time: running}) {
			return nil, common.ErrNonCanonicalPatch{Message: "operation ids do not follow the patch clock"}
		}
		running += op.Span()
		if buf, err = encodeOp(buf, op, table); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func relID(buf []byte, id common.Ts, table []common.Ts) ([]byte, error) {
	sessionIndex := -1
	var tableTime uint64
	for i, e := range table {
		if e.Sid == id.Sid {
			sessionIndex = i
			tableTime = e.Time
			break
		}
	}
	if sessionIndex < 0 {
		return nil, common.ErrInvalidRelativeId{Message: "session not present in clock table"}
	}
	if id.Time > tableTime {
		return nil, common.ErrInvalidRelativeId{Message: "time_diff underflow"}
	}
	timeDiff := tableTime - id.Time

	if sessionIndex <= 7 && timeDiff <= 15 {
		return append(buf, byte(sessionIndex<<4)|byte(timeDiff)), nil
	}
	buf, err := varint.AppendB1Vu56(buf, true, uint64(sessionIndex))
	if err != nil {
		return nil, err
	}
	return varint.AppendVu57(buf, timeDiff)
}

func decodeRelID(data []byte, table []common.Ts) (common.Ts, int, error) {
	if len(data) == 0 {
		return common.Ts{}, 0, common.ErrInvalidRelativeId{Message: "truncated relative id"}
	}
	var sessionIndex int
	var timeDiff uint64
	var consumed int

	if data[0]&0x80 == 0 {
		sessionIndex = int((data[0] >> 4) & 0x07)
		timeDiff = uint64(data[0] & 0x0f)
		consumed = 1
	} else {
		_, idx, n1, err := varint.DecodeB1Vu56(data)
		if err != nil {
			return common.Ts{}, 0, err
		}
		diff, n2, err := varint.DecodeVu57(data[n1:])
		if err != nil {
			return common.Ts{}, 0, err
		}
		sessionIndex = int(idx)
		timeDiff = diff
		consumed = n1 + n2
	}

	if sessionIndex >= len(table) {
		return common.Ts{}, 0, common.ErrInvalidRelativeId{Message: "session index out of range"}
	}
	entry := table[sessionIndex]
	if timeDiff > entry.Time {
		return common.Ts{}, 0, common.ErrInvalidRelativeId{Message: "time_diff underflow"}
	}
	return common.Ts{Sid: entry.Sid, Time: entry.Time - timeDiff}, consumed, nil
}

func encodeOp(buf []byte, op Operation, table []common.Ts) ([]byte, error) {
	var err error
	buf = append(buf, byte(op.Code()))

	switch o := op.(type) {
	case NewConOp:
		buf = append(buf, 0)
		var cb []byte
		if err := codec.NewEncoderBytes(&cb, &cborHandle).Encode(o.Value); err != nil {
			return nil, err
		}
		buf = append(buf, cb...)
	case NewConRefOp:
		buf = append(buf, 1)
		if buf, err = relID(buf, o.Ref, table); err != nil {
			return nil, err
		}
	case NewValOp, NewObjOp, NewVecOp, NewStrOp, NewBinOp, NewArrOp:
		// no payload
	case InsValOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = relID(buf, o.Ref, table); err != nil {
			return nil, err
		}
	case InsObjOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = varint.AppendVu57(buf, uint64(len(o.Entries))); err != nil {
			return nil, err
		}
		for _, e := range o.Entries {
			keyBytes := []byte(e.Key)
			if buf, err = varint.AppendVu57(buf, uint64(len(keyBytes))); err != nil {
				return nil, err
			}
			buf = append(buf, keyBytes...)
			if buf, err = relID(buf, e.Ref, table); err != nil {
				return nil, err
			}
		}
	case InsVecOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = varint.AppendVu57(buf, uint64(len(o.Entries))); err != nil {
			return nil, err
		}
		for _, e := range o.Entries {
			buf = append(buf, e.Index)
			if buf, err = relID(buf, e.Ref, table); err != nil {
				return nil, err
			}
		}
	case InsStrOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = relID(buf, o.After, table); err != nil {
			return nil, err
		}
		textBytes := []byte(o.Text)
		if buf, err = varint.AppendVu57(buf, uint64(len(textBytes))); err != nil {
			return nil, err
		}
		buf = append(buf, textBytes...)
	case InsBinOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = relID(buf, o.After, table); err != nil {
			return nil, err
		}
		if buf, err = varint.AppendVu57(buf, uint64(len(o.Data))); err != nil {
			return nil, err
		}
		buf = append(buf, o.Data...)
	case InsArrOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = relID(buf, o.After, table); err != nil {
			return nil, err
		}
		if buf, err = varint.AppendVu57(buf, uint64(len(o.Refs))); err != nil {
			return nil, err
		}
		for _, r := range o.Refs {
			if buf, err = relID(buf, r, table); err != nil {
				return nil, err
			}
		}
	case DelOp:
		if buf, err = relID(buf, o.Obj, table); err != nil {
			return nil, err
		}
		if buf, err = varint.AppendVu57(buf, uint64(len(o.Spans))); err != nil {
			return nil, err
		}
		for _, s := range o.Spans {
			if buf, err = relID(buf, common.Ts{Sid: s.Sid, Time: s.Time}, table); err != nil {
				return nil, err
			}
			if buf, err = varint.AppendVu57(buf, s.Span); err != nil {
				return nil, err
			}
		}
	case NopOp:
		if buf, err = varint.AppendVu57(buf, o.Len); err != nil {
			return nil, err
		}
	default:
		return nil, common.ErrInvalidOperation{Message: "unknown operation variant"}
	}
	return buf, nil
}

// DecodeBinary parses the binary wire format back into a Patch.
func DecodeBinary(data []byte) (*Patch, error) {
	opCount, n, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, common.ErrTruncatedPatchData{Message: "op_count: " + err.Error()}
	}
	data = data[n:]

	totalSpan, n, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, common.ErrTruncatedPatchData{Message: "span: " + err.Error()}
	}
	data = data[n:]

	tableLen, n, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, common.ErrInvalidClockTable{Message: err.Error()}
	}
	data = data[n:]
	if tableLen == 0 {
		return nil, common.ErrInvalidClockTable{Message: "clock table must have at least one entry"}
	}

	table := make([]common.Ts, tableLen)
	for i := range table {
		sid, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, common.ErrInvalidClockTable{Message: err.Error()}
		}
		data = data[n:]
		t, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, common.ErrInvalidClockTable{Message: err.Error()}
		}
		data = data[n:]
		table[i] = common.Ts{Sid: common.SessionID(sid), Time: t}
	}

	// Slot 0 of the clock table is always the patch's own session, recorded
	// at the maximum (i.e. last) time it produced. Every operation in a
	// patch shares that one session's clock, so the first operation's time
	// is recoverable from the declared total span without storing it
	// separately on the wire.
	patchSid := table[0].Sid
	if totalSpan == 0 || table[0].Time+1 < totalSpan {
		return nil, common.ErrInvalidClockTable{Message: "span exceeds own-session time"}
	}
	firstTime := table[0].Time - totalSpan + 1

	p := NewPatch(common.Ts{Sid: patchSid, Time: firstTime})
	running := firstTime

	for i := uint64(0); i < opCount; i++ {
		if len(data) == 0 {
			return nil, common.ErrTruncatedPatchData{Message: "missing opcode byte"}
		}
		code := common.OpCode(data[0])
		data = data[1:]
		op, rest, err := decodeOp(code, common.Ts{Sid: patchSid, Time: running}, data, table)
		if err != nil {
			return nil, err
		}
		data = rest
		p.AddOperation(op)
		running += op.Span()
	}
	return p, nil
}

func decodeOp(code common.OpCode, id common.Ts, data []byte, table []common.Ts) (Operation, []byte, error) {
	switch code {
	case common.OpNewCon:
		if len(data) == 0 {
			return nil, nil, common.ErrTruncatedPatchData{Message: "new_con flag"}
		}
		flag := data[0]
		data = data[1:]
		if flag == 1 {
			ref, n, err := decodeRelID(data, table)
			if err != nil {
				return nil, nil, err
			}
			return NewConRefOp{Op: id, Ref: ref}, data[n:], nil
		}
		var value interface{}
		dec := codec.NewDecoderBytes(data, &cborHandle)
		if err := dec.Decode(&value); err != nil {
			return nil, nil, common.ErrInvalidPayload{Message: "new_con cbor: " + err.Error()}
		}
		return NewConOp{Op: id, Value: value}, data[dec.NumBytesRead():], nil
	case common.OpNewVal:
		return NewValOp{Op: id}, data, nil
	case common.OpNewObj:
		return NewObjOp{Op: id}, data, nil
	case common.OpNewVec:
		return NewVecOp{Op: id}, data, nil
	case common.OpNewStr:
		return NewStrOp{Op: id}, data, nil
	case common.OpNewBin:
		return NewBinOp{Op: id}, data, nil
	case common.OpNewArr:
		return NewArrOp{Op: id}, data, nil
	case common.OpInsVal:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		ref, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		return InsValOp{Op: id, Obj: obj, Ref: ref}, data, nil
	case common.OpInsObj:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		count, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		entries := make([]ObjEntry, count)
		for i := range entries {
			keyLen, n, err := varint.DecodeVu57(data)
			if err != nil {
				return nil, nil, err
			}
			data = data[n:]
			if uint64(len(data)) < keyLen {
				return nil, nil, common.ErrTruncatedPatchData{Message: "ins_obj key"}
			}
			key := string(data[:keyLen])
			data = data[keyLen:]
			ref, n, err := decodeRelID(data, table)
			if err != nil {
				return nil, nil, err
			}
			data = data[n:]
			entries[i] = ObjEntry{Key: key, Ref: ref}
		}
		return InsObjOp{Op: id, Obj: obj, Entries: entries}, data, nil
	case common.OpInsVec:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		count, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		entries := make([]VecEntry, count)
		for i := range entries {
			if len(data) == 0 {
				return nil, nil, common.ErrTruncatedPatchData{Message: "ins_vec index"}
			}
			index := data[0]
			data = data[1:]
			ref, n, err := decodeRelID(data, table)
			if err != nil {
				return nil, nil, err
			}
			data = data[n:]
			entries[i] = VecEntry{Index: index, Ref: ref}
		}
		return InsVecOp{Op: id, Obj: obj, Entries: entries}, data, nil
	case common.OpInsStr:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		after, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		byteLen, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		if uint64(len(data)) < byteLen {
			return nil, nil, common.ErrTruncatedPatchData{Message: "ins_str text"}
		}
		text := string(data[:byteLen])
		data = data[byteLen:]
		return InsStrOp{Op: id, Obj: obj, After: after, Text: text}, data, nil
	case common.OpInsBin:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		after, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		byteLen, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		if uint64(len(data)) < byteLen {
			return nil, nil, common.ErrTruncatedPatchData{Message: "ins_bin data"}
		}
		payload := append([]byte{}, data[:byteLen]...)
		data = data[byteLen:]
		return InsBinOp{Op: id, Obj: obj, After: after, Data: payload}, data, nil
	case common.OpInsArr:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		after, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		count, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		refs := make([]common.Ts, count)
		for i := range refs {
			ref, n, err := decodeRelID(data, table)
			if err != nil {
				return nil, nil, err
			}
			data = data[n:]
			refs[i] = ref
		}
		return InsArrOp{Op: id, Obj: obj, After: after, Refs: refs}, data, nil
	case common.OpDel:
		obj, n, err := decodeRelID(data, table)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		count, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		spans := make([]common.Tss, count)
		for i := range spans {
			start, n, err := decodeRelID(data, table)
			if err != nil {
				return nil, nil, err
			}
			data = data[n:]
			span, n, err := varint.DecodeVu57(data)
			if err != nil {
				return nil, nil, err
			}
			data = data[n:]
			spans[i] = common.Tss{Sid: start.Sid, Time: start.Time, Span: span}
		}
		return DelOp{Op: id, Obj: obj, Spans: spans}, data, nil
	case common.OpNop:
		span, n, err := varint.DecodeVu57(data)
		if err != nil {
			return nil, nil, err
		}
		data = data[n:]
		return NopOp{Op: id, Len: span}, data, nil
	default:
		return nil, nil, common.ErrUnknownOpcode{Opcode: byte(code)}
	}
}
