package crdtpatch

import (
	"encoding/base64"
	"encoding/json"

	"jcrdt/common"
)

// idJSON is the compact-JSON identifier encoding: a bare number for the
// reserved system session (sid 0), otherwise a [sid, time] pair.
func idJSON(id common.Ts) interface{} {
	if id.Sid == 0 {
		return id.Time
	}
	return []interface{}{uint64(id.Sid), id.Time}
}

// toUint64 accepts the numeric shapes both encoding/json (float64) and
// ugorji/go/codec's CBOR decoder (uint64, int64, float64) may hand back
// for a decoded number, so idFromJSON serves both codec_json.go and
// codec_compact_binary.go.
func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case float64:
		return uint64(n), true
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}

func idFromJSON(v interface{}) (common.Ts, error) {
	switch t := v.(type) {
	case []interface{}:
		if len(t) != 2 {
			return common.Ts{}, common.ErrInvalidPayload{Message: "compact-json: malformed id"}
		}
		sid, ok1 := toUint64(t[0])
		tm, ok2 := toUint64(t[1])
		if !ok1 || !ok2 {
			return common.Ts{}, common.ErrInvalidPayload{Message: "compact-json: malformed id"}
		}
		return common.Ts{Sid: common.SessionID(sid), Time: tm}, nil
	default:
		if tm, ok := toUint64(v); ok {
			return common.Ts{Sid: 0, Time: tm}, nil
		}
		return common.Ts{}, common.ErrInvalidPayload{Message: "compact-json: unexpected id shape"}
	}
}

// EncodeCompactJSON serialises a patch as [[sid, time], op_row, ...], per
// spec: op rows lead with the numeric opcode followed by their operands.
// As with the binary codec, an operation's own id is never written — the
// decoder replays the patch session's clock forward by each op's span.
func EncodeCompactJSON(p *Patch) ([]byte, error) {
	rows := []interface{}{[]interface{}{uint64(p.id.Sid), p.id.Time}}
	for _, op := range p.operations {
		row, err := compactRow(op)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return json.Marshal(rows)
}

func compactRow(op Operation) ([]interface{}, error) {
	switch o := op.(type) {
	case NewConOp:
		return []interface{}{float64(common.OpNewCon), float64(0), o.Value}, nil
	case NewConRefOp:
		return []interface{}{float64(common.OpNewCon), float64(1), idJSON(o.Ref)}, nil
	case NewValOp:
		return []interface{}{float64(common.OpNewVal)}, nil
	case NewObjOp:
		return []interface{}{float64(common.OpNewObj)}, nil
	case NewVecOp:
		return []interface{}{float64(common.OpNewVec)}, nil
	case NewStrOp:
		return []interface{}{float64(common.OpNewStr)}, nil
	case NewBinOp:
		return []interface{}{float64(common.OpNewBin)}, nil
	case NewArrOp:
		return []interface{}{float64(common.OpNewArr)}, nil
	case InsValOp:
		return []interface{}{float64(common.OpInsVal), idJSON(o.Obj), idJSON(o.Ref)}, nil
	case InsObjOp:
		entries := make([]interface{}, len(o.Entries))
		for i, e := range o.Entries {
			entries[i] = []interface{}{e.Key, idJSON(e.Ref)}
		}
		return []interface{}{float64(common.OpInsObj), idJSON(o.Obj), entries}, nil
	case InsVecOp:
		entries := make([]interface{}, len(o.Entries))
		for i, e := range o.Entries {
			entries[i] = []interface{}{float64(e.Index), idJSON(e.Ref)}
		}
		return []interface{}{float64(common.OpInsVec), idJSON(o.Obj), entries}, nil
	case InsStrOp:
		return []interface{}{float64(common.OpInsStr), idJSON(o.Obj), idJSON(o.After), o.Text}, nil
	case InsBinOp:
		return []interface{}{float64(common.OpInsBin), idJSON(o.Obj), idJSON(o.After), base64.StdEncoding.EncodeToString(o.Data)}, nil
	case InsArrOp:
		refs := make([]interface{}, len(o.Refs))
		for i, r := range o.Refs {
			refs[i] = idJSON(r)
		}
		return []interface{}{float64(common.OpInsArr), idJSON(o.Obj), idJSON(o.After), refs}, nil
	case DelOp:
		spans := make([]interface{}, len(o.Spans))
		for i, s := range o.Spans {
			spans[i] = []interface{}{idJSON(common.Ts{Sid: s.Sid, Time: s.Time}), s.Span}
		}
		return []interface{}{float64(common.OpDel), idJSON(o.Obj), spans}, nil
	case NopOp:
		return []interface{}{float64(common.OpNop), o.Len}, nil
	default:
		return nil, common.ErrInvalidOperation{Message: "unknown operation variant"}
	}
}

// DecodeCompactJSON parses the compact-JSON wire format back into a Patch.
func DecodeCompactJSON(data []byte) (*Patch, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, common.ErrInvalidPayload{Message: "compact-json: " + err.Error()}
	}
	if len(rows) == 0 {
		return nil, common.ErrInvalidPayload{Message: "compact-json: missing header row"}
	}

	var head []uint64
	if err := json.Unmarshal(rows[0], &head); err != nil || len(head) != 2 {
		return nil, common.ErrInvalidPayload{Message: "compact-json: malformed header"}
	}
	sid := common.SessionID(head[0])
	running := head[1]

	p := NewPatch(common.Ts{Sid: sid, Time: running})
	for _, raw := range rows[1:] {
		var untyped []interface{}
		if err := json.Unmarshal(raw, &untyped); err != nil || len(untyped) == 0 {
			return nil, common.ErrInvalidPayload{Message: "compact-json: malformed op row"}
		}
		opcodeN, ok := toUint64(untyped[0])
		if !ok {
			return nil, common.ErrInvalidPayload{Message: "compact-json: opcode must be numeric"}
		}
		op, err := compactRowToOp(common.OpCode(opcodeN), common.Ts{Sid: sid, Time: running}, untyped)
		if err != nil {
			return nil, err
		}
		p.AddOperation(op)
		running += op.Span()
	}
	return p, nil
}

func compactRowToOp(code common.OpCode, id common.Ts, row []interface{}) (Operation, error) {
	switch code {
	case common.OpNewCon:
		kind, _ := toUint64(row[1])
		if kind == 1 {
			ref, err := idFromJSON(row[2])
			if err != nil {
				return nil, err
			}
			return NewConRefOp{Op: id, Ref: ref}, nil
		}
		return NewConOp{Op: id, Value: row[2]}, nil
	case common.OpNewVal:
		return NewValOp{Op: id}, nil
	case common.OpNewObj:
		return NewObjOp{Op: id}, nil
	case common.OpNewVec:
		return NewVecOp{Op: id}, nil
	case common.OpNewStr:
		return NewStrOp{Op: id}, nil
	case common.OpNewBin:
		return NewBinOp{Op: id}, nil
	case common.OpNewArr:
		return NewArrOp{Op: id}, nil
	case common.OpInsVal:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		ref, err := idFromJSON(row[2])
		if err != nil {
			return nil, err
		}
		return InsValOp{Op: id, Obj: obj, Ref: ref}, nil
	case common.OpInsObj:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		rawEntries, ok := row[2].([]interface{})
		if !ok {
			return nil, common.ErrInvalidPayload{Message: "ins_obj: malformed entries"}
		}
		entries := make([]ObjEntry, len(rawEntries))
		for i, re := range rawEntries {
			pair, ok := re.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, common.ErrInvalidPayload{Message: "ins_obj: malformed entry"}
			}
			key, _ := pair[0].(string)
			ref, err := idFromJSON(pair[1])
			if err != nil {
				return nil, err
			}
			entries[i] = ObjEntry{Key: key, Ref: ref}
		}
		return InsObjOp{Op: id, Obj: obj, Entries: entries}, nil
	case common.OpInsVec:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		rawEntries, ok := row[2].([]interface{})
		if !ok {
			return nil, common.ErrInvalidPayload{Message: "ins_vec: malformed entries"}
		}
		entries := make([]VecEntry, len(rawEntries))
		for i, re := range rawEntries {
			pair, ok := re.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, common.ErrInvalidPayload{Message: "ins_vec: malformed entry"}
			}
			idx, _ := toUint64(pair[0])
			if idx > 255 {
				return nil, common.ErrIndexOutOfRange{Index: int(idx)}
			}
			ref, err := idFromJSON(pair[1])
			if err != nil {
				return nil, err
			}
			entries[i] = VecEntry{Index: uint8(idx), Ref: ref}
		}
		return InsVecOp{Op: id, Obj: obj, Entries: entries}, nil
	case common.OpInsStr:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		after, err := idFromJSON(row[2])
		if err != nil {
			return nil, err
		}
		text, _ := row[3].(string)
		return InsStrOp{Op: id, Obj: obj, After: after, Text: text}, nil
	case common.OpInsBin:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		after, err := idFromJSON(row[2])
		if err != nil {
			return nil, err
		}
		encoded, _ := row[3].(string)
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, common.ErrInvalidPayload{Message: "ins_bin: " + err.Error()}
		}
		return InsBinOp{Op: id, Obj: obj, After: after, Data: decoded}, nil
	case common.OpInsArr:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		after, err := idFromJSON(row[2])
		if err != nil {
			return nil, err
		}
		rawRefs, ok := row[3].([]interface{})
		if !ok {
			return nil, common.ErrInvalidPayload{Message: "ins_arr: malformed refs"}
		}
		refs := make([]common.Ts, len(rawRefs))
		for i, rr := range rawRefs {
			ref, err := idFromJSON(rr)
			if err != nil {
				return nil, err
			}
			refs[i] = ref
		}
		return InsArrOp{Op: id, Obj: obj, After: after, Refs: refs}, nil
	case common.OpDel:
		obj, err := idFromJSON(row[1])
		if err != nil {
			return nil, err
		}
		rawSpans, ok := row[2].([]interface{})
		if !ok {
			return nil, common.ErrInvalidPayload{Message: "del: malformed spans"}
		}
		spans := make([]common.Tss, len(rawSpans))
		for i, rs := range rawSpans {
			pair, ok := rs.([]interface{})
			if !ok || len(pair) != 2 {
				return nil, common.ErrInvalidPayload{Message: "del: malformed span"}
			}
			start, err := idFromJSON(pair[0])
			if err != nil {
				return nil, err
			}
			span, _ := toUint64(pair[1])
			spans[i] = common.Tss{Sid: start.Sid, Time: start.Time, Span: span}
		}
		return DelOp{Op: id, Obj: obj, Spans: spans}, nil
	case common.OpNop:
		span, _ := toUint64(row[1])
		return NopOp{Op: id, Len: span}, nil
	default:
		return nil, common.ErrUnknownOpcode{Opcode: byte(code)}
	}
}
