package crdtpatch

import (
	"encoding/base64"
	"encoding/json"

	"jcrdt/common"
)

// EncodeVerboseJSON renders a patch as a human-readable array of objects,
// one per operation, named by opcode (spec §4.6). Like the compact and
// binary codecs, operation ids are never written explicitly — replay
// reconstructs them from the patch header and each op's span.
func EncodeVerboseJSON(p *Patch) ([]byte, error) {
	out := map[string]interface{}{
		"sid":  uint64(p.id.Sid),
		"time": p.id.Time,
		"ops":  make([]map[string]interface{}, 0, len(p.operations)),
	}
	ops := out["ops"].([]map[string]interface{})
	for _, op := range p.operations {
		row, err := verboseRow(op)
		if err != nil {
			return nil, err
		}
		ops = append(ops, row)
	}
	out["ops"] = ops
	return json.Marshal(out)
}

func verboseRow(op Operation) (map[string]interface{}, error) {
	switch o := op.(type) {
	case NewConOp:
		return map[string]interface{}{"op": "new_con", "value": o.Value}, nil
	case NewConRefOp:
		return map[string]interface{}{"op": "new_con", "what": idJSON(o.Ref)}, nil
	case NewValOp:
		return map[string]interface{}{"op": "new_val"}, nil
	case NewObjOp:
		return map[string]interface{}{"op": "new_obj"}, nil
	case NewVecOp:
		return map[string]interface{}{"op": "new_vec"}, nil
	case NewStrOp:
		return map[string]interface{}{"op": "new_str"}, nil
	case NewBinOp:
		return map[string]interface{}{"op": "new_bin"}, nil
	case NewArrOp:
		return map[string]interface{}{"op": "new_arr"}, nil
	case InsValOp:
		return map[string]interface{}{"op": "ins_val", "obj": idJSON(o.Obj), "value": idJSON(o.Ref)}, nil
	case InsObjOp:
		what := make([]interface{}, len(o.Entries))
		for i, e := range o.Entries {
			what[i] = map[string]interface{}{"key": e.Key, "value": idJSON(e.Ref)}
		}
		return map[string]interface{}{"op": "ins_obj", "obj": idJSON(o.Obj), "what": what}, nil
	case InsVecOp:
		what := make([]interface{}, len(o.Entries))
		for i, e := range o.Entries {
			what[i] = map[string]interface{}{"index": e.Index, "value": idJSON(e.Ref)}
		}
		return map[string]interface{}{"op": "ins_vec", "obj": idJSON(o.Obj), "what": what}, nil
	case InsStrOp:
		return map[string]interface{}{"op": "ins_str", "obj": idJSON(o.Obj), "after": idJSON(o.After), "value": o.Text}, nil
	case InsBinOp:
		return map[string]interface{}{"op": "ins_bin", "obj": idJSON(o.Obj), "after": idJSON(o.After), "value": base64.StdEncoding.EncodeToString(o.Data)}, nil
	case InsArrOp:
		refs := make([]interface{}, len(o.Refs))
		for i, r := range o.Refs {
			refs[i] = idJSON(r)
		}
		return map[string]interface{}{"op": "ins_arr", "obj": idJSON(o.Obj), "after": idJSON(o.After), "what": refs}, nil
	case DelOp:
		what := make([]interface{}, len(o.Spans))
		for i, s := range o.Spans {
			what[i] = map[string]interface{}{"id": idJSON(common.Ts{Sid: s.Sid, Time: s.Time}), "len": s.Span}
		}
		return map[string]interface{}{"op": "del", "obj": idJSON(o.Obj), "what": what}, nil
	case NopOp:
		return map[string]interface{}{"op": "nop", "len": o.Len}, nil
	default:
		return nil, common.ErrInvalidOperation{Message: "unknown operation variant"}
	}
}

// DecodeVerboseJSON parses the verbose-JSON wire format back into a Patch.
func DecodeVerboseJSON(data []byte) (*Patch, error) {
	var doc struct {
		Sid  common.SessionID  `json:"sid"`
		Time uint64            `json:"time"`
		Ops  []json.RawMessage `json:"ops"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, common.ErrInvalidPayload{Message: "verbose-json: " + err.Error()}
	}

	p := NewPatch(common.Ts{Sid: doc.Sid, Time: doc.Time})
	running := doc.Time
	for _, raw := range doc.Ops {
		var row map[string]interface{}
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, common.ErrInvalidPayload{Message: "verbose-json: malformed op"}
		}
		name, _ := row["op"].(string)
		code, ok := common.OpCodeByName(name)
		if !ok {
			return nil, common.ErrInvalidOperation{Message: "verbose-json: unknown op name " + name}
		}
		op, err := verboseRowToOp(code, common.Ts{Sid: doc.Sid, Time: running}, row)
		if err != nil {
			return nil, err
		}
		p.AddOperation(op)
		running += op.Span()
	}
	return p, nil
}

func verboseID(v interface{}) (common.Ts, error) {
	if v == nil {
		return common.Ts{}, common.ErrInvalidPayload{Message: "verbose-json: missing id"}
	}
	return idFromJSON(v)
}

func verboseRowToOp(code common.OpCode, id common.Ts, row map[string]interface{}) (Operation, error) {
	switch code {
	case common.OpNewCon:
		if ref, ok := row["what"]; ok {
			r, err := verboseID(ref)
			if err != nil {
				return nil, err
			}
			return NewConRefOp{Op: id, Ref: r}, nil
		}
		return NewConOp{Op: id, Value: row["value"]}, nil
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
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		ref, err := verboseID(row["value"])
		if err != nil {
			return nil, err
		}
		return InsValOp{Op: id, Obj: obj, Ref: ref}, nil
	case common.OpInsObj:
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		rawWhat, _ := row["what"].([]interface{})
		entries := make([]ObjEntry, len(rawWhat))
		for i, w := range rawWhat {
			m, _ := w.(map[string]interface{})
			key, _ := m["key"].(string)
			ref, err := verboseID(m["value"])
			if err != nil {
				return nil, err
			}
			entries[i] = ObjEntry{Key: key, Ref: ref}
		}
		return InsObjOp{Op: id, Obj: obj, Entries: entries}, nil
	case common.OpInsVec:
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		rawWhat, _ := row["what"].([]interface{})
		entries := make([]VecEntry, len(rawWhat))
		for i, w := range rawWhat {
			m, _ := w.(map[string]interface{})
			idx, _ := m["index"].(float64)
			if idx < 0 || idx > 255 {
				return nil, common.ErrIndexOutOfRange{Index: int(idx)}
			}
			ref, err := verboseID(m["value"])
			if err != nil {
				return nil, err
			}
			entries[i] = VecEntry{Index: uint8(idx), Ref: ref}
		}
		return InsVecOp{Op: id, Obj: obj, Entries: entries}, nil
	case common.OpInsStr:
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		after, err := verboseID(row["after"])
		if err != nil {
			return nil, err
		}
		text, _ := row["value"].(string)
		return InsStrOp{Op: id, Obj: obj, After: after, Text: text}, nil
	case common.OpInsBin:
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		after, err := verboseID(row["after"])
		if err != nil {
			return nil, err
		}
		encoded, _ := row["value"].(string)
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, common.ErrInvalidPayload{Message: "ins_bin: " + err.Error()}
		}
		return InsBinOp{Op: id, Obj: obj, After: after, Data: data}, nil
	case common.OpInsArr:
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		after, err := verboseID(row["after"])
		if err != nil {
			return nil, err
		}
		rawWhat, _ := row["what"].([]interface{})
		refs := make([]common.Ts, len(rawWhat))
		for i, w := range rawWhat {
			ref, err := verboseID(w)
			if err != nil {
				return nil, err
			}
			refs[i] = ref
		}
		return InsArrOp{Op: id, Obj: obj, After: after, Refs: refs}, nil
	case common.OpDel:
		obj, err := verboseID(row["obj"])
		if err != nil {
			return nil, err
		}
		rawWhat, _ := row["what"].([]interface{})
		spans := make([]common.Tss, len(rawWhat))
		for i, w := range rawWhat {
			m, _ := w.(map[string]interface{})
			start, err := verboseID(m["id"])
			if err != nil {
				return nil, err
			}
			length, _ := m["len"].(float64)
			spans[i] = common.Tss{Sid: start.Sid, Time: start.Time, Span: uint64(length)}
		}
		return DelOp{Op: id, Obj: obj, Spans: spans}, nil
	case common.OpNop:
		length, _ := row["len"].(float64)
		return NopOp{Op: id, Len: uint64(length)}, nil
	default:
		return nil, common.ErrUnknownOpcode{Opcode: byte(code)}
	}
}
