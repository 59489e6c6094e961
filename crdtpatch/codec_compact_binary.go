package crdtpatch

import (
	"github.com/ugorji/go/codec"

	"jcrdt/common"
)

// EncodeCompactBinary is the compact-JSON structure (spec §4.6) carried as
// CBOR bytes instead of text — the same row shapes as EncodeCompactJSON,
// just a different outer transport.
func EncodeCompactBinary(p *Patch) ([]byte, error) {
	rows := []interface{}{[]interface{}{uint64(p.id.Sid), p.id.Time}}
	for _, op := range p.operations {
		row, err := compactRow(op)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	var out []byte
	if err := codec.NewEncoderBytes(&out, &cborHandle).Encode(rows); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeCompactBinary parses the CBOR-transported compact form back into a
// Patch.
func DecodeCompactBinary(data []byte) (*Patch, error) {
	var rows []interface{}
	if err := codec.NewDecoderBytes(data, &cborHandle).Decode(&rows); err != nil {
		return nil, common.ErrInvalidPayload{Message: "compact-binary: " + err.Error()}
	}
	if len(rows) == 0 {
		return nil, common.ErrInvalidPayload{Message: "compact-binary: missing header row"}
	}

	head, ok := rows[0].([]interface{})
	if !ok || len(head) != 2 {
		return nil, common.ErrInvalidPayload{Message: "compact-binary: malformed header"}
	}
	sidN, ok1 := toUint64(head[0])
	timeN, ok2 := toUint64(head[1])
	if !ok1 || !ok2 {
		return nil, common.ErrInvalidPayload{Message: "compact-binary: malformed header"}
	}
	sid := common.SessionID(sidN)
	running := timeN

	p := NewPatch(common.Ts{Sid: sid, Time: running})
	for _, raw := range rows[1:] {
		row, ok := raw.([]interface{})
		if !ok || len(row) == 0 {
			return nil, common.ErrInvalidPayload{Message: "compact-binary: malformed op row"}
		}
		opcodeN, ok := toUint64(row[0])
		if !ok {
			return nil, common.ErrInvalidPayload{Message: "compact-binary: opcode must be numeric"}
		}
		op, err := compactRowToOp(common.OpCode(opcodeN), common.Ts{Sid: sid, Time: running}, row)
		if err != nil {
			return nil, err
		}
		p.AddOperation(op)
		running += op.Span()
	}
	return p, nil
}
