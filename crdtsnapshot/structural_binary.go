package crdtsnapshot

import (
	"encoding/binary"
	"hash/crc32"

	"jcrdt/common"
	"jcrdt/crdt"
	"jcrdt/varint"
)

// EncodeStructuralBinary serialises doc to the structural binary snapshot
// format (spec §6): a 4-byte big-endian offset, the op graph, the clock
// table, and a 4-byte tail. The offset locates the clock table by giving
// the op graph's length, since the graph's size varies with the document
// but the clock table always follows it directly.
func EncodeStructuralBinary(doc *crdt.Document) ([]byte, error) {
	m, err := capture(doc)
	if err != nil {
		return nil, err
	}

	opGraph, err := cborMarshal(m.Nodes)
	if err != nil {
		return nil, err
	}
	clockTable, err := marshalClockTable(m)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 4, 4+len(opGraph)+len(clockTable)+4)
	binary.BigEndian.PutUint32(out, uint32(len(opGraph)))
	out = append(out, opGraph...)
	out = append(out, clockTable...)

	tail := make([]byte, 4)
	binary.BigEndian.PutUint32(tail, crc32.ChecksumIEEE(out[4:]))
	out = append(out, tail...)
	return out, nil
}

// DecodeStructuralBinary parses the structural binary format back into a
// live Document.
func DecodeStructuralBinary(data []byte) (*crdt.Document, error) {
	if len(data) < 8 {
		return nil, common.ErrTruncatedPatchData{Message: "structural snapshot: header truncated"}
	}
	offset := binary.BigEndian.Uint32(data[:4])
	if int(offset) > len(data)-8 {
		return nil, common.ErrTruncatedPatchData{Message: "structural snapshot: offset runs past buffer"}
	}

	opGraph := data[4 : 4+offset]
	rest := data[4+offset:]
	clockTable := rest[:len(rest)-4]
	tail := rest[len(rest)-4:]

	if binary.BigEndian.Uint32(tail) != crc32.ChecksumIEEE(rest[:len(rest)-4]) {
		return nil, common.ErrInvalidPayload{Message: "structural snapshot: tail checksum mismatch"}
	}

	var nodes []nodeRecord
	if err := cborUnmarshal(opGraph, &nodes); err != nil {
		return nil, err
	}
	m, err := unmarshalClockTable(clockTable)
	if err != nil {
		return nil, err
	}
	m.Nodes = nodes
	return restore(m)
}

func marshalClockTable(m *model) ([]byte, error) {
	var buf []byte
	var err error
	for _, v := range []uint64{m.Sid, m.Clock, m.Root.Sid, m.Root.Time} {
		buf, err = varint.AppendVu57(buf, v)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func unmarshalClockTable(data []byte) (*model, error) {
	sid, n, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	clock, n, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	rootSid, n, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, err
	}
	data = data[n:]
	rootTime, _, err := varint.DecodeVu57(data)
	if err != nil {
		return nil, err
	}
	return &model{Sid: sid, Clock: clock, Root: tsRecord{Sid: rootSid, Time: rootTime}}, nil
}
