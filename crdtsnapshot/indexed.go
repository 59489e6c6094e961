package crdtsnapshot

import (
	"fmt"
	"sort"

	"jcrdt/common"
	"jcrdt/crdt"
)

// indexedMetaKey names the reserved field carrying document-wide state
// (session id, clock, root target) inside an indexed-binary field map. It
// can never collide with a node's text-form id, which is always numeric.
const indexedMetaKey = "$meta"

type indexedMeta struct {
	Sid   uint64   `codec:"sid"`
	Clock uint64   `codec:"clock"`
	Root  tsRecord `codec:"root"`
}

// EncodeIndexedBinary serialises doc to the indexed-binary snapshot format:
// a field map keyed by each node id's text form, one CBOR-encoded record
// per field — suitable for sparse storage backends that update individual
// nodes without rewriting the whole document.
func EncodeIndexedBinary(doc *crdt.Document) ([]byte, error) {
	m, err := capture(doc)
	if err != nil {
		return nil, err
	}

	fields := make(map[string][]byte, len(m.Nodes)+1)
	for _, rec := range m.Nodes {
		b, err := cborMarshal(rec)
		if err != nil {
			return nil, err
		}
		fields[fieldKey(rec.ID)] = b
	}
	metaBytes, err := cborMarshal(indexedMeta{Sid: m.Sid, Clock: m.Clock, Root: m.Root})
	if err != nil {
		return nil, err
	}
	fields[indexedMetaKey] = metaBytes

	return cborMarshal(fields)
}

// DecodeIndexedBinary parses the indexed-binary field map back into a live
// Document.
func DecodeIndexedBinary(data []byte) (*crdt.Document, error) {
	var fields map[string][]byte
	if err := cborUnmarshal(data, &fields); err != nil {
		return nil, err
	}

	metaBytes, ok := fields[indexedMetaKey]
	if !ok {
		return nil, common.ErrMissingSnapshotField{Field: indexedMetaKey}
	}
	var meta indexedMeta
	if err := cborUnmarshal(metaBytes, &meta); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields)-1)
	for k := range fields {
		if k != indexedMetaKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	nodes := make([]nodeRecord, 0, len(keys))
	for _, k := range keys {
		var rec nodeRecord
		if err := cborUnmarshal(fields[k], &rec); err != nil {
			return nil, err
		}
		nodes = append(nodes, rec)
	}

	m := &model{Sid: meta.Sid, Clock: meta.Clock, Root: meta.Root, Nodes: nodes}
	return restore(m)
}

func fieldKey(id tsRecord) string {
	return fmt.Sprintf("%d.%d", id.Sid, id.Time)
}
