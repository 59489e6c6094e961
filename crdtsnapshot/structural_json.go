package crdtsnapshot

import (
	"encoding/json"

	"jcrdt/common"
	"jcrdt/crdt"
)

// EncodeStructuralVerbose serialises doc to the structural verbose format:
// the same node graph as EncodeStructuralBinary, as named-field JSON rather
// than CBOR, for human-readable inspection and interop with text-oriented
// tooling.
func EncodeStructuralVerbose(doc *crdt.Document) ([]byte, error) {
	m, err := capture(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// DecodeStructuralVerbose parses the structural verbose JSON format back
// into a live Document.
func DecodeStructuralVerbose(data []byte) (*crdt.Document, error) {
	var m model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, common.ErrInvalidPayload{Message: "structural verbose: " + err.Error()}
	}
	return restore(&m)
}

// EncodeStructuralCompact serialises doc to the structural compact format:
// the same model as EncodeStructuralVerbose, carried as CBOR bytes instead
// of text — the compact-binary equivalent of the structural form, mirroring
// the compact/compact-binary split in the patch codecs.
func EncodeStructuralCompact(doc *crdt.Document) ([]byte, error) {
	m, err := capture(doc)
	if err != nil {
		return nil, err
	}
	return cborMarshal(m)
}

// DecodeStructuralCompact parses the structural compact (CBOR) format back
// into a live Document.
func DecodeStructuralCompact(data []byte) (*crdt.Document, error) {
	var m model
	if err := cborUnmarshal(data, &m); err != nil {
		return nil, err
	}
	return restore(&m)
}
