package crdtsnapshot

import (
	"reflect"

	"jcrdt/common"
	"jcrdt/crdt"
)

// Sidecar holds the two independent byte streams the sidecar-binary format
// splits a snapshot into: View is the resolved JSON view, Meta is the full
// node graph (atom ids, tombstones, and LWW writer ids) needed to restore a
// mergeable model rather than a frozen JSON blob.
type Sidecar struct {
	View []byte
	Meta []byte
}

// EncodeSidecar serialises doc to the sidecar-binary format.
func EncodeSidecar(doc *crdt.Document) (*Sidecar, error) {
	view, err := doc.View()
	if err != nil {
		return nil, err
	}
	viewBytes, err := cborMarshal(view)
	if err != nil {
		return nil, err
	}

	m, err := capture(doc)
	if err != nil {
		return nil, err
	}
	metaBytes, err := cborMarshal(m)
	if err != nil {
		return nil, err
	}

	return &Sidecar{View: viewBytes, Meta: metaBytes}, nil
}

// DecodeSidecar rebuilds a Document from its two streams. The node graph is
// always restored from Meta; View is used only as a cross-check — a replica
// that persisted the two streams out of step (e.g. View written after a
// concurrent edit Meta doesn't reflect) is rejected rather than silently
// returning a model whose view disagrees with what was meant to be stored.
func DecodeSidecar(sc *Sidecar) (*crdt.Document, error) {
	var m model
	if err := cborUnmarshal(sc.Meta, &m); err != nil {
		return nil, err
	}
	doc, err := restore(&m)
	if err != nil {
		return nil, err
	}

	var wantView interface{}
	if err := cborUnmarshal(sc.View, &wantView); err != nil {
		return nil, err
	}
	gotView, err := doc.View()
	if err != nil {
		return nil, err
	}
	if !viewsEqual(gotView, wantView) {
		return nil, common.ErrInvalidSidecarPairing{
			Message: "view stream does not match the node graph recovered from the meta stream",
		}
	}
	return doc, nil
}

// viewsEqual compares two resolved views for equality, tolerating the
// numeric type drift CBOR round-trips introduce (a con value written as an
// int may come back as int64, uint64 or float64 depending on its
// magnitude) by normalising numbers to float64 before comparing.
func viewsEqual(a, b interface{}) bool {
	return reflect.DeepEqual(normalizeNumbers(a), normalizeNumbers(b))
}

func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = normalizeNumbers(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = normalizeNumbers(e)
		}
		return out
	default:
		return v
	}
}
