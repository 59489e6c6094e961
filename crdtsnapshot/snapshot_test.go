package crdtsnapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdt"
	"jcrdt/crdtdiff"
	"jcrdt/crdtpatch"
)

// buildFullShapeDocument exercises every node kind the snapshot codecs must
// handle, including a vector tuple and a string with a tombstoned run —
// shapes buildSampleDocument's JSON diff path never produces on its own.
func buildFullShapeDocument(t *testing.T) *crdt.Document {
	t.Helper()
	sid := common.SessionID(78001)
	doc := crdt.NewDocument(sid)
	b := crdtpatch.NewPatchBuilder(sid, doc.NextTime(0).Time)

	vec := b.NewVec()
	c1 := b.NewCon("x")
	c2 := b.NewCon("y")
	b.InsVec(vec, []crdtpatch.VecEntry{{Index: 0, Ref: c1}, {Index: 1, Ref: c2}})

	str := b.NewStr()
	start := b.InsStr(str, str, "hello")
	mid := start.Tick(1) // the 'e' atom
	b.Del(str, []common.Tss{{Sid: mid.Sid, Time: mid.Time, Span: 1}})

	bin := b.NewBin()
	b.InsBin(bin, bin, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	root := b.NewObj()
	b.InsObj(root, []crdtpatch.ObjEntry{
		{Key: "vec", Ref: vec},
		{Key: "str", Ref: str},
		{Key: "bin", Ref: bin},
	})
	b.InsVal(common.Origin, root)

	p := b.Build()
	require.NoError(t, p.Apply(doc))
	doc.Observe(sid, p.ID().Time, p.Span())
	return doc
}

// buildSampleDocument produces a document with an object whose string key is
// rewritten and a nested array with a deleted element, so its node graph
// carries a tombstoned RGA atom and more than one LWW writer — the fidelity
// a snapshot roundtrip must preserve.
func buildSampleDocument(t *testing.T) *crdt.Document {
	t.Helper()
	doc := crdt.NewDocument(78001)

	apply := func(target interface{}) {
		p, err := crdtdiff.Diff(doc, target)
		require.NoError(t, err)
		if p != nil {
			require.NoError(t, p.Apply(doc))
		}
	}

	apply(map[string]interface{}{
		"title": "hello",
		"tags":  []interface{}{"a", "b", "c"},
	})
	apply(map[string]interface{}{
		"title": "hello world",
		"tags":  []interface{}{"a", "c"},
	})
	return doc
}

func assertRoundTrips(t *testing.T, original *crdt.Document, restored *crdt.Document, err error) {
	t.Helper()
	require.NoError(t, err)

	wantView, err := original.View()
	require.NoError(t, err)
	gotView, err := restored.View()
	require.NoError(t, err)
	assert.Equal(t, wantView, gotView)

	assert.Equal(t, original.SessionID(), restored.SessionID())
	assert.Equal(t, original.Clock(), restored.Clock())
	assert.Equal(t, original.Len(), restored.Len())
}

func TestStructuralBinaryRoundTrip(t *testing.T) {
	doc := buildSampleDocument(t)
	data, err := EncodeStructuralBinary(doc)
	require.NoError(t, err)

	restored, err := DecodeStructuralBinary(data)
	assertRoundTrips(t, doc, restored, err)
}

func TestStructuralBinaryRejectsTruncatedHeader(t *testing.T) {
	_, err := DecodeStructuralBinary([]byte{0x00, 0x00})
	assert.Error(t, err)
}

func TestStructuralBinaryRejectsCorruptedTail(t *testing.T) {
	doc := buildSampleDocument(t)
	data, err := EncodeStructuralBinary(doc)
	require.NoError(t, err)

	data[len(data)-1] ^= 0xff
	_, err = DecodeStructuralBinary(data)
	assert.Error(t, err)
}

func TestStructuralVerboseRoundTrip(t *testing.T) {
	doc := buildSampleDocument(t)
	data, err := EncodeStructuralVerbose(doc)
	require.NoError(t, err)

	restored, err := DecodeStructuralVerbose(data)
	assertRoundTrips(t, doc, restored, err)
}

func TestStructuralCompactRoundTrip(t *testing.T) {
	doc := buildSampleDocument(t)
	data, err := EncodeStructuralCompact(doc)
	require.NoError(t, err)

	restored, err := DecodeStructuralCompact(data)
	assertRoundTrips(t, doc, restored, err)
}

func TestIndexedBinaryRoundTrip(t *testing.T) {
	doc := buildSampleDocument(t)
	data, err := EncodeIndexedBinary(doc)
	require.NoError(t, err)

	restored, err := DecodeIndexedBinary(data)
	assertRoundTrips(t, doc, restored, err)
}

func TestIndexedBinaryRejectsMissingMeta(t *testing.T) {
	data, err := cborMarshal(map[string][]byte{"1.2": {0x01}})
	require.NoError(t, err)

	_, err = DecodeIndexedBinary(data)
	assert.Error(t, err)
}

func TestSidecarRoundTrip(t *testing.T) {
	doc := buildSampleDocument(t)
	sc, err := EncodeSidecar(doc)
	require.NoError(t, err)

	restored, err := DecodeSidecar(sc)
	assertRoundTrips(t, doc, restored, err)
}

func TestSidecarRejectsMismatchedStreams(t *testing.T) {
	docA := buildSampleDocument(t)
	scA, err := EncodeSidecar(docA)
	require.NoError(t, err)

	docB := crdt.NewDocument(78002)
	p, err := crdtdiff.Diff(docB, map[string]interface{}{"title": "unrelated"})
	require.NoError(t, err)
	require.NoError(t, p.Apply(docB))
	scB, err := EncodeSidecar(docB)
	require.NoError(t, err)

	mismatched := &Sidecar{View: scB.View, Meta: scA.Meta}
	_, err = DecodeSidecar(mismatched)
	assert.Error(t, err)
}

func TestFullShapeDocumentRoundTripsThroughEveryCodec(t *testing.T) {
	doc := buildFullShapeDocument(t)
	want, err := doc.View()
	require.NoError(t, err)
	require.Equal(t, map[string]interface{}{
		"vec": []interface{}{"x", "y"},
		"str": "hllo",
		"bin": []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}, want)

	structBin, err := EncodeStructuralBinary(doc)
	require.NoError(t, err)
	restored, err := DecodeStructuralBinary(structBin)
	assertRoundTrips(t, doc, restored, err)

	verbose, err := EncodeStructuralVerbose(doc)
	require.NoError(t, err)
	restored, err = DecodeStructuralVerbose(verbose)
	assertRoundTrips(t, doc, restored, err)

	compact, err := EncodeStructuralCompact(doc)
	require.NoError(t, err)
	restored, err = DecodeStructuralCompact(compact)
	assertRoundTrips(t, doc, restored, err)

	indexed, err := EncodeIndexedBinary(doc)
	require.NoError(t, err)
	restored, err = DecodeIndexedBinary(indexed)
	assertRoundTrips(t, doc, restored, err)

	sc, err := EncodeSidecar(doc)
	require.NoError(t, err)
	restored, err = DecodeSidecar(sc)
	assertRoundTrips(t, doc, restored, err)
}

func TestAllSnapshotCodecsAgreeOnView(t *testing.T) {
	doc := buildSampleDocument(t)
	want, err := doc.View()
	require.NoError(t, err)

	structBin, err := EncodeStructuralBinary(doc)
	require.NoError(t, err)
	fromStructBin, err := DecodeStructuralBinary(structBin)
	require.NoError(t, err)
	v1, err := fromStructBin.View()
	require.NoError(t, err)
	assert.Equal(t, want, v1)

	indexed, err := EncodeIndexedBinary(doc)
	require.NoError(t, err)
	fromIndexed, err := DecodeIndexedBinary(indexed)
	require.NoError(t, err)
	v2, err := fromIndexed.View()
	require.NoError(t, err)
	assert.Equal(t, want, v2)

	sc, err := EncodeSidecar(doc)
	require.NoError(t, err)
	fromSidecar, err := DecodeSidecar(sc)
	require.NoError(t, err)
	v3, err := fromSidecar.View()
	require.NoError(t, err)
	assert.Equal(t, want, v3)
}
