package crdtpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdt"
)

func buildSamplePatch() *Patch {
	b := NewPatchBuilder(3, 1)
	obj := b.NewObj()
	str := b.NewStr()
	name := b.NewCon("roo")
	b.InsStr(str, str, "hi")
	b.InsObj(obj, []ObjEntry{{Key: "name", Ref: name}, {Key: "str", Ref: str}})
	b.InsVal(common.Origin, obj)
	return b.Build()
}

func TestCompactJSONRoundTrip(t *testing.T) {
	p := buildSamplePatch()

	data, err := EncodeCompactJSON(p)
	require.NoError(t, err)

	decoded, err := DecodeCompactJSON(data)
	require.NoError(t, err)

	assert.Equal(t, p.ID(), decoded.ID())
	assert.Equal(t, p.Span(), decoded.Span())

	doc := crdt.NewDocument(3)
	require.NoError(t, decoded.Apply(doc))
	view, err := doc.View()
	require.NoError(t, err)
	m := view.(map[string]interface{})
	assert.Equal(t, "roo", m["name"])
	assert.Equal(t, "hi", m["str"])
}

func TestCompactJSONSystemSessionIsBareNumber(t *testing.T) {
	assert.Equal(t, uint64(5), idJSON(common.Ts{Sid: 0, Time: 5}))
	assert.Equal(t, []interface{}{uint64(3), uint64(5)}, idJSON(common.Ts{Sid: 3, Time: 5}))
}

func TestVerboseJSONRoundTrip(t *testing.T) {
	p := buildSamplePatch()

	data, err := EncodeVerboseJSON(p)
	require.NoError(t, err)

	decoded, err := DecodeVerboseJSON(data)
	require.NoError(t, err)

	doc := crdt.NewDocument(3)
	require.NoError(t, decoded.Apply(doc))
	view, err := doc.View()
	require.NoError(t, err)
	m := view.(map[string]interface{})
	assert.Equal(t, "roo", m["name"])
	assert.Equal(t, "hi", m["str"])
}

func TestCompactBinaryRoundTrip(t *testing.T) {
	p := buildSamplePatch()

	data, err := EncodeCompactBinary(p)
	require.NoError(t, err)

	decoded, err := DecodeCompactBinary(data)
	require.NoError(t, err)

	doc := crdt.NewDocument(3)
	require.NoError(t, decoded.Apply(doc))
	view, err := doc.View()
	require.NoError(t, err)
	m := view.(map[string]interface{})
	assert.Equal(t, "roo", m["name"])
	assert.Equal(t, "hi", m["str"])
}

func TestAllCodecsAgreeWithBinary(t *testing.T) {
	p := buildSamplePatch()

	binData, err := EncodeBinary(p)
	require.NoError(t, err)
	viaBinary, err := DecodeBinary(binData)
	require.NoError(t, err)

	compactData, err := EncodeCompactJSON(p)
	require.NoError(t, err)
	viaCompact, err := DecodeCompactJSON(compactData)
	require.NoError(t, err)

	docA := crdt.NewDocument(3)
	docB := crdt.NewDocument(3)
	require.NoError(t, viaBinary.Apply(docA))
	require.NoError(t, viaCompact.Apply(docB))

	viewA, err := docA.View()
	require.NoError(t, err)
	viewB, err := docB.View()
	require.NoError(t, err)
	assert.Equal(t, viewA, viewB)
}
