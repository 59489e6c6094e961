package crdtpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdt"
)

func TestBinaryCodecRoundTripsSimpleObject(t *testing.T) {
	b := NewPatchBuilder(1, 1)
	obj := b.NewObj()
	val := b.NewCon(int64(1))
	b.InsObj(obj, []ObjEntry{{Key: "a", Ref: val}})
	b.InsVal(common.Origin, obj)
	p := b.Build()

	encoded, err := EncodeBinary(p)
	require.NoError(t, err)

	decoded, err := DecodeBinary(encoded)
	require.NoError(t, err)

	assert.Equal(t, p.ID(), decoded.ID())
	assert.Equal(t, p.Span(), decoded.Span())
	require.Len(t, decoded.Operations(), len(p.Operations()))

	doc := crdt.NewDocument(1)
	require.NoError(t, decoded.Apply(doc))
	view, err := doc.View()
	require.NoError(t, err)
	m, ok := view.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, m["a"])
}

func TestBinaryCodecRoundTripsStringInsert(t *testing.T) {
	b := NewPatchBuilder(9, 5)
	str := b.NewStr()
	b.InsStr(str, str, "hello")
	p := b.Build()

	encoded, err := EncodeBinary(p)
	require.NoError(t, err)
	decoded, err := DecodeBinary(encoded)
	require.NoError(t, err)

	doc := crdt.NewDocument(9)
	require.NoError(t, decoded.Apply(doc))
	node, err := doc.Node(str)
	require.NoError(t, err)
	assert.Equal(t, "hello", node.(*crdt.StrNode).View())
}

func TestBinaryCodecRoundTripsForeignSessionReference(t *testing.T) {
	b := NewPatchBuilder(1, 1)
	obj := b.NewObj()
	foreign := common.Ts{Sid: 77, Time: 42}
	b.InsObj(obj, []ObjEntry{{Key: "other", Ref: foreign}})
	p := b.Build()

	encoded, err := EncodeBinary(p)
	require.NoError(t, err)
	decoded, err := DecodeBinary(encoded)
	require.NoError(t, err)

	insOp, ok := decoded.Operations()[1].(InsObjOp)
	require.True(t, ok)
	require.Len(t, insOp.Entries, 1)
	assert.Equal(t, foreign, insOp.Entries[0].Ref)
}

func TestBinaryCodecRoundTripsDelete(t *testing.T) {
	b := NewPatchBuilder(1, 1)
	arr := b.NewArr()
	b.Nop(8) // advance the clock so the delete targets an earlier span
	span := common.Tss{Sid: 1, Time: 1, Span: 1}
	b.Del(arr, []common.Tss{span})
	p := b.Build()

	encoded, err := EncodeBinary(p)
	require.NoError(t, err)
	decoded, err := DecodeBinary(encoded)
	require.NoError(t, err)

	delOp, ok := decoded.Operations()[len(decoded.Operations())-1].(DelOp)
	require.True(t, ok)
	require.Len(t, delOp.Spans, 1)
	assert.Equal(t, span, delOp.Spans[0])
}

func TestBinaryCodecRejectsTruncatedHeader(t *testing.T) {
	_, err := DecodeBinary([]byte{})
	assert.Error(t, err)
}

func TestBinaryCodecRejectsEmptyClockTable(t *testing.T) {
	// op_count=0, span=0, table_len=0
	data := []byte{0, 0, 0}
	_, err := DecodeBinary(data)
	assert.Error(t, err)
}
