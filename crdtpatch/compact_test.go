package crdtpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdt"
)

func TestCompactMergesAdjacentStringInserts(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	str := b.NewStr()
	a1 := b.InsStr(str, str, "abc")
	b.InsStr(str, a1.Tick(2), "def")
	p := b.Build()
	require.Len(t, p.Operations(), 3)

	compacted := p.Compact()
	ops := compacted.Operations()
	require.Len(t, ops, 2)
	ins, ok := ops[1].(InsStrOp)
	require.True(t, ok)
	assert.Equal(t, "abcdef", ins.Text)
	assert.Equal(t, a1, ins.Op)
}

func TestCompactDoesNotMergeNonAdjacentStringInserts(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	str := b.NewStr()
	a1 := b.InsStr(str, str, "abc")
	// Second insert anchors at the container head again, not at a1's tail.
	b.InsStr(str, str, "xyz")
	p := b.Build()

	compacted := p.Compact()
	require.Len(t, compacted.Operations(), 3)
	ins, ok := compacted.Operations()[1].(InsStrOp)
	require.True(t, ok)
	assert.Equal(t, "abc", ins.Text)
	_ = a1
}

func TestCompactMergesAdjacentBinaryInserts(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	bin := b.NewBin()
	a1 := b.InsBin(bin, bin, []byte{1, 2})
	b.InsBin(bin, a1.Tick(1), []byte{3, 4})
	p := b.Build()

	compacted := p.Compact()
	require.Len(t, compacted.Operations(), 2)
	ins, ok := compacted.Operations()[1].(InsBinOp)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, ins.Data)
}

func TestCompactMergesAdjacentArrayInserts(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	arr := b.NewArr()
	v1 := b.NewVal()
	v2 := b.NewVal()
	a1 := b.InsArr(arr, arr, []common.Ts{v1})
	b.InsArr(arr, a1, []common.Ts{v2})
	p := b.Build()

	compacted := p.Compact()
	ops := compacted.Operations()
	var ins InsArrOp
	for _, op := range ops {
		if i, ok := op.(InsArrOp); ok {
			ins = i
		}
	}
	assert.Equal(t, []common.Ts{v1, v2}, ins.Refs)
}

func TestCompactMergesAdjacentDeleteSpans(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	str := b.NewStr()
	b.Del(str, []common.Tss{{Sid: sid, Time: 5, Span: 1}})
	b.Del(str, []common.Tss{{Sid: sid, Time: 8, Span: 2}})
	p := b.Build()
	require.Len(t, p.Operations(), 3)

	compacted := p.Compact()
	ops := compacted.Operations()
	require.Len(t, ops, 2)
	del, ok := ops[1].(DelOp)
	require.True(t, ok)
	assert.Equal(t, []common.Tss{
		{Sid: sid, Time: 5, Span: 1},
		{Sid: sid, Time: 8, Span: 2},
	}, del.Spans)
}

func TestCompactDoesNotMergeDeletesAgainstDifferentContainers(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	strA := b.NewStr()
	strB := b.NewStr()
	b.Del(strA, []common.Tss{{Sid: sid, Time: 5, Span: 1}})
	b.Del(strB, []common.Tss{{Sid: sid, Time: 8, Span: 1}})
	p := b.Build()

	compacted := p.Compact()
	assert.Len(t, compacted.Operations(), 4)
}

func TestCompactPreservesViewOnApply(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 1)
	obj := b.NewObj()
	str := b.NewStr()
	b.InsVal(common.Origin, obj)
	a1 := b.InsStr(str, str, "hello ")
	b.InsStr(str, a1.Tick(5), "world")
	b.InsObj(obj, []ObjEntry{{Key: "greeting", Ref: str}})
	original := b.Build()
	compacted := original.Compact()

	docA := crdt.NewDocument(sid)
	require.NoError(t, original.Apply(docA))
	viewA, err := docA.View()
	require.NoError(t, err)

	docB := crdt.NewDocument(sid)
	require.NoError(t, compacted.Apply(docB))
	viewB, err := docB.View()
	require.NoError(t, err)

	assert.Equal(t, viewA, viewB)
	assert.Less(t, len(compacted.Operations()), len(original.Operations()))
}
