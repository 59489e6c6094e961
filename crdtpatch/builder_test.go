package crdtpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdt"
)

func TestBuilderAllocatesSequentialIds(t *testing.T) {
	b := NewPatchBuilder(1, 10)
	first := b.NewObj()
	second := b.NewVal()

	assert.Equal(t, common.Ts{Sid: 1, Time: 10}, first)
	assert.Equal(t, common.Ts{Sid: 1, Time: 11}, second)
}

func TestBuilderMultiAtomOpsAdvanceClockBySpan(t *testing.T) {
	b := NewPatchBuilder(1, 10)
	obj := b.NewStr()
	start := b.InsStr(obj, obj, "hello")
	next := b.NewVal()

	assert.Equal(t, uint64(5), (InsStrOp{Op: start, Text: "hello"}).Span())
	assert.Equal(t, common.Ts{Sid: 1, Time: 11 + 5}, next)
}

func TestBuildResetsBuilder(t *testing.T) {
	b := NewPatchBuilder(1, 1)
	b.NewObj()
	p1 := b.Build()
	require.NotNil(t, p1)
	assert.Len(t, p1.Operations(), 1)

	assert.Nil(t, b.Build())
}

func TestBuildNilOnEmptyBuilder(t *testing.T) {
	b := NewPatchBuilder(1, 1)
	assert.Nil(t, b.Build())
}

func TestPatchBuilderEndToEndDocument(t *testing.T) {
	doc := crdt.NewDocument(1)
	b := NewPatchBuilder(1, 1)

	arr := b.NewArr()
	x := b.NewCon("x")
	y := b.NewCon("y")
	b.InsArr(arr, arr, []common.Ts{x, y})
	b.InsVal(common.Origin, arr)
	p := b.Build()

	require.NoError(t, p.Apply(doc))

	view, err := doc.View()
	require.NoError(t, err)
	list, ok := view.([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"x", "y"}, list)
}

func TestPatchBuilderObjectAndVectorWrites(t *testing.T) {
	doc := crdt.NewDocument(1)
	b := NewPatchBuilder(1, 1)

	obj := b.NewObj()
	vec := b.NewVec()
	name := b.NewCon("roo")
	age := b.NewCon(int64(3))
	b.InsObj(obj, []ObjEntry{{Key: "pet", Ref: vec}})
	b.InsVec(vec, []VecEntry{{Index: 0, Ref: name}, {Index: 1, Ref: age}})
	b.InsVal(common.Origin, obj)
	p := b.Build()

	require.NoError(t, p.Apply(doc))

	view, err := doc.View()
	require.NoError(t, err)
	m := view.(map[string]interface{})
	pet := m["pet"].([]interface{})
	assert.Equal(t, []interface{}{"roo", int64(3)}, pet)
}
