package crdtpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdt"
)

func TestRebaseRejectsEmptyPatch(t *testing.T) {
	p := NewPatch(common.Ts{Sid: 1, Time: 1})
	_, err := p.Rebase(50)
	assert.IsType(t, common.ErrEmptyPatchRebase{}, err)
}

func TestRebaseShiftsOwnSessionIDsByDelta(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 5)
	obj := b.NewObj()
	con := b.NewCon("hi")
	b.InsObj(obj, []ObjEntry{{Key: "a", Ref: con}})
	p := b.Build()

	rebased, err := p.Rebase(100)
	require.NoError(t, err)

	assert.Equal(t, common.Ts{Sid: sid, Time: 100}, rebased.ID())
	ops := rebased.Operations()
	require.Len(t, ops, 3)

	newObj, ok := ops[0].(NewObjOp)
	require.True(t, ok)
	assert.Equal(t, common.Ts{Sid: sid, Time: 100}, newObj.Op)

	newCon, ok := ops[1].(NewConOp)
	require.True(t, ok)
	assert.Equal(t, common.Ts{Sid: sid, Time: 101}, newCon.Op)

	insObj, ok := ops[2].(InsObjOp)
	require.True(t, ok)
	assert.Equal(t, common.Ts{Sid: sid, Time: 102}, insObj.Op)
	assert.Equal(t, common.Ts{Sid: sid, Time: 100}, insObj.Obj)
	require.Len(t, insObj.Entries, 1)
	assert.Equal(t, common.Ts{Sid: sid, Time: 101}, insObj.Entries[0].Ref)
}

func TestRebaseLeavesForeignSessionReferencesUntouched(t *testing.T) {
	sid := common.SessionID(78001)
	foreign := common.Ts{Sid: 99, Time: 3}

	b := NewPatchBuilder(sid, 5)
	obj := b.NewObj()
	b.InsObj(obj, []ObjEntry{{Key: "a", Ref: foreign}})
	p := b.Build()

	rebased, err := p.Rebase(200)
	require.NoError(t, err)

	insObj, ok := rebased.Operations()[1].(InsObjOp)
	require.True(t, ok)
	assert.Equal(t, foreign, insObj.Entries[0].Ref)
}

func TestRebaseLeavesReferencesBeforeTheHorizonUntouched(t *testing.T) {
	sid := common.SessionID(78001)
	// A same-session reference to an id created before this patch started
	// (outside its own span) must not move with the rest of the patch.
	before := common.Ts{Sid: sid, Time: 1}

	b := NewPatchBuilder(sid, 5)
	obj := b.NewObj()
	b.InsObj(obj, []ObjEntry{{Key: "a", Ref: before}})
	p := b.Build()

	rebased, err := p.Rebase(200)
	require.NoError(t, err)

	insObj, ok := rebased.Operations()[1].(InsObjOp)
	require.True(t, ok)
	assert.Equal(t, before, insObj.Entries[0].Ref)
}

func TestRebasePreservesView(t *testing.T) {
	sid := common.SessionID(78001)
	b := NewPatchBuilder(sid, 5)
	obj := b.NewObj()
	b.InsVal(common.Origin, obj)
	con := b.NewCon("hi")
	b.InsObj(obj, []ObjEntry{{Key: "greeting", Ref: con}})
	p := b.Build()

	rebased, err := p.Rebase(1000)
	require.NoError(t, err)

	doc := crdt.NewDocument(sid)
	require.NoError(t, rebased.Apply(doc))
	view, err := doc.View()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"greeting": "hi"}, view)
}
