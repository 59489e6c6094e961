package patchlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jcrdt/common"
	"jcrdt/crdtpatch"
)

func buildPatch(sid common.SessionID, startTime uint64, value interface{}) *crdtpatch.Patch {
	b := crdtpatch.NewPatchBuilder(sid, startTime)
	con := b.NewCon(value)
	b.InsObj(common.Ts{Sid: sid, Time: 1}, []crdtpatch.ObjEntry{{Key: "k", Ref: con}})
	return b.Build()
}

func TestLogAppendAndLoadRoundTrip(t *testing.T) {
	sid := common.SessionID(78001)
	p1 := buildPatch(sid, 3, "one")
	p2 := buildPatch(sid, 10, "two")

	w := NewLogWriter()
	require.NoError(t, w.Append(p1))
	require.NoError(t, w.Append(p2))

	patches, err := Load(w.Bytes())
	require.NoError(t, err)
	require.Len(t, patches, 2)
	assert.Equal(t, p1.ID(), patches[0].ID())
	assert.Equal(t, p2.ID(), patches[1].ID())
	assert.Equal(t, p1.Operations(), patches[0].Operations())
	assert.Equal(t, p2.Operations(), patches[1].Operations())
}

func TestLogBytesBeginWithVersionByte(t *testing.T) {
	w := NewLogWriter()
	assert.Equal(t, Version, w.Bytes()[0])
}
