package crdtpatch

import "jcrdt/common"

// PatchBuilder accumulates operations under one session's logical clock
// and flushes them into a Patch, assigning each operation's id itself so
// callers never juggle timestamps directly.
type PatchBuilder struct {
	sid   common.SessionID
	clock uint64
	ops   []Operation
}

// NewPatchBuilder creates a builder for sid starting at the given clock
// value — the time of the first operation the builder will produce.
func NewPatchBuilder(sid common.SessionID, startTime uint64) *PatchBuilder {
	return &PatchBuilder{sid: sid, clock: startTime}
}

func (b *PatchBuilder) alloc(span uint64) common.Ts {
	id := common.Ts{Sid: b.sid, Time: b.clock}
	b.clock += span
	return id
}

// NewCon appends new_con with a literal value and returns its id.
func (b *PatchBuilder) NewCon(value interface{}) common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewConOp{Op: id, Value: value})
	return id
}

// NewConRef appends new_con with a reference payload and returns its id.
func (b *PatchBuilder) NewConRef(ref common.Ts) common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewConRefOp{Op: id, Ref: ref})
	return id
}

// NewVal appends new_val and returns its id.
func (b *PatchBuilder) NewVal() common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewValOp{Op: id})
	return id
}

// NewObj appends new_obj and returns its id.
func (b *PatchBuilder) NewObj() common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewObjOp{Op: id})
	return id
}

// NewVec appends new_vec and returns its id.
func (b *PatchBuilder) NewVec() common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewVecOp{Op: id})
	return id
}

// NewStr appends new_str and returns its id.
func (b *PatchBuilder) NewStr() common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewStrOp{Op: id})
	return id
}

// NewBin appends new_bin and returns its id.
func (b *PatchBuilder) NewBin() common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewBinOp{Op: id})
	return id
}

// NewArr appends new_arr and returns its id.
func (b *PatchBuilder) NewArr() common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, NewArrOp{Op: id})
	return id
}

// InsVal appends ins_val.
func (b *PatchBuilder) InsVal(obj, ref common.Ts) common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, InsValOp{Op: id, Obj: obj, Ref: ref})
	return id
}

// InsObj appends ins_obj with one or more key writes sharing one writer id.
func (b *PatchBuilder) InsObj(obj common.Ts, entries []ObjEntry) common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, InsObjOp{Op: id, Obj: obj, Entries: entries})
	return id
}

// InsVec appends ins_vec with one or more slot writes sharing one writer id.
func (b *PatchBuilder) InsVec(obj common.Ts, entries []VecEntry) common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, InsVecOp{Op: id, Obj: obj, Entries: entries})
	return id
}

// InsStr appends ins_str, allocating one id per rune in text.
func (b *PatchBuilder) InsStr(obj, after common.Ts, text string) common.Ts {
	id := b.alloc(uint64(len([]rune(text))))
	b.ops = append(b.ops, InsStrOp{Op: id, Obj: obj, After: after, Text: text})
	return id
}

// InsBin appends ins_bin, allocating one id per byte in data.
func (b *PatchBuilder) InsBin(obj, after common.Ts, data []byte) common.Ts {
	id := b.alloc(uint64(len(data)))
	b.ops = append(b.ops, InsBinOp{Op: id, Obj: obj, After: after, Data: data})
	return id
}

// InsArr appends ins_arr, allocating one id per element in refs.
func (b *PatchBuilder) InsArr(obj, after common.Ts, refs []common.Ts) common.Ts {
	id := b.alloc(uint64(len(refs)))
	b.ops = append(b.ops, InsArrOp{Op: id, Obj: obj, After: after, Refs: refs})
	return id
}

// Del appends del over the given tombstone spans.
func (b *PatchBuilder) Del(obj common.Ts, spans []common.Tss) common.Ts {
	id := b.alloc(1)
	b.ops = append(b.ops, DelOp{Op: id, Obj: obj, Spans: spans})
	return id
}

// Nop appends a filler reserving span identifiers.
func (b *PatchBuilder) Nop(span uint64) common.Ts {
	id := b.alloc(span)
	b.ops = append(b.ops, NopOp{Op: id, Len: span})
	return id
}

// Build returns the accumulated operations as a Patch and resets the
// builder so it can be reused for the next patch.
func (b *PatchBuilder) Build() *Patch {
	if len(b.ops) == 0 {
		return nil
	}
	p := NewPatch(b.ops[0].ID())
	for _, op := range b.ops {
		p.AddOperation(op)
	}
	b.ops = nil
	return p
}
