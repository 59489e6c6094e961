package crdtpatch

import "jcrdt/common"

// Rebase shifts a patch onto a new starting time, per spec §4.1. Every id
// in the patch's own session is moved by delta = newBase - t0, where t0 is
// the original first operation's time; references into the patch's own
// session at or after t0 (the horizon) move with it, references before the
// horizon and references into other sessions are left alone.
//
// Rebase is a pure function: it returns a new Patch and never mutates p.
func (p *Patch) Rebase(newBase uint64) (*Patch, error) {
	if len(p.operations) == 0 {
		return nil, common.ErrEmptyPatchRebase{}
	}

	sid := p.id.Sid
	horizon := p.id.Time
	delta := int64(newBase) - int64(horizon)

	shift := func(id common.Ts) common.Ts {
		if id.Sid != sid || id.Time < horizon {
			return id
		}
		return common.Ts{Sid: id.Sid, Time: uint64(int64(id.Time) + delta)}
	}

	out := NewPatch(shift(p.id))
	for k, v := range p.metadata {
		out.metadata[k] = v
	}

	for _, op := range p.operations {
		out.AddOperation(shiftOperation(op, shift))
	}
	return out, nil
}

// shiftOperation returns a copy of op with every id and operand reference
// passed through shift.
func shiftOperation(op Operation, shift func(common.Ts) common.Ts) Operation {
	switch o := op.(type) {
	case NewConOp:
		o.Op = shift(o.Op)
		return o
	case NewConRefOp:
		o.Op = shift(o.Op)
		o.Ref = shift(o.Ref)
		return o
	case NewValOp:
		o.Op = shift(o.Op)
		return o
	case NewObjOp:
		o.Op = shift(o.Op)
		return o
	case NewVecOp:
		o.Op = shift(o.Op)
		return o
	case NewStrOp:
		o.Op = shift(o.Op)
		return o
	case NewBinOp:
		o.Op = shift(o.Op)
		return o
	case NewArrOp:
		o.Op = shift(o.Op)
		return o
	case InsValOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		o.Ref = shift(o.Ref)
		return o
	case InsObjOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		entries := make([]ObjEntry, len(o.Entries))
		for i, e := range o.Entries {
			entries[i] = ObjEntry{Key: e.Key, Ref: shift(e.Ref)}
		}
		o.Entries = entries
		return o
	case InsVecOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		entries := make([]VecEntry, len(o.Entries))
		for i, e := range o.Entries {
			entries[i] = VecEntry{Index: e.Index, Ref: shift(e.Ref)}
		}
		o.Entries = entries
		return o
	case InsStrOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		o.After = shift(o.After)
		return o
	case InsBinOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		o.After = shift(o.After)
		return o
	case InsArrOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		o.After = shift(o.After)
		refs := make([]common.Ts, len(o.Refs))
		for i, r := range o.Refs {
			refs[i] = shift(r)
		}
		o.Refs = refs
		return o
	case DelOp:
		o.Op = shift(o.Op)
		o.Obj = shift(o.Obj)
		spans := make([]common.Tss, len(o.Spans))
		for i, s := range o.Spans {
			shifted := shift(common.Ts{Sid: s.Sid, Time: s.Time})
			spans[i] = common.Tss{Sid: shifted.Sid, Time: shifted.Time, Span: s.Span}
		}
		o.Spans = spans
		return o
	case NopOp:
		o.Op = shift(o.Op)
		return o
	default:
		return op
	}
}
