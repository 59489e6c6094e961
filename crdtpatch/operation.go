package crdtpatch

import (
	"jcrdt/common"
	"jcrdt/crdt"
)

// Operation is implemented by all 16 patch operation variants. Every
// variant carries its own id; Span reports how many logical identifiers it
// consumes (1 for everything except multi-slot inserts and nop).
type Operation interface {
	// Code returns the operation's wire opcode.
	Code() common.OpCode

	// ID returns the operation's own identifier.
	ID() common.Ts

	// Span returns the number of identifiers this operation consumes.
	Span() uint64

	// Apply applies the operation's effect to doc.
	Apply(doc *crdt.Document) error
}

// NewConOp is new_con: creates a constant node holding a literal value.
type NewConOp struct {
	Op    common.Ts
	Value interface{}
}

func (o NewConOp) Code() common.OpCode        { return common.OpNewCon }
func (o NewConOp) ID() common.Ts              { return o.Op }
func (o NewConOp) Span() uint64               { return 1 }
func (o NewConOp) Apply(doc *crdt.Document) error {
	doc.CreateCon(o.Op, o.Value)
	return nil
}

// NewConRefOp is new_con with a reference payload instead of a literal.
type NewConRefOp struct {
	Op  common.Ts
	Ref common.Ts
}

func (o NewConRefOp) Code() common.OpCode { return common.OpNewCon }
func (o NewConRefOp) ID() common.Ts       { return o.Op }
func (o NewConRefOp) Span() uint64        { return 1 }
func (o NewConRefOp) Apply(doc *crdt.Document) error {
	doc.CreateConRef(o.Op, o.Ref)
	return nil
}

// NewValOp is new_val.
type NewValOp struct{ Op common.Ts }

func (o NewValOp) Code() common.OpCode { return common.OpNewVal }
func (o NewValOp) ID() common.Ts       { return o.Op }
func (o NewValOp) Span() uint64        { return 1 }
func (o NewValOp) Apply(doc *crdt.Document) error {
	doc.CreateVal(o.Op)
	return nil
}

// NewObjOp is new_obj.
type NewObjOp struct{ Op common.Ts }

func (o NewObjOp) Code() common.OpCode { return common.OpNewObj }
func (o NewObjOp) ID() common.Ts       { return o.Op }
func (o NewObjOp) Span() uint64        { return 1 }
func (o NewObjOp) Apply(doc *crdt.Document) error {
	doc.CreateObj(o.Op)
	return nil
}

// NewVecOp is new_vec.
type NewVecOp struct{ Op common.Ts }

func (o NewVecOp) Code() common.OpCode { return common.OpNewVec }
func (o NewVecOp) ID() common.Ts       { return o.Op }
func (o NewVecOp) Span() uint64        { return 1 }
func (o NewVecOp) Apply(doc *crdt.Document) error {
	doc.CreateVec(o.Op)
	return nil
}

// NewStrOp is new_str.
type NewStrOp struct{ Op common.Ts }

func (o NewStrOp) Code() common.OpCode { return common.OpNewStr }
func (o NewStrOp) ID() common.Ts       { return o.Op }
func (o NewStrOp) Span() uint64        { return 1 }
func (o NewStrOp) Apply(doc *crdt.Document) error {
	doc.CreateStr(o.Op)
	return nil
}

// NewBinOp is new_bin.
type NewBinOp struct{ Op common.Ts }

func (o NewBinOp) Code() common.OpCode { return common.OpNewBin }
func (o NewBinOp) ID() common.Ts       { return o.Op }
func (o NewBinOp) Span() uint64        { return 1 }
func (o NewBinOp) Apply(doc *crdt.Document) error {
	doc.CreateBin(o.Op)
	return nil
}

// NewArrOp is new_arr.
type NewArrOp struct{ Op common.Ts }

func (o NewArrOp) Code() common.OpCode { return common.OpNewArr }
func (o NewArrOp) ID() common.Ts       { return o.Op }
func (o NewArrOp) Span() uint64        { return 1 }
func (o NewArrOp) Apply(doc *crdt.Document) error {
	doc.CreateArr(o.Op)
	return nil
}

// InsValOp is ins_val: writes obj's register to point at Ref.
type InsValOp struct {
	Op  common.Ts
	Obj common.Ts
	Ref common.Ts
}

func (o InsValOp) Code() common.OpCode { return common.OpInsVal }
func (o InsValOp) ID() common.Ts       { return o.Op }
func (o InsValOp) Span() uint64        { return 1 }
func (o InsValOp) Apply(doc *crdt.Document) error {
	return doc.WriteVal(o.Obj, o.Ref)
}

// ObjEntry is one (key, ref) pair of an ins_obj operation.
type ObjEntry struct {
	Key string
	Ref common.Ts
}

// InsObjOp is ins_obj: writes one or more keys of obj.
type InsObjOp struct {
	Op      common.Ts
	Obj     common.Ts
	Entries []ObjEntry
}

func (o InsObjOp) Code() common.OpCode { return common.OpInsObj }
func (o InsObjOp) ID() common.Ts       { return o.Op }
func (o InsObjOp) Span() uint64        { return 1 }
func (o InsObjOp) Apply(doc *crdt.Document) error {
	entries := make(map[string]common.Ts, len(o.Entries))
	for _, e := range o.Entries {
		entries[e.Key] = e.Ref
	}
	return doc.WriteObj(o.Obj, o.Op, entries)
}

// VecEntry is one (index, ref) pair of an ins_vec operation.
type VecEntry struct {
	Index uint8
	Ref   common.Ts
}

// InsVecOp is ins_vec: writes one or more slots of obj.
type InsVecOp struct {
	Op      common.Ts
	Obj     common.Ts
	Entries []VecEntry
}

func (o InsVecOp) Code() common.OpCode { return common.OpInsVec }
func (o InsVecOp) ID() common.Ts       { return o.Op }
func (o InsVecOp) Span() uint64        { return 1 }
func (o InsVecOp) Apply(doc *crdt.Document) error {
	entries := make(map[uint8]common.Ts, len(o.Entries))
	for _, e := range o.Entries {
		entries[e.Index] = e.Ref
	}
	return doc.WriteVec(o.Obj, o.Op, entries)
}

// InsStrOp is ins_str: splices Text into obj after After.
type InsStrOp struct {
	Op    common.Ts
	Obj   common.Ts
	After common.Ts
	Text  string
}

func (o InsStrOp) Code() common.OpCode { return common.OpInsStr }
func (o InsStrOp) ID() common.Ts       { return o.Op }
func (o InsStrOp) Span() uint64        { return uint64(len([]rune(o.Text))) }
func (o InsStrOp) Apply(doc *crdt.Document) error {
	return doc.InsertStr(o.Obj, o.After, o.Op, o.Text)
}

// InsBinOp is ins_bin: splices Data into obj after After.
type InsBinOp struct {
	Op    common.Ts
	Obj   common.Ts
	After common.Ts
	Data  []byte
}

func (o InsBinOp) Code() common.OpCode { return common.OpInsBin }
func (o InsBinOp) ID() common.Ts       { return o.Op }
func (o InsBinOp) Span() uint64        { return uint64(len(o.Data)) }
func (o InsBinOp) Apply(doc *crdt.Document) error {
	return doc.InsertBin(o.Obj, o.After, o.Op, o.Data)
}

// InsArrOp is ins_arr: splices Refs into obj after After.
type InsArrOp struct {
	Op    common.Ts
	Obj   common.Ts
	After common.Ts
	Refs  []common.Ts
}

func (o InsArrOp) Code() common.OpCode { return common.OpInsArr }
func (o InsArrOp) ID() common.Ts       { return o.Op }
func (o InsArrOp) Span() uint64        { return uint64(len(o.Refs)) }
func (o InsArrOp) Apply(doc *crdt.Document) error {
	return doc.InsertArr(o.Obj, o.After, o.Op, o.Refs)
}

// DelOp is del: tombstones the atoms named by Spans within Obj.
type DelOp struct {
	Op    common.Ts
	Obj   common.Ts
	Spans []common.Tss
}

func (o DelOp) Code() common.OpCode { return common.OpDel }
func (o DelOp) ID() common.Ts       { return o.Op }
func (o DelOp) Span() uint64        { return 1 }
func (o DelOp) Apply(doc *crdt.Document) error {
	return doc.Delete(o.Obj, o.Spans)
}

// NopOp is nop: reserves Len identifiers with no effect.
type NopOp struct {
	Op  common.Ts
	Len uint64
}

func (o NopOp) Code() common.OpCode           { return common.OpNop }
func (o NopOp) ID() common.Ts                 { return o.Op }
func (o NopOp) Span() uint64                  { return o.Len }
func (o NopOp) Apply(doc *crdt.Document) error { return nil }
