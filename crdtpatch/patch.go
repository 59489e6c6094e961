package crdtpatch

import (
	"github.com/pkg/errors"

	"jcrdt/common"
	"jcrdt/crdt"
)

// Patch is an ordered sequence of operations from one session, with a
// shared session id and starting time (spec §4 GLOSSARY "Patch").
type Patch struct {
	id         common.Ts
	metadata   map[string]interface{}
	operations []Operation
}

// NewPatch creates an empty patch whose first operation will be id.
func NewPatch(id common.Ts) *Patch {
	return &Patch{id: id, metadata: make(map[string]interface{})}
}

// ID returns the id of the patch's first operation.
func (p *Patch) ID() common.Ts { return p.id }

// Metadata returns the patch's custom metadata.
func (p *Patch) Metadata() map[string]interface{} { return p.metadata }

// SetMetadata replaces the patch's custom metadata.
func (p *Patch) SetMetadata(metadata map[string]interface{}) { p.metadata = metadata }

// Operations returns the patch's operations in order.
func (p *Patch) Operations() []Operation { return p.operations }

// AddOperation appends op to the patch.
func (p *Patch) AddOperation(op Operation) { p.operations = append(p.operations, op) }

// Span returns the total number of identifiers the patch consumes — the
// sum of each operation's span.
func (p *Patch) Span() uint64 {
	var span uint64
	for _, op := range p.operations {
		span += op.Span()
	}
	return span
}

// Apply applies every operation in order to doc. Per spec §7, apply errors
// surface to the caller with no partial state masked — a failing operation
// stops the patch, leaving whichever operations already ran in effect.
func (p *Patch) Apply(doc *crdt.Document) error {
	for i, op := range p.operations {
		if err := op.Apply(doc); err != nil {
			return errors.Wrapf(err, "apply op %d (%s)", i, op.Code().Name())
		}
	}
	return nil
}

// ClockTable computes the patch's clock table (spec §4.1): slot 0 is the
// patch's own session, with the maximum time observed for it across the
// patch's operations, counting the last identifier each multi-slot
// operation consumes; subsequent slots are the other sessions referenced
// by operands, in first-appearance order, each with their own maximum
// observed time.
func (p *Patch) ClockTable() []common.Ts {
	order := []common.SessionID{p.id.Sid}
	maxTime := map[common.SessionID]uint64{p.id.Sid: p.id.Time}

	observe := func(id common.Ts) {
		if _, ok := maxTime[id.Sid]; !ok {
			order = append(order, id.Sid)
		}
		if id.Time > maxTime[id.Sid] {
			maxTime[id.Sid] = id.Time
		}
	}

	for _, op := range p.operations {
		observe(op.ID())
		if span := op.Span(); span > 0 {
			observe(op.ID().Tick(span - 1))
		}
		for _, id := range operandIDs(op) {
			observe(id)
		}
	}

	table := make([]common.Ts, len(order))
	for i, sid := range order {
		table[i] = common.Ts{Sid: sid, Time: maxTime[sid]}
	}
	return table
}

// operandIDs returns every id an operation's operands reference, besides
// its own id — used to populate the clock table and to drive rebase.
func operandIDs(op Operation) []common.Ts {
	switch o := op.(type) {
	case NewConRefOp:
		return []common.Ts{o.Ref}
	case InsValOp:
		return []common.Ts{o.Obj, o.Ref}
	case InsObjOp:
		ids := []common.Ts{o.Obj}
		for _, e := range o.Entries {
			ids = append(ids, e.Ref)
		}
		return ids
	case InsVecOp:
		ids := []common.Ts{o.Obj}
		for _, e := range o.Entries {
			ids = append(ids, e.Ref)
		}
		return ids
	case InsStrOp:
		return []common.Ts{o.Obj, o.After}
	case InsBinOp:
		return []common.Ts{o.Obj, o.After}
	case InsArrOp:
		ids := []common.Ts{o.Obj, o.After}
		ids = append(ids, o.Refs...)
		return ids
	case DelOp:
		ids := []common.Ts{o.Obj}
		for _, s := range o.Spans {
			ids = append(ids, common.Ts{Sid: s.Sid, Time: s.Time})
		}
		return ids
	default:
		return nil
	}
}
