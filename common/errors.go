package common

import "fmt"

// Decode errors (spec §7.1): malformed wire data rejected before any
// document state is touched.

// ErrInvalidClockTable is returned when a patch's clock table is malformed
// (zero length, truncated varint, or a declared span larger than the
// own-session time); an underflowing time_diff is ErrInvalidRelativeId.
type ErrInvalidClockTable struct {
	Message string
}

func (e ErrInvalidClockTable) Error() string {
	return fmt.Sprintf("invalid clock table: %s", e.Message)
}

// ErrInvalidRelativeId is returned when a relative id cannot be resolved
// against the patch's clock table, or when the binary encoder meets a time
// above the vu57 ceiling of 2^57-1.
type ErrInvalidRelativeId struct {
	Message string
}

func (e ErrInvalidRelativeId) Error() string {
	return fmt.Sprintf("invalid relative id: %s", e.Message)
}

// ErrInvalidPayload is returned by the varint and CBOR codecs when a byte
// stream cannot be decoded as the expected shape.
type ErrInvalidPayload struct {
	Message string
}

func (e ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid payload: %s", e.Message)
}

// ErrUnknownOpcode is returned when the binary codec encounters an opcode
// byte outside the documented table.
type ErrUnknownOpcode struct {
	Opcode byte
}

func (e ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode: %d", e.Opcode)
}

// ErrTruncatedPatchData is returned when a patch-log entry or a framed
// payload ends before its declared length.
type ErrTruncatedPatchData struct {
	Message string
}

func (e ErrTruncatedPatchData) Error() string {
	return fmt.Sprintf("truncated patch data: %s", e.Message)
}

// ErrOversizedPatch is returned when a patch-log entry declares a length
// above the maximum allowed patch size.
type ErrOversizedPatch struct {
	Size, Max int
}

func (e ErrOversizedPatch) Error() string {
	return fmt.Sprintf("oversized patch: %d bytes exceeds maximum of %d", e.Size, e.Max)
}

// Apply errors (spec §7.2): a syntactically valid operation that cannot be
// applied to the current document state.

// ErrNodeNotFound is returned when an operation's operand names an id with
// no corresponding node or atom in the document — a causality violation
// unless the embedding defers the operation.
type ErrNodeNotFound struct {
	ID Ts
}

func (e ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node not found: %v", e.ID)
}

// ErrTypeMismatch is returned when an operation targets a node of the wrong
// shape, e.g. ins_str against an ObjNode.
type ErrTypeMismatch struct {
	Expected, Actual NodeType
}

func (e ErrTypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: expected %v, got %v", e.Expected, e.Actual)
}

// ErrIndexOutOfRange is returned when a decoded ins_vec entry names a slot
// index outside 0..=255; the compact-JSON and verbose-JSON decoders check it.
type ErrIndexOutOfRange struct {
	Index int
}

func (e ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index out of range: %d", e.Index)
}

// Validation errors (spec §7.3): raised during encode, rebase, or
// compaction rather than apply.

// ErrNonCanonicalPatch is returned by the binary encoder when a patch's
// operation ids do not follow its clock: each op must start where the
// previous one's span ends, beginning at the patch id.
type ErrNonCanonicalPatch struct {
	Message string
}

func (e ErrNonCanonicalPatch) Error() string {
	return fmt.Sprintf("non-canonical patch: %s", e.Message)
}

// ErrReservedSessionID reports a session id below ReservedSessionMax. No
// code in this module returns it: PatchBuilder and the codecs accept any
// session id.
type ErrReservedSessionID struct {
	Sid uint64
}

func (e ErrReservedSessionID) Error() string {
	return fmt.Sprintf("session id %d is reserved for system use", e.Sid)
}

// ErrEmptyPatchRebase is returned when rebase is attempted on a patch with
// no operations, which has no first-op time to use as an offset basis.
type ErrEmptyPatchRebase struct{}

func (e ErrEmptyPatchRebase) Error() string {
	return "cannot rebase an empty patch"
}

// Snapshot errors (spec §7.4).

// ErrInvalidSidecarPairing is returned when a sidecar snapshot's view and
// metadata streams disagree about the atoms they describe.
type ErrInvalidSidecarPairing struct {
	Message string
}

func (e ErrInvalidSidecarPairing) Error() string {
	return fmt.Sprintf("invalid sidecar pairing: %s", e.Message)
}

// ErrMissingSnapshotField is returned when an indexed-binary snapshot is
// missing a field its node graph requires.
type ErrMissingSnapshotField struct {
	Field string
}

func (e ErrMissingSnapshotField) Error() string {
	return fmt.Sprintf("missing snapshot field: %s", e.Field)
}

// ErrInvalidOperation is a catch-all for malformed operation encodings that
// don't fit a more specific error above.
type ErrInvalidOperation struct {
	Message string
}

func (e ErrInvalidOperation) Error() string {
	return fmt.Sprintf("invalid operation: %s", e.Message)
}
