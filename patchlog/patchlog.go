// Package patchlog implements the persisted patch-log file format (spec
// §6): a one-byte version followed by repeated (4-byte big-endian length,
// patch bytes) frames. Append and Entries are encoding-agnostic about the
// patch bytes themselves — callers choose a crdtpatch wire codec and pass
// already-encoded frames in and out; Log and Load wrap them with the binary
// codec.
package patchlog

import (
	"encoding/binary"

	"jcrdt/common"
)

// Version is the only patch-log version this package writes or accepts.
const Version byte = 0x01

// MaxPatchSize is the largest single patch entry the log will accept, per
// spec §6. A declared length above this is rejected before any allocation
// happens, so a corrupted length field can't be used to exhaust memory.
const MaxPatchSize = 10 * 1024 * 1024

// Append encodes one patch-log entry (length-prefixed frame) and returns it
// appended to buf. It does not write the version byte — that belongs once,
// at the start of the file, via NewLogWriter or WriteVersion.
func Append(buf []byte, patch []byte) ([]byte, error) {
	if len(patch) > MaxPatchSize {
		return nil, common.ErrOversizedPatch{Size: len(patch), Max: MaxPatchSize}
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(patch)))
	buf = append(buf, header...)
	buf = append(buf, patch...)
	return buf, nil
}

// WriteVersion appends the one-byte version marker that must open every
// patch-log file.
func WriteVersion(buf []byte) []byte {
	return append(buf, Version)
}

// Entries reads every complete patch frame out of data, which must begin
// with the one-byte version marker. A length-prefixed entry that runs past
// the end of data yields ErrTruncatedPatchData; a declared length above
// MaxPatchSize yields ErrOversizedPatch — both before any prior entries are
// discarded, so callers can recover everything read so far by inspecting
// the returned slice even on error.
func Entries(data []byte) ([][]byte, error) {
	if len(data) < 1 {
		return nil, common.ErrTruncatedPatchData{Message: "patch log: missing version byte"}
	}
	if data[0] != Version {
		return nil, common.ErrInvalidPayload{Message: "patch log: unsupported version byte"}
	}
	data = data[1:]

	var entries [][]byte
	for len(data) > 0 {
		if len(data) < 4 {
			return entries, common.ErrTruncatedPatchData{Message: "patch log: truncated length prefix"}
		}
		length := binary.BigEndian.Uint32(data[:4])
		if length > MaxPatchSize {
			return entries, common.ErrOversizedPatch{Size: int(length), Max: MaxPatchSize}
		}
		data = data[4:]
		if uint32(len(data)) < length {
			return entries, common.ErrTruncatedPatchData{Message: "patch log: truncated patch body"}
		}
		entries = append(entries, data[:length])
		data = data[length:]
	}
	return entries, nil
}
