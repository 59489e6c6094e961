package patchlog

import (
	"jcrdt/crdtpatch"
)

// Log accumulates patches as an in-memory byte buffer in the persisted
// patch-log layout, encoding each patch with the binary wire codec before
// framing it. Embeddings that persist to a file append Bytes() verbatim.
type Log struct {
	buf []byte
}

// NewLogWriter creates an empty log, already carrying the version byte.
func NewLogWriter() *Log {
	return &Log{buf: WriteVersion(nil)}
}

// Append encodes patch with the binary codec and frames it onto the log.
func (l *Log) Append(patch *crdtpatch.Patch) error {
	encoded, err := crdtpatch.EncodeBinary(patch)
	if err != nil {
		return err
	}
	buf, err := Append(l.buf, encoded)
	if err != nil {
		return err
	}
	l.buf = buf
	return nil
}

// Bytes returns the log's current byte representation.
func (l *Log) Bytes() []byte { return l.buf }

// Load decodes every patch in data, which must be in the persisted
// patch-log layout with binary-codec patch bodies. On any framing or decode
// error it returns the error and no patches.
func Load(data []byte) ([]*crdtpatch.Patch, error) {
	frames, err := Entries(data)
	if err != nil {
		return nil, err
	}
	patches := make([]*crdtpatch.Patch, 0, len(frames))
	for _, frame := range frames {
		p, err := crdtpatch.DecodeBinary(frame)
		if err != nil {
			return nil, err
		}
		patches = append(patches, p)
	}
	return patches, nil
}
