// Package codec translates between the byte layout on a mounted storyteller
// device and typed in-memory structures. It is the single place where binary
// format knowledge lives.
//
// A device root carries two index blobs (.md and .pi) and one directory per
// installed pack under .content/<REF>/, each holding six blobs: a node index
// (ni), a list index (li), a reference table (ri), a sound index (si), a
// check token (bt) and plaintext metadata (md). All integers are
// little-endian. The list index and the check token are protected with the
// cipher package; everything else is clear.
//
// Read operations consume complete byte buffers, never streams: every size
// invariant in the format needs the whole blob to validate.
package codec

import "fmt"

// FormatError reports bytes that are not a valid instance of the container
// format. It is always fatal to loading the blob it names and is never
// retried: the bytes themselves are wrong, not the environment.
type FormatError struct {
	Blob   string // which blob failed ("device index", "node index", ...)
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("codec: %s: %s", e.Blob, e.Reason)
}

func formatErrorf(blob, format string, args ...any) *FormatError {
	return &FormatError{Blob: blob, Reason: fmt.Sprintf(format, args...)}
}

// Bundle groups the six blobs of one pack directory, keyed by their
// on-device file names.
type Bundle struct {
	NodeIndex  []byte // ni
	ListIndex  []byte // li
	References []byte // ri
	SoundIndex []byte // si
	CheckToken []byte // bt
	Metadata   []byte // md
}
