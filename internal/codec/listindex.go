package codec

import (
	"encoding/binary"

	"packsmith/internal/cipher"
)

// ListIndexCipherLimit is how many leading bytes of a li blob are ciphered.
// Anything past it is stored clear.
const ListIndexCipherLimit = 512

// ReadListIndex decodes a pack's li blob into its table of 32-bit values:
// the option-list node ordinals referenced by node record transitions, plus
// asset table offsets consumed by higher layers. The first 512 bytes (or
// the whole blob if shorter) are deciphered with the default key. A
// trailing remainder shorter than one value is ignored.
func ReadListIndex(data []byte) []uint32 {
	limit := len(data)
	if limit > ListIndexCipherLimit {
		limit = ListIndexCipherLimit
	}
	plain := cipher.DecryptBytes(data[:limit], cipher.DefaultKey)
	plain = append(plain, data[limit:]...)

	values := make([]uint32, 0, len(plain)/4)
	for off := 0; off+4 <= len(plain); off += 4 {
		values = append(values, binary.LittleEndian.Uint32(plain[off:]))
	}
	return values
}

// WriteListIndex encodes a table of 32-bit values into a li blob, ciphering
// the first 512 bytes with the default key.
func WriteListIndex(values []uint32) []byte {
	plain := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(plain[i*4:], v)
	}

	limit := len(plain)
	if limit > ListIndexCipherLimit {
		limit = ListIndexCipherLimit
	}
	out := cipher.EncryptBytes(plain[:limit], cipher.DefaultKey)
	return append(out, plain[limit:]...)
}
