package codec

import (
	"bytes"

	"packsmith/internal/cipher"
)

// CheckTokenSize is the number of reference table bytes covered by the
// check token.
const CheckTokenSize = 64

// VerifyCheckToken reports whether a pack's check token authenticates its
// reference table: the token deciphered with the pack key must equal the
// first 64 bytes of the ri blob, zero-padded if shorter. A mismatch is a
// meaningful "this pack is foreign or corrupted" signal rather than a
// structural decode failure, so this is a predicate and never an error.
func VerifyCheckToken(bt, ri []byte, key cipher.Key) bool {
	if len(bt) == 0 {
		return false
	}
	plain := cipher.DecryptBytes(bt, key)
	if len(plain) < CheckTokenSize {
		return false
	}

	var want [CheckTokenSize]byte
	copy(want[:], ri)
	return bytes.Equal(plain[:CheckTokenSize], want[:])
}

// SealCheckToken produces the check token for a reference table: the first
// 64 bytes of ri, zero-padded if shorter, enciphered with the pack key.
// VerifyCheckToken accepts its output by construction.
func SealCheckToken(ri []byte, key cipher.Key) []byte {
	var token [CheckTokenSize]byte
	copy(token[:], ri)
	return cipher.EncryptBytes(token[:], key)
}
