// Package cipher implements the block cipher protecting storyteller pack
// containers, together with the per-device pack key derivation.
//
// The device firmware uses the corrected block TEA algorithm (XXTEA) with a
// shortened round schedule: 1 + 52/n rounds for an n-word block instead of
// the published 6 + 52/n. Key material is unpacked big-endian while data
// words are little-endian; both quirks are required to interoperate with
// content produced by the vendor tooling and must not be "fixed".
package cipher

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sizes
const (
	// KeySize is the cipher key length in bytes.
	KeySize = 16

	// IdentitySize is the length of the encrypted device identity blob
	// that pack keys are derived from.
	IdentitySize = 256
)

const delta uint32 = 0x9e3779b9

// Errors
var (
	ErrKeySize      = errors.New("cipher: key must be 16 bytes")
	ErrIdentitySize = errors.New("cipher: identity blob must be 256 bytes")
)

// Key is a 128-bit cipher key.
type Key [KeySize]byte

// DefaultKey is the shared secret baked into every device. It protects the
// list index and the encrypted identity blob that per-device pack keys are
// derived from.
var DefaultKey = Key{
	0x91, 0xbd, 0x7a, 0x0a, 0xa7, 0x54, 0x40, 0xa9,
	0xbb, 0xd4, 0x9d, 0x6c, 0xe0, 0xdc, 0xc0, 0xe3,
}

// NewKey builds a Key from a 16-byte slice.
func NewKey(b []byte) (Key, error) {
	var k Key
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: got %d", ErrKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// words unpacks the key into four 32-bit words. Keys are big-endian on the
// wire, unlike data words.
func (k Key) words() [4]uint32 {
	return [4]uint32{
		binary.BigEndian.Uint32(k[0:4]),
		binary.BigEndian.Uint32(k[4:8]),
		binary.BigEndian.Uint32(k[8:12]),
		binary.BigEndian.Uint32(k[12:16]),
	}
}

// TransformBlock runs the block cipher in place over v and returns it.
// Blocks shorter than two words pass through unchanged. All 32-bit
// arithmetic wraps; the wraparound is part of the algorithm.
func TransformBlock(v []uint32, key Key, encrypt bool) []uint32 {
	n := len(v)
	if n < 2 {
		return v
	}
	k := key.words()
	rounds := 1 + 52/n

	if encrypt {
		var sum uint32
		z := v[n-1]
		for r := 0; r < rounds; r++ {
			sum += delta
			e := (sum >> 2) & 3
			var y uint32
			for p := 0; p < n-1; p++ {
				y = v[p+1]
				v[p] += mix(sum, y, z, uint32(p), e, k)
				z = v[p]
			}
			y = v[0]
			v[n-1] += mix(sum, y, z, uint32(n-1), e, k)
			z = v[n-1]
		}
		return v
	}

	sum := uint32(rounds) * delta
	y := v[0]
	for r := 0; r < rounds; r++ {
		e := (sum >> 2) & 3
		var z uint32
		for p := n - 1; p > 0; p-- {
			z = v[p-1]
			v[p] -= mix(sum, y, z, uint32(p), e, k)
			y = v[p]
		}
		z = v[n-1]
		v[0] -= mix(sum, y, z, 0, e, k)
		y = v[0]
		sum -= delta
	}
	return v
}

// mix is the XXTEA round function.
func mix(sum, y, z, p, e uint32, k [4]uint32) uint32 {
	return ((z>>5 ^ y<<2) + (y>>3 ^ z<<4)) ^ ((sum ^ y) + (k[(p&3)^e] ^ z))
}

// EncryptBytes encrypts data and returns the ciphertext. The input is
// packed into little-endian words with the final partial word zero-padded,
// so the output length is the input length rounded up to a multiple of 4.
func EncryptBytes(data []byte, key Key) []byte {
	return packWords(TransformBlock(unpackWords(data), key, true))
}

// DecryptBytes decrypts data produced by EncryptBytes. The output length is
// the input length rounded up to a multiple of 4.
func DecryptBytes(data []byte, key Key) []byte {
	return packWords(TransformBlock(unpackWords(data), key, false))
}

// unpackWords converts bytes to little-endian words, zero-padding the final
// partial word.
func unpackWords(data []byte) []uint32 {
	words := make([]uint32, (len(data)+3)/4)
	for i := range words {
		var w [4]byte
		copy(w[:], data[i*4:])
		words[i] = binary.LittleEndian.Uint32(w[:])
	}
	return words
}

// packWords converts little-endian words back to bytes.
func packWords(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
