package cipher

import "fmt"

// packKeyOrder reorders the decrypted identity plaintext into the pack key.
// The indices are byte positions in the first 16 plaintext bytes.
var packKeyOrder = [KeySize]int{11, 10, 9, 8, 15, 14, 13, 12, 3, 2, 1, 0, 7, 6, 5, 4}

// DerivePackKey derives the device's pack key from the 256-byte encrypted
// identity blob stored in the device index. The blob is decrypted with
// DefaultKey and the first 16 plaintext bytes are run through a fixed byte
// permutation. The permutation must be exact: a wrong ordering still yields
// 16 plausible-looking bytes but silently fails every check token on the
// device.
func DerivePackKey(identity []byte) (Key, error) {
	if len(identity) != IdentitySize {
		return Key{}, fmt.Errorf("%w: got %d", ErrIdentitySize, len(identity))
	}
	plain := DecryptBytes(identity, DefaultKey)

	var k Key
	for i, src := range packKeyOrder {
		k[i] = plain[src]
	}
	return k, nil
}
