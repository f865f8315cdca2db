// Package device is the storage-side view of a storyteller unit mounted as
// a removable filesystem: the device index, the installed pack list and
// the per-pack content directories.
//
// A Device is opened read-only; the mutating operations (Install, Remove)
// take a filesystem lock on the device root so two tools cannot interleave
// a pack-list rewrite. Everything the core decodes goes through complete
// byte buffers, the package never hands partially-read blobs downstream.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"packsmith/internal/cipher"
	"packsmith/internal/codec"
	"packsmith/internal/story"
)

// Well-known names on the device filesystem.
const (
	IndexFile    = ".md"      // device index, version + identity
	PackListFile = ".pi"      // installed pack identifiers, 16 bytes each
	ContentRoot  = ".content" // per-pack blob directories
	LockFile     = ".packsmith.lock"
)

// Blob names inside one pack's content directory.
var packBlobs = []string{"ni", "li", "ri", "si", "bt", "md"}

var (
	// ErrNotADevice reports a root without a device index file.
	ErrNotADevice = errors.New("device: no device index at root")

	// ErrPackNotFound reports an identifier with no installed content.
	ErrPackNotFound = errors.New("device: pack not installed")

	// ErrUnsupportedGeneration reports an operation that needs the pack
	// key on a device whose key scheme this tool does not derive.
	ErrUnsupportedGeneration = errors.New("device: key derivation unsupported for this generation")
)

// Device is one mounted storyteller root.
type Device struct {
	Root  string
	Index *codec.DeviceIndex
	Packs []uuid.UUID

	packKey *cipher.Key
	keyErr  error
}

// IsDevice reports whether root carries both device marker files.
func IsDevice(root string) bool {
	for _, name := range []string{IndexFile, PackListFile} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			return false
		}
	}
	return true
}

// Open reads the device index and pack list under root. A missing pack
// list is treated as an empty one; factory-fresh units ship without it.
// Pack key derivation is attempted once and its failure recorded rather
// than returned, a device with an underivable key can still be browsed.
func Open(root string) (*Device, error) {
	raw, err := os.ReadFile(filepath.Join(root, IndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotADevice, root)
		}
		return nil, fmt.Errorf("device: read index: %w", err)
	}

	index, err := codec.ReadDeviceIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("device: %s: %w", root, err)
	}

	d := &Device{Root: root, Index: index}

	list, err := os.ReadFile(filepath.Join(root, PackListFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("device: read pack list: %w", err)
	}
	d.Packs = codec.ReadPackIdentities(list)

	if index.Generation() == 2 {
		key, kerr := cipher.DerivePackKey(index.Identity[:])
		if kerr != nil {
			d.keyErr = kerr
		} else {
			d.packKey = &key
		}
	} else {
		d.keyErr = fmt.Errorf("%w: generation %d", ErrUnsupportedGeneration, index.Generation())
	}

	return d, nil
}

// PackKey returns the device's derived pack key, or why there is none.
func (d *Device) PackKey() (cipher.Key, error) {
	if d.packKey == nil {
		return cipher.Key{}, d.keyErr
	}
	return *d.packKey, nil
}

// Firmware renders the firmware version as "major.minor".
func (d *Device) Firmware() string {
	return fmt.Sprintf("%d.%d", d.Index.FirmwareMajor, d.Index.FirmwareMinor)
}

// Installed reports whether id appears in the device's pack list.
func (d *Device) Installed(id uuid.UUID) bool {
	for _, p := range d.Packs {
		if p == id {
			return true
		}
	}
	return false
}

// ContentDir returns the blob directory for a pack identifier.
func (d *Device) ContentDir(id uuid.UUID) string {
	return filepath.Join(d.Root, ContentRoot, codec.Reference(id))
}

// ReadBundle reads one installed pack's blobs into memory. The node and
// list indices are mandatory; reference table, sound index, check token
// and metadata may be absent and come back empty.
func (d *Device) ReadBundle(id uuid.UUID) (codec.Bundle, error) {
	return readBundleDir(d.ContentDir(id), id)
}

func readBundleDir(dir string, id uuid.UUID) (codec.Bundle, error) {
	if _, err := os.Stat(dir); err != nil {
		return codec.Bundle{}, fmt.Errorf("%w: %s", ErrPackNotFound, codec.Reference(id))
	}

	read := func(name string, required bool) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) && !required {
				return nil, nil
			}
			return nil, fmt.Errorf("device: pack %s: read %s: %w", codec.Reference(id), name, err)
		}
		return data, nil
	}

	var bundle codec.Bundle
	var err error
	if bundle.NodeIndex, err = read("ni", true); err != nil {
		return codec.Bundle{}, err
	}
	if bundle.ListIndex, err = read("li", true); err != nil {
		return codec.Bundle{}, err
	}
	if bundle.References, err = read("ri", false); err != nil {
		return codec.Bundle{}, err
	}
	if bundle.SoundIndex, err = read("si", false); err != nil {
		return codec.Bundle{}, err
	}
	if bundle.CheckToken, err = read("bt", false); err != nil {
		return codec.Bundle{}, err
	}
	if bundle.Metadata, err = read("md", false); err != nil {
		return codec.Bundle{}, err
	}
	return bundle, nil
}

// LoadPack reads and decodes one installed pack into its story graph.
func (d *Device) LoadPack(id uuid.UUID) (*story.StoryPack, error) {
	bundle, err := d.ReadBundle(id)
	if err != nil {
		return nil, err
	}
	return story.Load(id, bundle)
}

// VerifyPack checks a pack's check token against its reference table with
// the device's pack key. A failed check is a result, not an error; errors
// mean the check could not be attempted at all.
func (d *Device) VerifyPack(id uuid.UUID) (bool, error) {
	key, err := d.PackKey()
	if err != nil {
		return false, err
	}
	bundle, err := d.ReadBundle(id)
	if err != nil {
		return false, err
	}
	return codec.VerifyCheckToken(bundle.CheckToken, bundle.References, key), nil
}
