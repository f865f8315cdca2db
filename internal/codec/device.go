package codec

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"

	"packsmith/internal/cipher"
)

// Device index layout
const (
	// DeviceIndexSize is the fixed length of the device .md blob.
	DeviceIndexSize = 512

	// PackIdentitySize is the length of one entry in the device .pi blob.
	PackIdentitySize = 16

	deviceVersionOffset  = 0
	firmwareMajorOffset  = 6
	firmwareMinorOffset  = 8
	serialNumberOffset   = 10
	deviceIdentityOffset = 256
)

// DeviceIndex is the decoded device .md blob. Reserved regions are carried
// verbatim so a rewrite reproduces the original bytes.
type DeviceIndex struct {
	// Version is the format version. 1 and 3 are generation-2 devices,
	// 6 and 7 are generation-3.
	Version uint16

	Reserved0 [4]byte

	// Firmware version as reported by the device.
	FirmwareMajor uint16
	FirmwareMinor uint16

	// SerialNumber is the device serial, stored big-endian unlike every
	// other integer in the format.
	SerialNumber uint64

	Reserved1 [238]byte

	// Identity is the encrypted device identity blob the pack key is
	// derived from.
	Identity [cipher.IdentitySize]byte
}

// Generation returns the hardware generation implied by the format version:
// 2 for versions 1 and 3, 3 for versions 6 and 7, 0 when unknown.
func (d *DeviceIndex) Generation() int {
	switch d.Version {
	case 1, 3:
		return 2
	case 6, 7:
		return 3
	default:
		return 0
	}
}

// ReadDeviceIndex decodes a device .md blob. Bytes past the fixed 512-byte
// layout are ignored.
func ReadDeviceIndex(data []byte) (*DeviceIndex, error) {
	if len(data) < DeviceIndexSize {
		return nil, formatErrorf("device index", "blob is %d bytes, need %d", len(data), DeviceIndexSize)
	}

	d := &DeviceIndex{
		Version:       binary.LittleEndian.Uint16(data[deviceVersionOffset:]),
		FirmwareMajor: binary.LittleEndian.Uint16(data[firmwareMajorOffset:]),
		FirmwareMinor: binary.LittleEndian.Uint16(data[firmwareMinorOffset:]),
		SerialNumber:  binary.BigEndian.Uint64(data[serialNumberOffset:]),
	}
	copy(d.Reserved0[:], data[2:firmwareMajorOffset])
	copy(d.Reserved1[:], data[18:deviceIdentityOffset])
	copy(d.Identity[:], data[deviceIdentityOffset:DeviceIndexSize])
	return d, nil
}

// WriteDeviceIndex encodes a device index into the fixed 512-byte layout.
func WriteDeviceIndex(d *DeviceIndex) []byte {
	buf := make([]byte, DeviceIndexSize)
	binary.LittleEndian.PutUint16(buf[deviceVersionOffset:], d.Version)
	copy(buf[2:firmwareMajorOffset], d.Reserved0[:])
	binary.LittleEndian.PutUint16(buf[firmwareMajorOffset:], d.FirmwareMajor)
	binary.LittleEndian.PutUint16(buf[firmwareMinorOffset:], d.FirmwareMinor)
	binary.BigEndian.PutUint64(buf[serialNumberOffset:], d.SerialNumber)
	copy(buf[18:deviceIdentityOffset], d.Reserved1[:])
	copy(buf[deviceIdentityOffset:], d.Identity[:])
	return buf
}

// ReadPackIdentities decodes the device .pi blob: a flat concatenation of
// 16-byte pack identifiers in install order. A trailing remainder shorter
// than one identifier is ignored, devices may pad.
func ReadPackIdentities(data []byte) []uuid.UUID {
	count := len(data) / PackIdentitySize
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		var id uuid.UUID
		copy(id[:], data[i*PackIdentitySize:])
		ids = append(ids, id)
	}
	return ids
}

// WritePackIdentities encodes pack identifiers back into a .pi blob.
func WritePackIdentities(ids []uuid.UUID) []byte {
	buf := make([]byte, 0, len(ids)*PackIdentitySize)
	for _, id := range ids {
		buf = append(buf, id[:]...)
	}
	return buf
}

// Reference derives the on-device directory name for a pack identifier: the
// last 8 hex characters, upper-cased, no separators. Pack content lives
// under .content/<REF>/.
func Reference(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[len(hex)-8:])
}
