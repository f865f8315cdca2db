package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packsmith/internal/cipher"
	"packsmith/internal/codec"
)

var (
	packOne = uuid.MustParse("c4139d59-872a-4d15-8cf1-76d34cdf38c6")
	packTwo = uuid.MustParse("9f8a1c20-55de-43b1-a0d7-30e5cc914b88")
)

// testIdentity builds an encrypted device identity whose derived pack key
// is known to the test.
func testIdentity(t *testing.T) ([256]byte, cipher.Key) {
	t.Helper()

	plain := make([]byte, 256)
	for i := range plain {
		plain[i] = byte(i * 7)
	}
	enc := cipher.EncryptBytes(plain, cipher.DefaultKey)
	require.Len(t, enc, 256)

	var identity [256]byte
	copy(identity[:], enc)

	key, err := cipher.DerivePackKey(identity[:])
	require.NoError(t, err)
	return identity, key
}

// packRecords is the minimal valid graph for device fixtures: an
// entrypoint over one story leaf.
func packRecords() (*codec.NodeIndexHeader, []codec.NodeRecord, []uint32) {
	header := &codec.NodeIndexHeader{Version: 1, PackVersion: 1, SoundCount: 2}
	records := []codec.NodeRecord{
		{ImageRef: -1, AudioRef: 0, OKPos: 0, OKCount: 1, OKOption: 0, HomePos: -1, HomeCount: -1, HomeOption: -1, OK: 1},
		{ImageRef: -1, AudioRef: 1, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Home: 1, Pause: 1},
	}
	return header, records, []uint32{1}
}

// writePackDir lays one pack's blobs into dir, sealing the check token
// with key.
func writePackDir(t *testing.T, dir string, title string, key cipher.Key) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	header, records, transitions := packRecords()

	ri := make([]byte, 128)
	for i := range ri {
		ri[i] = byte(200 - i)
	}

	blobs := map[string][]byte{
		"ni": codec.WriteNodeIndex(header, records),
		"li": codec.WriteListIndex(transitions),
		"ri": ri,
		"si": {0x01, 0x02, 0x03, 0x04},
		"bt": codec.SealCheckToken(ri, key),
		"md": codec.WriteMetadata(codec.Metadata{Title: title}),
	}
	for name, data := range blobs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}

	for _, sub := range []string{"rf/000", "sf/000"} {
		adir := filepath.Join(dir, filepath.FromSlash(sub))
		require.NoError(t, os.MkdirAll(adir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(adir, "AA000001"), []byte{0xFF}, 0o644))
	}
}

// newTestRoot builds a full device tree with packOne installed and
// returns its root and pack key.
func newTestRoot(t *testing.T) (string, cipher.Key) {
	t.Helper()
	root := t.TempDir()

	identity, key := testIdentity(t)
	index := &codec.DeviceIndex{
		Version:       1,
		FirmwareMajor: 1,
		FirmwareMinor: 22,
		SerialNumber:  2302303012,
		Identity:      identity,
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, IndexFile), codec.WriteDeviceIndex(index), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, PackListFile), codec.WritePackIdentities([]uuid.UUID{packOne}), 0o644))

	writePackDir(t, filepath.Join(root, ContentRoot, codec.Reference(packOne)), "Suzanne et Gaston", key)
	return root, key
}

// ============================================================
// Open
// ============================================================

func TestOpen(t *testing.T) {
	root, key := newTestRoot(t)

	d, err := Open(root)
	require.NoError(t, err)

	assert.Equal(t, root, d.Root)
	assert.Equal(t, 2, d.Index.Generation())
	assert.Equal(t, "1.22", d.Firmware())
	assert.Equal(t, uint64(2302303012), d.Index.SerialNumber)
	assert.Equal(t, []uuid.UUID{packOne}, d.Packs)
	assert.True(t, d.Installed(packOne))
	assert.False(t, d.Installed(packTwo))

	got, err := d.PackKey()
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestOpen_NotADevice(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotADevice)
}

func TestOpen_MissingPackList(t *testing.T) {
	root := t.TempDir()
	identity, _ := testIdentity(t)
	index := &codec.DeviceIndex{Version: 1, Identity: identity}
	require.NoError(t, os.WriteFile(filepath.Join(root, IndexFile), codec.WriteDeviceIndex(index), 0o644))

	d, err := Open(root)
	require.NoError(t, err)
	assert.Empty(t, d.Packs)
}

func TestOpen_UnsupportedGeneration(t *testing.T) {
	root := t.TempDir()
	identity, _ := testIdentity(t)
	index := &codec.DeviceIndex{Version: 6, Identity: identity}
	require.NoError(t, os.WriteFile(filepath.Join(root, IndexFile), codec.WriteDeviceIndex(index), 0o644))

	d, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Index.Generation())

	_, err = d.PackKey()
	assert.ErrorIs(t, err, ErrUnsupportedGeneration)
}

func TestIsDevice(t *testing.T) {
	root, _ := newTestRoot(t)
	assert.True(t, IsDevice(root))
	assert.False(t, IsDevice(t.TempDir()))
}

// ============================================================
// Bundles and packs
// ============================================================

func TestReadBundle(t *testing.T) {
	root, _ := newTestRoot(t)
	d, err := Open(root)
	require.NoError(t, err)

	bundle, err := d.ReadBundle(packOne)
	require.NoError(t, err)

	assert.NotEmpty(t, bundle.NodeIndex)
	assert.NotEmpty(t, bundle.ListIndex)
	assert.NotEmpty(t, bundle.References)
	assert.NotEmpty(t, bundle.CheckToken)
	assert.NotEmpty(t, bundle.Metadata)
}

func TestReadBundle_NotInstalled(t *testing.T) {
	root, _ := newTestRoot(t)
	d, err := Open(root)
	require.NoError(t, err)

	_, err = d.ReadBundle(packTwo)
	assert.ErrorIs(t, err, ErrPackNotFound)
}

func TestLoadPack(t *testing.T) {
	root, _ := newTestRoot(t)
	d, err := Open(root)
	require.NoError(t, err)

	pack, err := d.LoadPack(packOne)
	require.NoError(t, err)

	assert.Equal(t, "Suzanne et Gaston", pack.Title)
	assert.Len(t, pack.Stages(), 2)
}

func TestVerifyPack(t *testing.T) {
	root, _ := newTestRoot(t)
	d, err := Open(root)
	require.NoError(t, err)

	ok, err := d.VerifyPack(packOne)
	require.NoError(t, err)
	assert.True(t, ok)

	// Corrupt one byte of the check token.
	btPath := filepath.Join(d.ContentDir(packOne), "bt")
	bt, err := os.ReadFile(btPath)
	require.NoError(t, err)
	bt[10] ^= 0x01
	require.NoError(t, os.WriteFile(btPath, bt, 0o644))

	ok, err = d.VerifyPack(packOne)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================
// Discover
// ============================================================

func TestDiscover(t *testing.T) {
	root, _ := newTestRoot(t)
	notADevice := t.TempDir()

	found := Discover(root, notADevice, root)

	assert.Equal(t, []string{root}, found)
}

func TestDiscover_ScansParents(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "LUNII")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, IndexFile), make([]byte, 512), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, PackListFile), []byte{}, 0o644))

	found := Discover(parent)

	assert.Contains(t, found, root)
}
