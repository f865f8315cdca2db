package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"packsmith/internal/cipher"
	"packsmith/internal/codec"
	"packsmith/internal/device"
)

var testPack = uuid.MustParse("c4139d59-872a-4d15-8cf1-76d34cdf38c6")

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes a config pointing the library at a fresh temp
// database and device discovery at the given parents only.
func writeTestConfig(t *testing.T, mountParents ...string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")

	var parents strings.Builder
	for i, p := range mountParents {
		if i > 0 {
			parents.WriteString(", ")
		}
		fmt.Fprintf(&parents, "%q", p)
	}
	content := fmt.Sprintf(
		"version = 1\n\n[library]\npath = %q\n\n[device]\nmount_parents = [%s]\n",
		dbPath, parents.String(),
	)

	path := filepath.Join(dir, "config.toml")
	mustWrite(t, path, []byte(content))
	return path, dbPath
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// newDeviceRoot fabricates a mounted device tree with the given packs
// installed, complete enough for every command that opens a root.
func newDeviceRoot(t *testing.T, packs ...uuid.UUID) string {
	t.Helper()
	root := t.TempDir()
	fillDeviceRoot(t, root, packs...)
	return root
}

func fillDeviceRoot(t *testing.T, root string, packs ...uuid.UUID) {
	t.Helper()

	plain := make([]byte, 256)
	for i := range plain {
		plain[i] = byte(i * 7)
	}
	var identity [256]byte
	copy(identity[:], cipher.EncryptBytes(plain, cipher.DefaultKey))

	key, err := cipher.DerivePackKey(identity[:])
	if err != nil {
		t.Fatalf("derive pack key: %v", err)
	}

	index := &codec.DeviceIndex{
		Version:       1,
		FirmwareMajor: 2,
		FirmwareMinor: 22,
		SerialNumber:  2303012345678,
		Identity:      identity,
	}
	mustWrite(t, filepath.Join(root, device.IndexFile), codec.WriteDeviceIndex(index))
	mustWrite(t, filepath.Join(root, device.PackListFile), codec.WritePackIdentities(packs))

	for _, id := range packs {
		writePackDir(t, filepath.Join(root, device.ContentRoot, codec.Reference(id)), "Suzanne et Gaston", key)
	}
}

// writePackDir lays one pack's blobs into dir: an entrypoint over a
// single story leaf, check token sealed with key.
func writePackDir(t *testing.T, dir, title string, key cipher.Key) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	header := &codec.NodeIndexHeader{Version: 1, PackVersion: 1, SoundCount: 2}
	records := []codec.NodeRecord{
		{ImageRef: -1, AudioRef: 0, OKPos: 0, OKCount: 1, OKOption: 0, HomePos: -1, HomeCount: -1, HomeOption: -1, OK: 1},
		{ImageRef: -1, AudioRef: 1, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Home: 1, Pause: 1},
	}

	ri := make([]byte, 128)
	for i := range ri {
		ri[i] = byte(i)
	}

	blobs := map[string][]byte{
		"ni": codec.WriteNodeIndex(header, records),
		"li": codec.WriteListIndex([]uint32{1}),
		"ri": ri,
		"si": {0x01, 0x02, 0x03, 0x04},
		"bt": codec.SealCheckToken(ri, key),
		"md": codec.WriteMetadata(codec.Metadata{Title: title}),
	}
	for name, data := range blobs {
		mustWrite(t, filepath.Join(dir, name), data)
	}
}
