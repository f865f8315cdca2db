package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDevicesListsMountedRoots(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "LUNII")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir root: %v", err)
	}
	fillDeviceRoot(t, root, testPack)

	configPath, _ := writeTestConfig(t, parent)
	out, _, err := runCLI(t, configPath, "devices")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, root)
	requireContains(t, out, "0002303012345678")
	requireContains(t, out, "2.22")
}

func TestDevicesNoneFound(t *testing.T) {
	parent := t.TempDir()

	configPath, _ := writeTestConfig(t, parent)
	out, _, err := runCLI(t, configPath, "devices")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, "No devices found")
}

func TestDevicesSkipsNonDeviceDirs(t *testing.T) {
	parent := t.TempDir()
	if err := os.MkdirAll(filepath.Join(parent, "USB-STICK"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	configPath, _ := writeTestConfig(t, parent)
	out, _, err := runCLI(t, configPath, "devices")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	requireContains(t, out, "No devices found")
}
