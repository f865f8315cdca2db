//go:build linux

package device

import (
	"bytes"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	udisksService = "org.freedesktop.UDisks2"
	udisksPath    = "/org/freedesktop/UDisks2"

	udisksBlockIface = "org.freedesktop.UDisks2.Block"
	udisksFSIface    = "org.freedesktop.UDisks2.Filesystem"
	udisksDriveIface = "org.freedesktop.UDisks2.Drive"
)

// systemMounts asks UDisks2 over the system bus for the mount points of
// filesystems on removable drives. Storage daemons are not universal, a
// failure here just hands discovery over to the directory scan.
func systemMounts() ([]string, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("device: system bus: %w", err)
	}

	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := conn.Object(udisksService, udisksPath).Call("org.freedesktop.DBus.ObjectManager.GetManagedObjects", 0)
	if err := call.Store(&objects); err != nil {
		return nil, fmt.Errorf("device: udisks2: %w", err)
	}

	removable := make(map[dbus.ObjectPath]bool)
	for path, ifaces := range objects {
		drive, ok := ifaces[udisksDriveIface]
		if !ok {
			continue
		}
		if r, ok := drive["Removable"].Value().(bool); ok && r {
			removable[path] = true
		}
	}

	var mounts []string
	for _, ifaces := range objects {
		fs, ok := ifaces[udisksFSIface]
		if !ok {
			continue
		}
		block, ok := ifaces[udisksBlockIface]
		if !ok {
			continue
		}
		drivePath, ok := block["Drive"].Value().(dbus.ObjectPath)
		if !ok || !removable[drivePath] {
			continue
		}

		points, ok := fs["MountPoints"].Value().([][]byte)
		if !ok {
			continue
		}
		for _, p := range points {
			if mp := string(bytes.TrimRight(p, "\x00")); mp != "" {
				mounts = append(mounts, mp)
			}
		}
	}
	return mounts, nil
}
