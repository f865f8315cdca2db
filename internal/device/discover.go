package device

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// defaultMountParents are the directories removable media lands under on
// the platforms this tool targets. Each direct child (and on Linux, each
// per-user child one level deeper) is a mount point candidate.
func defaultMountParents() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Volumes"}
	case "windows":
		return nil // drive letters are probed directly
	default:
		return []string{"/media", "/run/media", "/mnt"}
	}
}

// Discover enumerates mounted roots that look like storyteller devices.
// Extra paths are checked first, both directly and as parents of mount
// points, then whatever the platform's mount service reports, then a scan
// of the conventional mount directories. Each device root appears once, in
// discovery order.
func Discover(extra ...string) []string {
	var candidates []string
	candidates = append(candidates, extra...)
	candidates = append(candidates, scanMountParents(extra)...)

	if mounts, err := systemMounts(); err == nil {
		candidates = append(candidates, mounts...)
	}
	candidates = append(candidates, scanMountParents(defaultMountParents())...)

	seen := make(map[string]bool)
	var found []string
	for _, root := range candidates {
		root = filepath.Clean(root)
		if seen[root] || !IsDevice(root) {
			continue
		}
		seen[root] = true
		found = append(found, root)
	}
	return found
}

// scanMountParents lists children of the given directories, descending one
// extra level for the per-user layout of /media and /run/media.
func scanMountParents(parents []string) []string {
	var out []string
	for _, parent := range parents {
		entries, err := os.ReadDir(parent)
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			child := filepath.Join(parent, e.Name())
			out = append(out, child)

			sub, err := os.ReadDir(child)
			if err != nil {
				continue
			}
			for _, s := range sub {
				if s.IsDir() {
					out = append(out, filepath.Join(child, s.Name()))
				}
			}
		}
	}
	return out
}
