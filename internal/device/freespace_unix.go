//go:build unix

package device

import "golang.org/x/sys/unix"

// freeSpace returns the bytes available to an unprivileged writer on the
// filesystem holding root.
func freeSpace(root string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
