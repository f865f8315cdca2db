//go:build !linux

package device

// systemMounts has no mount service to ask on this platform; discovery
// relies on the directory scan.
func systemMounts() ([]string, error) {
	return nil, nil
}
