package codec

import (
	"fmt"
	"strings"
)

// Metadata is the plaintext pack metadata from the md blob.
type Metadata struct {
	Title string
	Night bool // night mode: audio-only pack for lights-out listening
}

// ParseMetadata decodes a pack's md blob: UTF-8 "key: value" lines.
// Parsing is tolerant, unknown keys and malformed lines are skipped and an
// empty or absent blob yields zero values. Pack metadata is best effort on
// real devices and must never fail a load.
func ParseMetadata(data []byte) Metadata {
	var meta Metadata
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "title":
			meta.Title = value
		case "night":
			switch strings.ToLower(value) {
			case "true", "yes", "on", "1":
				meta.Night = true
			}
		}
	}
	return meta
}

// WriteMetadata encodes pack metadata into its canonical md form.
func WriteMetadata(meta Metadata) []byte {
	return []byte(fmt.Sprintf("title: %s\nnight: %t\n", meta.Title, meta.Night))
}
