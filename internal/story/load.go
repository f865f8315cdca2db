package story

import (
	"fmt"

	"github.com/google/uuid"

	"packsmith/internal/codec"
)

// Load decodes one pack's blob bundle into a validated StoryPack: node
// index and list index through the codec, metadata parsed best-effort,
// then Build. Failures keep their type, a *codec.FormatError means the
// bytes are not a valid container, a *ValidationError means they are but
// the graph is broken.
func Load(packID uuid.UUID, bundle codec.Bundle) (*StoryPack, error) {
	header, records, err := codec.ReadNodeIndex(bundle.NodeIndex)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", codec.Reference(packID), err)
	}

	transitions := codec.ReadListIndex(bundle.ListIndex)
	meta := codec.ParseMetadata(bundle.Metadata)

	pack, err := Build(packID, header, records, transitions, meta)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", codec.Reference(packID), err)
	}
	return pack, nil
}
