// Package story is the in-memory story graph: stage nodes, action nodes and
// the pack that owns them.
//
// The on-device format keeps node transitions as raw offsets into a shared
// table inside fixed-size records. Here they are resolved once, at build
// time, into identifier-based references over an owned, indexed collection,
// so everything downstream deals in stable identifiers instead of byte
// offsets. A built pack is immutable and may be shared read-only across any
// number of navigation sessions.
package story

import (
	"fmt"

	"github.com/google/uuid"

	"packsmith/internal/codec"
)

// NodeKind classifies a stage node.
type NodeKind uint8

const (
	KindEntrypoint NodeKind = 1 // pack cover, where navigation starts
	KindMenu       NodeKind = 2 // selection screen with wheel options
	KindStory      NodeKind = 3 // long-form story playback
)

func (k NodeKind) String() string {
	switch k {
	case KindEntrypoint:
		return "entrypoint"
	case KindMenu:
		return "menu"
	case KindStory:
		return "story"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// AssetRef points at an asset, either by index into the pack's asset tables
// (decoded packs) or by source path (authored packs). Index is -1 while a
// path-based reference has no table slot yet.
type AssetRef struct {
	Index int32
	Path  string
}

// AssetByIndex references an asset by table index.
func AssetByIndex(index int32) *AssetRef { return &AssetRef{Index: index} }

// AssetByPath references an asset by source path.
func AssetByPath(path string) *AssetRef { return &AssetRef{Index: -1, Path: path} }

// Transition points one stage at an action node. Option optionally fixes
// which child is taken without user input; -1 leaves the choice to the
// wheel.
type Transition struct {
	Action uuid.UUID
	Option int
}

// ControlFlags are the per-node control switches, decided once at decode
// time rather than re-interpreted at every use.
type ControlFlags struct {
	Wheel    bool // selection wheel turns
	OK       bool // confirm button accepted
	Home     bool // home button accepted
	Pause    bool // pause allowed during playback
	Autoplay bool // node advances on its own after its audio
}

// StageNode is one navigable point in the graph. Constructed once when a
// pack is decoded or authored, immutable thereafter, owned exclusively by
// its StoryPack.
type StageNode struct {
	ID   uuid.UUID
	Name string
	Kind NodeKind

	Image      *AssetRef // screen image, nil if absent
	Audio      *AssetRef // navigation announcement audio, nil if absent
	StoryAudio *AssetRef // long-form story audio, story nodes only

	Confirm *Transition // action reached on OK, nil on leaves
	Home    *Transition // action behind the home button, unused by navigation

	Control ControlFlags
}

// ActionNode is an ordered sequence of stage identifiers: the selectable
// children reached from one or more stages. Many stages may share one
// action node.
type ActionNode struct {
	ID      uuid.UUID
	Options []uuid.UUID
}

// StoryPack owns the full graph of one pack.
type StoryPack struct {
	ID    uuid.UUID
	Title string
	Night bool // night mode: audio-only pack

	header codec.NodeIndexHeader

	stages     []*StageNode
	actions    []*ActionNode
	stageByID  map[uuid.UUID]*StageNode
	actionByID map[uuid.UUID]*ActionNode
	entry      *StageNode
}

// ValidationError reports a structurally invalid story graph: the bytes or
// the authored description parsed fine but do not form a usable pack.
// Distinct from codec.FormatError so tooling can tell "cannot read" from
// "reads but is broken".
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "story: invalid pack: " + e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StageID derives the stable identifier of the stage at a node table
// ordinal. Decoding the same pack always yields the same identifiers,
// which is what lets a decoded pack be re-encoded and decoded again
// without the graph changing shape.
func StageID(packID uuid.UUID, ordinal int) uuid.UUID {
	return uuid.NewSHA1(packID, []byte(fmt.Sprintf("stage:%d", ordinal)))
}

// ActionID derives an action node identifier from its option list. Equal
// option sequences map to the same action regardless of where the encoder
// placed them in the list index.
func ActionID(packID uuid.UUID, options []uuid.UUID) uuid.UUID {
	name := make([]byte, 0, 7+len(options)*16)
	name = append(name, "action:"...)
	for _, o := range options {
		name = append(name, o[:]...)
	}
	return uuid.NewSHA1(packID, name)
}
