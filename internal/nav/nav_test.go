package nav

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packsmith/internal/codec"
	"packsmith/internal/story"
)

var navPackID = uuid.MustParse("5e4b2a91-03c7-4d58-9f21-84a6c20b7731")

// navPack builds the canonical wheel pack: an autoplay entrypoint over a
// three-option wheel menu leading to three story leaves. entryOption is
// the entrypoint's pinned confirm option, -1 leaves it unpinned.
//
//	E(0) -> M(1) -> {A(2), B(3), C(4)}
func navPack(t *testing.T, entryOption int32) *story.StoryPack {
	t.Helper()

	header := &codec.NodeIndexHeader{Version: 1, PackVersion: 1, ImageCount: 2, SoundCount: 5}
	records := []codec.NodeRecord{
		{ImageRef: 0, AudioRef: 0, OKPos: 0, OKCount: 1, OKOption: entryOption, HomePos: -1, HomeCount: -1, HomeOption: -1, OK: 1, Autoplay: 1},
		{ImageRef: 1, AudioRef: 1, OKPos: 1, OKCount: 3, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Wheel: 1, OK: 1, Home: 1},
		{ImageRef: -1, AudioRef: 2, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: 0, HomeCount: 1, HomeOption: 0, Home: 1, Pause: 1},
		{ImageRef: -1, AudioRef: 3, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: 0, HomeCount: 1, HomeOption: 0, Home: 1, Pause: 1},
		{ImageRef: -1, AudioRef: 4, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: 0, HomeCount: 1, HomeOption: 0, Home: 1, Pause: 1},
	}
	transitions := []uint32{1, 2, 3, 4}
	meta := codec.Metadata{Title: "E"}

	pack, err := story.Build(navPackID, header, records, transitions, meta)
	require.NoError(t, err)
	return pack
}

// autoMenuPack puts the wheel options directly behind an autoplay
// entrypoint, so auto-advance has three candidates to pick from.
func autoMenuPack(t *testing.T, entryOption int32) *story.StoryPack {
	t.Helper()

	header := &codec.NodeIndexHeader{Version: 1, PackVersion: 1, SoundCount: 4}
	records := []codec.NodeRecord{
		{ImageRef: -1, AudioRef: 0, OKPos: 0, OKCount: 3, OKOption: entryOption, HomePos: -1, HomeCount: -1, HomeOption: -1, OK: 1, Autoplay: 1},
		{ImageRef: -1, AudioRef: 1, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Home: 1, Pause: 1},
		{ImageRef: -1, AudioRef: 2, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Home: 1, Pause: 1},
		{ImageRef: -1, AudioRef: 3, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Home: 1, Pause: 1},
	}
	transitions := []uint32{1, 2, 3}

	pack, err := story.Build(navPackID, header, records, transitions, codec.Metadata{Title: "auto"})
	require.NoError(t, err)
	return pack
}

func TestNewSession_StartsAtEntrypoint(t *testing.T) {
	pack := navPack(t, 0)

	state := NewSession(pack).State()

	assert.Equal(t, pack.Entrypoint().ID, state.Current)
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, []string{"E"}, state.Breadcrumb)
	assert.Equal(t, 1, state.Depth())
}

// The full wheel walk: into the menu, around the wheel both ways, into a
// story leaf and home again.
func TestSession_WheelWalk(t *testing.T) {
	pack := navPack(t, 0)
	session := NewSession(pack)
	stages := pack.Stages()

	state, ok := session.Apply(Confirm)
	require.True(t, ok)
	assert.Equal(t, stages[1].ID, state.Current)
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, []string{"E", "Menu 1"}, state.Breadcrumb)

	// Four steps right wrap the three-slot wheel once: 1, 2, 0, 1.
	for _, want := range []int{1, 2, 0, 1} {
		state, ok = session.Apply(MoveRight)
		require.True(t, ok)
		assert.Equal(t, want, state.Selected)
		assert.Equal(t, stages[1].ID, state.Current, "wheel must not change the node")
	}

	// One step left comes back from 1 to 0; one more wraps to 2.
	state, ok = session.Apply(MoveLeft)
	require.True(t, ok)
	assert.Equal(t, 0, state.Selected)
	state, ok = session.Apply(MoveLeft)
	require.True(t, ok)
	assert.Equal(t, 2, state.Selected)

	// Back to slot 0 and confirm into the first story.
	session.Apply(MoveRight)
	state, ok = session.Apply(Confirm)
	require.True(t, ok)
	assert.Equal(t, stages[2].ID, state.Current)
	assert.Equal(t, []string{"E", "Menu 1", "Story 2"}, state.Breadcrumb)

	// Home resets unconditionally to the entry state.
	state, ok = session.Apply(Home)
	require.True(t, ok)
	assert.Equal(t, stages[0].ID, state.Current)
	assert.Equal(t, 0, state.Selected)
	assert.Equal(t, []string{"E"}, state.Breadcrumb)
}

func TestApply_DisabledInputs(t *testing.T) {
	pack := navPack(t, 0)
	session := NewSession(pack)

	// A single option disables the wheel but not confirm.
	before := session.State()
	state, ok := session.Apply(MoveRight)
	assert.False(t, ok)
	assert.Equal(t, before, state)
	state, ok = session.Apply(MoveLeft)
	assert.False(t, ok)
	assert.Equal(t, before, state)

	// Home at the entrypoint is a no-op.
	state, ok = session.Apply(Home)
	assert.False(t, ok)
	assert.Equal(t, before, state)

	// Walk to a leaf: no options at all, only home remains.
	session.Apply(Confirm)
	session.Apply(Confirm)
	before = session.State()
	for _, in := range []Input{MoveLeft, MoveRight, Confirm} {
		state, ok = session.Apply(in)
		assert.False(t, ok, "input %s on a leaf", in)
		assert.Equal(t, before, state)
	}
	_, ok = session.Apply(Home)
	assert.True(t, ok)
}

func TestAutoAdvance_PinnedOption(t *testing.T) {
	pack := autoMenuPack(t, 2)
	session := NewSession(pack)

	state, ok := session.AutoAdvance()
	require.True(t, ok)
	assert.Equal(t, pack.Stages()[3].ID, state.Current)
	assert.Equal(t, 0, state.Selected)
}

// An unpinned autoplay node and one pinned to option 0 take the same
// transition.
func TestAutoAdvance_UnpinnedEqualsOptionZero(t *testing.T) {
	for _, option := range []int32{-1, 0, 7} {
		session := NewSession(autoMenuPack(t, option))

		state, ok := session.AutoAdvance()
		require.True(t, ok, "option %d", option)
		assert.Equal(t, story.StageID(navPackID, 1), state.Current, "option %d", option)
	}
}

func TestAutoAdvance_NotApplicable(t *testing.T) {
	pack := navPack(t, 0)
	session := NewSession(pack)

	// The menu is not autoplay.
	session.Apply(Confirm)
	before := session.State()
	state, ok := session.AutoAdvance()
	assert.False(t, ok)
	assert.Equal(t, before, state)

	// An autoplay node with nothing to advance into stays put.
	header := &codec.NodeIndexHeader{Version: 1, PackVersion: 1}
	records := []codec.NodeRecord{
		{ImageRef: -1, AudioRef: -1, OKPos: -1, OKCount: -1, OKOption: -1, HomePos: -1, HomeCount: -1, HomeOption: -1, Autoplay: 1},
	}
	lone, err := story.Build(navPackID, header, records, nil, codec.Metadata{})
	require.NoError(t, err)

	_, ok = NewSession(lone).AutoAdvance()
	assert.False(t, ok)
}

func TestNavigation_Deterministic(t *testing.T) {
	pack := navPack(t, 0)
	inputs := []Input{Confirm, MoveRight, MoveRight, MoveLeft, Confirm, Home, Confirm, MoveRight}

	run := func() State {
		session := NewSession(pack)
		var state State
		for _, in := range inputs {
			state, _ = session.Apply(in)
		}
		return state
	}

	assert.Equal(t, run(), run())
}

func TestState_SnapshotIsIsolated(t *testing.T) {
	session := NewSession(navPack(t, 0))

	state := session.State()
	state.Breadcrumb[0] = "mutated"
	state.Selected = 99

	fresh := session.State()
	assert.Equal(t, []string{"E"}, fresh.Breadcrumb)
	assert.Equal(t, 0, fresh.Selected)
}

func TestView(t *testing.T) {
	pack := navPack(t, 0)
	session := NewSession(pack)
	session.Apply(Confirm)
	session.Apply(MoveRight)

	view := session.View()

	require.NotNil(t, view.Node)
	assert.Equal(t, pack.Stages()[1].ID, view.Node.ID)
	require.Len(t, view.Options, 3)
	assert.Equal(t, pack.Stages()[3].ID, view.Options[1].ID)
	assert.Equal(t, 1, view.Selected)
	assert.Equal(t, []string{"E", "Menu 1"}, view.Breadcrumb)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		word string
		want Input
	}{
		{"left", MoveLeft},
		{"l", MoveLeft},
		{"RIGHT", MoveRight},
		{"next", MoveRight},
		{"ok", Confirm},
		{"enter", Confirm},
		{" home ", Home},
		{"h", Home},
	}
	for _, tt := range tests {
		got, err := ParseInput(tt.word)
		require.NoError(t, err, tt.word)
		assert.Equal(t, tt.want, got, tt.word)
	}

	_, err := ParseInput("sideways")
	assert.ErrorIs(t, err, ErrUnknownInput)
}
