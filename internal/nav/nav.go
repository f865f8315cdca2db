// Package nav drives playback-free navigation over a story pack: the same
// wheel/confirm/home automaton the device firmware runs, minus the audio.
//
// A Session owns its position exclusively and is not safe for concurrent
// use; the pack behind it is read-only and may back any number of
// sessions. Every transition is a pure computation over the already-built
// graph, applied synchronously. Inputs that are not enabled in the current
// position leave the session untouched and report false, they are a normal
// part of interactive use, not faults.
package nav

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"packsmith/internal/story"
)

// Input is one user action on the device controls.
type Input uint8

const (
	MoveLeft  Input = iota + 1 // wheel one step counter-clockwise
	MoveRight                  // wheel one step clockwise
	Confirm                    // OK button
	Home                       // home button, long-press reset
)

func (i Input) String() string {
	switch i {
	case MoveLeft:
		return "left"
	case MoveRight:
		return "right"
	case Confirm:
		return "ok"
	case Home:
		return "home"
	default:
		return fmt.Sprintf("input(%d)", i)
	}
}

// ErrUnknownInput reports an input word ParseInput does not recognize.
var ErrUnknownInput = errors.New("nav: unknown input")

// ParseInput maps an interactive command word to an Input.
func ParseInput(word string) (Input, error) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "left", "l", "prev":
		return MoveLeft, nil
	case "right", "r", "next":
		return MoveRight, nil
	case "ok", "o", "enter", "confirm":
		return Confirm, nil
	case "home", "h":
		return Home, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownInput, word)
}

// State is a snapshot of a session's position: the current stage, the
// wheel position within that stage's options and the path of stage names
// walked since entry. Snapshots are values; mutating one never affects
// the session it came from.
type State struct {
	Current    uuid.UUID
	Selected   int
	Breadcrumb []string
}

// Depth is how many stages deep the session is; 1 at the entrypoint.
func (s State) Depth() int { return len(s.Breadcrumb) }

// View is the read-only projection a renderer needs: the resolved current
// node and its selectable children alongside the raw state.
type View struct {
	Node       *story.StageNode
	Options    []*story.StageNode
	Selected   int
	Breadcrumb []string
}

// Session is one walk through a pack. Create with NewSession, drive with
// Apply and AutoAdvance.
type Session struct {
	pack  *story.StoryPack
	state State
}

// NewSession starts a session at the pack's entrypoint.
func NewSession(pack *story.StoryPack) *Session {
	s := &Session{pack: pack}
	s.reset()
	return s
}

func (s *Session) reset() {
	entry := s.pack.Entrypoint()
	s.state = State{
		Current:    entry.ID,
		Selected:   0,
		Breadcrumb: []string{entry.Name},
	}
}

func (s *Session) enter(target *story.StageNode) {
	s.state.Current = target.ID
	s.state.Selected = 0
	s.state.Breadcrumb = append(s.state.Breadcrumb, target.Name)
}

// State returns a snapshot of the current position.
func (s *Session) State() State {
	return State{
		Current:    s.state.Current,
		Selected:   s.state.Selected,
		Breadcrumb: slices.Clone(s.state.Breadcrumb),
	}
}

// View resolves the current position against the pack for rendering.
func (s *Session) View() View {
	node := s.pack.FindStage(s.state.Current)
	options := s.pack.OptionsOf(node)
	selected := s.state.Selected
	if selected >= len(options) {
		selected = 0
	}
	return View{
		Node:       node,
		Options:    options,
		Selected:   selected,
		Breadcrumb: slices.Clone(s.state.Breadcrumb),
	}
}

// Apply runs one input against the session. It returns the resulting
// state snapshot and whether the input was enabled; a disabled input
// leaves the session unchanged.
//
// The wheel moves only between two or more options and wraps modulo the
// option count of the moment, never a cached one. Confirm needs at least
// one option. Home needs the session to be below the entrypoint and
// resets it there unconditionally, discarding the walked path.
func (s *Session) Apply(in Input) (State, bool) {
	node := s.pack.FindStage(s.state.Current)
	options := s.pack.OptionsOf(node)

	switch in {
	case MoveLeft, MoveRight:
		if len(options) < 2 {
			return s.State(), false
		}
		step := 1
		if in == MoveLeft {
			step = -1
		}
		n := len(options)
		s.state.Selected = ((s.state.Selected+step)%n + n) % n
		return s.State(), true

	case Confirm:
		if len(options) == 0 {
			return s.State(), false
		}
		selected := s.state.Selected
		if selected < 0 || selected >= len(options) {
			selected = 0
		}
		s.enter(options[selected])
		return s.State(), true

	case Home:
		if len(s.state.Breadcrumb) <= 1 {
			return s.State(), false
		}
		s.reset()
		return s.State(), true
	}

	return s.State(), false
}

// AutoAdvance fires the transition an autoplay node takes on its own once
// its audio ends: into the child its confirm transition pins, or the
// first child when the pin is -1 or out of range. It reports false on
// nodes that do not auto-advance, callers poll it after rendering each
// position.
func (s *Session) AutoAdvance() (State, bool) {
	node := s.pack.FindStage(s.state.Current)
	if node == nil || !node.Control.Autoplay {
		return s.State(), false
	}
	options := s.pack.OptionsOf(node)
	if len(options) == 0 {
		return s.State(), false
	}

	target := 0
	if node.Confirm != nil && node.Confirm.Option >= 0 && node.Confirm.Option < len(options) {
		target = node.Confirm.Option
	}
	s.enter(options[target])
	return s.State(), true
}
