package story

import (
	"fmt"

	"github.com/google/uuid"

	"packsmith/internal/codec"
)

// Build converts decoded node records into a validated StoryPack, resolving
// every position/count transition through the list index table into
// identifier-based references. The stage at ordinal 0 is the entrypoint;
// stages with the pause flag are stories; everything else is a menu.
func Build(packID uuid.UUID, header *codec.NodeIndexHeader, records []codec.NodeRecord, transitions []uint32, meta codec.Metadata) (*StoryPack, error) {
	stages := make([]*StageNode, 0, len(records))
	var actions []*ActionNode
	actionByID := make(map[uuid.UUID]*ActionNode)

	resolve := func(pos, count, option int32) (*Transition, error) {
		if pos < 0 || count <= 0 {
			return nil, nil
		}
		if int(pos)+int(count) > len(transitions) {
			return nil, validationErrorf("transition %d+%d runs past the %d-entry list index", pos, count, len(transitions))
		}
		options := make([]uuid.UUID, 0, count)
		for _, ordinal := range transitions[pos : pos+count] {
			if int(ordinal) >= len(records) {
				return nil, validationErrorf("option points at node %d, pack has %d", ordinal, len(records))
			}
			options = append(options, StageID(packID, int(ordinal)))
		}

		id := ActionID(packID, options)
		if _, ok := actionByID[id]; !ok {
			a := &ActionNode{ID: id, Options: options}
			actionByID[id] = a
			actions = append(actions, a)
		}
		return &Transition{Action: id, Option: int(option)}, nil
	}

	for i, rec := range records {
		kind := KindMenu
		switch {
		case i == 0:
			kind = KindEntrypoint
		case rec.Pause != 0:
			kind = KindStory
		}

		confirm, err := resolve(rec.OKPos, rec.OKCount, rec.OKOption)
		if err != nil {
			return nil, err
		}
		home, err := resolve(rec.HomePos, rec.HomeCount, rec.HomeOption)
		if err != nil {
			return nil, err
		}

		stage := &StageNode{
			ID:      StageID(packID, i),
			Name:    stageName(kind, i, meta.Title),
			Kind:    kind,
			Confirm: confirm,
			Home:    home,
			Control: ControlFlags{
				Wheel:    rec.Wheel != 0,
				OK:       rec.OK != 0,
				Home:     rec.Home != 0,
				Pause:    rec.Pause != 0,
				Autoplay: rec.Autoplay != 0,
			},
		}
		if rec.ImageRef >= 0 {
			stage.Image = AssetByIndex(rec.ImageRef)
		}
		if rec.AudioRef >= 0 {
			if kind == KindStory {
				stage.StoryAudio = AssetByIndex(rec.AudioRef)
			} else {
				stage.Audio = AssetByIndex(rec.AudioRef)
			}
		}
		stages = append(stages, stage)
	}

	return newPack(packID, meta.Title, meta.Night, *header, stages, actions)
}

// stageName synthesizes a display name for a decoded stage. The binary
// format carries no names; the entrypoint takes the pack title.
func stageName(kind NodeKind, ordinal int, title string) string {
	switch kind {
	case KindEntrypoint:
		if title != "" {
			return title
		}
		return "Entry"
	case KindStory:
		return fmt.Sprintf("Story %d", ordinal)
	default:
		return fmt.Sprintf("Menu %d", ordinal)
	}
}

// New assembles a pack from explicit stages and actions, the authoring
// path. The entrypoint is moved to table ordinal 0 so an encode keeps it
// where the firmware expects it, and story stages get their pause flag
// forced on.
func New(packID uuid.UUID, title string, night bool, stages []*StageNode, actions []*ActionNode) (*StoryPack, error) {
	ordered := stages
	for i, s := range stages {
		if s.Kind != KindEntrypoint {
			continue
		}
		if i != 0 {
			ordered = make([]*StageNode, 0, len(stages))
			ordered = append(ordered, s)
			ordered = append(ordered, stages[:i]...)
			ordered = append(ordered, stages[i+1:]...)
		}
		break
	}
	for _, s := range ordered {
		if s.Kind == KindStory {
			s.Control.Pause = true
		}
	}

	header := codec.NodeIndexHeader{Version: 1, PackVersion: 1}
	return newPack(packID, title, night, header, ordered, actions)
}

// newPack indexes the graph and validates it.
func newPack(packID uuid.UUID, title string, night bool, header codec.NodeIndexHeader, stages []*StageNode, actions []*ActionNode) (*StoryPack, error) {
	p := &StoryPack{
		ID:         packID,
		Title:      title,
		Night:      night,
		header:     header,
		stages:     stages,
		actions:    actions,
		stageByID:  make(map[uuid.UUID]*StageNode, len(stages)),
		actionByID: make(map[uuid.UUID]*ActionNode, len(actions)),
	}

	for _, s := range stages {
		if _, dup := p.stageByID[s.ID]; dup {
			return nil, validationErrorf("duplicate stage identifier %s", s.ID)
		}
		p.stageByID[s.ID] = s
		if s.Kind == KindEntrypoint {
			if p.entry != nil {
				return nil, validationErrorf("more than one entrypoint stage")
			}
			p.entry = s
		}
	}
	if p.entry == nil {
		return nil, validationErrorf("no entrypoint stage")
	}

	for _, a := range actions {
		if _, dup := p.actionByID[a.ID]; dup {
			return nil, validationErrorf("duplicate action identifier %s", a.ID)
		}
		p.actionByID[a.ID] = a
	}

	for _, a := range actions {
		for _, opt := range a.Options {
			if _, ok := p.stageByID[opt]; !ok {
				return nil, validationErrorf("action %s option %s is dangling", a.ID, opt)
			}
		}
	}
	for _, s := range stages {
		for _, tr := range []*Transition{s.Confirm, s.Home} {
			if tr != nil {
				if _, ok := p.actionByID[tr.Action]; !ok {
					return nil, validationErrorf("stage %q points at missing action %s", s.Name, tr.Action)
				}
			}
		}
	}

	return p, nil
}
