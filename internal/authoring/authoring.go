// Package authoring reads and writes the JSON description format for
// story packs. A document names its stages and actions with local string
// identifiers and references assets by source path; parsing turns that
// into the same validated story graph an installed pack decodes to, so
// authored and decoded packs are interchangeable downstream.
//
// Structure is enforced by an embedded JSON Schema before any graph rules
// run: malformed JSON is a format failure, a schema or graph violation is
// a ValidationError.
package authoring

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"packsmith/internal/codec"
	"packsmith/internal/story"
)

// DocumentFormat tags authored documents.
const DocumentFormat = "packsmith-story"

//go:embed schema/story-v1.schema.json
var schemaSource string

var storySchema = jsonschema.MustCompileString("story-v1.schema.json", schemaSource)

// assetRef is either a source path or an asset table index in JSON.
type assetRef struct {
	path  string
	index int32
}

func (a assetRef) MarshalJSON() ([]byte, error) {
	if a.path != "" {
		return json.Marshal(a.path)
	}
	return json.Marshal(a.index)
}

func (a *assetRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.path)
	}
	return json.Unmarshal(data, &a.index)
}

func (a *assetRef) toModel() *story.AssetRef {
	if a == nil {
		return nil
	}
	if a.path != "" {
		return story.AssetByPath(a.path)
	}
	return story.AssetByIndex(a.index)
}

func fromModel(r *story.AssetRef) *assetRef {
	switch {
	case r == nil:
		return nil
	case r.Path != "":
		return &assetRef{path: r.Path}
	default:
		return &assetRef{index: r.Index}
	}
}

type transitionDoc struct {
	Action string `json:"action"`
	Option *int   `json:"option,omitempty"`
}

type controlsDoc struct {
	Wheel    bool `json:"wheel,omitempty"`
	OK       bool `json:"ok,omitempty"`
	Home     bool `json:"home,omitempty"`
	Pause    bool `json:"pause,omitempty"`
	Autoplay bool `json:"autoplay,omitempty"`
}

type stageDoc struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name,omitempty"`
	Image      *assetRef      `json:"image,omitempty"`
	Audio      *assetRef      `json:"audio,omitempty"`
	StoryAudio *assetRef      `json:"storyAudio,omitempty"`
	OK         *transitionDoc `json:"okTransition,omitempty"`
	Home       *transitionDoc `json:"homeTransition,omitempty"`
	Controls   *controlsDoc   `json:"controls,omitempty"`
}

type actionDoc struct {
	ID      string   `json:"id"`
	Options []string `json:"options"`
}

type document struct {
	Format  string      `json:"format"`
	Version int         `json:"version"`
	UUID    string      `json:"uuid"`
	Title   string      `json:"title"`
	Night   bool        `json:"night,omitempty"`
	Stages  []stageDoc  `json:"stages"`
	Actions []actionDoc `json:"actions,omitempty"`
}

// StageUUID derives the graph identifier for an authored stage's local
// identifier. Stable across parses of the same document.
func StageUUID(packID uuid.UUID, local string) uuid.UUID {
	return uuid.NewSHA1(packID, []byte("authored:stage:"+local))
}

// ActionUUID derives the graph identifier for an authored action's local
// identifier.
func ActionUUID(packID uuid.UUID, local string) uuid.UUID {
	return uuid.NewSHA1(packID, []byte("authored:action:"+local))
}

// Parse validates an authored document and builds its story pack.
func Parse(data []byte) (*story.StoryPack, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, &codec.FormatError{Blob: "story document", Reason: err.Error()}
	}

	if err := storySchema.Validate(instance); err != nil {
		return nil, &story.ValidationError{Reason: fmt.Sprintf("schema: %v", err)}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &codec.FormatError{Blob: "story document", Reason: err.Error()}
	}

	packID, err := uuid.Parse(doc.UUID)
	if err != nil {
		return nil, &story.ValidationError{Reason: fmt.Sprintf("uuid: %v", err)}
	}

	kindOf := map[string]story.NodeKind{
		"entrypoint": story.KindEntrypoint,
		"menu":       story.KindMenu,
		"story":      story.KindStory,
	}

	stageLocals := make(map[string]bool, len(doc.Stages))
	stages := make([]*story.StageNode, 0, len(doc.Stages))
	for _, sd := range doc.Stages {
		if stageLocals[sd.ID] {
			return nil, &story.ValidationError{Reason: "duplicate stage id " + strconv.Quote(sd.ID)}
		}
		stageLocals[sd.ID] = true

		name := sd.Name
		if name == "" {
			name = sd.ID
		}
		node := &story.StageNode{
			ID:         StageUUID(packID, sd.ID),
			Name:       name,
			Kind:       kindOf[sd.Kind],
			Image:      sd.Image.toModel(),
			Audio:      sd.Audio.toModel(),
			StoryAudio: sd.StoryAudio.toModel(),
		}
		if sd.Controls != nil {
			node.Control = story.ControlFlags{
				Wheel:    sd.Controls.Wheel,
				OK:       sd.Controls.OK,
				Home:     sd.Controls.Home,
				Pause:    sd.Controls.Pause,
				Autoplay: sd.Controls.Autoplay,
			}
		}
		node.Confirm = sd.OK.toTransition(packID)
		node.Home = sd.Home.toTransition(packID)
		stages = append(stages, node)
	}

	actionLocals := make(map[string]bool, len(doc.Actions))
	actions := make([]*story.ActionNode, 0, len(doc.Actions))
	for _, ad := range doc.Actions {
		if actionLocals[ad.ID] {
			return nil, &story.ValidationError{Reason: "duplicate action id " + strconv.Quote(ad.ID)}
		}
		actionLocals[ad.ID] = true

		options := make([]uuid.UUID, 0, len(ad.Options))
		for _, local := range ad.Options {
			if !stageLocals[local] {
				return nil, &story.ValidationError{Reason: fmt.Sprintf("action %q references unknown stage %q", ad.ID, local)}
			}
			options = append(options, StageUUID(packID, local))
		}
		actions = append(actions, &story.ActionNode{ID: ActionUUID(packID, ad.ID), Options: options})
	}

	for _, sd := range doc.Stages {
		for _, tr := range []*transitionDoc{sd.OK, sd.Home} {
			if tr != nil && !actionLocals[tr.Action] {
				return nil, &story.ValidationError{Reason: fmt.Sprintf("stage %q references unknown action %q", sd.ID, tr.Action)}
			}
		}
	}

	return story.New(packID, doc.Title, doc.Night, stages, actions)
}

func (t *transitionDoc) toTransition(packID uuid.UUID) *story.Transition {
	if t == nil {
		return nil
	}
	option := -1
	if t.Option != nil {
		option = *t.Option
	}
	return &story.Transition{Action: ActionUUID(packID, t.Action), Option: option}
}

// LoadFile parses an authored document from disk.
func LoadFile(path string) (*story.StoryPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("authoring: %w", err)
	}
	pack, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("authoring: %s: %w", path, err)
	}
	return pack, nil
}

// Export writes a pack back out as a canonical authored document. Stages
// keep their table order under generated local identifiers; asset
// references keep whichever form they carry, path or table index.
func Export(pack *story.StoryPack) ([]byte, error) {
	stageLocal := make(map[uuid.UUID]string, len(pack.Stages()))
	for i, s := range pack.Stages() {
		stageLocal[s.ID] = "stage-" + strconv.Itoa(i)
	}
	actionLocal := make(map[uuid.UUID]string, len(pack.Actions()))
	for i, a := range pack.Actions() {
		actionLocal[a.ID] = "action-" + strconv.Itoa(i)
	}

	doc := document{
		Format:  DocumentFormat,
		Version: 1,
		UUID:    pack.ID.String(),
		Title:   pack.Title,
		Night:   pack.Night,
	}

	for _, s := range pack.Stages() {
		sd := stageDoc{
			ID:         stageLocal[s.ID],
			Kind:       s.Kind.String(),
			Name:       s.Name,
			Image:      fromModel(s.Image),
			Audio:      fromModel(s.Audio),
			StoryAudio: fromModel(s.StoryAudio),
		}
		if s.Control != (story.ControlFlags{}) {
			sd.Controls = &controlsDoc{
				Wheel:    s.Control.Wheel,
				OK:       s.Control.OK,
				Home:     s.Control.Home,
				Pause:    s.Control.Pause,
				Autoplay: s.Control.Autoplay,
			}
		}
		sd.OK = exportTransition(s.Confirm, actionLocal)
		sd.Home = exportTransition(s.Home, actionLocal)
		doc.Stages = append(doc.Stages, sd)
	}

	for _, a := range pack.Actions() {
		ad := actionDoc{ID: actionLocal[a.ID]}
		for _, opt := range a.Options {
			if local, ok := stageLocal[opt]; ok {
				ad.Options = append(ad.Options, local)
			}
		}
		doc.Actions = append(doc.Actions, ad)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("authoring: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func exportTransition(tr *story.Transition, actionLocal map[uuid.UUID]string) *transitionDoc {
	if tr == nil {
		return nil
	}
	local, ok := actionLocal[tr.Action]
	if !ok {
		return nil
	}
	option := tr.Option
	return &transitionDoc{Action: local, Option: &option}
}
