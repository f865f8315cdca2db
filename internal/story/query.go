package story

import "github.com/google/uuid"

// FindStage returns the stage with the given identifier, nil if absent.
func (p *StoryPack) FindStage(id uuid.UUID) *StageNode {
	return p.stageByID[id]
}

// FindAction returns the action node with the given identifier, nil if
// absent.
func (p *StoryPack) FindAction(id uuid.UUID) *ActionNode {
	return p.actionByID[id]
}

// Entrypoint returns the pack's single entrypoint stage.
func (p *StoryPack) Entrypoint() *StageNode {
	return p.entry
}

// Stages returns all stages in table order. Callers must not mutate the
// returned slice.
func (p *StoryPack) Stages() []*StageNode {
	return p.stages
}

// Actions returns all action nodes in first-seen order. Callers must not
// mutate the returned slice.
func (p *StoryPack) Actions() []*ActionNode {
	return p.actions
}

// OptionsOf resolves a stage's confirm transition into its child stages in
// option order. Unresolvable options are skipped, not failed on: dangling
// references were already reported once at build time and re-raising at
// every query would be noise. A stage without a confirm transition has no
// options.
func (p *StoryPack) OptionsOf(node *StageNode) []*StageNode {
	if node == nil || node.Confirm == nil {
		return nil
	}
	action := p.actionByID[node.Confirm.Action]
	if action == nil {
		return nil
	}

	options := make([]*StageNode, 0, len(action.Options))
	for _, id := range action.Options {
		if child := p.stageByID[id]; child != nil {
			options = append(options, child)
		}
	}
	return options
}

// Stats summarizes a pack for reporting.
type Stats struct {
	Title    string
	Stages   int
	Menus    int
	Stories  int
	Actions  int
	MaxDepth int
	Night    bool
}

// Stats walks the pack and counts what is in it. Depth is measured from
// the entrypoint over confirm transitions, capped to guard against cycles.
func (p *StoryPack) Stats() Stats {
	s := Stats{
		Title:   p.Title,
		Stages:  len(p.stages),
		Actions: len(p.actions),
		Night:   p.Night,
	}
	for _, stage := range p.stages {
		switch stage.Kind {
		case KindMenu:
			s.Menus++
		case KindStory:
			s.Stories++
		}
	}
	s.MaxDepth = p.depth(p.entry, make(map[uuid.UUID]bool), 0)
	return s
}

const maxDepthProbe = 64

func (p *StoryPack) depth(node *StageNode, visited map[uuid.UUID]bool, d int) int {
	if node == nil || visited[node.ID] || d > maxDepthProbe {
		return d
	}
	visited[node.ID] = true
	defer delete(visited, node.ID)

	max := d
	for _, child := range p.OptionsOf(node) {
		if cd := p.depth(child, visited, d+1); cd > max {
			max = cd
		}
	}
	return max
}
