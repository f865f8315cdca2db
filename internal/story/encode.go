package story

import (
	"github.com/google/uuid"

	"packsmith/internal/codec"
)

// assetTable assigns table indices while encoding. Decoded references keep
// their index; path-based references from the authoring side get fresh
// slots, one per distinct path.
type assetTable struct {
	count    int32
	assigned map[string]int32
}

func (t *assetTable) ref(r *AssetRef) int32 {
	if r == nil {
		return -1
	}
	if r.Index >= 0 {
		if r.Index >= t.count {
			t.count = r.Index + 1
		}
		return r.Index
	}
	if idx, ok := t.assigned[r.Path]; ok {
		return idx
	}
	idx := t.count
	t.count++
	t.assigned[r.Path] = idx
	return idx
}

// ToRecords flattens a pack back into its node records, list index table
// and metadata, the inverse of Build. Actions get list index positions in
// first-seen order over the stages; stages keep their table ordinals, so
// building the result again yields the same identifiers, kinds and
// transition structure.
func ToRecords(p *StoryPack) (*codec.NodeIndexHeader, []codec.NodeRecord, []uint32, codec.Metadata) {
	ordinalOf := make(map[uuid.UUID]int32, len(p.stages))
	for i, s := range p.stages {
		ordinalOf[s.ID] = int32(i)
	}

	type slot struct{ pos, count int32 }
	var table []uint32
	slots := make(map[uuid.UUID]slot, len(p.actions))

	place := func(tr *Transition) (pos, count, option int32) {
		if tr == nil {
			return -1, -1, -1
		}
		a := p.actionByID[tr.Action]
		if a == nil {
			return -1, -1, -1
		}
		sl, seen := slots[tr.Action]
		if !seen {
			sl.pos = int32(len(table))
			for _, opt := range a.Options {
				ord, ok := ordinalOf[opt]
				if !ok {
					continue // dangling, tolerated after the build-time report
				}
				table = append(table, uint32(ord))
				sl.count++
			}
			slots[tr.Action] = sl
		}
		return sl.pos, sl.count, int32(tr.Option)
	}

	images := &assetTable{count: 0, assigned: make(map[string]int32)}
	sounds := &assetTable{count: 0, assigned: make(map[string]int32)}

	records := make([]codec.NodeRecord, 0, len(p.stages))
	for _, s := range p.stages {
		audio := s.Audio
		if s.Kind == KindStory && s.StoryAudio != nil {
			audio = s.StoryAudio
		}

		rec := codec.NodeRecord{
			ImageRef: images.ref(s.Image),
			AudioRef: sounds.ref(audio),
			Wheel:    flag(s.Control.Wheel),
			OK:       flag(s.Control.OK),
			Home:     flag(s.Control.Home),
			Pause:    flag(s.Control.Pause),
			Autoplay: flag(s.Control.Autoplay),
		}
		rec.OKPos, rec.OKCount, rec.OKOption = place(s.Confirm)
		rec.HomePos, rec.HomeCount, rec.HomeOption = place(s.Home)
		records = append(records, rec)
	}

	header := p.header
	if images.count > header.ImageCount {
		header.ImageCount = images.count
	}
	if sounds.count > header.SoundCount {
		header.SoundCount = sounds.count
	}

	meta := codec.Metadata{Title: p.Title, Night: p.Night}
	return &header, records, table, meta
}

func flag(b bool) int16 {
	if b {
		return 1
	}
	return 0
}
