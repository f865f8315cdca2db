package codec

import "encoding/binary"

// Node index layout
const (
	// NodeIndexHeaderSize is the fixed ni header length.
	NodeIndexHeaderSize = 512

	// NodeRecordSize is the fixed length of one node record.
	NodeRecordSize = 44
)

// NodeIndexHeader is the fixed 512-byte header of a pack's ni blob.
type NodeIndexHeader struct {
	Version     uint16 // format version at offset 0
	PackVersion int16  // pack format version
	TableOffset int32  // offset of the first node record
	RecordSize  int32  // size of one node record
	NodeCount   int32
	ImageCount  int32
	SoundCount  int32
	Factory     bool // factory pack flag at offset 24

	Reserved [NodeIndexHeaderSize - 25]byte
}

// NodeRecord is one fixed 44-byte node record. The position/count pairs
// index into the pack's list index table; the option index selects a fixed
// child, -1 meaning none. Flag fields are 16-bit on the wire and carried
// raw so records round-trip byte for byte.
type NodeRecord struct {
	ImageRef   int32 // image asset table index, -1 if absent
	AudioRef   int32 // audio asset table index, -1 if absent
	OKPos      int32 // confirm transition: position in the list index
	OKCount    int32 // confirm transition: option count
	OKOption   int32 // confirm transition: fixed option index, -1 if none
	HomePos    int32 // home transition: position in the list index
	HomeCount  int32 // home transition: option count
	HomeOption int32 // home transition: fixed option index, -1 if none
	Wheel      int16 // selection wheel enabled
	OK         int16 // confirm button enabled
	Home       int16 // home button enabled
	Pause      int16 // pause allowed (set on story playback nodes)
	Autoplay   int16 // advance without user input
	Pad        int16
}

// ReadNodeIndex decodes a pack's ni blob into its header and node records.
// The declared node count must satisfy the size invariant
// 512 + count*44 == len(data); a mismatch signals a corrupted or partially
// written pack and halts processing rather than guessing.
func ReadNodeIndex(data []byte) (*NodeIndexHeader, []NodeRecord, error) {
	if len(data) < NodeIndexHeaderSize {
		return nil, nil, formatErrorf("node index", "blob is %d bytes, need at least %d", len(data), NodeIndexHeaderSize)
	}

	h := &NodeIndexHeader{
		Version:     binary.LittleEndian.Uint16(data[0:]),
		PackVersion: int16(binary.LittleEndian.Uint16(data[2:])),
		TableOffset: int32(binary.LittleEndian.Uint32(data[4:])),
		RecordSize:  int32(binary.LittleEndian.Uint32(data[8:])),
		NodeCount:   int32(binary.LittleEndian.Uint32(data[12:])),
		ImageCount:  int32(binary.LittleEndian.Uint32(data[16:])),
		SoundCount:  int32(binary.LittleEndian.Uint32(data[20:])),
		Factory:     data[24] != 0,
	}
	copy(h.Reserved[:], data[25:NodeIndexHeaderSize])

	if h.NodeCount < 0 {
		return nil, nil, formatErrorf("node index", "negative node count %d", h.NodeCount)
	}
	if h.RecordSize != NodeRecordSize {
		return nil, nil, formatErrorf("node index", "unsupported record size %d, want %d", h.RecordSize, NodeRecordSize)
	}
	if want := NodeIndexHeaderSize + int(h.NodeCount)*NodeRecordSize; want != len(data) {
		return nil, nil, formatErrorf("node index", "declared %d nodes need %d bytes, blob has %d", h.NodeCount, want, len(data))
	}
	if h.TableOffset < NodeIndexHeaderSize || int(h.TableOffset)+int(h.NodeCount)*NodeRecordSize > len(data) {
		return nil, nil, formatErrorf("node index", "node table at offset %d runs past the blob", h.TableOffset)
	}

	records := make([]NodeRecord, h.NodeCount)
	for i := range records {
		off := int(h.TableOffset) + i*NodeRecordSize
		records[i] = parseNodeRecord(data[off : off+NodeRecordSize])
	}
	return h, records, nil
}

// WriteNodeIndex encodes a header and records into a ni blob. The size
// fields are re-derived from the records being written, never taken from
// the caller, so the size invariant holds unconditionally for anything this
// codec produces.
func WriteNodeIndex(h *NodeIndexHeader, records []NodeRecord) []byte {
	buf := make([]byte, NodeIndexHeaderSize+len(records)*NodeRecordSize)

	binary.LittleEndian.PutUint16(buf[0:], h.Version)
	binary.LittleEndian.PutUint16(buf[2:], uint16(h.PackVersion))
	binary.LittleEndian.PutUint32(buf[4:], NodeIndexHeaderSize)
	binary.LittleEndian.PutUint32(buf[8:], NodeRecordSize)
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(records)))
	binary.LittleEndian.PutUint32(buf[16:], uint32(h.ImageCount))
	binary.LittleEndian.PutUint32(buf[20:], uint32(h.SoundCount))
	if h.Factory {
		buf[24] = 1
	}
	copy(buf[25:NodeIndexHeaderSize], h.Reserved[:])

	for i, rec := range records {
		writeNodeRecord(buf[NodeIndexHeaderSize+i*NodeRecordSize:], rec)
	}
	return buf
}

func parseNodeRecord(b []byte) NodeRecord {
	i32 := func(off int) int32 { return int32(binary.LittleEndian.Uint32(b[off:])) }
	i16 := func(off int) int16 { return int16(binary.LittleEndian.Uint16(b[off:])) }
	return NodeRecord{
		ImageRef:   i32(0),
		AudioRef:   i32(4),
		OKPos:      i32(8),
		OKCount:    i32(12),
		OKOption:   i32(16),
		HomePos:    i32(20),
		HomeCount:  i32(24),
		HomeOption: i32(28),
		Wheel:      i16(32),
		OK:         i16(34),
		Home:       i16(36),
		Pause:      i16(38),
		Autoplay:   i16(40),
		Pad:        i16(42),
	}
}

func writeNodeRecord(b []byte, rec NodeRecord) {
	binary.LittleEndian.PutUint32(b[0:], uint32(rec.ImageRef))
	binary.LittleEndian.PutUint32(b[4:], uint32(rec.AudioRef))
	binary.LittleEndian.PutUint32(b[8:], uint32(rec.OKPos))
	binary.LittleEndian.PutUint32(b[12:], uint32(rec.OKCount))
	binary.LittleEndian.PutUint32(b[16:], uint32(rec.OKOption))
	binary.LittleEndian.PutUint32(b[20:], uint32(rec.HomePos))
	binary.LittleEndian.PutUint32(b[24:], uint32(rec.HomeCount))
	binary.LittleEndian.PutUint32(b[28:], uint32(rec.HomeOption))
	binary.LittleEndian.PutUint16(b[32:], uint16(rec.Wheel))
	binary.LittleEndian.PutUint16(b[34:], uint16(rec.OK))
	binary.LittleEndian.PutUint16(b[36:], uint16(rec.Home))
	binary.LittleEndian.PutUint16(b[38:], uint16(rec.Pause))
	binary.LittleEndian.PutUint16(b[40:], uint16(rec.Autoplay))
	binary.LittleEndian.PutUint16(b[42:], uint16(rec.Pad))
}
