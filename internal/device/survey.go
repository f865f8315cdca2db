package device

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"packsmith/internal/codec"
)

// BlobInfo is one content blob's presence and size.
type BlobInfo struct {
	Name    string
	Present bool
	Size    int64
}

// PackReport is the survey result for one listed pack.
type PackReport struct {
	ID        uuid.UUID
	Ref       string
	Installed bool // content directory present
	Title     string
	Blobs     []BlobInfo

	NodeCount      int
	SizeConsistent bool
	ImageFiles     int // files under rf/000
	SoundFiles     int // files under sf/000

	// Authentic is nil when the check token could not be checked, for
	// lack of a pack key or of the blobs themselves.
	Authentic *bool

	Problems []string
}

// Report is a full device survey.
type Report struct {
	Root         string
	Generation   int
	Firmware     string
	Serial       uint64
	KeyAvailable bool

	Packs          []PackReport
	MissingContent int
	Orphans        []string
}

// Survey walks every listed pack and the content root, collecting the
// findings a repair or support pass needs: blob presence and sizes, node
// index consistency, check token results, listed packs with no content
// and content directories no listed pack claims. Survey itself only fails
// when the device root cannot be listed; per-pack trouble lands in the
// report.
func (d *Device) Survey() (*Report, error) {
	report := &Report{
		Root:         d.Root,
		Generation:   d.Index.Generation(),
		Firmware:     d.Firmware(),
		Serial:       d.Index.SerialNumber,
		KeyAvailable: d.packKey != nil,
	}

	for _, id := range d.Packs {
		pr := d.surveyPack(id)
		if !pr.Installed {
			report.MissingContent++
		}
		report.Packs = append(report.Packs, pr)
	}

	orphans, err := d.findOrphans()
	if err != nil {
		return nil, err
	}
	report.Orphans = orphans

	return report, nil
}

func (d *Device) surveyPack(id uuid.UUID) PackReport {
	pr := PackReport{ID: id, Ref: codec.Reference(id)}

	dir := d.ContentDir(id)
	if _, err := os.Stat(dir); err != nil {
		pr.Problems = append(pr.Problems, "content directory missing")
		return pr
	}
	pr.Installed = true

	for _, name := range packBlobs {
		info := BlobInfo{Name: name}
		if fi, err := os.Stat(filepath.Join(dir, name)); err == nil {
			info.Present = true
			info.Size = fi.Size()
			if info.Size == 0 {
				pr.Problems = append(pr.Problems, name+" is empty")
			}
		} else {
			pr.Problems = append(pr.Problems, name+" missing")
		}
		pr.Blobs = append(pr.Blobs, info)
	}

	pr.ImageFiles = countFiles(filepath.Join(dir, "rf", "000"))
	pr.SoundFiles = countFiles(filepath.Join(dir, "sf", "000"))

	if raw, err := os.ReadFile(filepath.Join(dir, "md")); err == nil {
		pr.Title = codec.ParseMetadata(raw).Title
	}

	if raw, err := os.ReadFile(filepath.Join(dir, "ni")); err == nil {
		header, _, nerr := codec.ReadNodeIndex(raw)
		if nerr != nil {
			pr.Problems = append(pr.Problems, fmt.Sprintf("node index: %v", nerr))
		} else {
			pr.NodeCount = int(header.NodeCount)
			pr.SizeConsistent = true
		}
	}

	if d.packKey != nil {
		bt, berr := os.ReadFile(filepath.Join(dir, "bt"))
		ri, rerr := os.ReadFile(filepath.Join(dir, "ri"))
		if berr == nil && rerr == nil {
			ok := codec.VerifyCheckToken(bt, ri, *d.packKey)
			pr.Authentic = &ok
			if !ok {
				pr.Problems = append(pr.Problems, "check token mismatch")
			}
		}
	}

	return pr
}

// findOrphans lists content directories no pack identifier claims.
func (d *Device) findOrphans() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.Root, ContentRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("device: list content root: %w", err)
	}

	known := make(map[string]bool, len(d.Packs))
	for _, id := range d.Packs {
		known[codec.Reference(id)] = true
	}

	var orphans []string
	for _, e := range entries {
		if e.IsDir() && !known[e.Name()] {
			orphans = append(orphans, e.Name())
		}
	}
	return orphans, nil
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
