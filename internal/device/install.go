package device

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"packsmith/internal/codec"
	"packsmith/internal/story"
)

// ErrLocked reports a device root already locked by another tool.
var ErrLocked = errors.New("device: root locked by another tool")

// installSlack is extra free space demanded beyond the pack's payload,
// covering directory metadata and the rewritten pack list.
const installSlack = 1 << 20

// lock takes the device-root file lock. The caller must call the returned
// release func.
func (d *Device) lock() (func(), error) {
	fl := flock.New(filepath.Join(d.Root, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("device: lock root: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, d.Root)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Install copies a pack's content directory onto the device, re-seals its
// check token with the device's pack key and adds the identifier to the
// pack list. The content lands in a staging directory first and is
// renamed into place, and the pack list is rewritten through a temp file,
// an interrupted install leaves the previous state readable. Installing
// over an existing pack replaces it.
func (d *Device) Install(srcDir string, id uuid.UUID) error {
	key, err := d.PackKey()
	if err != nil {
		return err
	}

	release, err := d.lock()
	if err != nil {
		return err
	}
	defer release()

	bundle, err := readBundleDir(srcDir, id)
	if err != nil {
		return err
	}
	if _, err := story.Load(id, bundle); err != nil {
		return fmt.Errorf("device: refusing to install: %w", err)
	}

	need, err := dirSize(srcDir)
	if err != nil {
		return fmt.Errorf("device: measure source: %w", err)
	}
	free, err := freeSpace(d.Root)
	if err != nil {
		return fmt.Errorf("device: query free space: %w", err)
	}
	if free < uint64(need)+installSlack {
		return fmt.Errorf("device: not enough space: need %d bytes, %d free", need, free)
	}

	target := d.ContentDir(id)
	staging := target + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("device: clear staging: %w", err)
	}
	if err := copyTree(srcDir, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("device: copy pack: %w", err)
	}

	if len(bundle.References) > 0 {
		token := codec.SealCheckToken(bundle.References, key)
		if err := writeFileSync(filepath.Join(staging, "bt"), token); err != nil {
			os.RemoveAll(staging)
			return fmt.Errorf("device: seal check token: %w", err)
		}
	}

	if err := os.RemoveAll(target); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("device: replace pack: %w", err)
	}
	if err := os.Rename(staging, target); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("device: place pack: %w", err)
	}

	if !d.Installed(id) {
		packs := append(append([]uuid.UUID{}, d.Packs...), id)
		if err := d.writePackList(packs); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes a pack's content directory and drops its identifier from
// the pack list.
func (d *Device) Remove(id uuid.UUID) error {
	release, err := d.lock()
	if err != nil {
		return err
	}
	defer release()

	dir := d.ContentDir(id)
	_, statErr := os.Stat(dir)
	if !d.Installed(id) && statErr != nil {
		return fmt.Errorf("%w: %s", ErrPackNotFound, codec.Reference(id))
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("device: remove pack: %w", err)
	}

	packs := make([]uuid.UUID, 0, len(d.Packs))
	for _, p := range d.Packs {
		if p != id {
			packs = append(packs, p)
		}
	}
	return d.writePackList(packs)
}

// writePackList rewrites .pi through a temp file and updates the in-memory
// list only once the rename lands.
func (d *Device) writePackList(packs []uuid.UUID) error {
	path := filepath.Join(d.Root, PackListFile)
	if err := writeFileSync(path+".tmp", codec.WritePackIdentities(packs)); err != nil {
		return fmt.Errorf("device: write pack list: %w", err)
	}
	if err := os.Rename(path+".tmp", path); err != nil {
		os.Remove(path + ".tmp")
		return fmt.Errorf("device: swap pack list: %w", err)
	}
	d.Packs = packs
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)

		if entry.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, in); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
