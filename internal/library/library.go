// Package library provides the SQLite catalog of surveyed devices and
// their story packs.
package library

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"
)

// Schema for the pack catalog.
const schema = `
CREATE TABLE IF NOT EXISTS devices (
    serial      TEXT PRIMARY KEY,
    generation  INTEGER NOT NULL,
    firmware    TEXT NOT NULL,
    first_seen  INTEGER NOT NULL,
    last_seen   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS packs (
    identifier  TEXT PRIMARY KEY,
    ref         TEXT NOT NULL,
    title       TEXT,
    node_count  INTEGER NOT NULL,
    authentic   INTEGER,
    fingerprint TEXT NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_packs_ref ON packs(ref);
CREATE INDEX IF NOT EXISTS idx_packs_recorded ON packs(recorded_at);
`

// ErrNotFound is returned when a lookup matches no catalog row.
var ErrNotFound = errors.New("library: not found")

// Device is one surveyed device.
type Device struct {
	Serial     string
	Generation int
	Firmware   string
	FirstSeen  int64
	LastSeen   int64
}

// Pack is one recorded story pack. Authentic is nil when the check token
// could not be verified at survey time.
type Pack struct {
	ID          uuid.UUID
	Ref         string
	Title       string
	NodeCount   int
	Authentic   *bool
	Fingerprint string
	RecordedAt  int64
}

// Library represents the SQLite pack catalog.
type Library struct {
	db *sql.DB
}

// Open opens or creates the catalog database at the given path and applies
// the schema.
func Open(path string) (*Library, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Library{db: db}, nil
}

// Close closes the database connection.
func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// RecordDevice upserts a device sighting. The first-seen timestamp of an
// already known device is preserved; everything else follows the new row.
func (l *Library) RecordDevice(d *Device) error {
	_, err := l.db.Exec(`
		INSERT INTO devices (serial, generation, firmware, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(serial) DO UPDATE SET
		    generation = excluded.generation,
		    firmware   = excluded.firmware,
		    last_seen  = excluded.last_seen`,
		d.Serial, d.Generation, d.Firmware, d.FirstSeen, d.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("record device: %w", err)
	}

	return nil
}

// Devices retrieves all known devices, most recently seen first.
func (l *Library) Devices() ([]Device, error) {
	rows, err := l.db.Query(`
		SELECT serial, generation, firmware, first_seen, last_seen
		FROM devices
		ORDER BY last_seen DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		if err := rows.Scan(&d.Serial, &d.Generation, &d.Firmware, &d.FirstSeen, &d.LastSeen); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}

	return devices, nil
}

// RecordPack inserts or replaces a pack row.
func (l *Library) RecordPack(p *Pack) error {
	_, err := l.db.Exec(`
		INSERT OR REPLACE INTO packs (identifier, ref, title, node_count, authentic, fingerprint, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Ref, p.Title, p.NodeCount, p.Authentic, p.Fingerprint, p.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record pack: %w", err)
	}

	return nil
}

// Packs retrieves all recorded packs, newest first.
func (l *Library) Packs() ([]Pack, error) {
	rows, err := l.db.Query(`
		SELECT identifier, ref, title, node_count, authentic, fingerprint, recorded_at
		FROM packs
		ORDER BY recorded_at DESC, identifier ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query packs: %w", err)
	}
	defer rows.Close()

	return scanPacks(rows)
}

// PackByRef retrieves the pack with the given content directory reference.
func (l *Library) PackByRef(ref string) (*Pack, error) {
	var p Pack
	var identifier string

	err := l.db.QueryRow(`
		SELECT identifier, ref, title, node_count, authentic, fingerprint, recorded_at
		FROM packs WHERE ref = ?
		ORDER BY recorded_at DESC
		LIMIT 1`, ref,
	).Scan(&identifier, &p.Ref, &p.Title, &p.NodeCount, &p.Authentic, &p.Fingerprint, &p.RecordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pack by ref: %w", err)
	}

	p.ID, err = uuid.Parse(identifier)
	if err != nil {
		return nil, fmt.Errorf("parse pack identifier: %w", err)
	}

	return &p, nil
}

// Forget deletes a pack row.
func (l *Library) Forget(id uuid.UUID) error {
	result, err := l.db.Exec(`DELETE FROM packs WHERE identifier = ?`, id.String())
	if err != nil {
		return fmt.Errorf("forget pack: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Fingerprint hashes a pack's node index so later surveys can tell whether
// installed content changed.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// scanPacks is a helper to scan pack rows into a slice.
func scanPacks(rows *sql.Rows) ([]Pack, error) {
	var packs []Pack

	for rows.Next() {
		var p Pack
		var identifier string

		if err := rows.Scan(&identifier, &p.Ref, &p.Title, &p.NodeCount, &p.Authentic, &p.Fingerprint, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan pack: %w", err)
		}

		id, err := uuid.Parse(identifier)
		if err != nil {
			return nil, fmt.Errorf("parse pack identifier: %w", err)
		}
		p.ID = id

		packs = append(packs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packs: %w", err)
	}

	return packs, nil
}
