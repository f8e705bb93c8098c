package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockFileName is the fixture-pack lockfile written next to the manifest.
const LockFileName = "harness.lock"

// Lockfile models the harness.lock contents.
type Lockfile struct {
	Path      string
	Root      string
	Generated string
	Tool      string
	Packs     []*LockedPack
}

// LockedPack captures a single resolved fixture-pack entry.
type LockedPack struct {
	Name     string
	Version  string
	Source   string
	Checksum string
}

// NewLockfile constructs a lockfile with metadata seeded for the provided root.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      sanitizeSegment(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Packs:     []*LockedPack{},
	}
}

// LoadLockfile parses harness.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	lock.normalize()
	return lock, nil
}

// WriteLockfile serialises the lockfile back to disk, refreshing metadata.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}

	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	data := lock.toDisk()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

// FindPack returns the locked entry for a pack name, if present.
func (l *Lockfile) FindPack(name string) *LockedPack {
	if l == nil {
		return nil
	}
	name = sanitizeSegment(name)
	for _, pack := range l.Packs {
		if pack != nil && pack.Name == name {
			return pack
		}
	}
	return nil
}

// Upsert replaces the entry for pack.Name or appends a new one. It reports
// whether the lock actually changed.
func (l *Lockfile) Upsert(pack *LockedPack) bool {
	if l == nil || pack == nil {
		return false
	}
	existing := l.FindPack(pack.Name)
	if existing == nil {
		l.Packs = append(l.Packs, pack)
		l.normalize()
		return true
	}
	if existing.Version == pack.Version &&
		existing.Source == pack.Source &&
		existing.Checksum == pack.Checksum {
		return false
	}
	*existing = *pack
	l.normalize()
	return true
}

func (l *Lockfile) normalize() {
	if l == nil {
		return
	}
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	sort.SliceStable(l.Packs, func(i, j int) bool {
		return l.Packs[i].Name < l.Packs[j].Name
	})
	for _, pack := range l.Packs {
		if pack == nil {
			continue
		}
		pack.Name = sanitizeSegment(pack.Name)
		pack.Version = strings.TrimSpace(pack.Version)
		pack.Source = strings.TrimSpace(pack.Source)
		pack.Checksum = strings.TrimSpace(pack.Checksum)
	}
}

func (l *Lockfile) toDisk() lockfileDisk {
	packs := make([]lockfilePack, 0, len(l.Packs))
	for _, pack := range l.Packs {
		if pack == nil {
			continue
		}
		packs = append(packs, lockfilePack{
			Name:     pack.Name,
			Version:  pack.Version,
			Source:   pack.Source,
			Checksum: pack.Checksum,
		})
	}
	return lockfileDisk{
		Root:      l.Root,
		Generated: l.Generated,
		Tool:      l.Tool,
		Packs:     packs,
	}
}

type lockfileDisk struct {
	Root      string         `yaml:"root"`
	Generated string         `yaml:"generated"`
	Tool      string         `yaml:"tool"`
	Packs     []lockfilePack `yaml:"packs"`
}

type lockfilePack struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Checksum string `yaml:"checksum"`
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := &Lockfile{
		Root:      sanitizeSegment(d.Root),
		Generated: strings.TrimSpace(d.Generated),
		Tool:      strings.TrimSpace(d.Tool),
		Packs:     make([]*LockedPack, 0, len(d.Packs)),
	}
	for _, pack := range d.Packs {
		lock.Packs = append(lock.Packs, &LockedPack{
			Name:     sanitizeSegment(pack.Name),
			Version:  strings.TrimSpace(pack.Version),
			Source:   strings.TrimSpace(pack.Source),
			Checksum: strings.TrimSpace(pack.Checksum),
		})
	}
	lock.normalize()
	return lock
}
