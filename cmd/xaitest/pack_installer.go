package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"xai/harness-go/pkg/driver"
)

// packInstaller resolves the manifest's fixture packs into the local cache and
// records them in the lockfile.
type packInstaller struct {
	manifest *driver.Manifest
	cacheDir string
	path     *pathPackFetcher
	git      *gitPackFetcher
}

func newPackInstaller(manifest *driver.Manifest, cacheDir string) *packInstaller {
	base := ""
	if manifest != nil && manifest.Path != "" {
		base = filepath.Dir(manifest.Path)
	}
	return &packInstaller{
		manifest: manifest,
		cacheDir: cacheDir,
		path:     newPathPackFetcher(base, cacheDir),
		git:      newGitPackFetcher(cacheDir),
	}
}

// Install fetches the named packs (or every manifest pack when names is
// empty) and upserts their lock entries. It reports whether the lock changed
// and returns one log line per resolved pack.
func (inst *packInstaller) Install(lock *driver.Lockfile, names []string) (bool, []string, error) {
	if inst.manifest == nil {
		return false, nil, fmt.Errorf("packs: no manifest loaded")
	}

	selected, err := inst.selectPacks(names)
	if err != nil {
		return false, nil, err
	}

	changed := false
	var logs []string
	for _, name := range selected {
		spec, _ := inst.manifest.FindPack(name)
		locked, dir, err := inst.fetch(name, spec)
		if err != nil {
			return changed, logs, err
		}
		if lock.Upsert(locked) {
			changed = true
		}
		logs = append(logs, fmt.Sprintf("pack %s: %s (version %s) -> %s", name, locked.Source, locked.Version, dir))
	}
	return changed, logs, nil
}

func (inst *packInstaller) selectPacks(names []string) ([]string, error) {
	if len(names) == 0 {
		return inst.manifest.PackOrder, nil
	}
	seen := make(map[string]struct{})
	var selected []string
	for _, name := range names {
		key, ok := inst.manifest.PackKey(name)
		if !ok {
			return nil, fmt.Errorf("packs: %q is not declared in the manifest", name)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		selected = append(selected, key)
	}
	sort.Strings(selected)
	return selected, nil
}

func (inst *packInstaller) fetch(name string, spec *driver.PackSpec) (*driver.LockedPack, string, error) {
	if spec == nil {
		return nil, "", fmt.Errorf("packs: missing specification for %q", name)
	}
	if spec.Path != "" {
		return inst.path.Fetch(name, spec)
	}
	return inst.git.Fetch(name, spec)
}
