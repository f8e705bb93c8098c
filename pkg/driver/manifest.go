package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"xai/harness-go/pkg/harness"
)

// ManifestFileName is the harness manifest looked up next to the fixtures.
const ManifestFileName = "harness.yml"

// Manifest models harness.yml: where the analyzer lives, how to build it,
// which fixture battery to run, and which fixture packs to fetch.
type Manifest struct {
	Path      string
	Name      string
	Analyzer  string
	Flags     []string
	Fixtures  FixtureConfig
	Build     BuildConfig
	Packs     map[string]*PackSpec
	PackOrder []string
}

// FixtureConfig bounds and shapes the fixture battery.
type FixtureConfig struct {
	Count    int
	Template string
	Dir      string
}

// BuildConfig is the single build command run before any fixture. An empty
// command skips the build phase.
type BuildConfig struct {
	Command []string
}

// PackSpec describes one fixture-pack source: either a local path or a git
// repository pinned to a rev, tag, or branch.
type PackSpec struct {
	Path   string
	Git    string
	Rev    string
	Tag    string
	Branch string
}

// LoadManifest parses harness.yml from disk and normalizes it.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw manifestDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", abs, err)
	}

	manifest, err := raw.toManifest()
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", abs, err)
	}
	manifest.Path = abs
	return manifest, nil
}

// DefaultManifest returns the built-in configuration used when no harness.yml
// is present.
func DefaultManifest() *Manifest {
	return &Manifest{
		Name:     "harness",
		Analyzer: "./bin/xai-analyzer",
		Flags:    harness.DefaultFlags(),
		Fixtures: FixtureConfig{
			Count:    harness.DefaultCount,
			Template: harness.DefaultTemplate,
		},
		Packs: map[string]*PackSpec{},
	}
}

// Plan derives the invocation plan from the manifest. When fixtures.dir is
// set, it replaces the directory part of the template so an installed pack can
// serve as the battery root.
func (m *Manifest) Plan() harness.Plan {
	template := m.Fixtures.Template
	if m.Fixtures.Dir != "" {
		template = filepath.Join(m.Fixtures.Dir, filepath.Base(template))
	}
	return harness.Plan{
		Count:    m.Fixtures.Count,
		Template: template,
		Analyzer: m.Analyzer,
		Flags:    m.Flags,
	}
}

// FindPack resolves a pack by its sanitized or original name.
func (m *Manifest) FindPack(name string) (*PackSpec, bool) {
	if spec, ok := m.Packs[name]; ok {
		return spec, true
	}
	spec, ok := m.Packs[sanitizeSegment(name)]
	return spec, ok
}

// PackKey maps a user-supplied pack name to its canonical manifest key.
func (m *Manifest) PackKey(name string) (string, bool) {
	if _, ok := m.Packs[name]; ok {
		return name, true
	}
	key := sanitizeSegment(name)
	_, ok := m.Packs[key]
	return key, ok
}

type manifestDisk struct {
	Name     string                   `yaml:"name"`
	Analyzer string                   `yaml:"analyzer"`
	Flags    []string                 `yaml:"flags"`
	Fixtures fixtureDisk              `yaml:"fixtures"`
	Build    buildDisk                `yaml:"build"`
	Packs    map[string]*packSpecDisk `yaml:"packs"`
}

// Count is a pointer so an explicit zero is rejected instead of silently
// falling back to the default.
type fixtureDisk struct {
	Count    *int   `yaml:"count"`
	Template string `yaml:"template"`
	Dir      string `yaml:"dir"`
}

type buildDisk struct {
	Command []string `yaml:"command"`
}

type packSpecDisk struct {
	Path   string `yaml:"path"`
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

// UnmarshalYAML accepts the shorthand form `pack: ./local/dir` alongside the
// full mapping form.
func (p *packSpecDisk) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var path string
		if err := value.Decode(&path); err != nil {
			return err
		}
		p.Path = path
		return nil
	}
	type plain packSpecDisk
	return value.Decode((*plain)(p))
}

func (d manifestDisk) toManifest() (*Manifest, error) {
	manifest := &Manifest{
		Name:     sanitizeSegment(d.Name),
		Analyzer: strings.TrimSpace(d.Analyzer),
		Flags:    trimAll(d.Flags),
		Fixtures: FixtureConfig{
			Count:    harness.DefaultCount,
			Template: strings.TrimSpace(d.Fixtures.Template),
			Dir:      strings.TrimSpace(d.Fixtures.Dir),
		},
		Build: BuildConfig{
			Command: trimAll(d.Build.Command),
		},
		Packs: map[string]*PackSpec{},
	}

	if manifest.Name == "" {
		manifest.Name = "harness"
	}
	if manifest.Analyzer == "" {
		manifest.Analyzer = "./bin/xai-analyzer"
	}
	if manifest.Flags == nil {
		manifest.Flags = harness.DefaultFlags()
	}
	if d.Fixtures.Count != nil {
		manifest.Fixtures.Count = *d.Fixtures.Count
	}
	if manifest.Fixtures.Count <= 0 {
		return nil, fmt.Errorf("fixtures.count must be positive, got %d", manifest.Fixtures.Count)
	}
	if manifest.Fixtures.Template == "" {
		manifest.Fixtures.Template = harness.DefaultTemplate
	}

	for name, spec := range d.Packs {
		if spec == nil {
			return nil, fmt.Errorf("pack %q: empty specification", name)
		}
		resolved := &PackSpec{
			Path:   strings.TrimSpace(spec.Path),
			Git:    strings.TrimSpace(spec.Git),
			Rev:    strings.TrimSpace(spec.Rev),
			Tag:    strings.TrimSpace(spec.Tag),
			Branch: strings.TrimSpace(spec.Branch),
		}
		if resolved.Path == "" && resolved.Git == "" {
			return nil, fmt.Errorf("pack %q: needs a path or a git URL", name)
		}
		if resolved.Path != "" && resolved.Git != "" {
			return nil, fmt.Errorf("pack %q: path and git are mutually exclusive", name)
		}
		if resolved.Git != "" && resolved.Rev == "" && resolved.Tag == "" && resolved.Branch == "" {
			return nil, fmt.Errorf("pack %q: git packs require rev, tag, or branch", name)
		}
		manifest.Packs[sanitizeSegment(name)] = resolved
	}

	manifest.PackOrder = make([]string, 0, len(manifest.Packs))
	for name := range manifest.Packs {
		manifest.PackOrder = append(manifest.PackOrder, name)
	}
	sort.Strings(manifest.PackOrder)

	return manifest, nil
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func sanitizeSegment(segment string) string {
	segment = strings.TrimSpace(strings.ToLower(segment))
	var b strings.Builder
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	return b.String()
}
