// Package module loads kscr.yaml manifests and runs the sources they list.
package module

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the file name looked up when a directory is given.
const ManifestName = "kscr.yaml"

// Project identifies a module.
type Project struct {
	Domain  string
	Group   string
	ID      string
	Version string
}

// Manifest models the kscr.yaml contents.
type Manifest struct {
	Path    string // absolute path of the manifest file
	Dir     string
	Project Project
	Sources []string // absolute, in execution order
}

type manifestDisk struct {
	Project projectDisk `yaml:"project"`
	Build   buildDisk   `yaml:"build"`
}

type projectDisk struct {
	Domain  string `yaml:"domain,omitempty"`
	Group   string `yaml:"group,omitempty"`
	ID      string `yaml:"id"`
	Version string `yaml:"version,omitempty"`
}

type buildDisk struct {
	Sources []string `yaml:"sources"`
}

// Load parses a manifest. path may name the file or its directory.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, ManifestName)
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

	m := &Manifest{
		Path: abs,
		Dir:  filepath.Dir(abs),
		Project: Project{
			Domain:  strings.TrimSpace(raw.Project.Domain),
			Group:   strings.TrimSpace(raw.Project.Group),
			ID:      strings.TrimSpace(raw.Project.ID),
			Version: strings.TrimSpace(raw.Project.Version),
		},
	}
	if m.Project.ID == "" {
		return nil, fmt.Errorf("manifest: %s: project.id is required", abs)
	}
	if len(raw.Build.Sources) == 0 {
		return nil, fmt.Errorf("manifest: %s: build.sources is empty", abs)
	}
	for _, src := range raw.Build.Sources {
		src = strings.TrimSpace(src)
		if src == "" {
			return nil, fmt.Errorf("manifest: %s: empty source entry", abs)
		}
		if !filepath.IsAbs(src) {
			src = filepath.Join(m.Dir, filepath.FromSlash(src))
		}
		m.Sources = append(m.Sources, filepath.Clean(src))
	}
	return m, nil
}

// Write serialises m to path. Sources are stored relative to the manifest
// directory when possible.
func Write(m *Manifest, path string) error {
	if m == nil {
		return fmt.Errorf("manifest: nil manifest")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	raw := manifestDisk{
		Project: projectDisk{
			Domain:  m.Project.Domain,
			Group:   m.Project.Group,
			ID:      m.Project.ID,
			Version: m.Project.Version,
		},
	}
	for _, src := range m.Sources {
		if rel, err := filepath.Rel(dir, src); err == nil && !strings.HasPrefix(rel, "..") {
			src = filepath.ToSlash(rel)
		}
		raw.Build.Sources = append(raw.Build.Sources, src)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("manifest: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("manifest: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("manifest: write %s: %w", abs, err)
	}
	m.Path, m.Dir = abs, dir
	return nil
}

// Name returns the qualified module name, e.g. "org.example.app".
func (p Project) Name() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Domain, p.Group, p.ID} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}
