package module

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antibyte/kscr/pkg/script"
	"github.com/antibyte/kscr/pkg/shared"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), `
project:
  domain: org
  group: example
  id: demo
  version: 1.0.0
build:
  sources:
    - src/main.ks
    - lib/extra.ks
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Project.Name() != "org.example.demo" || m.Project.Version != "1.0.0" {
		t.Errorf("Unexpected project %+v", m.Project)
	}
	want := filepath.Join(dir, "src", "main.ks")
	if len(m.Sources) != 2 || m.Sources[0] != want {
		t.Errorf("Expected sources resolved against %s, got %v", dir, m.Sources)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "project:\n  id: x\n  colour: red\nbuild:\n  sources: [a.ks]\n", "colour"},
		{"missing id", "project:\n  group: g\nbuild:\n  sources: [a.ks]\n", "project.id"},
		{"no sources", "project:\n  id: x\nbuild:\n  sources: []\n", "build.sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Project: Project{Group: "tools", ID: "calc"},
		Sources: []string{filepath.Join(dir, "calc.ks")},
	}
	path := filepath.Join(dir, ManifestName)
	if err := Write(m, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "- calc.ks") {
		t.Errorf("Sources should be stored relative, got:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Project.Name() != "tools.calc" || loaded.Sources[0] != m.Sources[0] {
		t.Errorf("Unexpected manifest %+v", loaded)
	}
}

func TestRunModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ks"), "num a = 1; return a - 1;")
	writeFile(t, filepath.Join(dir, "b.ks"), "return undefinedName;")
	writeFile(t, filepath.Join(dir, "c.ks"), "num c = 2; c * 3;")
	writeFile(t, filepath.Join(dir, ManifestName), "project:\n  id: multi\nbuild:\n  sources: [a.ks, b.ks, c.ks]\n")

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	report, err := Run(m, script.NewRunner(script.Options{}))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Files) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(report.Files))
	}
	if report.Files[0].ExitCode != 0 {
		t.Errorf("a.ks: expected 0, got %d", report.Files[0].ExitCode)
	}
	if !errors.Is(report.Files[1].Err, shared.ErrUndefinedVariable) || report.Files[1].ExitCode != script.ExitRuntime {
		t.Errorf("b.ks: unexpected result %+v", report.Files[1])
	}
	if report.Files[2].ExitCode != 6 {
		t.Errorf("c.ks: expected 6, got %d", report.Files[2].ExitCode)
	}
	if report.ExitCode() != script.ExitRuntime {
		t.Errorf("Module exit code should be the first non-zero one, got %d", report.ExitCode())
	}
}

func TestRunModuleMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), "project:\n  id: broken\nbuild:\n  sources: [missing.ks]\n")
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := Run(m, script.NewRunner(script.Options{})); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}
