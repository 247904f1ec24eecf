package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.IgnoreDirs) != 0 {
		t.Errorf("expected empty default, got %+v", cfg)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
ignoreDirs:
  - vendor-custom
extensions:
  - .mjs
framework:
  receivers:
    - ctx
  methods:
    - emit
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.IgnoreDirs) != 1 || cfg.IgnoreDirs[0] != "vendor-custom" {
		t.Errorf("unexpected ignore dirs: %+v", cfg.IgnoreDirs)
	}

	fw := cfg.FrameworkSets()
	if !fw.Receivers["ctx"] || !fw.Receivers["res"] {
		t.Errorf("expected merged receivers to include both ctx and default res, got %+v", fw.Receivers)
	}
	if !fw.Methods["emit"] {
		t.Errorf("expected merged methods to include emit, got %+v", fw.Methods)
	}
}

func TestLoadInvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not: [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}
