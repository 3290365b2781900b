package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Analysis.ArgSize != 4 {
		t.Errorf("ArgSize = %d, want 4", cfg.Analysis.ArgSize)
	}
	if cfg.Analysis.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Analysis.Workers)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should default to enabled")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Output.Format)
	}
	for _, key := range MetricKeys {
		if !cfg.Metrics.Enabled(key) {
			t.Errorf("metric %q should default to enabled", key)
		}
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "haruspex.toml")
	content := `
[metrics]
loc = true
cc = false

[analysis]
arg_size = 8
workers = 2

[output]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.ArgSize != 8 || cfg.Analysis.Workers != 2 {
		t.Errorf("analysis = %+v, want arg_size 8 workers 2", cfg.Analysis)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Output.Format)
	}
	if !cfg.Metrics.LOC || cfg.Metrics.CC {
		t.Errorf("metrics = %+v, want loc on and cc off", cfg.Metrics)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "haruspex.yaml")
	content := "analysis:\n  arg_size: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.ArgSize != 8 {
		t.Errorf("ArgSize = %d, want 8", cfg.Analysis.ArgSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseMetricSet(t *testing.T) {
	s, err := ParseMetricSet("loc, cc,halstead")
	if err != nil {
		t.Fatalf("ParseMetricSet failed: %v", err)
	}
	if !s.LOC || !s.CC || !s.Halstead {
		t.Errorf("set = %+v, want loc, cc and halstead", s)
	}
	if s.Chepin || s.Span {
		t.Errorf("unrequested metrics selected: %+v", s)
	}

	if _, err := ParseMetricSet("loc,bogus"); err == nil {
		t.Error("expected error for unknown key")
	}

	all, err := ParseMetricSet("all")
	if err != nil {
		t.Fatalf("ParseMetricSet(all) failed: %v", err)
	}
	if all != AllMetrics() {
		t.Error("\"all\" must select every metric")
	}
}

func TestMetricSetPrerequisites(t *testing.T) {
	var s MetricSet
	s.Cocol = true
	if !s.NeedCC() || !s.NeedHalstead() {
		t.Error("cocol requires cc and halstead internally")
	}
	if s.NeedFan() {
		t.Error("cocol does not require the fan profile")
	}

	s = MetricSet{HenryCafura: true}
	if !s.NeedFan() || !s.NeedCC() {
		t.Error("henry_cafura requires the fan profile and cc")
	}
	if s.NeedHalstead() {
		t.Error("henry_cafura does not require halstead")
	}
}

func TestLoadOrDefaultFallback(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg := LoadOrDefault()
	if cfg.Analysis.ArgSize != 4 {
		t.Errorf("fallback ArgSize = %d, want 4", cfg.Analysis.ArgSize)
	}
}
