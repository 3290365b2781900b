package config

import (
	"fmt"
	"strings"
)

// MetricSet selects which metrics an analysis computes. Deselected metrics
// stay zero in the results; prerequisites of a selected metric are still
// computed internally (Cocol needs the Halstead counts even when halstead is
// off) but never surface unless selected themselves.
type MetricSet struct {
	LOC         bool `koanf:"loc" toml:"loc"`
	Blocks      bool `koanf:"bbls" toml:"bbls"`
	Calls       bool `koanf:"calls" toml:"calls"`
	Conditions  bool `koanf:"condit" toml:"condit"`
	Assignments bool `koanf:"assign" toml:"assign"`
	CC          bool `koanf:"cc" toml:"cc"`
	CCMod       bool `koanf:"cc_mod" toml:"cc_mod"`
	Jilb        bool `koanf:"jilb" toml:"jilb"`
	ABC         bool `koanf:"abc" toml:"abc"`
	Pivovarsky  bool `koanf:"pivovarsky" toml:"pivovarsky"`
	Halstead    bool `koanf:"halstead" toml:"halstead"`
	Harrison    bool `koanf:"harrison" toml:"harrison"`
	Boundary    bool `koanf:"boundary" toml:"boundary"`
	Span        bool `koanf:"span" toml:"span"`
	Global      bool `koanf:"global" toml:"global"`
	Oviedo      bool `koanf:"oviedo" toml:"oviedo"`
	Chepin      bool `koanf:"chepin" toml:"chepin"`
	CardGlass   bool `koanf:"card_glass" toml:"card_glass"`
	HenryCafura bool `koanf:"henry_cafura" toml:"henry_cafura"`
	Cocol       bool `koanf:"cocol" toml:"cocol"`
}

// AllMetrics returns a set with every metric selected.
func AllMetrics() MetricSet {
	var s MetricSet
	for _, key := range MetricKeys {
		s.set(key, true)
	}
	return s
}

// MetricKeys lists every selectable metric key in display order.
var MetricKeys = []string{
	"loc", "bbls", "calls", "condit", "assign",
	"cc", "cc_mod", "jilb", "abc",
	"pivovarsky", "halstead", "harrison", "boundary", "span",
	"global", "oviedo", "chepin", "card_glass", "henry_cafura", "cocol",
}

// ParseMetricSet builds a set from a comma-separated key list, e.g.
// "loc,cc,halstead". The special value "all" selects everything.
func ParseMetricSet(list string) (MetricSet, error) {
	var s MetricSet
	for _, item := range strings.Split(list, ",") {
		key := strings.TrimSpace(strings.ToLower(item))
		if key == "" {
			continue
		}
		if key == "all" {
			return AllMetrics(), nil
		}
		if !s.set(key, true) {
			return MetricSet{}, fmt.Errorf("unknown metric %q", key)
		}
	}
	return s, nil
}

// Enabled reports whether the metric named key is selected.
func (s *MetricSet) Enabled(key string) bool {
	switch key {
	case "loc":
		return s.LOC
	case "bbls":
		return s.Blocks
	case "calls":
		return s.Calls
	case "condit":
		return s.Conditions
	case "assign":
		return s.Assignments
	case "cc":
		return s.CC
	case "cc_mod":
		return s.CCMod
	case "jilb":
		return s.Jilb
	case "abc":
		return s.ABC
	case "pivovarsky":
		return s.Pivovarsky
	case "halstead":
		return s.Halstead
	case "harrison":
		return s.Harrison
	case "boundary":
		return s.Boundary
	case "span":
		return s.Span
	case "global":
		return s.Global
	case "oviedo":
		return s.Oviedo
	case "chepin":
		return s.Chepin
	case "card_glass":
		return s.CardGlass
	case "henry_cafura":
		return s.HenryCafura
	case "cocol":
		return s.Cocol
	}
	return false
}

// NeedCC reports whether cyclomatic complexity must be computed, selected or
// as a prerequisite of another selected metric.
func (s *MetricSet) NeedCC() bool {
	return s.CC || s.CCMod || s.Cocol || s.HenryCafura || s.CardGlass
}

// NeedHalstead reports whether the Halstead record must be computed.
func (s *MetricSet) NeedHalstead() bool {
	return s.Halstead || s.Cocol
}

// NeedFan reports whether the fan profile must be computed.
func (s *MetricSet) NeedFan() bool {
	return s.HenryCafura || s.CardGlass
}

func (s *MetricSet) set(key string, v bool) bool {
	switch key {
	case "loc":
		s.LOC = v
	case "bbls":
		s.Blocks = v
	case "calls":
		s.Calls = v
	case "condit":
		s.Conditions = v
	case "assign":
		s.Assignments = v
	case "cc":
		s.CC = v
	case "cc_mod":
		s.CCMod = v
	case "jilb":
		s.Jilb = v
	case "abc":
		s.ABC = v
	case "pivovarsky":
		s.Pivovarsky = v
	case "halstead":
		s.Halstead = v
	case "harrison":
		s.Harrison = v
	case "boundary":
		s.Boundary = v
	case "span":
		s.Span = v
	case "global":
		s.Global = v
	case "oviedo":
		s.Oviedo = v
	case "chepin":
		s.Chepin = v
	case "card_glass":
		s.CardGlass = v
	case "henry_cafura":
		s.HenryCafura = v
	case "cocol":
		s.Cocol = v
	default:
		return false
	}
	return true
}
