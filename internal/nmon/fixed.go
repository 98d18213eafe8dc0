package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
)

// collectFixed decodes one data row of a fixed-schema section. Fields are
// coerced independently; a malformed value becomes 0.0 rather than rejecting
// the row. Derived fields are evaluated last, against the decoded variables.
func (s *session) collectFixed(def *fixedSectionDefinition, parts []string) {
	if len(parts) < 2 || !isTag(parts[1]) {
		return
	}
	if def.minValues > 0 && len(parts)-2 < def.minValues {
		return
	}
	tag := parts[1]
	variables := make(map[string]any, len(def.inputs)+len(def.fields))
	for _, input := range def.inputs {
		variables[input.name] = parseField(parts, input.index)
	}
	rec := s.record(def.outputName, tag, def.update)
	for _, field := range def.fields {
		val := parseField(parts, field.index)
		rec[field.name] = val
		variables[field.name] = val
	}
	for _, d := range def.derived {
		rec[d.name] = evaluateDerived(d, variables)
	}
}

func evaluateDerived(d derivedFieldSpec, variables map[string]any) float64 {
	result, err := d.evaluable.Evaluate(variables)
	if err != nil {
		slog.Debug("failed to evaluate derived field",
			slog.String("field", d.name),
			slog.String("expression", d.expression),
			slog.String("error", err.Error()))
		return 0.0
	}
	val, ok := result.(float64)
	if !ok {
		slog.Debug("derived field expression did not yield a number",
			slog.String("field", d.name),
			slog.String("expression", d.expression))
		return 0.0
	}
	return val
}

// coreUtilizationNoiseFloor suppresses idle logical cores: a CPUnn row is
// accumulated only when its user%+sys% exceeds this threshold.
const coreUtilizationNoiseFloor = 0.05

// coreUtilization carries running sums for one tag and logical core; the
// average is taken at assembly time.
type coreUtilization struct {
	userSum float64
	sysSum  float64
	count   int
}

// coreUtilizationCollector pre-reduces repeated CPUnn rows into running
// sums/counts per tag and core id.
type coreUtilizationCollector struct {
	byTag map[string]map[string]*coreUtilization
}

func newCoreUtilizationCollector() *coreUtilizationCollector {
	return &coreUtilizationCollector{byTag: make(map[string]map[string]*coreUtilization)}
}

// collect handles one "CPUnn,Txxxx,user,sys,wait,idle" row. key has already
// matched the CPU\d+ pattern.
func (c *coreUtilizationCollector) collect(key string, parts []string) {
	if len(parts) < 2 || !isTag(parts[1]) {
		return
	}
	userVal := parseField(parts, 2)
	sysVal := parseField(parts, 3)
	if userVal+sysVal <= coreUtilizationNoiseFloor {
		return
	}
	tag := parts[1]
	coreID := key[len("CPU"):]
	cores := c.byTag[tag]
	if cores == nil {
		cores = make(map[string]*coreUtilization)
		c.byTag[tag] = cores
	}
	core := cores[coreID]
	if core == nil {
		core = &coreUtilization{}
		cores[coreID] = core
	}
	core.userSum += userVal
	core.sysSum += sysVal
	core.count++
}

// averages finalizes one tag's accumulated cores into per-core user/sys
// means, or nil if the tag has none.
func (c *coreUtilizationCollector) averages(tag string) map[string]SectionRecord {
	cores := c.byTag[tag]
	if len(cores) == 0 {
		return nil
	}
	out := make(map[string]SectionRecord, len(cores))
	for coreID, core := range cores {
		out[coreID] = SectionRecord{
			"user": core.userSum / float64(core.count),
			"sys":  core.sysSum / float64(core.count),
		}
	}
	return out
}
