package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strconv"
	"strings"
)

const processKey = "TOP"

// processSnapshot is one accepted TOP row before its tag's timestamp is
// resolved.
type processSnapshot struct {
	pid     string
	command string
	cpuPct  float64
	charIO  float64
	memory  float64
}

// processCollector accumulates a list of process snapshots per tag. Unlike
// the metric sections, TOP emits one row per running process per time step,
// so rows append rather than overwrite. tagOrder preserves capture order for
// the flattened output.
type processCollector struct {
	byTag    map[string][]processSnapshot
	tagOrder []string
}

func newProcessCollector() *processCollector {
	return &processCollector{byTag: make(map[string][]processSnapshot)}
}

// collect handles one TOP row. TOP is the one section whose tag sits at
// position 2, after the PID; rows that don't match this shape are silently
// ignored. The CPU% field is load-bearing: if it is present but malformed,
// the whole row is dropped. CharIO and the memory sum are decoupled failure
// domains that zero out independently.
func (p *processCollector) collect(parts []string) {
	if len(parts) <= 2 || !isTag(parts[2]) {
		return
	}
	tag := parts[2]
	cpuPct := 0.0
	if len(parts) > 3 {
		text := strings.TrimSpace(parts[3])
		if text != "" {
			val, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return
			}
			cpuPct = val
		}
	}
	command := "?"
	if len(parts) > 13 {
		command = parts[13]
	}
	snapshot := processSnapshot{
		pid:     parts[1],
		command: command,
		cpuPct:  cpuPct,
	}
	if len(parts) > 10 {
		if val, err := strconv.ParseFloat(strings.TrimSpace(parts[10]), 64); err == nil {
			snapshot.charIO = val
		}
	}
	if len(parts) > 9 {
		resident, errResident := strconv.ParseFloat(strings.TrimSpace(parts[8]), 64)
		paging, errPaging := strconv.ParseFloat(strings.TrimSpace(parts[9]), 64)
		if errResident == nil && errPaging == nil {
			snapshot.memory = resident + paging
		}
	}
	if _, seen := p.byTag[tag]; !seen {
		p.tagOrder = append(p.tagOrder, tag)
	}
	p.byTag[tag] = append(p.byTag[tag], snapshot)
}

// flatten expands the per-tag lists into one record per process, each tagged
// with its resolved timestamp. Tags with no resolved timestamp contribute
// nothing.
func (p *processCollector) flatten(timestamps map[string]string) []ProcessSample {
	var samples []ProcessSample
	for _, tag := range p.tagOrder {
		ts, ok := timestamps[tag]
		if !ok {
			continue
		}
		for _, snapshot := range p.byTag[tag] {
			samples = append(samples, ProcessSample{
				Timestamp: ts,
				CPUPct:    snapshot.cpuPct,
				Command:   snapshot.command,
				PID:       snapshot.pid,
				CharIO:    snapshot.charIO,
				Memory:    snapshot.memory,
			})
		}
	}
	return samples
}
