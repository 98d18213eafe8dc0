package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

// session.go holds the per-file parse state. All accumulator state lives on
// the session and is discarded after finalize; nothing crosses files.

import (
	"regexp"
	"strconv"
	"strings"
)

var rxLogicalCore = regexp.MustCompile(`^CPU\d+$`)

// session is the mutable parse context for one capture file. It is a
// single-writer, sequential-scan structure; no locking is required.
type session struct {
	reg *Registry

	// sections accumulates every section's records: output name -> tag -> record.
	sections map[string]map[string]SectionRecord
	// headers holds captured column names per discovered section key. A key's
	// presence marks the section Ready; the first header wins for the file.
	headers map[string][]string

	cpuUse     *coreUtilizationCollector
	top        *processCollector
	timestamps map[string]string

	node         string
	fallbackDate string

	headerlessRows int
}

func newSession(reg *Registry) *session {
	return &session{
		reg:        reg,
		sections:   make(map[string]map[string]SectionRecord),
		headers:    make(map[string][]string),
		cpuUse:     newCoreUtilizationCollector(),
		top:        newProcessCollector(),
		timestamps: make(map[string]string),
	}
}

// processLine classifies a single raw line and dispatches it to the matching
// accumulator. Blank lines and unknown section keys are discarded; no line is
// an error.
func (s *session) processLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	parts := strings.Split(line, ",")
	key := parts[0]
	switch {
	case key == timestampKey:
		s.collectTimestamp(parts)
	case key == metadataKey:
		s.collectMetadata(parts)
	case key == processKey:
		s.top.collect(parts)
	case rxLogicalCore.MatchString(key):
		s.cpuUse.collect(key, parts)
	default:
		for _, def := range s.reg.fixedByKey[key] {
			s.collectFixed(def, parts)
		}
		for _, def := range s.reg.discoveredByKey[key] {
			s.collectDiscovered(def, parts)
		}
	}
}

// record returns the record to populate for a tag in a section, honoring the
// section's update-vs-replace policy.
func (s *session) record(outputName string, tag string, update bool) SectionRecord {
	store := s.sections[outputName]
	if store == nil {
		store = make(map[string]SectionRecord)
		s.sections[outputName] = store
	}
	rec := store[tag]
	if rec == nil || !update {
		rec = make(SectionRecord)
		store[tag] = rec
	}
	return rec
}

// isTag reports whether a field looks like a sample tag. Prefix check only;
// the capture format is trusted this far and no further.
func isTag(field string) bool {
	return strings.HasPrefix(field, tagMarker)
}

// parseField decodes one positional numeric field, best effort: a missing,
// blank, or malformed field yields 0.0 and never rejects the row.
func parseField(parts []string, index int) float64 {
	if index >= len(parts) {
		return 0.0
	}
	text := strings.TrimSpace(parts[index])
	if text == "" {
		return 0.0
	}
	val, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0.0
	}
	return val
}
