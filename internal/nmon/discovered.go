package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

// collectDiscovered runs the two-state header-then-rows machine shared by
// every discovered-schema section. AwaitingHeader: the first non-tagged row's
// fields after the descriptor column become the column names. Ready: tagged
// rows decode positionally against the captured header. Data rows arriving
// before the header are dropped, never buffered.
func (s *session) collectDiscovered(def *discoveredSectionDefinition, parts []string) {
	if len(parts) < 2 {
		return
	}
	if !isTag(parts[1]) {
		if len(parts) < 3 {
			return
		}
		if _, ready := s.headers[def.key]; ready {
			return
		}
		if def.headerMatch != nil && !def.headerMatch(parts[1]) {
			return
		}
		s.headers[def.key] = parts[2:]
		return
	}
	// tagged rows with no value columns are section-dependent: some families
	// still emit a zero-filled record, the rest drop the row
	if len(parts) < 3 && !def.allowBareRow {
		return
	}
	header, ready := s.headers[def.key]
	if !ready {
		s.headerlessRows++
		return
	}
	tag := parts[1]
	rec := s.record(def.outputName, tag, def.update)
	for i, column := range header {
		rec[column+def.fieldSuffix] = parseField(parts, i+2)
	}
}
