package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"regexp"
	"strings"
)

const (
	timestampKey = "ZZZZ"
	metadataKey  = "AAA"
)

// rxCalendarDate is the strict nmon date shape, e.g. "07-JAN-2025". Matched
// case-insensitively by uppercasing first.
var rxCalendarDate = regexp.MustCompile(`^\d{2}-[A-Z]{3}-\d{4}$`)

// collectTimestamp handles one ZZZZ record: "ZZZZ,Txxxx,HH:MM:SS,DD-MMM-YYYY".
// An invalid date is replaced with the most recent fallback date from the
// metadata section; with no fallback seen yet, the invalid text is kept
// verbatim rather than losing the sample.
func (s *session) collectTimestamp(parts []string) {
	if len(parts) < 4 {
		return
	}
	tag := parts[1]
	timeText := parts[2]
	dateText := strings.TrimSpace(parts[3])
	if !rxCalendarDate.MatchString(strings.ToUpper(dateText)) {
		if s.fallbackDate != "" {
			dateText = s.fallbackDate
		}
	}
	s.timestamps[tag] = dateText + " " + timeText
}

// collectMetadata handles one AAA record. Only two sub-keys matter: NodeName
// names the host the file's data belongs to, and date seeds the fallback for
// ZZZZ records with mangled dates.
func (s *session) collectMetadata(parts []string) {
	if len(parts) < 3 {
		return
	}
	switch parts[1] {
	case "NodeName":
		s.node = parts[2]
	case "date":
		s.fallbackDate = parts[2]
	}
}
