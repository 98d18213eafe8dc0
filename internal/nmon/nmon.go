// Package nmon parses AIX/Linux nmon capture files into time-indexed metric
// documents suitable for charting. A capture file is a line-oriented,
// comma-separated stream in which dozens of independent metric sections
// interleave; every data row is correlated to a time sample through an opaque
// tag minted by the ZZZZ timestamp section.
package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// tagMarker prefixes every sample tag, e.g. "T0012". Rows are identified as
// data rows by this prefix check alone, not by full format validation.
const tagMarker = "T"

// SectionRecord maps a column or field name to its numeric value for one
// section at one time sample.
type SectionRecord map[string]float64

// Document is one merged output record: the resolved "@timestamp" plus one
// nested SectionRecord per section that had data for the sample's tag.
type Document map[string]any

// Timestamp returns the document's resolved timestamp string.
func (d Document) Timestamp() string {
	ts, _ := d["@timestamp"].(string)
	return ts
}

// Section returns the named section's record, or nil if the document does not
// carry that section.
func (d Document) Section(name string) SectionRecord {
	rec, _ := d[name].(SectionRecord)
	return rec
}

// ProcessSample is one TOP row flattened with its resolved timestamp. Unlike
// the metric sections, many process samples may share a time sample (one per
// running process).
type ProcessSample struct {
	Timestamp string  `json:"@timestamp"`
	CPUPct    float64 `json:"%CPU"`
	Command   string  `json:"Command"`
	PID       string  `json:"PID"`
	CharIO    float64 `json:"CharIO"`
	Memory    float64 `json:"Memory"`
}

// Diagnostics counts the recoverable conditions encountered while parsing a
// single capture file. None of these abort the parse.
type Diagnostics struct {
	// DroppedTags are tags that had section data but no resolved timestamp;
	// their documents were not emitted.
	DroppedTags []string
	// HeaderlessRows is the number of discovered-schema data rows that
	// arrived before their section's header and were silently dropped.
	HeaderlessRows int
}

// Result is the output of parsing one capture file. Documents are ordered by
// ascending lexical tag order, which is capture order for well-formed files
// but not necessarily chronological; callers that need chronological order
// must sort by timestamp.
type Result struct {
	// NodeName is the host/partition the file's data is attributed to, taken
	// from the AAA,NodeName metadata record or derived from the filename.
	NodeName       string
	Documents      []Document
	ProcessSamples []ProcessSample
	Diagnostics    Diagnostics
}

// ParseFile parses one nmon capture file with the default section registry.
func ParseFile(path string) (*Result, error) {
	return ParseFileWithRegistry(path, DefaultRegistry())
}

// ParseFileWithRegistry parses one nmon capture file using the given section
// registry. A file open or read failure is fatal to this file only.
func ParseFileWithRegistry(path string, reg *Registry) (*Result, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path), reg)
}

// Parse parses a complete capture from r. sourceName is used to derive the
// node identifier when the capture carries no AAA,NodeName record; its
// extension, if any, is stripped.
func Parse(r io.Reader, sourceName string, reg *Registry) (*Result, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	s := newSession(reg)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.processLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return s.finalize(fileStem(sourceName)), nil
}

func fileStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
