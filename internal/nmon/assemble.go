package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// finalize assembles the session's accumulators into the file's Result. The
// assembler iterates the section store generically: a document is emitted for
// every tag with a resolved timestamp and at least one section record; tags
// failing either test are dropped, so downstream chart code can assume every
// document carries a metric.
func (s *session) finalize(defaultNode string) *Result {
	node := s.node
	if node == "" {
		node = defaultNode
	}

	tags := mapset.NewThreadUnsafeSet[string]()
	for _, store := range s.sections {
		tags = tags.Union(mapset.NewThreadUnsafeSetFromMapKeys(store))
	}
	tags = tags.Union(mapset.NewThreadUnsafeSetFromMapKeys(s.cpuUse.byTag))
	// Tags known only to the timestamp map resolve trivially; tags missing
	// from it below are therefore exactly the ones that carried data.
	tags = tags.Union(mapset.NewThreadUnsafeSetFromMapKeys(s.timestamps))

	sortedTags := tags.ToSlice()
	sort.Strings(sortedTags)

	result := &Result{
		NodeName:    node,
		Diagnostics: Diagnostics{HeaderlessRows: s.headerlessRows},
	}
	for _, tag := range sortedTags {
		ts, ok := s.timestamps[tag]
		if !ok {
			// Data with no time sample is unplottable; drop the tag but
			// surface it so callers can report the loss.
			result.Diagnostics.DroppedTags = append(result.Diagnostics.DroppedTags, tag)
			continue
		}
		doc := Document{"@timestamp": ts}
		for sectionName, store := range s.sections {
			if rec, ok := store[tag]; ok {
				doc[sectionName] = rec
			}
		}
		if cores := s.cpuUse.averages(tag); cores != nil {
			doc["cpu_use"] = cores
		}
		if len(doc) == 1 {
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	result.ProcessSamples = s.top.flatten(s.timestamps)
	if len(result.Diagnostics.DroppedTags) > 0 {
		slog.Warn("dropped tags with data but no timestamp",
			slog.String("node", node),
			slog.Int("count", len(result.Diagnostics.DroppedTags)))
	}
	return result
}
