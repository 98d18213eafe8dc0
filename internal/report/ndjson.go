package report

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nazihous/nmon2plotly/internal/nmon"
)

// WriteDocumentsNDJSON writes the merged documents as newline-delimited JSON,
// one object per line. Nothing is written for an empty collection.
func WriteDocumentsNDJSON(docs []nmon.Document, path string) error {
	if len(docs) == 0 {
		return nil
	}
	records := make([]any, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc)
	}
	return writeNDJSON(records, path)
}

// WriteProcessSamplesNDJSON writes the flattened process samples as
// newline-delimited JSON.
func WriteProcessSamplesNDJSON(samples []nmon.ProcessSample, path string) error {
	if len(samples) == 0 {
		return nil
	}
	records := make([]any, 0, len(samples))
	for _, sample := range samples {
		records = append(records, sample)
	}
	return writeNDJSON(records, path)
}

func writeNDJSON(records []any, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644) // #nosec G302 G304
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	encoder := json.NewEncoder(w)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
