package workflow

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T, dir string, name string, node string) string {
	t.Helper()
	capture := fmt.Sprintf(`AAA,NodeName,%s
AAA,date,07-JAN-2025
ZZZZ,T0001,00:01:54,07-JAN-2025
CPU_ALL,T0001,12.5,3.1,0.4,84.0
ZZZZ,T0002,00:02:54,07-JAN-2025
CPU_ALL,T0002,50.0,25.0,5.0,20.0
`, node)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(capture), 0o644))
	return path
}

func TestRunMergesByNode(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeCapture(t, dir, "a.nmon", "lpar01"),
		writeCapture(t, dir, "b.nmon", "lpar02"),
		writeCapture(t, dir, "c.nmon", "lpar01"), // second file for the same node
	}

	merged := Run(context.Background(), files, Options{Workers: 2})
	require.Empty(t, merged.FileErrors)
	assert.Equal(t, []string{"lpar01", "lpar02"}, merged.Nodes)
	assert.Len(t, merged.Documents["lpar01"], 4)
	assert.Len(t, merged.Documents["lpar02"], 2)
	assert.Zero(t, merged.DroppedTags)
	assert.Zero(t, merged.HeaderlessRows)
}

func TestRunIsolatesFileFailures(t *testing.T) {
	dir := t.TempDir()
	good := writeCapture(t, dir, "good.nmon", "lpar01")
	missing := filepath.Join(dir, "missing.nmon")

	merged := Run(context.Background(), []string{good, missing}, Options{Workers: 1})
	assert.Len(t, merged.Documents["lpar01"], 2)
	require.Contains(t, merged.FileErrors, missing)
	assert.ErrorContains(t, merged.FileErrors[missing], missing)
}

func TestRunReportsEveryFile(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeCapture(t, dir, "a.nmon", "lpar01"),
		writeCapture(t, dir, "b.nmon", "lpar02"),
	}

	var mu sync.Mutex
	seen := map[string]bool{}
	Run(context.Background(), files, Options{
		Workers: 2,
		OnResult: func(res FileResult) {
			mu.Lock()
			defer mu.Unlock()
			seen[res.File] = true
		},
	})
	assert.Len(t, seen, 2)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	files := []string{writeCapture(t, dir, "a.nmon", "lpar01")}
	merged := Run(ctx, files, Options{Workers: 1})
	// no task was dispatched; nothing merged and nothing failed
	assert.Empty(t, merged.Nodes)
	assert.Empty(t, merged.FileErrors)
}

func TestRunWithNoFiles(t *testing.T) {
	merged := Run(context.Background(), nil, Options{})
	assert.Empty(t, merged.Nodes)
	assert.Empty(t, merged.Documents)
}

func TestRunDefaultsWorkerCount(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeCapture(t, dir, "a.nmon", "lpar01")}
	merged := Run(context.Background(), files, Options{Workers: -1})
	assert.Equal(t, []string{"lpar01"}, merged.Nodes)
}
