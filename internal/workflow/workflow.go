// Package workflow implements the conversion flow shared by the application
// commands: fan whole-file parse tasks out to a fixed-size worker pool, then
// merge the per-file results by node identifier once every task has joined.
package workflow

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/pkg/errors"

	"github.com/nazihous/nmon2plotly/internal/nmon"
	"github.com/nazihous/nmon2plotly/internal/util"
)

// FileResult is the outcome of one whole-file parse task. Err is fatal to
// this file only; sibling files are unaffected.
type FileResult struct {
	File   string
	Result *nmon.Result
	Err    error
}

// Options configures a conversion run.
type Options struct {
	// Workers is the size of the worker pool; defaults to runtime.NumCPU().
	Workers int
	// Registry is the section registry used by every parse task; defaults to
	// nmon.DefaultRegistry().
	Registry *nmon.Registry
	// OnResult, when set, is called from the collection goroutine as each
	// file finishes, in completion order.
	OnResult func(FileResult)
}

// Merged holds per-file results combined by node identifier. Slices for one
// node concatenate the files' collections in input-file order.
type Merged struct {
	Documents      map[string][]nmon.Document
	ProcessSamples map[string][]nmon.ProcessSample
	Nodes          []string
	FileErrors     map[string]error
	DroppedTags    int
	HeaderlessRows int
}

// Run parses every file on a fixed-size worker pool and merges the results.
// Tasks share no mutable state; the merge is performed sequentially after all
// tasks join. Cancellation is honored between file tasks: a task already
// scanning runs to completion.
func Run(ctx context.Context, files []string, opts Options) *Merged {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}
	registry := opts.Registry
	if registry == nil {
		registry = nmon.DefaultRegistry()
	}

	tasks := make(chan string)
	results := make(chan FileResult)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				res, err := nmon.ParseFileWithRegistry(file, registry)
				if err != nil {
					err = errors.Wrap(err, file)
				}
				results <- FileResult{File: file, Result: res, Err: err}
			}
		}()
	}
	go func() {
		defer close(tasks)
		for _, file := range files {
			// checked separately first so a canceled context always wins
			// over a ready worker
			select {
			case <-ctx.Done():
				return
			default:
			}
			select {
			case <-ctx.Done():
				return
			case tasks <- file:
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	byFile := make(map[string]FileResult, len(files))
	for result := range results {
		if opts.OnResult != nil {
			opts.OnResult(result)
		}
		byFile[result.File] = result
	}
	return merge(files, byFile)
}

// merge combines results in input-file order so repeat runs produce identical
// output regardless of task completion order.
func merge(files []string, byFile map[string]FileResult) *Merged {
	merged := &Merged{
		Documents:      make(map[string][]nmon.Document),
		ProcessSamples: make(map[string][]nmon.ProcessSample),
		FileErrors:     make(map[string]error),
	}
	for _, file := range files {
		result, ok := byFile[file]
		if !ok {
			// run was canceled before this file was dispatched
			continue
		}
		if result.Err != nil {
			slog.Error("failed to parse capture file", slog.String("file", file), slog.String("error", result.Err.Error()))
			merged.FileErrors[file] = result.Err
			continue
		}
		node := result.Result.NodeName
		merged.Nodes = util.UniqueAppend(merged.Nodes, node)
		merged.Documents[node] = append(merged.Documents[node], result.Result.Documents...)
		merged.ProcessSamples[node] = append(merged.ProcessSamples[node], result.Result.ProcessSamples...)
		merged.DroppedTags += len(result.Result.Diagnostics.DroppedTags)
		merged.HeaderlessRows += result.Result.Diagnostics.HeaderlessRows
	}
	return merged
}
