// Package convert implements the convert command: discover nmon capture
// files, parse them on a worker pool, and write the NDJSON collections and
// optional reports.
package convert

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nazihous/nmon2plotly/internal/common"
	"github.com/nazihous/nmon2plotly/internal/nmon"
	"github.com/nazihous/nmon2plotly/internal/progress"
	"github.com/nazihous/nmon2plotly/internal/report"
	"github.com/nazihous/nmon2plotly/internal/util"
	"github.com/nazihous/nmon2plotly/internal/workflow"
)

const cmdName = "convert"

var examples = []string{
	fmt.Sprintf("  Convert a directory of captures:      $ %s %s --input ./captures", common.AppName, cmdName),
	fmt.Sprintf("  Render the XLSX summary as well:      $ %s %s --input ./captures --format all", common.AppName, cmdName),
	fmt.Sprintf("  Register extra capture sections:      $ %s %s --input ./captures --sections ./sections.yaml", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Convert nmon capture files to NDJSON metric documents and charts",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	SilenceErrors: true,
}

var (
	flagInputDir string
	flagWorkers  int
	flagFormat   string
	flagSections string
	flagPromAddr string
)

const (
	flagInputDirName = "input"
	flagWorkersName  = "workers"
	flagFormatName   = "format"
	flagSectionsName = "sections"
	flagPromAddrName = "prom-addr"
)

func init() {
	Cmd.Flags().StringVar(&flagInputDir, flagInputDirName, "", "directory containing .nmon capture files")
	Cmd.Flags().IntVar(&flagWorkers, flagWorkersName, runtime.NumCPU(), "number of capture files to parse concurrently")
	Cmd.Flags().StringVar(&flagFormat, flagFormatName, report.FormatHtml, fmt.Sprintf("report format, one of: %s (NDJSON is always written)", strings.Join(report.FormatOptions, ", ")))
	Cmd.Flags().StringVar(&flagSections, flagSectionsName, "", "YAML file registering additional capture sections")
	Cmd.Flags().StringVar(&flagPromAddr, flagPromAddrName, "", "address to serve conversion progress as Prometheus metrics, e.g., localhost:9090")
	_ = Cmd.MarkFlagRequired(flagInputDirName)
}

func validateFlags() error {
	if !slices.Contains(report.FormatOptions, flagFormat) {
		return fmt.Errorf("format must be one of: %s", strings.Join(report.FormatOptions, ", "))
	}
	if flagWorkers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	if err := validateFlags(); err != nil {
		return err
	}
	appContext := cmd.Parent().Context().Value(common.AppContext{}).(common.AppContext)
	outputDir := appContext.OutputDir

	inputDir, err := util.AbsPath(flagInputDir)
	if err != nil {
		return fmt.Errorf("failed to expand input dir: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(inputDir, "*.nmon"))
	if err != nil {
		return fmt.Errorf("failed to list input dir: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .nmon files found in %s", inputDir)
	}
	slices.Sort(files)

	registry := nmon.DefaultRegistry()
	if flagSections != "" {
		if err := registry.LoadOverlay(flagSections); err != nil {
			return err
		}
	}

	for _, dir := range []string{outputDir, filepath.Join(outputDir, "all"), filepath.Join(outputDir, "top")} {
		if err := util.CreateDirectoryIfNotExists(dir, 0755); err != nil { // #nosec G301
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if flagPromAddr != "" {
		startPrometheusServer(flagPromAddr)
	}

	// catch signals to stop dispatching new file tasks; tasks in flight run
	// to completion
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChannel)
	go func() {
		sig, ok := <-sigChannel
		if !ok {
			return
		}
		slog.Info("received signal, finishing tasks in flight", slog.String("signal", sig.String()))
		cancel()
	}()

	multiSpinner := progress.NewMultiSpinner()
	for _, file := range files {
		_ = multiSpinner.AddSpinner(filepath.Base(file))
	}
	multiSpinner.Start()

	merged := workflow.Run(ctx, files, workflow.Options{
		Workers:  flagWorkers,
		Registry: registry,
		OnResult: func(result workflow.FileResult) {
			label := filepath.Base(result.File)
			if result.Err != nil {
				_ = multiSpinner.Status(label, "failed")
				observeError()
				return
			}
			if err := writeFileOutputs(result, outputDir); err != nil {
				_ = multiSpinner.Status(label, "failed to write output")
				slog.Error(err.Error())
				observeError()
				return
			}
			_ = multiSpinner.Status(label, fmt.Sprintf("%d documents", len(result.Result.Documents)))
			observeResult(result.Result)
		},
	})
	multiSpinner.Finish()

	if err := writeReports(merged, outputDir); err != nil {
		return err
	}
	printRunSummary(merged, outputDir)
	if len(merged.FileErrors) == len(files) {
		return fmt.Errorf("all %d capture files failed to parse", len(files))
	}
	return nil
}

// writeFileOutputs writes one file's NDJSON collections, named after the
// capture file's stem.
func writeFileOutputs(result workflow.FileResult, outputDir string) error {
	base := strings.TrimSuffix(filepath.Base(result.File), filepath.Ext(result.File))
	allPath := filepath.Join(outputDir, "all", base+"_all.json")
	if err := report.WriteDocumentsNDJSON(result.Result.Documents, allPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", allPath, err)
	}
	topPath := filepath.Join(outputDir, "top", base+"_top.json")
	if err := report.WriteProcessSamplesNDJSON(result.Result.ProcessSamples, topPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", topPath, err)
	}
	return nil
}

func writeReports(merged *workflow.Merged, outputDir string) error {
	if flagFormat == report.FormatHtml || flagFormat == report.FormatAll {
		out, err := report.CreateDashboard(merged.Documents, merged.ProcessSamples)
		if err != nil {
			return err
		}
		htmlPath := filepath.Join(outputDir, "index.html")
		if err := os.WriteFile(htmlPath, out, 0644); err != nil { // #nosec G306
			return fmt.Errorf("failed to write dashboard: %w", err)
		}
	}
	if flagFormat == report.FormatXlsx || flagFormat == report.FormatAll {
		out, err := report.CreateSummaryXlsx(merged.Documents)
		if err != nil {
			return err
		}
		xlsxPath := filepath.Join(outputDir, "summary.xlsx")
		if err := os.WriteFile(xlsxPath, out, 0644); err != nil { // #nosec G306
			return fmt.Errorf("failed to write summary workbook: %w", err)
		}
	}
	return nil
}

func printRunSummary(merged *workflow.Merged, outputDir string) {
	printer := message.NewPrinter(language.English)
	var docCount, sampleCount int
	for _, docs := range merged.Documents {
		docCount += len(docs)
	}
	for _, samples := range merged.ProcessSamples {
		sampleCount += len(samples)
	}
	printer.Printf("Wrote %d documents and %d process samples for %d node(s) to %s\n",
		docCount, sampleCount, len(merged.Nodes), outputDir)
	if merged.DroppedTags > 0 {
		printer.Printf("Dropped %d tag(s) that carried data but no timestamp\n", merged.DroppedTags)
	}
	for file, err := range merged.FileErrors {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", file, err)
	}
}
