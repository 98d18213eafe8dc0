package convert

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

// Optional Prometheus endpoint exposing conversion progress counters for
// long batch runs.

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nazihous/nmon2plotly/internal/nmon"
)

var (
	filesParsedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nmon2plotly_files_parsed_total",
		Help: "Capture files parsed successfully",
	})
	parseErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nmon2plotly_parse_errors_total",
		Help: "Capture files that failed to parse or write",
	})
	documentsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nmon2plotly_documents_total",
		Help: "Merged metric documents emitted",
	})
	processSamplesCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nmon2plotly_process_samples_total",
		Help: "Flattened process samples emitted",
	})
)

func startPrometheusServer(listenAddr string) {
	prometheus.MustRegister(filesParsedCounter, parseErrorsCounter, documentsCounter, processSamplesCounter)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	go func() {
		server := &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
		}
	}()
}

func observeResult(result *nmon.Result) {
	filesParsedCounter.Inc()
	documentsCounter.Add(float64(len(result.Documents)))
	processSamplesCounter.Add(float64(len(result.ProcessSamples)))
}

func observeError() {
	parseErrorsCounter.Inc()
}
