// Package common defines data structures shared by the application commands.
package common

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
)

var AppName = filepath.Base(os.Args[0])

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	OutputDir   string // OutputDir is the directory where the application will write output files.
	LogFilePath string // LogFilePath is the path of the application log file, if logging to a file.
	Version     string // Version is the version of the application.
	Debug       bool   // Debug indicates whether debug logging is enabled.
}
