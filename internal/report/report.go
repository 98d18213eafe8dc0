// Package report renders merged conversion results in various formats: the
// canonical NDJSON collections, a self-contained HTML dashboard, and an XLSX
// summary workbook.
package report

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

const (
	FormatHtml = "html"
	FormatXlsx = "xlsx"
	FormatAll  = "all"
)

var FormatOptions = []string{FormatHtml, FormatXlsx, FormatAll}
