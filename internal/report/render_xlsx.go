package report

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/nazihous/nmon2plotly/internal/nmon"
)

func cellName(col int, row int) (name string) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return
	}
	name, err = excelize.JoinCellName(columnName, row)
	if err != nil {
		return
	}
	return
}

// summaryColumn selects one value per document for the summary sheet.
type summaryColumn struct {
	header  string
	section string
	field   string
}

var summaryColumns = []summaryColumn{
	{"CPU User%", "cpu_all", "User%"},
	{"CPU Sys%", "cpu_all", "Sys%"},
	{"CPU Wait%", "cpu_all", "Wait%"},
	{"CPU Idle%", "cpu_all", "Idle%"},
	{"Real Used%", "mem", "Real_Used%"},
	{"Virtual Used%", "mem", "Virtual_Used%"},
	{"Real Used MB", "mem_mb", "Real_Used_MB"},
	{"Runnable", "proc", "Runnable"},
}

// CreateSummaryXlsx renders one worksheet per node with a timestamp column
// plus headline CPU/memory/process values for each document.
func CreateSummaryXlsx(documents map[string][]nmon.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	nodes := make([]string, 0, len(documents))
	for node := range documents {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	for sheetIdx, node := range nodes {
		sheetName := node
		if len(sheetName) > 31 { // sheet name limit
			sheetName = sheetName[:31]
		}
		if sheetIdx == 0 {
			_ = f.SetSheetName("Sheet1", sheetName)
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return nil, fmt.Errorf("failed to create sheet for node %s: %w", node, err)
			}
		}
		row := 1
		_ = f.SetCellValue(sheetName, cellName(1, row), "Timestamp")
		for colIdx, column := range summaryColumns {
			_ = f.SetCellValue(sheetName, cellName(colIdx+2, row), column.header)
		}
		_ = f.SetCellStyle(sheetName, cellName(1, row), cellName(len(summaryColumns)+1, row), headerStyle)
		row++
		for _, doc := range documents[node] {
			_ = f.SetCellValue(sheetName, cellName(1, row), doc.Timestamp())
			for colIdx, column := range summaryColumns {
				if rec := doc.Section(column.section); rec != nil {
					if val, ok := rec[column.field]; ok {
						_ = f.SetCellValue(sheetName, cellName(colIdx+2, row), val)
					}
				}
			}
			row++
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
