package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

// table_defs.go declares the section registry: one definition per metric
// family, covering the two row shapes found in nmon captures. Fixed-schema
// sections name their field positions here; discovered-schema sections get
// their column names from the first header row seen in the file. Adding a
// section is a data change, not a code change.

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/casbin/govaluate"
	"gopkg.in/yaml.v2"
)

// fixedFieldSpec binds an output field name to a position in the raw
// comma-split line (position 0 is the section key, 1 the tag).
type fixedFieldSpec struct {
	name  string
	index int
}

// derivedFieldSpec computes an output field from the row's decoded values.
// Expressions are compiled once at registry construction and evaluated
// against a variable map holding the section's inputs and fields.
type derivedFieldSpec struct {
	name       string
	expression string
	evaluable  *govaluate.EvaluableExpression
}

// fixedSectionDefinition describes a section with a constant set of named,
// positional fields.
type fixedSectionDefinition struct {
	key        string
	outputName string
	// inputs are decoded into expression variables but not emitted.
	inputs  []fixedFieldSpec
	fields  []fixedFieldSpec
	derived []derivedFieldSpec
	// update merges into the tag's existing record instead of replacing it;
	// the PROC section is populated piecemeal.
	update bool
	// minValues drops rows carrying fewer numeric values after the tag.
	minValues int
}

// discoveredSectionDefinition describes a header-then-rows section. The
// accumulator is AwaitingHeader until the first non-tagged row for the key is
// seen; its fields after the descriptor column become the column names.
type discoveredSectionDefinition struct {
	key        string
	outputName string
	// headerMatch, when set, must accept the descriptor column for a row to
	// be taken as the header. The FILE section shares its key between header
	// and unrelated summary rows and is disambiguated this way.
	headerMatch func(descriptor string) bool
	// fieldSuffix is appended to each column name; paired sections such as
	// FCREAD/FCWRITE land in one output section distinguished by suffix.
	fieldSuffix string
	// update merges records for a tag; required when two keys feed one
	// output section.
	update bool
	// allowBareRow accepts a tagged row with no value columns, emitting a
	// zero-filled record for every header column. Sections differ on this:
	// the disk, volume-group, network, and fibre-channel families drop such
	// rows.
	allowBareRow bool
}

// Registry holds the section definitions used by one parse session. It is
// immutable once handed to Parse.
type Registry struct {
	fixed      []*fixedSectionDefinition
	discovered []*discoveredSectionDefinition

	fixedByKey      map[string][]*fixedSectionDefinition
	discoveredByKey map[string][]*discoveredSectionDefinition
}

var evaluatorFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs expects 1 argument, got %d", len(args))
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("abs expects a number")
		}
		return math.Abs(v), nil
	},
}

func mustExpression(expr string) *govaluate.EvaluableExpression {
	evaluable, err := govaluate.NewEvaluableExpressionWithFunctions(expr, evaluatorFunctions)
	if err != nil {
		panic(fmt.Sprintf("invalid derived-field expression %q: %v", expr, err))
	}
	return evaluable
}

func derived(name, expression string) derivedFieldSpec {
	return derivedFieldSpec{name: name, expression: expression, evaluable: mustExpression(expression)}
}

// DefaultRegistry returns the registry covering every section emitted by the
// AIX nmon collector that the converter understands.
func DefaultRegistry() *Registry {
	r := &Registry{}
	r.fixed = []*fixedSectionDefinition{
		{
			key:        "CPU_ALL",
			outputName: "cpu_all",
			fields: []fixedFieldSpec{
				{"User%", 2}, {"Sys%", 3}, {"Wait%", 4}, {"Idle%", 5},
			},
		},
		{
			key:        "LPAR",
			outputName: "lpar",
			fields: []fixedFieldSpec{
				{"PhysicalCPU", 2}, {"VirtualCPUs", 3}, {"Entitled", 6},
			},
		},
		{
			key:        "PROC",
			outputName: "proc",
			update:     true,
			fields: []fixedFieldSpec{
				{"Runnable", 2}, {"Swap-in", 3}, {"pswitch", 4}, {"Syscall", 5},
				{"Read", 6}, {"Write", 7}, {"fork", 8}, {"exec", 9},
				{"sem", 10}, {"msg", 11},
			},
		},
		{
			key:        "MEMNEW",
			outputName: "memnew",
			fields: []fixedFieldSpec{
				{"Process%", 2}, {"FScache%", 3}, {"System%", 4},
				{"Free%", 5}, {"Pinned%", 6}, {"User%", 7},
			},
		},
		{
			key:        "MEM",
			outputName: "mem",
			inputs: []fixedFieldSpec{
				{"real_free_pct", 2}, {"virt_free_pct", 3},
			},
			derived: []derivedFieldSpec{
				derived("Real_Used%", "100 - real_free_pct"),
				derived("Virtual_Used%", "100 - virt_free_pct"),
			},
		},
		{
			key:        "MEM",
			outputName: "mem_mb",
			// short MEM rows carry only the free percentages; record mem but
			// not mem_mb for those
			minValues: 6,
			fields: []fixedFieldSpec{
				{"Real_Free_MB", 4}, {"Virtual_Free_MB", 5},
				{"Real_Total_MB", 6}, {"Virtual_Total_MB", 7},
			},
			derived: []derivedFieldSpec{
				derived("Real_Used_MB", "Real_Total_MB - Real_Free_MB"),
				derived("Virtual_Used_MB", "Virtual_Total_MB - Virtual_Free_MB"),
			},
		},
		{
			key:        "MEMUSE",
			outputName: "memuse",
			fields: []fixedFieldSpec{
				{"numperm", 2}, {"minperm", 3}, {"maxperm", 4},
			},
		},
		{
			key:        "PAGE",
			outputName: "page",
			inputs: []fixedFieldSpec{
				{"pgout_raw", 4}, {"pgsout_raw", 6},
			},
			fields: []fixedFieldSpec{
				{"pgin", 3}, {"pgsin", 5},
			},
			// pgout and pgsout are forced non-positive so downstream stacked
			// charts can render out-paging below the axis.
			derived: []derivedFieldSpec{
				derived("pgout", "-abs(pgout_raw)"),
				derived("pgsout", "-abs(pgsout_raw)"),
			},
		},
		{
			key:        "NETSIZE",
			outputName: "netsize",
			minValues:  4,
			fields: []fixedFieldSpec{
				{"en2-readsize", 2}, {"lo0-readsize", 3},
				{"en2-writesize", 4}, {"lo0-writesize", 5},
			},
		},
	}
	r.discovered = []*discoveredSectionDefinition{
		{key: "FILE", outputName: "file_io", allowBareRow: true, headerMatch: func(descriptor string) bool {
			return strings.Contains(descriptor, "File I/O")
		}},
		{key: "NET", outputName: "net"},
		{key: "NETPACKET", outputName: "netpacket"},
		{key: "DISKREAD", outputName: "diskread"},
		{key: "DISKWRITE", outputName: "diskwrite"},
		{key: "DISKBUSY", outputName: "diskbusy"},
		{key: "DISKWAIT", outputName: "diskwait"},
		{key: "VGREAD", outputName: "vgread"},
		{key: "VGWRITE", outputName: "vgwrite"},
		{key: "VGBUSY", outputName: "vgbusy"},
		{key: "VGSIZE", outputName: "vgsize"},
		{key: "JFSFILE", outputName: "jfsfile", allowBareRow: true},
		{key: "SEA", outputName: "sea", allowBareRow: true},
		{key: "SEAPACKET", outputName: "seapacket", allowBareRow: true},
		{key: "SEACHPHY", outputName: "seachphy", allowBareRow: true},
		{key: "FCREAD", outputName: "fc", fieldSuffix: "-read", update: true},
		{key: "FCWRITE", outputName: "fc", fieldSuffix: "-write", update: true},
		{key: "FCXFERIN", outputName: "fcxfer", fieldSuffix: "-in", update: true},
		{key: "FCXFEROUT", outputName: "fcxfer", fieldSuffix: "-out", update: true},
	}
	r.index()
	return r
}

// AddDiscovered registers an additional header-then-rows section. The key is
// the line's first field; outputName is the document key its records land
// under.
func (r *Registry) AddDiscovered(key string, outputName string) error {
	if key == "" || outputName == "" {
		return fmt.Errorf("section key and output name must not be empty")
	}
	for _, def := range r.discovered {
		if def.key == key {
			return fmt.Errorf("section key already registered: %s", key)
		}
	}
	r.discovered = append(r.discovered, &discoveredSectionDefinition{key: key, outputName: outputName})
	r.index()
	return nil
}

func (r *Registry) index() {
	r.fixedByKey = make(map[string][]*fixedSectionDefinition, len(r.fixed))
	for _, def := range r.fixed {
		r.fixedByKey[def.key] = append(r.fixedByKey[def.key], def)
	}
	r.discoveredByKey = make(map[string][]*discoveredSectionDefinition, len(r.discovered))
	for _, def := range r.discovered {
		r.discoveredByKey[def.key] = append(r.discoveredByKey[def.key], def)
	}
}

// sectionsFile is the YAML shape of a --sections overlay file.
type sectionsFile struct {
	Sections []struct {
		Key    string `yaml:"key"`
		Output string `yaml:"output"`
	} `yaml:"sections"`
}

// LoadOverlay registers extra discovered-schema sections from a YAML file,
// letting captures from patched nmon builds be converted without a code
// change.
func (r *Registry) LoadOverlay(path string) error {
	yamlFile, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read sections file: %w", err)
	}
	var overlay sectionsFile
	if err := yaml.Unmarshal(yamlFile, &overlay); err != nil {
		return fmt.Errorf("failed to parse sections file: %w", err)
	}
	for _, section := range overlay.Sections {
		if err := r.AddDiscovered(section.Key, section.Output); err != nil {
			return fmt.Errorf("failed to register section from %s: %w", path, err)
		}
	}
	return nil
}
