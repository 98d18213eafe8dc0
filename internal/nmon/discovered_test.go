package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderCapture(t *testing.T) {
	result := parseLines(t,
		"DISKBUSY,Disk %Busy lpar01,hdisk0,hdisk1",
		"DISKBUSY,T0001,12.0,3.5",
	)
	busy := result.Documents[0].Section("diskbusy")
	require.NotNil(t, busy)
	assert.Equal(t, SectionRecord{"hdisk0": 12.0, "hdisk1": 3.5}, busy)
}

func TestFirstHeaderWins(t *testing.T) {
	result := parseLines(t,
		"VGREAD,Volume Group Read KB/s,rootvg,datavg",
		"VGREAD,Second Header Must Not Apply,othervg,morevg",
		"VGREAD,T0001,10.0,20.0",
	)
	vg := result.Documents[0].Section("vgread")
	require.NotNil(t, vg)
	assert.Equal(t, 10.0, vg["rootvg"])
	assert.NotContains(t, vg, "othervg")
}

func TestDataBeforeHeaderDropped(t *testing.T) {
	result := parseLines(t,
		"SEA,T0001,55.0,66.0",
		"SEA,Shared Ethernet Adapter,ent4-read,ent4-write",
		"SEA,T0001,1.0,2.0",
	)
	assert.Equal(t, 1, result.Diagnostics.HeaderlessRows)
	sea := result.Documents[0].Section("sea")
	require.NotNil(t, sea)
	assert.Equal(t, 1.0, sea["ent4-read"])
}

func TestFileHeaderNeedsFileIOMarker(t *testing.T) {
	result := parseLines(t,
		"FILE,Summary totals since boot,iget,namei,dirblk",
		"FILE,File I/O lpar01,iget,namei,dirblk",
		"FILE,T0001,1,2,3",
	)
	fileIO := result.Documents[0].Section("file_io")
	require.NotNil(t, fileIO)
	assert.Equal(t, 2.0, fileIO["namei"])
}

func TestFibreChannelPairsMergeWithSuffixes(t *testing.T) {
	result := parseLines(t,
		"FCREAD,Fibre Channel Read KB/s,fcs0,fcs1",
		"FCWRITE,Fibre Channel Write KB/s,fcs0,fcs1",
		"FCREAD,T0001,100.0,200.0",
		"FCWRITE,T0001,10.0,20.0",
	)
	fc := result.Documents[0].Section("fc")
	require.NotNil(t, fc)
	assert.Equal(t, SectionRecord{
		"fcs0-read": 100.0, "fcs1-read": 200.0,
		"fcs0-write": 10.0, "fcs1-write": 20.0,
	}, fc)
}

func TestFibreChannelTransferPair(t *testing.T) {
	result := parseLines(t,
		"FCXFERIN,Fibre Channel Transfers In/s,fcs0",
		"FCXFEROUT,Fibre Channel Transfers Out/s,fcs0",
		"FCXFERIN,T0001,500.0",
		"FCXFEROUT,T0001,400.0",
	)
	fcxfer := result.Documents[0].Section("fcxfer")
	require.NotNil(t, fcxfer)
	assert.Equal(t, SectionRecord{"fcs0-in": 500.0, "fcs0-out": 400.0}, fcxfer)
}

func TestBareTaggedRowPerSectionFamily(t *testing.T) {
	// a tagged row with no value columns still yields a zero-filled record
	// for the filesystem and shared-adapter families
	result := parseLines(t,
		"JFSFILE,JFS Filespace %Used,/,/home",
		"JFSFILE,T0001",
	)
	jfs := result.Documents[0].Section("jfsfile")
	require.NotNil(t, jfs)
	assert.Equal(t, SectionRecord{"/": 0.0, "/home": 0.0}, jfs)

	// the disk family drops the row instead, leaving the tag with no data
	result = parseLines(t,
		"DISKREAD,Disk Read KB/s,hdisk0,hdisk1",
		"DISKREAD,T0001",
	)
	assert.Empty(t, result.Documents)
}

func TestRowShorterThanHeaderZeroFills(t *testing.T) {
	result := parseLines(t,
		"NET,Network I/O,en0-read-KB/s,en0-write-KB/s,lo0-read-KB/s",
		"NET,T0001,10.5,2.2",
	)
	net := result.Documents[0].Section("net")
	require.NotNil(t, net)
	assert.Equal(t, 0.0, net["lo0-read-KB/s"])
}

func TestAddDiscoveredRejectsDuplicateKey(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.AddDiscovered("GPU", "gpu"))
	assert.Error(t, reg.AddDiscovered("GPU", "gpu_again"))
	assert.Error(t, reg.AddDiscovered("NET", "net2"))
	assert.Error(t, reg.AddDiscovered("", "x"))
}

func TestOverlaySectionParsed(t *testing.T) {
	dir := t.TempDir()
	overlayPath := filepath.Join(dir, "sections.yaml")
	overlay := "sections:\n  - key: GPU\n    output: gpu\n"
	require.NoError(t, os.WriteFile(overlayPath, []byte(overlay), 0o644))

	reg := DefaultRegistry()
	require.NoError(t, reg.LoadOverlay(overlayPath))

	capture := strings.Join([]string{
		"ZZZZ,T0001,10:00:00,01-FEB-2025",
		"GPU,GPU Utilisation,gpu0,gpu1",
		"GPU,T0001,75.0,12.0",
	}, "\n")
	result, err := Parse(strings.NewReader(capture), "gpu.nmon", reg)
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, SectionRecord{"gpu0": 75.0, "gpu1": 12.0}, result.Documents[0].Section("gpu"))
}

func TestOverlayMissingFile(t *testing.T) {
	reg := DefaultRegistry()
	assert.Error(t, reg.LoadOverlay(filepath.Join(t.TempDir(), "absent.yaml")))
}
