package nmon

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCapture = `AAA,progname,nmon
AAA,command,/usr/bin/nmon -f -s 60
AAA,NodeName,lpar01
AAA,date,07-JAN-2025

ZZZZ,T0001,00:01:54,07-JAN-2025
CPU_ALL,T0001,12.5,3.1,0.4,84.0,,64
CPU01,T0001,0.04,0.03,0.10,99.83
CPU01,T0001,0.08,0.18,0.20,99.54
CPU02,T0001,0.02,0.01,0.00,99.97
LPAR,T0001,1.25,4,0,0,1.0,2.0
PROC,T0001,3,0.5,200,1500,50,60,7,8,9,10
MEM,T0001,30.0,10.0,4096.0,2048.0,16384.0,8192.0
MEMNEW,T0001,35.2,20.1,10.0,30.0,12.3,40.0
MEMUSE,T0001,25.0,3.0,90.0
PAGE,T0001,120.0,10.0,5,2.0,-3
NET,Network I/O,en2-read-KB/s,lo0-read-KB/s,en2-write-KB/s,lo0-write-KB/s
NET,T0001,10.5,0.1,20.2,0.2
NETPACKET,Network Packets,en2-reads/s,en2-writes/s
NETPACKET,T0001,100,200
DISKREAD,Disk Read KB/s,hdisk0,hdisk1
DISKREAD,T0001,5.5,6.6
DISKWRITE,Disk Write KB/s,hdisk0,hdisk1
DISKWRITE,T0001,1.1,2.2
JFSFILE,JFS Filespace %Used,/,/home
JFSFILE,T0001,55.1,20.9
FILE,File I/O node,iget,namei,dirblk
FILE,T0001,1,2,3
TOP,%CPU Utilisation
TOP,+PID,Time,%CPU,%Usr,%Sys,Threads,Size,ResText,ResData,CharIO,%RAM,Paging,Command
TOP,1234567,T0001,2.5,1.0,1.5,1,100,512,1536,300.5,1.2,0,httpd
TOP,2345678,T0001,0.4,0.2,0.2,1,50,128,256,10.0,0.3,0,sshd
ZZZZ,T0002,00:02:54,07-JAN-2025
CPU_ALL,T0002,50.0,25.0,5.0,20.0,,64
MEM,T0002,25.0,5.0,3500.0,1500.0,16384.0,8192.0
ZZZZ,T0003,00:03:54,garbage-date
CPU_ALL,T0003,1.0,1.0,1.0,97.0,,64
`

func parseSample(t *testing.T) *Result {
	t.Helper()
	result, err := Parse(strings.NewReader(sampleCapture), "lpar01_250107.nmon", nil)
	require.NoError(t, err)
	return result
}

func TestParseCapture(t *testing.T) {
	result := parseSample(t)
	assert.Equal(t, "lpar01", result.NodeName)
	require.Len(t, result.Documents, 3)

	doc := result.Documents[0]
	assert.Equal(t, "07-JAN-2025 00:01:54", doc.Timestamp())
	cpu := doc.Section("cpu_all")
	require.NotNil(t, cpu)
	assert.Equal(t, 12.5, cpu["User%"])
	assert.Equal(t, 3.1, cpu["Sys%"])
	assert.Equal(t, 0.4, cpu["Wait%"])
	assert.Equal(t, 84.0, cpu["Idle%"])

	lpar := doc.Section("lpar")
	require.NotNil(t, lpar)
	assert.Equal(t, 1.25, lpar["PhysicalCPU"])
	assert.Equal(t, 4.0, lpar["VirtualCPUs"])
	assert.Equal(t, 1.0, lpar["Entitled"])

	net := doc.Section("net")
	require.NotNil(t, net)
	assert.Equal(t, 10.5, net["en2-read-KB/s"])
	assert.Equal(t, 0.2, net["lo0-write-KB/s"])

	fileIO := doc.Section("file_io")
	require.NotNil(t, fileIO)
	assert.Equal(t, 2.0, fileIO["namei"])

	jfs := doc.Section("jfsfile")
	require.NotNil(t, jfs)
	assert.Equal(t, 55.1, jfs["/"])
}

func TestMemoryDerivedFields(t *testing.T) {
	result := parseSample(t)
	mem := result.Documents[0].Section("mem")
	require.NotNil(t, mem)
	assert.Equal(t, 70.0, mem["Real_Used%"])
	assert.Equal(t, 90.0, mem["Virtual_Used%"])

	memMB := result.Documents[0].Section("mem_mb")
	require.NotNil(t, memMB)
	assert.Equal(t, 4096.0, memMB["Real_Free_MB"])
	assert.Equal(t, 16384.0, memMB["Real_Total_MB"])
	assert.Equal(t, 12288.0, memMB["Real_Used_MB"])
	assert.Equal(t, 6144.0, memMB["Virtual_Used_MB"])
}

func TestPagingSignConvention(t *testing.T) {
	result := parseSample(t)
	page := result.Documents[0].Section("page")
	require.NotNil(t, page)
	assert.Equal(t, 10.0, page["pgin"])
	assert.Equal(t, -5.0, page["pgout"])
	assert.Equal(t, 2.0, page["pgsin"])
	assert.Equal(t, -3.0, page["pgsout"])
}

func TestCoreUtilizationAverages(t *testing.T) {
	result := parseSample(t)
	cores, ok := result.Documents[0]["cpu_use"].(map[string]SectionRecord)
	require.True(t, ok, "document missing cpu_use")
	require.Contains(t, cores, "01")
	assert.InDelta(t, 0.06, cores["01"]["user"], 1e-9)
	assert.InDelta(t, 0.105, cores["01"]["sys"], 1e-9)
	// core 02 never exceeded the noise floor
	assert.NotContains(t, cores, "02")
}

func TestInvalidDateUsesFallback(t *testing.T) {
	result := parseSample(t)
	// T0003's date is mangled; the AAA,date value substitutes
	assert.Equal(t, "07-JAN-2025 00:03:54", result.Documents[2].Timestamp())
}

func TestProcessSamples(t *testing.T) {
	result := parseSample(t)
	require.Len(t, result.ProcessSamples, 2)
	first := result.ProcessSamples[0]
	assert.Equal(t, "07-JAN-2025 00:01:54", first.Timestamp)
	assert.Equal(t, "1234567", first.PID)
	assert.Equal(t, "httpd", first.Command)
	assert.Equal(t, 2.5, first.CPUPct)
	assert.Equal(t, 300.5, first.CharIO)
	assert.Equal(t, 2048.0, first.Memory) // ResText + ResData
}

func TestEveryDocumentHasData(t *testing.T) {
	result := parseSample(t)
	for _, doc := range result.Documents {
		assert.NotEmpty(t, doc.Timestamp())
		assert.Greater(t, len(doc), 1, "document carries only a timestamp")
	}
}

func TestParseIsIdempotent(t *testing.T) {
	first := parseSample(t)
	second := parseSample(t)
	assert.Equal(t, first, second)
}
