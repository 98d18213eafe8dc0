package report

// Copyright (C) 2025 nmon2plotly contributors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"

	"github.com/nazihous/nmon2plotly/internal/nmon"
)

// CreateDashboard renders a single self-contained HTML page with a node
// selector and a representative chart set over the merged documents. The
// NDJSON collections remain the canonical output; the page embeds its own
// copy of the data so it can be opened from disk without a server.
func CreateDashboard(documents map[string][]nmon.Document, samples map[string][]nmon.ProcessSample) ([]byte, error) {
	embeddedDocs, err := json.Marshal(documents)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	embeddedSamples, err := json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to embed process samples: %w", err)
	}
	tmpl, err := htmltemplate.New("dashboard").Parse(dashboardTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dashboard template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Documents htmltemplate.JS
		Samples   htmltemplate.JS
	}{
		Documents: htmltemplate.JS(embeddedDocs), // #nosec G203 -- marshaled above
		Samples:   htmltemplate.JS(embeddedSamples),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>nmon2plotly</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <script src="https://cdn.plot.ly/plotly-latest.min.js"></script>
  <style>
    body { margin: 0; padding: 0; font-family: Arial, sans-serif; }
    .menu { margin: 8px; }
    .chart-container { float: left; width: 50%; height: 400px; border: 1px solid #ccc; box-sizing: border-box; }
    .chart-container > div { width: 100%; height: 100%; }
  </style>
</head>
<body>
  <div class="menu">
    <label for="node_select">Node:</label>
    <select id="node_select"></select>
  </div>
  <div id="chartsContainer">
    <div class="chart-container"><div id="cpu_chart"></div></div>
    <div class="chart-container"><div id="mem_chart"></div></div>
    <div class="chart-container"><div id="paging_chart"></div></div>
    <div class="chart-container"><div id="net_chart"></div></div>
    <div class="chart-container"><div id="disk_chart"></div></div>
    <div class="chart-container"><div id="top_chart"></div></div>
  </div>
  <script>
    const nodeDocs = {{.Documents}};
    const nodeTop = {{.Samples}};

    const nodeSelect = document.getElementById("node_select");
    for (const name of Object.keys(nodeDocs).sort()) {
      const opt = document.createElement("option");
      opt.value = name;
      opt.text = name;
      nodeSelect.appendChild(opt);
    }

    function sortedDocs() {
      const docs = (nodeDocs[nodeSelect.value] || []).slice();
      docs.sort((a, b) => new Date(a["@timestamp"]) - new Date(b["@timestamp"]));
      return docs;
    }

    function sectionTraces(docs, times, section, mode) {
      const byField = {};
      docs.forEach((d, i) => {
        const rec = d[section];
        if (!rec) return;
        for (const field in rec) {
          if (!byField[field]) byField[field] = { x: [], y: [] };
          byField[field].x.push(times[i]);
          byField[field].y.push(rec[field]);
        }
      });
      return Object.keys(byField).sort().map(field => ({
        x: byField[field].x, y: byField[field].y, mode: 'lines', name: field,
        stackgroup: mode === 'stacked' ? 'one' : undefined
      }));
    }

    function renderCharts() {
      const docs = sortedDocs();
      const times = docs.map(d => d["@timestamp"]);
      Plotly.newPlot('cpu_chart', sectionTraces(docs, times, 'cpu_all', 'stacked'),
        { title: 'CPU Usage (' + nodeSelect.value + ')', yaxis: { title: '%' } });
      Plotly.newPlot('mem_chart', sectionTraces(docs, times, 'mem'),
        { title: 'Memory Used %', yaxis: { title: '%', range: [0, 100] } });
      Plotly.newPlot('paging_chart', sectionTraces(docs, times, 'page', 'stacked'),
        { title: 'Paging per second', yaxis: { title: 'pages/s' } });
      Plotly.newPlot('net_chart', sectionTraces(docs, times, 'net'),
        { title: 'Network I/O', yaxis: { title: 'KB/s' } });
      Plotly.newPlot('disk_chart', sectionTraces(docs, times, 'diskread').concat(
        sectionTraces(docs, times, 'diskwrite').map(t => ({ ...t, name: t.name + ' (write)' }))),
        { title: 'Disk Read/Write', yaxis: { title: 'KB/s' } });

      const top = (nodeTop[nodeSelect.value] || []);
      const byCommand = {};
      top.forEach(s => {
        if (!byCommand[s.Command]) byCommand[s.Command] = { x: [], y: [] };
        byCommand[s.Command].x.push(s["@timestamp"]);
        byCommand[s.Command].y.push(s["%CPU"]);
      });
      const topTraces = Object.keys(byCommand).sort().map(cmd => ({
        x: byCommand[cmd].x, y: byCommand[cmd].y, mode: 'markers', name: cmd
      }));
      Plotly.newPlot('top_chart', topTraces,
        { title: 'Top Processes by %CPU', yaxis: { title: '%CPU' } });
    }

    nodeSelect.addEventListener("change", renderCharts);
    renderCharts();
  </script>
</body>
</html>
`
