package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/export"
)

// reportData is what the report templates render from: the contract, the
// decision result, and any audited explanation already on disk.
type reportData struct {
	Contract    *contract.Contract
	Decision    decision.Result
	Explanation string
}

const reportMarkdownTemplate = `# District heating vs heat pumps: {{.Contract.ClusterID}}

Recommended choice: **{{.Decision.Choice}}** (robust={{.Decision.Robust}})

## District heating
- LCOH: {{printf "%.2f" .Contract.DistrictHeating.LCOH.Median}} EUR/MWh (p05 {{printf "%.2f" .Contract.DistrictHeating.LCOH.P05}}, p95 {{printf "%.2f" .Contract.DistrictHeating.LCOH.P95}})
- CO2: {{printf "%.1f" .Contract.DistrictHeating.CO2.Median}} t/a
- Feasible: {{.Contract.DistrictHeating.Feasible}}
- Peak velocity: {{printf "%.2f" .Contract.DistrictHeating.Hydraulics.VMaxMS}} m/s

## Heat pumps
- LCOH: {{printf "%.2f" .Contract.HeatPumps.LCOH.Median}} EUR/MWh (p05 {{printf "%.2f" .Contract.HeatPumps.LCOH.P05}}, p95 {{printf "%.2f" .Contract.HeatPumps.LCOH.P95}})
- CO2: {{printf "%.1f" .Contract.HeatPumps.CO2.Median}} t/a
- Feasible: {{.Contract.HeatPumps.Feasible}}
- Max feeder loading: {{printf "%.1f" .Contract.HeatPumps.LVGrid.MaxFeederLoadingPct}}%

## Reason codes
{{range .Decision.ReasonCodes}}- {{.}}
{{end}}
{{if .Explanation}}
## Explanation
{{.Explanation}}
{{end}}
`

const reportHTMLTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Contract.ClusterID}} decision report</title></head>
<body>
<h1>District heating vs heat pumps: {{.Contract.ClusterID}}</h1>
<p>Recommended choice: <strong>{{.Decision.Choice}}</strong> (robust={{.Decision.Robust}})</p>
<h2>District heating</h2>
<ul>
<li>LCOH: {{printf "%.2f" .Contract.DistrictHeating.LCOH.Median}} EUR/MWh</li>
<li>CO2: {{printf "%.1f" .Contract.DistrictHeating.CO2.Median}} t/a</li>
<li>Feasible: {{.Contract.DistrictHeating.Feasible}}</li>
</ul>
<h2>Heat pumps</h2>
<ul>
<li>LCOH: {{printf "%.2f" .Contract.HeatPumps.LCOH.Median}} EUR/MWh</li>
<li>CO2: {{printf "%.1f" .Contract.HeatPumps.CO2.Median}} t/a</li>
<li>Feasible: {{.Contract.HeatPumps.Feasible}}</li>
</ul>
<h2>Reason codes</h2>
<ul>
{{range .Decision.ReasonCodes}}<li>{{.}}</li>
{{end}}
</ul>
{{if .Explanation}}<h2>Explanation</h2><pre>{{.Explanation}}</pre>{{end}}
</body></html>
`

func newReportCmd() *cobra.Command {
	var clusterID, format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the assembled contract and decision into a human-facing report",
		RunE: func(cmd *cobra.Command, args []string) error {
			var c contract.Contract
			contractPath := clusterPath(flagBaseDir, "decision", clusterID, "kpi_contract_"+clusterID+".json")
			if err := loadJSON(contractPath, &c); err != nil {
				return fmt.Errorf("%w: %v", errs.ErrMissingInputArtifact, err)
			}

			var out decisionOutput
			decisionPath := clusterPath(flagBaseDir, "decision", clusterID, "decision_"+clusterID+".json")
			if err := loadJSON(decisionPath, &out); err != nil {
				return fmt.Errorf("%w: %v", errs.ErrMissingInputArtifact, err)
			}

			explanation := readExplanationIfPresent(clusterID)
			data := reportData{Contract: &c, Decision: out.Decision, Explanation: explanation}

			formats := strings.Split(format, ",")
			if format == "all" {
				formats = []string{"md", "html", "json", "geojson", "csv"}
			}

			for _, f := range formats {
				if err := renderReport(clusterID, strings.TrimSpace(f), data, out); err != nil {
					return err
				}
			}

			fmt.Printf("report: cluster=%s formats=%s\n", clusterID, format)
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "cluster identifier")
	cmd.Flags().StringVar(&format, "format", "md", "output format(s), comma-separated: md, html, json, geojson, csv, gpkg, or all")
	cmd.MarkFlagRequired("cluster-id")
	return cmd
}

func renderReport(clusterID, format string, data reportData, out decisionOutput) error {
	switch format {
	case "md":
		text, err := executeTemplate("report_md", reportMarkdownTemplate, data)
		if err != nil {
			return err
		}
		return ensureDirAndWrite(clusterPath(flagBaseDir, "decision", clusterID, "report_"+clusterID+".md"), text)
	case "html":
		text, err := executeTemplate("report_html", reportHTMLTemplate, data)
		if err != nil {
			return err
		}
		return ensureDirAndWrite(clusterPath(flagBaseDir, "decision", clusterID, "report_"+clusterID+".html"), text)
	case "json":
		return writeJSON(clusterPath(flagBaseDir, "decision", clusterID, "report_"+clusterID+".json"), out)
	case "geojson":
		return writeExportFile(export.GeoJSONExporter{}, clusterID, data.Contract, "geojson")
	case "csv":
		return writeExportFile(export.CSVExporter{}, clusterID, data.Contract, "csv")
	case "gpkg":
		return writeExportFile(export.GeoPackageExporter{}, clusterID, data.Contract, "gpkg")
	default:
		return fmt.Errorf("%w: unknown report format %q", errs.ErrConfigValidation, format)
	}
}

// writeExportFile renders clusterID's DHA grid geometry (LV buses as
// points, lines between them) through exp, falling back to an empty
// feature set when no grid artifact exists yet for this cluster.
func writeExportFile(exp export.Exporter, clusterID string, c *contract.Contract, ext string) error {
	features := gridFeatures(clusterID)
	path := clusterPath(flagBaseDir, "decision", clusterID, "export_"+clusterID+"."+ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return exp.Export(f, c, features)
}

// gridFeatures loads the DHA grid artifact for clusterID, if present, and
// converts its buses and lines into export.Feature points/lines.
func gridFeatures(clusterID string) []export.Feature {
	var out dhaOutput
	gridPath := clusterPath(flagBaseDir, "dha", clusterID, "grid.json")
	if err := loadJSON(gridPath, &out); err != nil || out.Grid == nil {
		return nil
	}

	busXY := make(map[string][2]float64, len(out.Grid.Buses))
	features := make([]export.Feature, 0, len(out.Grid.Buses)+len(out.Grid.Lines))
	for _, b := range out.Grid.Buses {
		busXY[b.ID] = [2]float64{b.X, b.Y}
		features = append(features, export.Feature{
			ID: b.ID, Kind: "bus", X: b.X, Y: b.Y,
			Properties: map[string]string{"bus_kind": string(b.Kind)},
		})
	}
	for _, l := range out.Grid.Lines {
		from, to := busXY[l.FromBus], busXY[l.ToBus]
		features = append(features, export.Feature{
			ID: l.ID, Kind: "line", X: from[0], Y: from[1], X2: to[0], Y2: to[1],
		})
	}
	return features
}

func executeTemplate(name, tmplText string, data reportData) (string, error) {
	tmpl, err := template.New(name).Parse(tmplText)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ensureDirAndWrite(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// readExplanationIfPresent looks for any previously-generated explanation
// file for clusterID, trying each style in turn, and returns its content
// or an empty string if none exists.
func readExplanationIfPresent(clusterID string) string {
	for _, style := range []string{"executive", "technical", "detailed"} {
		path := clusterPath(flagBaseDir, "decision", clusterID, fmt.Sprintf("explanation_%s_%s.md", clusterID, style))
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return ""
}
