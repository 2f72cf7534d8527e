package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/catalog"
	"github.com/muniheat/dhcore/internal/dha"
)

type rawLineInput struct {
	ID        string  `json:"id"`
	FromX     float64 `json:"from_x"`
	FromY     float64 `json:"from_y"`
	ToX       float64 `json:"to_x"`
	ToY       float64 `json:"to_y"`
	CableName string  `json:"cable_name"`
}

type rawTransformerInput struct {
	ID       string  `json:"id"`
	HVBusID  string  `json:"hv_bus_id"`
	LVBusX   float64 `json:"lv_bus_x"`
	LVBusY   float64 `json:"lv_bus_y"`
	RatedMVA float64 `json:"rated_mva"`
}

type dhaBuildingInput struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// dhaInput is the complete DHA stage input (§6: LV-grid description as
// either a line/substation table or a legacy node/way JSON equivalent,
// a scenario base-load table, and per-cluster metadata).
type dhaInput struct {
	MVSlackID          string                `json:"mv_slack_id"`
	Lines              []rawLineInput        `json:"lines,omitempty"`
	LegacyJSONPath     string                `json:"legacy_json_path,omitempty"`
	Transformers       []rawTransformerInput `json:"transformers"`
	Buildings          []dhaBuildingInput    `json:"buildings"`
	UnmappedThresholdM float64               `json:"unmapped_threshold_m"`
	TopNHours          []int                 `json:"top_n_hours"`
	ScenarioKWByBuilding map[string][]float64 `json:"scenario_kw_by_building"`
	HeatKWByBuilding     map[string][]float64 `json:"heat_kw_by_building"`
	COP                 float64               `json:"cop"`
	PowerFactor         float64               `json:"power_factor"`
	VMinLimitPU         float64               `json:"v_min_limit_pu"`
	VMaxLimitPU         float64               `json:"v_max_limit_pu"`
	OperationalHourFraction float64           `json:"operational_hour_fraction"`
	LongFeederKm        float64               `json:"long_feeder_km"`
}

// mapHeatProvider adapts a plain building->hourly-kW map to
// dha.HeatDemandProvider.
type mapHeatProvider struct {
	byBuilding map[string][]float64
}

func (m mapHeatProvider) HeatKW(buildingID string, hour int) float64 {
	series, ok := m.byBuilding[buildingID]
	if !ok || hour < 0 || hour >= len(series) {
		return 0
	}
	return series[hour]
}

// dhaOutput is the serialized grid and multi-hour snapshots written
// alongside dha_kpis.json for downstream economics wiring (§6).
type dhaOutput struct {
	Grid      *dha.Grid            `json:"grid"`
	Snapshots map[int]dha.Snapshot `json:"snapshots"`
	Mapping   []dha.BusMapping     `json:"mapping"`
	KPIs      dha.KPIBlock         `json:"kpis"`
}

func newRunDHACmd() *cobra.Command {
	var clusterID, inputPath string

	cmd := &cobra.Command{
		Use:   "run-dha",
		Short: "Run the low-voltage electrical-grid pipeline for one cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped, done := logDHAStage(clusterID)
			defer done()

			if inputPath == "" {
				inputPath = clusterPath(flagBaseDir, "raw", clusterID, "dha_input.json")
			}
			var in dhaInput
			if err := loadJSON(inputPath, &in); err != nil {
				return err
			}

			kpi, out, err := runDHA(in)
			if err != nil {
				scoped.Error().Err(err).Msg("run-dha failed")
				return err
			}

			if err := writeJSON(clusterPath(flagBaseDir, "dha", clusterID, "dha_kpis.json"), kpi); err != nil {
				return err
			}
			if err := writeJSON(clusterPath(flagBaseDir, "dha", clusterID, "grid.json"), out); err != nil {
				return err
			}

			fmt.Printf("run-dha: cluster=%s feasible=%t max_feeder_loading_pct=%.2f mitigation=%s\n",
				clusterID, kpi.Feasible, kpi.MaxFeederLoadingPct, kpi.MitigationClass)
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "cluster identifier")
	cmd.Flags().StringVar(&inputPath, "input", "", "path to a DHA input JSON file (defaults to the staged raw input)")
	cmd.MarkFlagRequired("cluster-id")
	return cmd
}

// runDHA executes §4.7-§4.11 in order: grid construction, bus mapping,
// load composition per top-N hour, the multi-hour power-flow driver, and
// KPI extraction.
func runDHA(in dhaInput) (dha.KPIBlock, *dhaOutput, error) {
	cableCat := catalog.DefaultCableCatalog()

	lines := in.Lines
	if in.LegacyJSONPath != "" {
		data, err := os.ReadFile(in.LegacyJSONPath)
		if err != nil {
			return dha.KPIBlock{}, nil, fmt.Errorf("reading legacy grid JSON %s: %w", in.LegacyJSONPath, err)
		}
		parsed, err := dha.ParseLegacyJSON(data, log)
		if err != nil {
			return dha.KPIBlock{}, nil, err
		}
		lines = make([]rawLineInput, len(parsed))
		for i, l := range parsed {
			lines[i] = rawLineInput{ID: l.ID, FromX: l.FromX, FromY: l.FromY, ToX: l.ToX, ToY: l.ToY, CableName: l.CableName}
		}
	}

	rawLines := make([]dha.RawLine, len(lines))
	for i, l := range lines {
		rawLines[i] = dha.RawLine{ID: l.ID, FromX: l.FromX, FromY: l.FromY, ToX: l.ToX, ToY: l.ToY, CableName: l.CableName}
	}
	rawTransformers := make([]dha.RawTransformer, len(in.Transformers))
	for i, t := range in.Transformers {
		rawTransformers[i] = dha.RawTransformer{ID: t.ID, HVBusID: t.HVBusID, LVBusX: t.LVBusX, LVBusY: t.LVBusY, RatedMVA: t.RatedMVA}
	}

	grid, err := dha.Build(in.MVSlackID, rawLines, rawTransformers, cableCat)
	if err != nil {
		return dha.KPIBlock{}, nil, err
	}

	buildingPoints := make([]dha.BuildingPoint, len(in.Buildings))
	for i, b := range in.Buildings {
		buildingPoints[i] = dha.BuildingPoint{ID: b.ID, X: b.X, Y: b.Y}
	}
	mapping := dha.MapBuildings(grid, buildingPoints, in.UnmappedThresholdM)

	var mappedIDs []string
	for _, m := range mapping {
		if !m.Unmapped {
			mappedIDs = append(mappedIDs, m.BuildingID)
		}
	}

	normalizedScenario := make(map[string][]float64, len(in.ScenarioKWByBuilding))
	for id, series := range in.ScenarioKWByBuilding {
		normalizedScenario[id] = dha.DetectAndNormalizeMagnitude(series)
	}
	base := dha.NewScenarioTable(normalizedScenario)
	heat := mapHeatProvider{byBuilding: in.HeatKWByBuilding}

	loadByHour := make(map[int]map[string]dha.BuildingLoad, len(in.TopNHours))
	for _, hour := range in.TopNHours {
		loads := dha.ComposeHour(mappedIDs, hour, base, heat, in.COP, in.PowerFactor)
		loadByHour[hour] = dha.AggregatePerBus(loads, mapping)
	}

	driver := &dha.Driver{Grid: grid, Solver: dha.NewRadialSweepSolver()}
	snapshots := driver.RunHours(in.TopNHours, loadByHour)

	kpi := dha.ExtractKPIs(grid, snapshots, in.VMinLimitPU, in.VMaxLimitPU, in.OperationalHourFraction, in.LongFeederKm)

	return kpi, &dhaOutput{Grid: grid, Snapshots: snapshots, Mapping: mapping, KPIs: kpi}, nil
}
