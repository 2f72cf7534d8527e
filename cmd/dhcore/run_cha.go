package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/catalog"
	"github.com/muniheat/dhcore/internal/cha"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/streetgraph"
)

// pointInput is one projected-CRS coordinate.
type pointInput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// streetInput is one input street polyline.
type streetInput struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Points []pointInput `json:"points"`
}

// chaBuildingInput is one building's centroid and design heat load.
type chaBuildingInput struct {
	ID           string  `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	DesignLoadKW float64 `json:"design_load_kw"`
}

// chaInput is the complete CHA stage input (§6: building table, street
// table, both projected CRS, plus per-cluster metadata).
type chaInput struct {
	PlantNodeX        float64            `json:"plant_node_x"`
	PlantNodeY        float64            `json:"plant_node_y"`
	Streets           []streetInput      `json:"streets"`
	Buildings         []chaBuildingInput `json:"buildings"`
	SupplyTempC       float64            `json:"supply_temp_c"`
	ReturnTempC       float64            `json:"return_temp_c"`
	CpJPerKgK         float64            `json:"cp_j_per_kg_k"`
	SnapToleranceM    float64            `json:"snap_tolerance_m"`
	AttachThresholdM  float64            `json:"attach_threshold_m"`
	DesignLoadTotalKW float64            `json:"design_load_total_kw"`
	Seed              int64              `json:"seed"`
}

// chaOutput is the serialized network and solver outcome written
// alongside cha_kpis.json for downstream economics wiring (§6).
type chaOutput struct {
	Network  *cha.Network        `json:"network"`
	Result   *cha.StabilizeResult `json:"stabilize_result"`
	KPIs     cha.KPIBlock        `json:"kpis"`
}

func newRunCHACmd() *cobra.Command {
	var clusterID, inputPath string

	cmd := &cobra.Command{
		Use:   "run-cha",
		Short: "Run the district-heating hydraulic-thermal pipeline for one cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped, done := logCHAStage(clusterID)
			defer done()

			in, err := resolveCHAInput(clusterID, inputPath)
			if err != nil {
				return err
			}

			kpi, out, err := runCHA(in)
			if err != nil {
				scoped.Error().Err(err).Msg("run-cha failed")
				return err
			}

			if err := writeJSON(clusterPath(flagBaseDir, "cha", clusterID, "cha_kpis.json"), kpi); err != nil {
				return err
			}
			if err := writeJSON(clusterPath(flagBaseDir, "cha", clusterID, "network.json"), out); err != nil {
				return err
			}

			fmt.Printf("run-cha: cluster=%s feasible=%t v_max_ms=%.3f loss_share_pct=%.2f\n",
				clusterID, kpi.Feasible, kpi.VMaxMS, kpi.LossSharePct)
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "cluster identifier")
	cmd.Flags().StringVar(&inputPath, "input", "", "path to a CHA input JSON file (defaults to the staged raw input)")
	cmd.MarkFlagRequired("cluster-id")
	return cmd
}

func resolveCHAInput(clusterID, inputPath string) (chaInput, error) {
	if inputPath == "" {
		inputPath = clusterPath(flagBaseDir, "raw", clusterID, "cha_input.json")
	}
	var in chaInput
	if err := loadJSON(inputPath, &in); err != nil {
		return chaInput{}, err
	}
	return in, nil
}

// runCHA executes §4.1–§4.6 in order: street graph, attachment, trunk
// routing, network assembly, stabilization, and KPI extraction.
func runCHA(in chaInput) (cha.KPIBlock, *chaOutput, error) {
	streets := make([]streetgraph.Street, len(in.Streets))
	for i, s := range in.Streets {
		pts := make([]streetgraph.Point, len(s.Points))
		for j, p := range s.Points {
			pts[j] = streetgraph.Point{X: p.X, Y: p.Y}
		}
		streets[i] = streetgraph.Street{ID: s.ID, Name: s.Name, Points: pts}
	}

	graph, err := streetgraph.Build(streets, true, in.SnapToleranceM)
	if err != nil {
		return cha.KPIBlock{}, nil, err
	}

	buildings := make([]streetgraph.Building, len(in.Buildings))
	designLoadByID := make(map[string]float64, len(in.Buildings))
	for i, b := range in.Buildings {
		buildings[i] = streetgraph.Building{ID: b.ID, Centroid: streetgraph.Point{X: b.X, Y: b.Y}}
		designLoadByID[b.ID] = b.DesignLoadKW
	}

	attachments, err := graph.Attach(buildings, streetgraph.SplitEdgePerBuilding, in.AttachThresholdM)
	if err != nil {
		return cha.KPIBlock{}, nil, fmt.Errorf("%w: %v", errs.ErrBuildingTooFar, err)
	}

	// Same id scheme as the street graph's snapped nodes.
	tol := in.SnapToleranceM
	if tol <= 0 {
		tol = 1.0
	}
	plantNodeID := fmt.Sprintf("n_%.3f_%.3f", math.Round(in.PlantNodeX/tol)*tol, math.Round(in.PlantNodeY/tol)*tol)
	attachmentNodeIDs := make([]string, len(attachments))
	for i, a := range attachments {
		attachmentNodeIDs[i] = a.NodeID
	}

	trunk, err := graph.RouteTrunk(plantNodeID, attachmentNodeIDs)
	if err != nil {
		return cha.KPIBlock{}, nil, err
	}

	pipeCat := catalog.DefaultPipeCatalog()
	net, err := cha.BuildNetwork(trunk, attachments, designLoadByID, in.SupplyTempC, in.ReturnTempC, in.CpJPerKgK, pipeCat)
	if err != nil {
		return cha.KPIBlock{}, nil, err
	}

	stabResult, err := cha.Stabilize(net, attachmentNodeIDs, trunk.DistanceM, cha.NewReferenceSolver(), in.Seed)
	if err != nil {
		return cha.KPIBlock{}, nil, err
	}

	designTotal := in.DesignLoadTotalKW
	if designTotal == 0 {
		for _, l := range designLoadByID {
			designTotal += l
		}
	}
	kpi := cha.ExtractKPIs(net, stabResult.Result, designTotal)

	return kpi, &chaOutput{Network: net, Result: stabResult, KPIs: kpi}, nil
}
