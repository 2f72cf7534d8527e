package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/economics"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/metrics"
	"github.com/muniheat/dhcore/internal/pipeline"
)

// batchClusterSpec is one cluster's worth of input paths and economics
// assumptions, as listed in a batch manifest.
type batchClusterSpec struct {
	ClusterID         string  `json:"cluster_id"`
	CHAInputPath      string  `json:"cha_input"`
	DHAInputPath      string  `json:"dha_input"`
	AssumptionsPath   string  `json:"assumptions"`
	HPTotalKWDesign   float64 `json:"hp_total_kw_design"`
}

// batchManifest is the --manifest input to the batch command: a worker
// count, Monte Carlo sample parameters shared across every cluster, and
// the per-cluster spec list.
type batchManifest struct {
	Workers  int                 `json:"workers"`
	N        int                 `json:"n"`
	Seed     int64               `json:"seed"`
	Clusters []batchClusterSpec  `json:"clusters"`
}

// batchClusterOutcome is one cluster's full-pipeline result, carried in
// pipeline.ClusterResult.Output.
type batchClusterOutcome struct {
	CHAKPIs    interface{} `json:"cha_kpis"`
	DHAKPIs    interface{} `json:"dha_kpis"`
	Det        interface{} `json:"economics_deterministic"`
	Summary    interface{} `json:"monte_carlo_summary"`
	ChoiceName string      `json:"choice"`
	Robust     bool        `json:"robust"`
}

func newBatchCmd() *cobra.Command {
	var manifestPath, clustersDir string
	var workers, n int
	var seed int64

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the full CHA/DHA/Economics/decision pipeline across many clusters in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			var manifest batchManifest
			switch {
			case manifestPath != "":
				if err := loadJSON(manifestPath, &manifest); err != nil {
					return err
				}
			case clustersDir != "":
				discovered, err := discoverClusters(clustersDir)
				if err != nil {
					return err
				}
				manifest = batchManifest{Workers: workers, N: n, Seed: seed, Clusters: discovered}
			default:
				return fmt.Errorf("%w: batch requires either --manifest or --clusters-dir", errs.ErrMissingInputArtifact)
			}
			if manifest.Workers == 0 {
				manifest.Workers = workers
			}
			if manifest.N == 0 {
				manifest.N = n
			}
			if manifest.Seed == 0 {
				manifest.Seed = seed
			}
			if len(manifest.Clusters) == 0 {
				return fmt.Errorf("%w: batch manifest lists no clusters", errs.ErrMissingInputArtifact)
			}

			reg := metrics.NewRegistry()
			runner := pipeline.NewBatchRunner(manifest.Workers)

			tasks := make([]pipeline.ClusterTask, len(manifest.Clusters))
			for i, spec := range manifest.Clusters {
				spec := spec
				tasks[i] = pipeline.ClusterTask{
					ClusterID: spec.ClusterID,
					Run: func(ctx context.Context) (interface{}, error) {
						return runClusterPipeline(reg, spec, manifest.N, manifest.Seed)
					},
				}
			}

			reg.ClustersActive.Add(float64(len(tasks)))
			results := runner.Run(context.Background(), tasks)
			reg.ClustersActive.Sub(float64(len(tasks)))

			var failures int
			for _, r := range results {
				reg.ClustersTotal.Inc()
				if r.Err != nil {
					failures++
					fmt.Printf("batch: cluster=%s FAILED: %v\n", r.ClusterID, r.Err)
					continue
				}
				out := r.Output.(batchClusterOutcome)
				fmt.Printf("batch: cluster=%s choice=%s robust=%t duration=%s\n", r.ClusterID, out.ChoiceName, out.Robust, r.Duration)
			}

			if failures > 0 {
				return fmt.Errorf("%w: %d of %d clusters failed", errs.ErrMissingInputArtifact, failures, len(tasks))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to a batch manifest JSON file naming every cluster's inputs")
	cmd.Flags().StringVar(&clustersDir, "clusters-dir", "", "directory of per-cluster subdirectories, each holding cha_input.json, dha_input.json, and assumptions.json")
	cmd.Flags().IntVar(&workers, "workers", 4, "worker-pool size (ignored when --manifest sets its own)")
	cmd.Flags().IntVar(&n, "n", 500, "Monte Carlo sample count per cluster (ignored when --manifest sets its own)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Monte Carlo base seed (ignored when --manifest sets its own)")
	return cmd
}

// discoverClusters scans clustersDir for subdirectories each holding
// cha_input.json, dha_input.json, and assumptions.json, building one
// batchClusterSpec per subdirectory found (§5's CLI-level batch verb).
func discoverClusters(clustersDir string) ([]batchClusterSpec, error) {
	entries, err := os.ReadDir(clustersDir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", errs.ErrMissingInputArtifact, clustersDir, err)
	}
	var specs []batchClusterSpec
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(clustersDir, e.Name())
		spec := batchClusterSpec{
			ClusterID:       e.Name(),
			CHAInputPath:    filepath.Join(dir, "cha_input.json"),
			DHAInputPath:    filepath.Join(dir, "dha_input.json"),
			AssumptionsPath: filepath.Join(dir, "assumptions.json"),
		}
		if _, err := os.Stat(spec.CHAInputPath); err != nil {
			continue
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// runClusterPipeline runs §4.1-§4.14 for one cluster end to end: CHA,
// DHA, economics, contract assembly, and the decision cascade. Each
// stage's artifacts are persisted exactly as the single-cluster commands
// would write them, so a batch run and an equivalent sequence of
// single-cluster invocations produce identical results directories.
func runClusterPipeline(reg *metrics.Registry, spec batchClusterSpec, n int, seed int64) (interface{}, error) {
	clusterID := spec.ClusterID

	chaIn, err := resolveCHAInput(clusterID, spec.CHAInputPath)
	if err != nil {
		return nil, err
	}
	chaTimer := reg.StartStage(metrics.StageCHA)
	chaKPIs, chaOut, err := runCHA(chaIn)
	if err != nil {
		chaTimer.Stop(metrics.ResultError, "cha_failure")
		return nil, err
	}
	chaTimer.Stop(metrics.ResultSuccess, "")
	if err := writeJSON(clusterPath(flagBaseDir, "cha", clusterID, "cha_kpis.json"), chaKPIs); err != nil {
		return nil, err
	}
	if err := writeJSON(clusterPath(flagBaseDir, "cha", clusterID, "network.json"), chaOut); err != nil {
		return nil, err
	}

	var dhaIn dhaInput
	if err := loadJSON(spec.DHAInputPath, &dhaIn); err != nil {
		return nil, err
	}
	dhaTimer := reg.StartStage(metrics.StageDHA)
	dhaKPIs, dhaOut, err := runDHA(dhaIn)
	if err != nil {
		dhaTimer.Stop(metrics.ResultError, "dha_failure")
		return nil, err
	}
	dhaTimer.Stop(metrics.ResultSuccess, "")
	if err := writeJSON(clusterPath(flagBaseDir, "dha", clusterID, "dha_kpis.json"), dhaKPIs); err != nil {
		return nil, err
	}
	if err := writeJSON(clusterPath(flagBaseDir, "dha", clusterID, "grid.json"), dhaOut); err != nil {
		return nil, err
	}

	var assumptions economicsAssumptions
	if err := loadJSON(spec.AssumptionsPath, &assumptions); err != nil {
		return nil, err
	}
	econTimer := reg.StartStage(metrics.StageEconomics)
	econIn := buildEconomicsInputs(assumptions, *chaOut, *dhaOut)
	det := economics.Deterministic(econIn)
	samples, summary := economics.Run(econIn, defaultPerturbations(), n, seed)
	econTimer.Stop(metrics.ResultSuccess, "")
	reg.MonteCarloSamples.Observe(float64(n))

	if err := writeJSON(clusterPath(flagBaseDir, "economics", clusterID, "economics_deterministic.json"), det); err != nil {
		return nil, err
	}
	if err := writeJSON(clusterPath(flagBaseDir, "economics", clusterID, "monte_carlo_summary.json"), summary); err != nil {
		return nil, err
	}
	if err := writeJSON(clusterPath(flagBaseDir, "economics", clusterID, "monte_carlo_samples.json"), samples); err != nil {
		return nil, err
	}

	decisionTimer := reg.StartStage(metrics.StageDecision)
	c, err := assembleContract(clusterID, spec.HPTotalKWDesign)
	if err != nil {
		decisionTimer.Stop(metrics.ResultError, "contract_assembly_failure")
		return nil, err
	}
	if problems := contract.Validate(c); len(problems) > 0 {
		c.Metadata.ValidationStatus = "fail"
		decisionTimer.Stop(metrics.ResultError, "schema_validation")
		return nil, fmt.Errorf("%w: %v", errs.ErrSchemaValidation, problems)
	}
	c.Metadata.ValidationStatus = "pass"
	result := decision.Decide(c, cfg)
	decisionTimer.Stop(metrics.ResultSuccess, "")
	reg.RecordDecision(string(result.Choice), result.Robust)

	if err := writeJSON(clusterPath(flagBaseDir, "decision", clusterID, "kpi_contract_"+clusterID+".json"), c); err != nil {
		return nil, err
	}
	out := decisionOutput{Decision: result}
	if err := writeJSON(clusterPath(flagBaseDir, "decision", clusterID, "decision_"+clusterID+".json"), out); err != nil {
		return nil, err
	}

	return batchClusterOutcome{
		CHAKPIs:    chaKPIs,
		DHAKPIs:    dhaKPIs,
		Det:        det,
		Summary:    summary,
		ChoiceName: string(result.Choice),
		Robust:     result.Robust,
	}, nil
}
