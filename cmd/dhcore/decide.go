package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/archive"
	"github.com/muniheat/dhcore/internal/artifacts"
	"github.com/muniheat/dhcore/internal/audit"
	"github.com/muniheat/dhcore/internal/cha"
	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
	"github.com/muniheat/dhcore/internal/dha"
	"github.com/muniheat/dhcore/internal/economics"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/explain"
)

// decisionOutput is decision_<cluster_id>.json (§6): the decision
// cascade's result plus the validation block the auditor produced, when
// an explanation was requested.
type decisionOutput struct {
	Decision   decision.Result `json:"decision"`
	Validation *audit.Report   `json:"validation,omitempty"`
}

func newDecideCmd() *cobra.Command {
	var clusterID, style string
	var wantExplain, noFallback bool
	var hpTotalKWDesign float64

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Assemble the KPI contract and run the deterministic decision cascade for one cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			scoped, done := logDecisionStage(clusterID)
			defer done()

			c, err := assembleContract(clusterID, hpTotalKWDesign)
			if err != nil {
				return err
			}
			if problems := contract.Validate(c); len(problems) > 0 {
				c.Metadata.ValidationStatus = "fail"
				return fmt.Errorf("%w: %v", errs.ErrSchemaValidation, problems)
			}
			c.Metadata.ValidationStatus = "pass"

			result := decision.Decide(c, cfg)
			out := decisionOutput{Decision: result}

			if wantExplain {
				rep, text, err := generateExplanation(c, result, explain.Style(style), noFallback)
				if err != nil {
					return err
				}
				out.Validation = &rep
				if err := writeExplanation(clusterID, explain.Style(style), text); err != nil {
					return err
				}
			}

			if err := writeJSON(clusterPath(flagBaseDir, "decision", clusterID, "kpi_contract_"+clusterID+".json"), c); err != nil {
				return err
			}
			if err := writeJSON(clusterPath(flagBaseDir, "decision", clusterID, "decision_"+clusterID+".json"), out); err != nil {
				return err
			}

			if store, openErr := archive.Open(archive.DefaultConfig()); openErr == nil {
				_ = store.Save(context.Background(), c)
				_ = store.Close()
			}

			scoped.Info().Str("choice", string(result.Choice)).Bool("robust", result.Robust).Msg("decision cascade complete")
			fmt.Printf("decide: cluster=%s choice=%s robust=%t\n", clusterID, result.Choice, result.Robust)
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "cluster identifier")
	cmd.Flags().BoolVar(&wantExplain, "explain", false, "generate and audit a natural-language explanation")
	cmd.Flags().StringVar(&style, "style", "executive", "explanation style: executive, technical, detailed")
	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "fail instead of falling back to the deterministic template on external-service failure")
	cmd.Flags().Float64Var(&hpTotalKWDesign, "hp-total-kw-design", 0, "heat-pump fleet design capacity in kW, carried into the contract's equipment summary")
	cmd.MarkFlagRequired("cluster-id")
	return cmd
}

// assembleContract resolves every required artifact for clusterID via
// artifact discovery and merges them into one contract (§4.13, §4.17).
func assembleContract(clusterID string, hpTotalKWDesign float64) (*contract.Contract, error) {
	paths, err := artifacts.FindAll(log, flagBaseDir, clusterID, []artifacts.Kind{
		artifacts.KindCHAKPIs, artifacts.KindDHAKPIs, artifacts.KindEconomicsDet,
	})
	if err != nil {
		return nil, err
	}

	var chaKPIs cha.KPIBlock
	if err := loadJSON(paths[artifacts.KindCHAKPIs], &chaKPIs); err != nil {
		return nil, err
	}
	var dhaKPIs dha.KPIBlock
	if err := loadJSON(paths[artifacts.KindDHAKPIs], &dhaKPIs); err != nil {
		return nil, err
	}
	var det economics.DeterministicResult
	if err := loadJSON(paths[artifacts.KindEconomicsDet], &det); err != nil {
		return nil, err
	}

	var mc *economics.Summary
	if mcPath, mcErr := artifacts.Find(log, flagBaseDir, clusterID, artifacts.KindMonteCarloSum); mcErr == nil {
		var summary economics.Summary
		if err := loadJSON(mcPath, &summary); err != nil {
			return nil, err
		}
		mc = &summary
	}

	in := contract.AssembleInput{
		ClusterID: clusterID,
		Inputs: map[string]string{
			"cha_kpis":  paths[artifacts.KindCHAKPIs],
			"dha_kpis":  paths[artifacts.KindDHAKPIs],
			"economics": paths[artifacts.KindEconomicsDet],
		},
		CHAKPIs:         chaKPIs,
		DHAKPIs:         dhaKPIs,
		DeterministicDH: det,
		MC:              mc,
		HPTotalKWDesign: hpTotalKWDesign,
		PlanningWarning: dhaKPIs.MitigationClass != dha.MitigationNone,
	}
	return contract.Assemble(in, time.Now().UTC()), nil
}
