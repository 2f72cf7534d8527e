package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rawManifest names the two raw input files for one cluster, read from
// the JSON file given by --manifest (§6 Inputs). prepare-data decodes
// each file into its stage's input type, so a malformed file fails here,
// and writes the re-encoded value into the base-dir's raw/<cluster-id>/
// layout the later stages read from (cha_input.json for run-cha,
// dha_input.json for run-dha).
type rawManifest struct {
	CHAInputPath string `json:"cha_input_path"`
	DHAInputPath string `json:"dha_input_path"`
}

func newPrepareDataCmd() *cobra.Command {
	var clusterID, manifestPath string

	cmd := &cobra.Command{
		Use:   "prepare-data",
		Short: "Validate and stage raw per-cluster inputs under the base directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			var m rawManifest
			if err := loadJSON(manifestPath, &m); err != nil {
				return err
			}

			var chaIn chaInput
			if err := loadJSON(m.CHAInputPath, &chaIn); err != nil {
				return fmt.Errorf("prepare-data: validating CHA input: %w", err)
			}
			var dhaIn dhaInput
			if err := loadJSON(m.DHAInputPath, &dhaIn); err != nil {
				return fmt.Errorf("prepare-data: validating DHA input: %w", err)
			}

			if err := writeJSON(clusterPath(flagBaseDir, "raw", clusterID, "cha_input.json"), chaIn); err != nil {
				return err
			}
			if err := writeJSON(clusterPath(flagBaseDir, "raw", clusterID, "dha_input.json"), dhaIn); err != nil {
				return err
			}

			log.Info().Str("cluster_id", clusterID).Msg("prepare-data: staged CHA and DHA inputs")
			fmt.Printf("prepare-data: cluster=%s staged ok\n", clusterID)
			return nil
		},
	}

	cmd.Flags().StringVar(&clusterID, "cluster-id", "", "cluster identifier")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "path to a JSON manifest naming the raw CHA/DHA input files")
	cmd.MarkFlagRequired("cluster-id")
	cmd.MarkFlagRequired("manifest")
	return cmd
}
