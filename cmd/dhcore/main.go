// Command dhcore runs the district-heating-vs-heat-pump decision
// pipeline: per-cluster hydraulic (CHA) and electrical (DHA) analysis,
// economics, the deterministic decision cascade, and the audited
// explanation generator, plus batch and monitoring entry points.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/muniheat/dhcore/internal/config"
	"github.com/muniheat/dhcore/internal/errs"
	"github.com/muniheat/dhcore/internal/logx"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	flagConfigPath string
	flagBaseDir    string
	flagLogLevel   string

	cfg *config.Config
	log zerolog.Logger
)

func main() {
	root := newRootCmd()
	err := root.Execute()
	os.Exit(exitCodeFor(err))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dhcore",
		Short:         "District-heating vs heat-pump decision engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(flagLogLevel)
			if err != nil {
				return fmt.Errorf("%w: unknown log level %q", errs.ErrConfigValidation, flagLogLevel)
			}
			log = logx.New(level)

			if flagConfigPath != "" {
				c, err := config.Load(flagConfigPath)
				if err != nil {
					return err
				}
				cfg = c
			} else {
				cfg = config.DefaultConfig()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a YAML configuration file (defaults are used if omitted)")
	root.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "results", "base directory for per-cluster artifacts")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newPrepareDataCmd(),
		newRunCHACmd(),
		newRunDHACmd(),
		newRunEconomicsCmd(),
		newDecideCmd(),
		newReportCmd(),
		newBatchCmd(),
		newVerifyDeterminismCmd(),
		newMonitorCmd(),
	)
	return root
}

// exitCodeFor maps a command error to the process exit code named in the
// external-interfaces table. A nil error is success.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case errors.Is(err, errs.ErrExternalServiceUnavailable):
		return 5
	case errors.Is(err, errs.ErrSolverNonConvergence):
		return 4
	case errors.Is(err, errs.ErrSchemaValidation), errors.Is(err, errs.ErrContradictionDetected):
		return 3
	case errors.Is(err, errs.ErrInvalidGeometry),
		errors.Is(err, errs.ErrMissingCRS),
		errors.Is(err, errs.ErrBuildingTooFar),
		errors.Is(err, errs.ErrUnsuppliedBuses),
		errors.Is(err, errs.ErrBoundaryViolation),
		errors.Is(err, errs.ErrMissingInputArtifact),
		errors.Is(err, errs.ErrConfigValidation):
		return 2
	default:
		fmt.Fprintln(os.Stderr, "dhcore:", err)
		return 1
	}
}
