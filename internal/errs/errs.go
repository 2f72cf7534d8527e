// Package errs defines the closed set of error kinds surfaced by the
// decision pipeline. Every kind is a package-level sentinel; callers branch
// with errors.Is and call sites attach context with fmt.Errorf("%w", ...).
// Pipeline code never panics on these conditions — they are values, not
// control flow.
package errs

import "errors"

var (
	// ErrInvalidGeometry: a polyline is empty or its CRS is geographic
	// instead of projected.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrMissingCRS: an input table declares no coordinate reference system.
	ErrMissingCRS = errors.New("missing CRS")
	// ErrBuildingTooFar: a building centroid exceeds the configured
	// attachment distance from its nearest street edge or LV bus.
	ErrBuildingTooFar = errors.New("building too far from attachment target")
	// ErrUnsuppliedBuses: an LV bus cannot reach a transformer in the
	// undirected grid graph.
	ErrUnsuppliedBuses = errors.New("unsupplied LV buses")
	// ErrBoundaryViolation: the Option-2 LV boundary invariants are
	// violated (not exactly one MV slack, or zero transformers).
	ErrBoundaryViolation = errors.New("LV boundary violation")
	// ErrSolverNonConvergence: a hydraulic or power-flow solver failed to
	// converge within its iteration budget.
	ErrSolverNonConvergence = errors.New("solver did not converge")
	// ErrSchemaValidation: a KPI contract failed structural or range
	// validation.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrConfigValidation: a configuration file contains an unknown key or
	// an out-of-range threshold.
	ErrConfigValidation = errors.New("configuration validation failed")
	// ErrMissingInputArtifact: artifact discovery exhausted every known
	// path pattern for a required input.
	ErrMissingInputArtifact = errors.New("missing input artifact")
	// ErrContradictionDetected: the tabular-entailment auditor found at
	// least one contradictory sentence after the feedback loop exhausted.
	ErrContradictionDetected = errors.New("contradiction detected")
	// ErrExternalServiceUnavailable: the optional external text generator
	// did not respond within its configured timeout, or its breaker is open.
	ErrExternalServiceUnavailable = errors.New("external service unavailable")
	// ErrCancellationRequested: a cooperative cancellation flag was
	// observed between clusters or Monte Carlo samples.
	ErrCancellationRequested = errors.New("cancellation requested")
)
