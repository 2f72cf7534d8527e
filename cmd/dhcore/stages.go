package main

import (
	"github.com/rs/zerolog"

	"github.com/muniheat/dhcore/internal/logx"
)

func logCHAStage(clusterID string) (zerolog.Logger, func()) {
	return logx.Stage(log, clusterID, "cha")
}

func logDHAStage(clusterID string) (zerolog.Logger, func()) {
	return logx.Stage(log, clusterID, "dha")
}

func logEconomicsStage(clusterID string) (zerolog.Logger, func()) {
	return logx.Stage(log, clusterID, "economics")
}

func logDecisionStage(clusterID string) (zerolog.Logger, func()) {
	return logx.Stage(log, clusterID, "decision")
}

func logExplainStage(clusterID string) (zerolog.Logger, func()) {
	return logx.Stage(log, clusterID, "explain")
}
