package explain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muniheat/dhcore/internal/contract"
	"github.com/muniheat/dhcore/internal/decision"
)

func sampleContract() *contract.Contract {
	return &contract.Contract{
		DistrictHeating: contract.DistrictHeating{
			LCOH: contract.Quantiles{Median: 75},
			CO2:  contract.Quantiles{Median: 200},
		},
		HeatPumps: contract.HeatPumps{
			LCOH: contract.Quantiles{Median: 85},
			CO2:  contract.Quantiles{Median: 110},
			LVGrid: contract.LVGrid{MaxFeederLoadingPct: 40},
		},
	}
}

func TestBuildPromptListsOnlyContractNumerics(t *testing.T) {
	d := decision.Result{Choice: decision.ChoiceDH, ReasonCodes: []decision.ReasonCode{decision.ReasonOnlyDHFeasible}}
	p := BuildPrompt(sampleContract(), d, StyleExecutive)
	require.NotEmpty(t, p.Numerics)
	require.Contains(t, p.Text, "district_heating.lcoh.median")
	require.Contains(t, p.Text, "DH")
}

func TestTemplateMentionsChoiceAndMetrics(t *testing.T) {
	d := decision.Result{Choice: decision.ChoiceHP, Robust: true, ReasonCodes: []decision.ReasonCode{decision.ReasonCostDominantHP}}
	text := Template(sampleContract(), d, StyleDetailed)
	require.Contains(t, text, "HP")
	require.Contains(t, text, "85.00")
}

type fakeGen struct {
	calls int
	err   error
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "generated text", nil
}

func TestGeneratorWrapsFailureAsExternalServiceUnavailable(t *testing.T) {
	g := NewGenerator(&fakeGen{err: errors.New("boom")}, time.Second, 1000)
	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
}

func TestGeneratorSucceedsThroughBreakerAndLimiter(t *testing.T) {
	g := NewGenerator(&fakeGen{}, time.Second, 1000)
	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	require.Equal(t, "generated text", out)
}

func TestGeneratorWithNilInnerFailsClosed(t *testing.T) {
	g := NewGenerator(nil, time.Second, 1000)
	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
}
