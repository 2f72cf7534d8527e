package economics

import (
	"sort"

	"github.com/muniheat/dhcore/internal/seed"
)

// Perturbation names one sampled parameter and how its drawn value is
// applied to a working copy of Inputs before recomputing §4.12's
// deterministic evaluation.
type Perturbation struct {
	Name string
	Dist Distribution
	// Apply mutates in-place; called once per sample with the drawn value.
	Apply func(in *Inputs, value float64)
}

// Sample is one Monte Carlo draw's recomputed outputs (§3 Economics
// sample).
type Sample struct {
	SampleID        int
	LCOHDHEURPerMWh float64
	LCOHHPEURPerMWh float64
	CO2DHTPerA      float64
	CO2HPTPerA      float64
	SampledParams   map[string]float64
}

// Quantiles holds the p05/p50/p95 of a sampled quantity; callers validate
// p05 <= p50 <= p95 as a closure property (§8).
type Quantiles struct {
	P05, P50, P95 float64
}

// Summary is the Monte Carlo outcome merged into the KPI contract's
// optional `monte_carlo` block (§3).
type Summary struct {
	NSamples       int
	Seed           int64
	LCOHDH         Quantiles
	LCOHHP         Quantiles
	CO2DH          Quantiles
	CO2HP          Quantiles
	DHWinsFraction float64
	HPWinsFraction float64
}

// Run draws n samples deterministically from baseSeed: sample i uses the
// sub-seed seed.Stream(baseSeed, i), so repeated runs with identical
// inputs reproduce bit-for-bit (§4.12, §5).
func Run(base Inputs, perturbations []Perturbation, n int, baseSeed int64) ([]Sample, Summary) {
	samples := make([]Sample, n)
	lcohDH := make([]float64, n)
	lcohHP := make([]float64, n)
	co2DH := make([]float64, n)
	co2HP := make([]float64, n)
	dhWins := 0

	for i := 0; i < n; i++ {
		rng := seed.New(baseSeed, i)
		in := base
		sampledParams := make(map[string]float64, len(perturbations))
		for _, p := range perturbations {
			v := p.Dist.Sample(rng)
			p.Apply(&in, v)
			sampledParams[p.Name] = v
		}
		res := Deterministic(in)
		samples[i] = Sample{
			SampleID:        i,
			LCOHDHEURPerMWh: res.LCOHDHEURPerMWh,
			LCOHHPEURPerMWh: res.LCOHHPEURPerMWh,
			CO2DHTPerA:      res.CO2DHTPerA,
			CO2HPTPerA:      res.CO2HPTPerA,
			SampledParams:   sampledParams,
		}
		lcohDH[i] = res.LCOHDHEURPerMWh
		lcohHP[i] = res.LCOHHPEURPerMWh
		co2DH[i] = res.CO2DHTPerA
		co2HP[i] = res.CO2HPTPerA
		if res.LCOHDHEURPerMWh < res.LCOHHPEURPerMWh {
			dhWins++
		}
	}

	dhFrac := 0.0
	if n > 0 {
		dhFrac = float64(dhWins) / float64(n)
	}
	summary := Summary{
		NSamples:       n,
		Seed:           baseSeed,
		LCOHDH:         quantilesOf(lcohDH),
		LCOHHP:         quantilesOf(lcohHP),
		CO2DH:          quantilesOf(co2DH),
		CO2HP:          quantilesOf(co2HP),
		DHWinsFraction: dhFrac,
		HPWinsFraction: 1 - dhFrac,
	}
	return samples, summary
}

func quantilesOf(values []float64) Quantiles {
	if len(values) == 0 {
		return Quantiles{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Quantiles{
		P05: percentile(sorted, 0.05),
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile linearly interpolates within an already-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
