package economics

import (
	"math"
	"math/rand"
)

// Distribution is a typed sampler drawing one value from an independent
// parameter's uncertainty range, given a per-sample RNG (§4.12).
type Distribution interface {
	Sample(rng *rand.Rand) float64
}

// Normal is a Gaussian distribution, optionally clipped to a range — the
// "normal with clip" distribution named in §4.12.
type Normal struct {
	Mean, StdDev float64
	Clip         bool
	ClipMin      float64
	ClipMax      float64
}

func (d Normal) Sample(rng *rand.Rand) float64 {
	v := rng.NormFloat64()*d.StdDev + d.Mean
	if d.Clip {
		if v < d.ClipMin {
			v = d.ClipMin
		}
		if v > d.ClipMax {
			v = d.ClipMax
		}
	}
	return v
}

// Triangular samples via inverse-CDF from Min/Mode/Max.
type Triangular struct {
	Min, Mode, Max float64
}

func (d Triangular) Sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	span := d.Max - d.Min
	if span <= 0 {
		return d.Min
	}
	fc := (d.Mode - d.Min) / span
	if u < fc {
		return d.Min + math.Sqrt(u*span*(d.Mode-d.Min))
	}
	return d.Max - math.Sqrt((1-u)*span*(d.Max-d.Mode))
}

// Lognormal samples exp(N(MuLog, SigmaLog)).
type Lognormal struct {
	MuLog, SigmaLog float64
}

func (d Lognormal) Sample(rng *rand.Rand) float64 {
	return math.Exp(rng.NormFloat64()*d.SigmaLog + d.MuLog)
}

// Uniform samples uniformly over [Min, Max).
type Uniform struct {
	Min, Max float64
}

func (d Uniform) Sample(rng *rand.Rand) float64 {
	return d.Min + rng.Float64()*(d.Max-d.Min)
}
