package trainer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const klEpsilon = 1e-10

// klDivergence is the batch mean of KL(old || new).
func klDivergence(oldProbs, newProbs [][]float64) float64 {
	if len(oldProbs) == 0 {
		return 0
	}
	total := 0.0
	for i, old := range oldProbs {
		for a, p := range old {
			total += p * (math.Log(p+klEpsilon) - math.Log(newProbs[i][a]+klEpsilon))
		}
	}
	return total / float64(len(oldProbs))
}

// adaptMultiplier keeps the per-update divergence near target: shrink the
// learning rate multiplier when KL overshoots, grow it when KL undershoots.
func adaptMultiplier(multiplier, kl, target float64) float64 {
	switch {
	case kl > 2*target && multiplier > 0.1:
		return multiplier / 1.5
	case kl < target/2 && multiplier < 10:
		return multiplier * 1.5
	default:
		return multiplier
	}
}

// explainedVariance is 1 - Var(z - v) / Var(z), 0 when z does not vary.
func explainedVariance(z, v []float64) float64 {
	if len(z) < 2 {
		return 0
	}
	varZ := stat.Variance(z, nil)
	if varZ == 0 {
		return 0
	}
	residual := make([]float64, len(z))
	for i := range z {
		residual[i] = z[i] - v[i]
	}
	return 1 - stat.Variance(residual, nil)/varZ
}
