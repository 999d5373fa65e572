package fuelopt

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
)

// Bounded gradient descent with finite-difference gradients and backtracking
// line search, the continuous-thrust profile engine.

type gradConfig struct {
	maxIter    int
	stagnation int     // iterations without gradient-norm decrease
	shrink     float64 // backtracking step factor
	step0      float64 // initial step along the negative gradient
	fdStep     float64 // finite-difference perturbation
	gradTol    float64 // gradient norm below this is converged
}

func defaultGradConfig() gradConfig {
	return gradConfig{
		maxIter:    200,
		stagnation: 15,
		shrink:     0.5,
		step0:      0.25,
		fdStep:     1e-4,
		gradTol:    1e-6,
	}
}

type gradResult struct {
	x          []float64
	cost       float64
	iterations int
}

// descend minimizes cost over the box given by bounds, starting at x0.
// Returns ErrNoSolution wrapped when the gradient norm stagnates without
// reaching the tolerance.
func descend(cfg gradConfig, x0 []float64, bounds [][2]float64, cost func([]float64) float64) (gradResult, error) {
	x := append([]float64{}, x0...)
	fx := cost(x)
	bestGradNorm := math.Inf(1)
	stall := 0
	res := gradResult{}
	for it := 1; it <= cfg.maxIter; it++ {
		res.iterations = it
		g := fdGradient(x, bounds, cost, cfg.fdStep)
		gNorm := floats.Norm(g, 2)
		if gNorm < cfg.gradTol {
			res.x, res.cost = x, fx
			return res, nil
		}
		if gNorm < bestGradNorm {
			bestGradNorm = gNorm
			stall = 0
		} else {
			stall++
			if stall >= cfg.stagnation {
				return res, fmt.Errorf("gradient norm stalled at %.3e after %d iterations: %w", gNorm, it, ErrNoSolution)
			}
		}

		// Backtracking along -g until the cost improves.
		step := cfg.step0
		improved := false
		for step > 1e-10 {
			trial := make([]float64, len(x))
			for k := range x {
				trial[k] = clampTo(x[k]-step*g[k], bounds[k])
			}
			if ft := cost(trial); ft < fx {
				x, fx = trial, ft
				improved = true
				break
			}
			step *= cfg.shrink
		}
		if !improved {
			// No descent direction left: the iterate is as good as
			// this parameterization gets.
			res.x, res.cost = x, fx
			return res, nil
		}
	}
	res.x, res.cost = x, fx
	return res, nil
}

func fdGradient(x []float64, bounds [][2]float64, cost func([]float64) float64, h float64) []float64 {
	g := make([]float64, len(x))
	for k := range x {
		span := bounds[k][1] - bounds[k][0]
		δ := h * span
		xp := append([]float64{}, x...)
		xm := append([]float64{}, x...)
		xp[k] = clampTo(x[k]+δ, bounds[k])
		xm[k] = clampTo(x[k]-δ, bounds[k])
		if xp[k] == xm[k] {
			continue
		}
		g[k] = (cost(xp) - cost(xm)) / (xp[k] - xm[k])
	}
	return g
}

func clampTo(v float64, b [2]float64) float64 {
	if v < b[0] {
		return b[0]
	}
	if v > b[1] {
		return b[1]
	}
	return v
}
