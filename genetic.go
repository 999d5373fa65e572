package fuelopt

import (
	"math"
	"math/rand"
	"sort"
)

// Genetic search over bounded real-valued genes. Tournament selection,
// single-point crossover, Gaussian mutation.

type gaConfig struct {
	popSize    int
	maxGen     int
	stagnation int     // stall generations before declaring convergence
	tol        float64 // minimum objective improvement counted as progress
	tournament int
	mutRate    float64
	mutσ       float64 // fraction of the gene's bound range
	elite      int
}

func defaultGAConfig() gaConfig {
	return gaConfig{
		popSize:    48,
		maxGen:     400,
		stagnation: 40,
		tol:        1e-6,
		tournament: 3,
		mutRate:    0.1,
		mutσ:       0.1,
		elite:      2,
	}
}

// gaFitness scores a gene vector. Infeasible candidates report false and are
// never selected, whatever their cost.
type gaFitness func(genes []float64) (cost float64, feasible bool)

type gaResult struct {
	best        []float64
	cost        float64
	found       bool // at least one feasible candidate was seen
	converged   bool // stalled below tol, not just capped
	generations int
}

type gaMember struct {
	genes    []float64
	cost     float64
	feasible bool
}

func runGA(cfg gaConfig, bounds [][2]float64, fit gaFitness, rng *rand.Rand) gaResult {
	dim := len(bounds)
	pop := make([]gaMember, cfg.popSize)
	for i := range pop {
		genes := make([]float64, dim)
		for k, b := range bounds {
			genes[k] = b[0] + rng.Float64()*(b[1]-b[0])
		}
		pop[i] = evalMember(genes, fit)
	}

	res := gaResult{cost: math.Inf(1)}
	stall := 0
	for gen := 1; gen <= cfg.maxGen; gen++ {
		res.generations = gen
		sort.SliceStable(pop, func(i, j int) bool { return gaLess(pop[i], pop[j]) })
		lead := pop[0]
		if lead.feasible && lead.cost < res.cost-cfg.tol {
			res.best = append([]float64{}, lead.genes...)
			res.cost = lead.cost
			res.found = true
			stall = 0
		} else {
			stall++
		}
		if res.found && stall >= cfg.stagnation {
			res.converged = true
			return res
		}

		next := make([]gaMember, 0, cfg.popSize)
		for i := 0; i < cfg.elite && i < len(pop); i++ {
			next = append(next, pop[i])
		}
		for len(next) < cfg.popSize {
			p1 := tournament(pop, cfg.tournament, rng)
			p2 := tournament(pop, cfg.tournament, rng)
			child := crossover(p1.genes, p2.genes, rng)
			mutate(child, bounds, cfg, rng)
			next = append(next, evalMember(child, fit))
		}
		pop = next
	}
	return res
}

func evalMember(genes []float64, fit gaFitness) gaMember {
	cost, ok := fit(genes)
	return gaMember{genes: genes, cost: cost, feasible: ok}
}

// gaLess orders feasible members by cost and keeps infeasible ones last.
func gaLess(a, b gaMember) bool {
	if a.feasible != b.feasible {
		return a.feasible
	}
	return a.cost < b.cost
}

func tournament(pop []gaMember, size int, rng *rand.Rand) gaMember {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < size; i++ {
		c := pop[rng.Intn(len(pop))]
		if gaLess(c, best) {
			best = c
		}
	}
	return best
}

func crossover(p1, p2 []float64, rng *rand.Rand) []float64 {
	child := make([]float64, len(p1))
	cut := 0
	if len(p1) > 1 {
		cut = rng.Intn(len(p1))
	}
	for k := range child {
		if k <= cut {
			child[k] = p1[k]
		} else {
			child[k] = p2[k]
		}
	}
	return child
}

func mutate(genes []float64, bounds [][2]float64, cfg gaConfig, rng *rand.Rand) {
	for k, b := range bounds {
		if rng.Float64() >= cfg.mutRate {
			continue
		}
		genes[k] += rng.NormFloat64() * cfg.mutσ * (b[1] - b[0])
		if genes[k] < b[0] {
			genes[k] = b[0]
		} else if genes[k] > b[1] {
			genes[k] = b[1]
		}
	}
}
