package optimization

import (
	"sort"
)

// Population represents a collection of individuals
type Population struct {
	individuals []*Individual
}

// NewPopulation creates a new population with the given individuals
func NewPopulation(individuals []*Individual) *Population {
	return &Population{individuals: individuals}
}

// Individuals returns all individuals in the population
func (p *Population) Individuals() []*Individual {
	return p.individuals
}

// Size returns the number of individuals in the population
func (p *Population) Size() int {
	return len(p.individuals)
}

// Best returns the individual with the highest fitness
func (p *Population) Best() *Individual {
	if len(p.individuals) == 0 {
		return nil
	}

	best := p.individuals[0]
	for _, ind := range p.individuals[1:] {
		if ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best
}

// SortByFitness sorts best first. The sort is stable so ties keep their
// order and runs stay reproducible.
func (p *Population) SortByFitness() {
	sort.SliceStable(p.individuals, func(i, j int) bool {
		return p.individuals[i].Fitness > p.individuals[j].Fitness
	})
}

// Stats summarizes the evaluated population
func (p *Population) Stats(generation int) GenerationStats {
	stats := GenerationStats{Generation: generation}
	if len(p.individuals) == 0 {
		return stats
	}

	valid := 0
	sum := 0.0
	for _, ind := range p.individuals {
		if !ind.Valid() {
			stats.Invalid++
			continue
		}
		if valid == 0 || ind.Fitness < stats.Worst {
			stats.Worst = ind.Fitness
		}
		if valid == 0 || ind.Fitness > stats.Best {
			stats.Best = ind.Fitness
		}
		sum += ind.Fitness
		valid++
	}
	if valid > 0 {
		stats.Average = sum / float64(valid)
	}
	return stats
}

// Elite returns copies of the top n individuals. The population must be sorted.
func (p *Population) Elite(n int) []*Individual {
	if n > len(p.individuals) {
		n = len(p.individuals)
	}
	elite := make([]*Individual, n)
	for i := 0; i < n; i++ {
		elite[i] = p.individuals[i].Copy()
	}
	return elite
}
