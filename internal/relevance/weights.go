package relevance

import (
	"math"

	"github.com/m-mizutani/goerr/v2"

	"github.com/Tar-ive/brain-system-sub000/internal/memory"
)

// weightSumTolerance absorbs float rounding in configured weights.
const weightSumTolerance = 0.001

// Weights control the four scoring factors. They must be non-negative
// and sum to 1.0; configurations that don't are rejected, never
// silently renormalized.
type Weights struct {
	Temporal   float64 `yaml:"temporal" json:"temporal"`
	Project    float64 `yaml:"project" json:"project"`
	Connection float64 `yaml:"connection" json:"connection"`
	Similarity float64 `yaml:"similarity" json:"similarity"`
}

// DefaultWeights returns the standard factor weighting.
func DefaultWeights() Weights {
	return Weights{
		Temporal:   0.25,
		Project:    0.25,
		Connection: 0.15,
		Similarity: 0.35,
	}
}

// Validate checks the weight configuration.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"temporal":   w.Temporal,
		"project":    w.Project,
		"connection": w.Connection,
		"similarity": w.Similarity,
	} {
		if v < 0 {
			return goerr.Wrap(memory.ErrBadWeights, "negative weight",
				goerr.V("factor", name), goerr.V("value", v))
		}
	}

	sum := w.Temporal + w.Project + w.Connection + w.Similarity
	if math.Abs(sum-1.0) > weightSumTolerance {
		return goerr.Wrap(memory.ErrBadWeights, "validate weights", goerr.V("sum", sum))
	}
	return nil
}
