package fl

import (
	"math"

	"github.com/absmach/dpsshare/pkg/weights"
)

// FedAvgAggregator weights every update by its share of the total sample
// count. When no update reports samples all updates weigh the same.
type FedAvgAggregator struct{}

func NewFedAvgAggregator() Aggregator {
	return &FedAvgAggregator{}
}

func (f *FedAvgAggregator) Aggregate(updates []Update) (weights.Set, error) {
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}

	var totalSamples int64
	for _, u := range updates {
		totalSamples += int64(u.NumSamples)
		if totalSamples > math.MaxInt64/2 {
			return nil, ErrOverflow
		}
	}

	out := weights.ZerosLike(updates[0].Weights)
	for _, u := range updates {
		coef := 1 / float64(len(updates))
		if totalSamples > 0 {
			coef = float64(u.NumSamples) / float64(totalSamples)
		}
		if err := out.AddScaledInPlace(coef, u.Weights); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// SumAggregator adds updates elementwise.
type SumAggregator struct{}

func NewSumAggregator() Aggregator {
	return &SumAggregator{}
}

func (s *SumAggregator) Aggregate(updates []Update) (weights.Set, error) {
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}
	sets := make([]weights.Set, len(updates))
	for i, u := range updates {
		sets[i] = u.Weights
	}

	return weights.Sum(sets...)
}
