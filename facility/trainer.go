package facility

import (
	"context"

	"github.com/absmach/dpsshare/pkg/weights"
)

type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

type TrainResult struct {
	Weights    weights.Set
	NumSamples int
	Metrics    Metrics
}

// Trainer owns the local dataset of a facility.
type Trainer interface {
	// Init returns the default initial weights.
	Init(ctx context.Context) (weights.Set, error)
	// Train fits the model on the local training split starting from w.
	Train(ctx context.Context, w weights.Set) (TrainResult, error)
	// Evaluate scores w on the held-out split.
	Evaluate(ctx context.Context, w weights.Set) (Metrics, error)
}
