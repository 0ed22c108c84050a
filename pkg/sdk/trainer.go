package sdk

import (
	"context"
	"net/http"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/weights"
)

const (
	initEndpoint     = "/init"
	trainEndpoint    = "/train"
	evaluateEndpoint = "/evaluate"
)

// Trainer delegates local training to an external service that works in
// single precision. It expects POST /init, /train and /evaluate endpoints.
type Trainer struct {
	client
	url string
}

var _ facility.Trainer = (*Trainer)(nil)

type trainerModel struct {
	Shapes  [][]int     `json:"shapes"`
	Weights [][]float32 `json:"weights"`
}

type trainerResult struct {
	trainerModel
	NumSamples int     `json:"num_samples"`
	Loss       float64 `json:"loss"`
	Accuracy   float64 `json:"accuracy"`
}

func NewTrainer(url string, cfg Config) *Trainer {
	return &Trainer{client: newClient(cfg), url: url}
}

func (t *Trainer) Init(ctx context.Context) (weights.Set, error) {
	var res trainerModel
	if err := t.postJSON(ctx, t.url+initEndpoint, struct{}{}, http.StatusOK, &res); err != nil {
		return nil, err
	}
	like := make(weights.Set, len(res.Shapes))
	for i, s := range res.Shapes {
		like[i] = weights.NewLayer(s...)
	}

	return weights.FromFloat32(like, res.Weights)
}

func (t *Trainer) Train(ctx context.Context, w weights.Set) (facility.TrainResult, error) {
	var res trainerResult
	if err := t.postJSON(ctx, t.url+trainEndpoint, toTrainerModel(w), http.StatusOK, &res); err != nil {
		return facility.TrainResult{}, err
	}
	out, err := weights.FromFloat32(w, res.Weights)
	if err != nil {
		return facility.TrainResult{}, err
	}

	return facility.TrainResult{
		Weights:    out,
		NumSamples: res.NumSamples,
		Metrics:    facility.Metrics{Loss: res.Loss, Accuracy: res.Accuracy},
	}, nil
}

func (t *Trainer) Evaluate(ctx context.Context, w weights.Set) (facility.Metrics, error) {
	var res trainerResult
	if err := t.postJSON(ctx, t.url+evaluateEndpoint, toTrainerModel(w), http.StatusOK, &res); err != nil {
		return facility.Metrics{}, err
	}

	return facility.Metrics{Loss: res.Loss, Accuracy: res.Accuracy}, nil
}

func toTrainerModel(w weights.Set) trainerModel {
	shapes := make([][]int, len(w))
	for i, l := range w {
		shapes[i] = l.Shape
	}

	return trainerModel{Shapes: shapes, Weights: w.Float32()}
}
