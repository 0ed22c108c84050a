package facility

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"github.com/absmach/dpsshare/pkg/weights"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var errModelShape = errors.New("weights do not match the linear model shape")

// conceptSeed fixes the labelling concept shared by every facility, so local
// datasets differ but describe the same task.
const conceptSeed = 0x5eed

type LinearConfig struct {
	Features     int
	TrainSamples int
	TestSamples  int
	Epochs       int
	LearningRate float64
	// Seed selects the local dataset.
	Seed uint64
}

// LinearTrainer is a logistic regression over a synthetic dataset. The model
// has two layers, weights of shape [features] and a bias of shape [1].
type LinearTrainer struct {
	cfg   LinearConfig
	train dataset
	test  dataset
}

var _ Trainer = (*LinearTrainer)(nil)

type dataset struct {
	x [][]float64
	y []float64
}

func NewLinearTrainer(cfg LinearConfig) *LinearTrainer {
	concept := make([]float64, cfg.Features)
	cn := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(conceptSeed, conceptSeed)}
	for i := range concept {
		concept[i] = cn.Rand()
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^conceptSeed)

	return &LinearTrainer{
		cfg:   cfg,
		train: synthesize(concept, cfg.TrainSamples, src),
		test:  synthesize(concept, cfg.TestSamples, src),
	}
}

func synthesize(concept []float64, n int, src rand.Source) dataset {
	xn := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	label := distuv.Normal{Mu: 0, Sigma: 0.1, Src: src}
	ds := dataset{x: make([][]float64, n), y: make([]float64, n)}
	for i := range n {
		row := make([]float64, len(concept))
		for j := range row {
			row[j] = xn.Rand()
		}
		ds.x[i] = row
		if floats.Dot(row, concept)+label.Rand() > 0 {
			ds.y[i] = 1
		}
	}

	return ds
}

func (t *LinearTrainer) Init(context.Context) (weights.Set, error) {
	return weights.Set{
		weights.NewLayer(t.cfg.Features),
		weights.NewLayer(1),
	}, nil
}

func (t *LinearTrainer) Train(ctx context.Context, w weights.Set) (TrainResult, error) {
	if err := t.check(w); err != nil {
		return TrainResult{}, err
	}

	out := w.Clone()
	coef, bias := out[0].Data, out[1].Data
	grad := make([]float64, len(coef))
	n := float64(len(t.train.y))
	for range t.cfg.Epochs {
		if err := ctx.Err(); err != nil {
			return TrainResult{}, err
		}
		clear(grad)
		gb := 0.0
		for i, x := range t.train.x {
			diff := sigmoid(floats.Dot(x, coef)+bias[0]) - t.train.y[i]
			floats.AddScaled(grad, diff, x)
			gb += diff
		}
		floats.AddScaled(coef, -t.cfg.LearningRate/n, grad)
		bias[0] -= t.cfg.LearningRate * gb / n
	}

	return TrainResult{
		Weights:    out,
		NumSamples: len(t.train.y),
		Metrics:    score(out, t.train),
	}, nil
}

func (t *LinearTrainer) Evaluate(_ context.Context, w weights.Set) (Metrics, error) {
	if err := t.check(w); err != nil {
		return Metrics{}, err
	}

	return score(w, t.test), nil
}

func (t *LinearTrainer) check(w weights.Set) error {
	if len(w) != 2 || len(w[0].Data) != t.cfg.Features || len(w[1].Data) != 1 {
		return errModelShape
	}

	return nil
}

func score(w weights.Set, ds dataset) Metrics {
	if len(ds.y) == 0 {
		return Metrics{}
	}

	const eps = 1e-12
	loss, correct := 0.0, 0
	for i, x := range ds.x {
		p := sigmoid(floats.Dot(x, w[0].Data) + w[1].Data[0])
		loss -= ds.y[i]*math.Log(p+eps) + (1-ds.y[i])*math.Log(1-p+eps)
		if (p >= 0.5) == (ds.y[i] == 1) {
			correct++
		}
	}
	n := float64(len(ds.y))

	return Metrics{Loss: loss / n, Accuracy: float64(correct) / n}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
