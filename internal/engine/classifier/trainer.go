// Package classifier implements a multi-class maximum entropy classifier
// (multinomial logistic regression) as a pipeline step.
package classifier

import (
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/pipeline"
)

var (
	ErrNoLabeledRows = errors.New("classifier: no labeled rows to train on")
	ErrDiverged      = errors.New("classifier: training diverged")
	ErrDimension     = errors.New("classifier: feature vector dimension mismatch")
)

// probFloor keeps log-losses finite.
const probFloor = 1e-15

// Trainer fits a maximum entropy model with seeded stochastic gradient
// descent over shuffled epochs. Weights start at zero, so the same seed
// and data always give the same model.
type Trainer struct {
	opts Options
}

// NewMaximumEntropy returns the trainer as a pipeline estimator.
func NewMaximumEntropy(opts Options) *Trainer {
	return &Trainer{opts: opts}
}

func (t *Trainer) Name() string {
	return "MaximumEntropy(" + t.opts.LabelColumn + ", " + t.opts.FeatureColumn + ")"
}

func (t *Trainer) Inputs() []string {
	return []string{t.opts.LabelColumn, t.opts.FeatureColumn}
}

func (t *Trainer) Outputs() []string {
	return []string{ScoreColumn, PredictedLabelColumn}
}

// Fit trains on every row whose label key is not missing.
func (t *Trainer) Fit(f *data.Frame) (pipeline.Transformer, error) {
	if err := t.opts.Validate(); err != nil {
		return nil, err
	}
	labels, err := f.Keys(t.opts.LabelColumn)
	if err != nil {
		return nil, err
	}
	feats, err := f.Vectors(t.opts.FeatureColumn)
	if err != nil {
		return nil, err
	}

	var rows []int
	for i, k := range labels.Keys {
		if k != 0 {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 || len(labels.Values) == 0 {
		return nil, ErrNoLabeledRows
	}

	k := len(labels.Values)
	dim := feats[rows[0]].Dim
	for _, r := range rows {
		if feats[r].Dim != dim {
			return nil, errors.Wrapf(ErrDimension, "row %d has %d, want %d", r, feats[r].Dim, dim)
		}
	}

	start := time.Now()
	w := make([]float64, k*dim)
	b := make([]float64, k)
	probs := make([]float64, k)
	rng := rand.New(rand.NewSource(t.opts.Seed))
	n := float64(len(rows))

	var loss float64
	for epoch := 0; epoch < t.opts.Epochs; epoch++ {
		lr := t.opts.LearningRate / math.Sqrt(1+float64(epoch))
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

		loss = 0
		for _, r := range rows {
			x := feats[r]
			y := int(labels.Keys[r]) - 1
			softmax64(w, b, dim, x, probs)
			loss -= math.Log(math.Max(probs[y], probFloor))

			for c := range probs {
				g := probs[c]
				if c == y {
					g--
				}
				if g == 0 {
					continue
				}
				step := lr * g
				axpy(w[c*dim:(c+1)*dim], -step, x)
				b[c] -= step
			}
		}
		loss /= n

		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, errors.Wrapf(ErrDiverged, "epoch %d loss %v", epoch+1, loss)
		}
		if t.opts.L2 > 0 {
			shrink := math.Max(0, 1-lr*t.opts.L2)
			for i := range w {
				w[i] *= shrink
			}
		}
		slog.Debug("maxent epoch", "epoch", epoch+1, "loss", loss)
	}

	m := &Model{
		params: modelParams{
			LabelColumn:   t.opts.LabelColumn,
			FeatureColumn: t.opts.FeatureColumn,
			Labels:        append([]string(nil), labels.Values...),
			Dim:           dim,
		},
		weights: make([]float32, len(w)),
		bias:    make([]float32, len(b)),
	}
	for i, v := range w {
		m.weights[i] = float32(v)
	}
	for i, v := range b {
		m.bias[i] = float32(v)
	}

	slog.Info("maxent trained",
		"classes", k, "dim", dim, "rows", len(rows),
		"epochs", t.opts.Epochs, "loss", loss, "elapsed", time.Since(start))
	return m, nil
}

// softmax64 writes class probabilities for x into probs.
func softmax64(w, b []float64, dim int, x data.Vector, probs []float64) {
	maxZ := math.Inf(-1)
	for c := range probs {
		z := b[c] + dot(w[c*dim:(c+1)*dim], x)
		probs[c] = z
		if z > maxZ {
			maxZ = z
		}
	}
	var sum float64
	for c, z := range probs {
		e := math.Exp(z - maxZ)
		probs[c] = e
		sum += e
	}
	for c := range probs {
		probs[c] /= sum
	}
}

func dot(row []float64, x data.Vector) float64 {
	var s float64
	if x.IsDense() {
		for i, v := range x.Values {
			s += row[i] * float64(v)
		}
		return s
	}
	for j, i := range x.Indices {
		s += row[i] * float64(x.Values[j])
	}
	return s
}

func axpy(row []float64, a float64, x data.Vector) {
	if x.IsDense() {
		for i, v := range x.Values {
			row[i] += a * float64(v)
		}
		return
	}
	for j, i := range x.Indices {
		row[i] += a * float64(x.Values[j])
	}
}
