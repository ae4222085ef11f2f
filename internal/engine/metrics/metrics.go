// Package metrics evaluates multi-class predictions against known labels.
package metrics

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
)

// ErrNoRows is returned when no row has a label known to the model.
var ErrNoRows = errors.New("metrics: no evaluable rows")

const probFloor = 1e-15

// Options names the columns to evaluate.
type Options struct {
	LabelColumn string // key column with the true labels
	ScoreColumn string // per-class probabilities in label key order
	TopK        int    // 0 disables top-k accuracy
}

// DefaultOptions evaluates the conventional Label/Score columns.
func DefaultOptions() Options {
	return Options{LabelColumn: "Label", ScoreColumn: "Score", TopK: 3}
}

// Metrics is a snapshot of multi-class classification quality.
type Metrics struct {
	MicroAccuracy    float64 // fraction of rows predicted correctly
	MacroAccuracy    float64 // mean per-class accuracy over classes present
	LogLoss          float64
	LogLossReduction float64 // relative improvement over the label prior
	TopK             int
	TopKAccuracy     float64

	Labels          []string
	PerClassLogLoss []float64 // 0 for classes absent from the data
	Confusion       [][]int   // [truth][predicted] counts

	Rows    int // rows evaluated
	Skipped int // rows whose label was missing or unseen in training
}

// Evaluate computes metrics for a frame already transformed by a model.
// Predictions are the arg-max of the score column, ties going to the
// lower key.
func Evaluate(f *data.Frame, opts Options) (Metrics, error) {
	labels, err := f.Keys(opts.LabelColumn)
	if err != nil {
		return Metrics{}, err
	}
	scores, err := f.Scores(opts.ScoreColumn)
	if err != nil {
		return Metrics{}, err
	}

	k := len(labels.Values)
	m := Metrics{
		TopK:            opts.TopK,
		Labels:          append([]string(nil), labels.Values...),
		PerClassLogLoss: make([]float64, k),
		Confusion:       make([][]int, k),
	}
	for i := range m.Confusion {
		m.Confusion[i] = make([]int, k)
	}
	if m.TopK > k {
		m.TopK = k
	}

	counts := make([]int, k)
	var correct, topKHits int
	var logLoss float64
	for r, key := range labels.Keys {
		if key == 0 {
			m.Skipped++
			continue
		}
		if len(scores[r]) != k {
			return Metrics{}, errors.Errorf("metrics: row %d has %d scores for %d classes", r, len(scores[r]), k)
		}
		y := int(key) - 1
		p := scores[r]
		pred := argmax(p)

		m.Rows++
		counts[y]++
		m.Confusion[y][pred]++
		if pred == y {
			correct++
		}
		if m.TopK > 0 && rank(p, y) < m.TopK {
			topKHits++
		}
		ll := -math.Log(math.Max(float64(p[y]), probFloor))
		logLoss += ll
		m.PerClassLogLoss[y] += ll
	}
	if m.Rows == 0 {
		return Metrics{}, errors.Wrapf(ErrNoRows, "%d rows skipped", m.Skipped)
	}

	n := float64(m.Rows)
	m.MicroAccuracy = float64(correct) / n
	m.LogLoss = logLoss / n
	if m.TopK > 0 {
		m.TopKAccuracy = float64(topKHits) / n
	}

	var present int
	var prior float64
	for c, cnt := range counts {
		if cnt == 0 {
			continue
		}
		present++
		m.MacroAccuracy += float64(m.Confusion[c][c]) / float64(cnt)
		m.PerClassLogLoss[c] /= float64(cnt)
		q := float64(cnt) / n
		prior -= q * math.Log(q)
	}
	m.MacroAccuracy /= float64(present)
	if prior > 0 {
		m.LogLossReduction = (prior - m.LogLoss) / prior
	}
	return m, nil
}

// ClassReport is one row of the per-class breakdown.
type ClassReport struct {
	Label    string
	Support  int
	Accuracy float64
	LogLoss  float64
}

// PerClass returns the per-class breakdown for classes present in the
// evaluated data, ordered by support descending then label.
func (m Metrics) PerClass() []ClassReport {
	var out []ClassReport
	for c, row := range m.Confusion {
		support := 0
		for _, v := range row {
			support += v
		}
		if support == 0 {
			continue
		}
		out = append(out, ClassReport{
			Label:    m.Labels[c],
			Support:  support,
			Accuracy: float64(row[c]) / float64(support),
			LogLoss:  m.PerClassLogLoss[c],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Support != out[j].Support {
			return out[i].Support > out[j].Support
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func argmax(p []float32) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}

// rank is the number of classes scored strictly higher than class y, with
// equal scores at lower keys ranked ahead.
func rank(p []float32, y int) int {
	r := 0
	for i, v := range p {
		if v > p[y] || (v == p[y] && i < y) {
			r++
		}
	}
	return r
}
