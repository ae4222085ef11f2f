package classifier

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/pipeline"
)

const kindMaximumEntropy = "maximum_entropy"

func init() {
	pipeline.Register(kindMaximumEntropy, decodeModel)
}

type modelParams struct {
	LabelColumn   string   `json:"label_column"`
	FeatureColumn string   `json:"feature_column"`
	Labels        []string `json:"labels"`
	Dim           int      `json:"dim"`
}

// Model is a trained maximum entropy classifier. Class c (0-based) is
// label key c+1.
type Model struct {
	params  modelParams
	weights []float32 // row-major [classes, dim]
	bias    []float32
}

// Labels returns the class labels in key order.
func (m *Model) Labels() []string { return append([]string(nil), m.params.Labels...) }

// Probabilities returns the softmax class distribution for x.
func (m *Model) Probabilities(x data.Vector) ([]float32, error) {
	if x.Dim != m.params.Dim {
		return nil, errors.Wrapf(ErrDimension, "got %d, want %d", x.Dim, m.params.Dim)
	}
	k := len(m.params.Labels)
	dim := m.params.Dim
	z := make([]float64, k)
	maxZ := math.Inf(-1)
	for c := range z {
		z[c] = float64(m.bias[c]) + x.Dot(m.weights[c*dim:(c+1)*dim])
		if z[c] > maxZ {
			maxZ = z[c]
		}
	}
	var sum float64
	for c := range z {
		z[c] = math.Exp(z[c] - maxZ)
		sum += z[c]
	}
	out := make([]float32, k)
	for c := range z {
		out[c] = float32(z[c] / sum)
	}
	return out, nil
}

func (m *Model) Kind() string { return kindMaximumEntropy }

// Transform adds the Score and PredictedLabel columns. Ties go to the
// lower key.
func (m *Model) Transform(f *data.Frame) (*data.Frame, error) {
	feats, err := f.Vectors(m.params.FeatureColumn)
	if err != nil {
		return nil, err
	}

	scores := make(data.ScoreColumn, len(feats))
	predicted := &data.KeyColumn{Keys: make([]uint32, len(feats)), Values: m.params.Labels}
	for r, x := range feats {
		p, err := m.Probabilities(x)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", r)
		}
		scores[r] = p
		predicted.Keys[r] = uint32(argmax(p) + 1)
	}

	next := f.Clone()
	if err := next.Set(ScoreColumn, scores); err != nil {
		return nil, err
	}
	if err := next.Set(PredictedLabelColumn, predicted); err != nil {
		return nil, err
	}
	return next, nil
}

func (m *Model) tensorName(part string) string {
	return kindMaximumEntropy + "/" + m.params.FeatureColumn + "/" + part
}

func (m *Model) Encode(ts *pipeline.Tensors) (any, error) {
	k := len(m.params.Labels)
	if err := ts.Put(m.tensorName("weights"), []int{k, m.params.Dim}, m.weights); err != nil {
		return nil, err
	}
	if err := ts.Put(m.tensorName("bias"), []int{k}, m.bias); err != nil {
		return nil, err
	}
	return m.params, nil
}

func decodeModel(raw json.RawMessage, ts *pipeline.Tensors) (pipeline.Transformer, error) {
	m := &Model{}
	if err := json.Unmarshal(raw, &m.params); err != nil {
		return nil, err
	}
	k := len(m.params.Labels)
	if k == 0 || m.params.Dim <= 0 {
		return nil, errors.Errorf("invalid model shape: %d classes, dim %d", k, m.params.Dim)
	}

	w, err := ts.Get(m.tensorName("weights"))
	if err != nil {
		return nil, err
	}
	if len(w.Data) != k*m.params.Dim {
		return nil, errors.Errorf("weights have %d values, want %d", len(w.Data), k*m.params.Dim)
	}
	b, err := ts.Get(m.tensorName("bias"))
	if err != nil {
		return nil, err
	}
	if len(b.Data) != k {
		return nil, errors.Errorf("bias has %d values, want %d", len(b.Data), k)
	}
	m.weights, m.bias = w.Data, b.Data
	return m, nil
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
