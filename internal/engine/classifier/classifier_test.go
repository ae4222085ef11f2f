package classifier

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/pipeline"
)

func sparse(dim int, idx ...int32) data.Vector {
	vals := make([]float32, len(idx))
	for i := range vals {
		vals[i] = 1
	}
	return data.Vector{Dim: dim, Indices: idx, Values: vals}
}

// toyFrame has three classes, each identified by its own feature indices.
func toyFrame(t *testing.T) *data.Frame {
	t.Helper()
	f := data.NewFrame(6)
	require.NoError(t, f.Set("Label", &data.KeyColumn{
		Keys:   []uint32{1, 2, 3, 1, 2, 3},
		Values: []string{"net", "io", "data"},
	}))
	require.NoError(t, f.Set("Features", data.VectorColumn{
		sparse(8, 0, 1), sparse(8, 2, 3), sparse(8, 4, 5),
		sparse(8, 0, 6), sparse(8, 3, 7), sparse(8, 5),
	}))
	return f
}

func fit(t *testing.T, f *data.Frame, opts Options) *Model {
	t.Helper()
	tr, err := NewMaximumEntropy(opts).Fit(f)
	require.NoError(t, err)
	return tr.(*Model)
}

func TestFitLearnsTrainingLabels(t *testing.T) {
	f := toyFrame(t)
	m := fit(t, f, DefaultOptions())

	out, err := m.Transform(f)
	require.NoError(t, err)

	pred, err := out.Keys(PredictedLabelColumn)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3, 1, 2, 3}, pred.Keys)
	assert.Equal(t, "data", pred.Value(2))

	scores, err := out.Scores(ScoreColumn)
	require.NoError(t, err)
	for _, row := range scores {
		require.Len(t, row, 3)
		var sum float32
		for _, p := range row {
			assert.GreaterOrEqual(t, p, float32(0))
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestFitIsDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.Seed = 42
	a := fit(t, toyFrame(t), opts)
	b := fit(t, toyFrame(t), opts)
	assert.Equal(t, a.weights, b.weights)
	assert.Equal(t, a.bias, b.bias)
}

func TestFitSkipsMissingLabels(t *testing.T) {
	f := data.NewFrame(2)
	require.NoError(t, f.Set("Label", &data.KeyColumn{Keys: []uint32{0, 0}, Values: []string{"a"}}))
	require.NoError(t, f.Set("Features", data.VectorColumn{sparse(4, 0), sparse(4, 1)}))

	_, err := NewMaximumEntropy(DefaultOptions()).Fit(f)
	assert.True(t, errors.Is(err, ErrNoLabeledRows))
}

func TestFitDimensionMismatch(t *testing.T) {
	f := data.NewFrame(2)
	require.NoError(t, f.Set("Label", &data.KeyColumn{Keys: []uint32{1, 2}, Values: []string{"a", "b"}}))
	require.NoError(t, f.Set("Features", data.VectorColumn{sparse(4, 0), sparse(5, 1)}))

	_, err := NewMaximumEntropy(DefaultOptions()).Fit(f)
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestTransformRejectsWrongDimension(t *testing.T) {
	m := fit(t, toyFrame(t), DefaultOptions())

	f := data.NewFrame(1)
	require.NoError(t, f.Set("Features", data.VectorColumn{sparse(3, 0)}))
	_, err := m.Transform(f)
	assert.True(t, errors.Is(err, ErrDimension))
}

func TestEncodeDecode(t *testing.T) {
	m := fit(t, toyFrame(t), DefaultOptions())

	ts := pipeline.NewTensors()
	params, err := m.Encode(ts)
	require.NoError(t, err)
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	decoded, err := pipeline.Decode(m.Kind(), raw, ts)
	require.NoError(t, err)
	got := decoded.(*Model)

	assert.Equal(t, m.Labels(), got.Labels())
	x := sparse(8, 2, 3)
	want, err := m.Probabilities(x)
	require.NoError(t, err)
	have, err := got.Probabilities(x)
	require.NoError(t, err)
	assert.Equal(t, want, have)
}

func TestOptionsValidate(t *testing.T) {
	tcs := map[string]func(*Options){
		"no label":    func(o *Options) { o.LabelColumn = "" },
		"zero epochs": func(o *Options) { o.Epochs = 0 },
		"zero rate":   func(o *Options) { o.LearningRate = 0 },
		"negative l2": func(o *Options) { o.L2 = -1 },
	}
	for name, mutate := range tcs {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			mutate(&opts)
			_, err := NewMaximumEntropy(opts).Fit(toyFrame(t))
			assert.True(t, errors.Is(err, ErrInvalidOptions))
		})
	}
}
