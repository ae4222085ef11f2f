package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/featurizer"
)

const (
	kindFeaturizeText = "featurize_text"
	kindEmbedText     = "embed_text"

	embedBatchSize = 32
)

type featurizeParams struct {
	Output  string             `json:"output"`
	Input   string             `json:"input"`
	Options featurizer.Options `json:"options"`
}

// FeaturizeText turns a text column into sparse n-gram vectors.
func FeaturizeText(output, input string, opts featurizer.Options) Estimator {
	return &featurizeEstimator{params: featurizeParams{Output: output, Input: input, Options: opts}}
}

type featurizeEstimator struct {
	params featurizeParams
}

func (e *featurizeEstimator) Name() string      { return "FeaturizeText(" + e.params.Output + ")" }
func (e *featurizeEstimator) Inputs() []string  { return []string{e.params.Input} }
func (e *featurizeEstimator) Outputs() []string { return []string{e.params.Output} }

func (e *featurizeEstimator) Fit(f *data.Frame) (Transformer, error) {
	if _, err := f.Text(e.params.Input); err != nil {
		return nil, err
	}
	return newFeaturizeText(e.params)
}

func newFeaturizeText(p featurizeParams) (*featurizeText, error) {
	fz, err := featurizer.NewText(p.Options)
	if err != nil {
		return nil, err
	}
	return &featurizeText{params: p, fz: fz}, nil
}

type featurizeText struct {
	params featurizeParams
	fz     *featurizer.TextFeaturizer
}

func (t *featurizeText) Kind() string { return kindFeaturizeText }

func (t *featurizeText) Transform(f *data.Frame) (*data.Frame, error) {
	col, err := f.Text(t.params.Input)
	if err != nil {
		return nil, err
	}
	out := make(data.VectorColumn, len(col))
	for i, text := range col {
		out[i] = t.fz.Featurize(text)
	}
	next := f.Clone()
	if err := next.Set(t.params.Output, out); err != nil {
		return nil, err
	}
	return next, nil
}

func (t *featurizeText) Encode(*Tensors) (any, error) { return t.params, nil }

func decodeFeaturizeText(raw json.RawMessage, _ *Tensors) (Transformer, error) {
	var p featurizeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return newFeaturizeText(p)
}

type embedParams struct {
	Output string          `json:"output"`
	Inputs []string        `json:"inputs"`
	Config embedder.Config `json:"config"`
}

// EmbedText embeds the newline-joined input text columns with an ONNX
// sentence encoder, producing dense unit vectors.
func EmbedText(output string, cfg embedder.Config, inputs ...string) Estimator {
	return &embedEstimator{params: embedParams{Output: output, Inputs: inputs, Config: cfg}}
}

type embedEstimator struct {
	params embedParams
}

func (e *embedEstimator) Name() string      { return "EmbedText(" + e.params.Output + ")" }
func (e *embedEstimator) Inputs() []string  { return e.params.Inputs }
func (e *embedEstimator) Outputs() []string { return []string{e.params.Output} }

func (e *embedEstimator) Fit(f *data.Frame) (Transformer, error) {
	for _, in := range e.params.Inputs {
		if _, err := f.Text(in); err != nil {
			return nil, err
		}
	}
	return openEmbedText(e.params)
}

func openEmbedText(p embedParams) (*embedText, error) {
	emb, err := embedder.New(p.Config)
	if err != nil {
		return nil, err
	}
	return &embedText{params: p, emb: emb}, nil
}

type embedText struct {
	params embedParams
	emb    embedder.Embedder
}

func (t *embedText) Kind() string { return kindEmbedText }

func (t *embedText) Transform(f *data.Frame) (*data.Frame, error) {
	cols := make([]data.TextColumn, len(t.params.Inputs))
	for i, in := range t.params.Inputs {
		col, err := f.Text(in)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	texts := make([]string, f.Rows())
	parts := make([]string, len(cols))
	for r := range texts {
		for i, col := range cols {
			parts[i] = col[r]
		}
		texts[r] = strings.Join(parts, "\n")
	}

	out := make(data.VectorColumn, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vecs, err := t.emb.EmbedBatch(texts[start:end])
		if err != nil {
			return nil, errors.Wrapf(err, "embed rows %d-%d", start, end-1)
		}
		for _, v := range vecs {
			out = append(out, data.Dense(v))
		}
	}

	next := f.Clone()
	if err := next.Set(t.params.Output, out); err != nil {
		return nil, err
	}
	return next, nil
}

func (t *embedText) Encode(*Tensors) (any, error) { return t.params, nil }

// Close releases the ONNX session.
func (t *embedText) Close() error { return t.emb.Close() }

func decodeEmbedText(raw json.RawMessage, _ *Tensors) (Transformer, error) {
	var p embedParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return openEmbedText(p)
}
