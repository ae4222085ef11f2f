package pipeline

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
)

const (
	kindValueToKey = "map_value_to_key"
	kindKeyToValue = "map_key_to_value"
)

// MapValueToKey encodes a text column as keys. Keys are assigned 1, 2, ...
// in order of first appearance in the training frame; empty and unseen
// values map to key 0 (missing).
func MapValueToKey(output, input string) Estimator {
	return &valueToKeyEstimator{input: input, output: output}
}

type valueToKeyEstimator struct {
	input, output string
}

func (e *valueToKeyEstimator) Name() string      { return "MapValueToKey(" + e.output + ")" }
func (e *valueToKeyEstimator) Inputs() []string  { return []string{e.input} }
func (e *valueToKeyEstimator) Outputs() []string { return []string{e.output} }

func (e *valueToKeyEstimator) Fit(f *data.Frame) (Transformer, error) {
	col, err := f.Text(e.input)
	if err != nil {
		return nil, err
	}
	t := &valueToKey{params: valueToKeyParams{Input: e.input, Output: e.output}}
	seen := make(map[string]bool)
	for _, v := range col {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		t.params.Values = append(t.params.Values, v)
	}
	if len(t.params.Values) == 0 {
		return nil, errors.Errorf("column %q has no values", e.input)
	}
	t.index()
	return t, nil
}

type valueToKeyParams struct {
	Input  string   `json:"input"`
	Output string   `json:"output"`
	Values []string `json:"values"`
}

type valueToKey struct {
	params valueToKeyParams
	keys   map[string]uint32
}

func (t *valueToKey) index() {
	t.keys = make(map[string]uint32, len(t.params.Values))
	for i, v := range t.params.Values {
		t.keys[v] = uint32(i + 1)
	}
}

func (t *valueToKey) Kind() string { return kindValueToKey }

func (t *valueToKey) Transform(f *data.Frame) (*data.Frame, error) {
	col, err := f.Text(t.params.Input)
	if err != nil {
		return nil, err
	}
	out := &data.KeyColumn{Keys: make([]uint32, len(col)), Values: t.params.Values}
	for i, v := range col {
		out.Keys[i] = t.keys[v]
	}
	next := f.Clone()
	if err := next.Set(t.params.Output, out); err != nil {
		return nil, err
	}
	return next, nil
}

func (t *valueToKey) Encode(*Tensors) (any, error) { return t.params, nil }

func decodeValueToKey(raw json.RawMessage, _ *Tensors) (Transformer, error) {
	t := &valueToKey{}
	if err := json.Unmarshal(raw, &t.params); err != nil {
		return nil, err
	}
	t.index()
	return t, nil
}

// MapKeyToValue replaces a key column with its decoded text values.
// Missing keys decode to "".
func MapKeyToValue(column string) Estimator {
	return &keyToValueEstimator{params: keyToValueParams{Input: column, Output: column}}
}

type keyToValueParams struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type keyToValueEstimator struct {
	params keyToValueParams
}

func (e *keyToValueEstimator) Name() string      { return "MapKeyToValue(" + e.params.Output + ")" }
func (e *keyToValueEstimator) Inputs() []string  { return []string{e.params.Input} }
func (e *keyToValueEstimator) Outputs() []string { return []string{e.params.Output} }

func (e *keyToValueEstimator) Fit(f *data.Frame) (Transformer, error) {
	if _, err := f.Keys(e.params.Input); err != nil {
		return nil, err
	}
	return &keyToValue{params: e.params}, nil
}

type keyToValue struct {
	params keyToValueParams
}

func (t *keyToValue) Kind() string { return kindKeyToValue }

func (t *keyToValue) Transform(f *data.Frame) (*data.Frame, error) {
	col, err := f.Keys(t.params.Input)
	if err != nil {
		return nil, err
	}
	out := make(data.TextColumn, col.Len())
	for i := range out {
		out[i] = col.Value(i)
	}
	next := f.Clone()
	if err := next.Set(t.params.Output, out); err != nil {
		return nil, err
	}
	return next, nil
}

func (t *keyToValue) Encode(*Tensors) (any, error) { return t.params, nil }

func decodeKeyToValue(raw json.RawMessage, _ *Tensors) (Transformer, error) {
	t := &keyToValue{}
	if err := json.Unmarshal(raw, &t.params); err != nil {
		return nil, err
	}
	return t, nil
}
