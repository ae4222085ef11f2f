package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/crimson-sun/triage/internal/data"
)

const kindConcatenate = "concatenate"

type concatParams struct {
	Output string   `json:"output"`
	Inputs []string `json:"inputs"`
}

// Concatenate joins vector columns, in the given order, into one vector
// column.
func Concatenate(output string, inputs ...string) Estimator {
	return &concat{params: concatParams{Output: output, Inputs: inputs}}
}

// concat needs no fitting, so one type serves as estimator and transformer.
type concat struct {
	params concatParams
}

func (c *concat) Name() string {
	return "Concatenate(" + c.params.Output + " <- " + strings.Join(c.params.Inputs, ", ") + ")"
}
func (c *concat) Inputs() []string  { return c.params.Inputs }
func (c *concat) Outputs() []string { return []string{c.params.Output} }

func (c *concat) Fit(f *data.Frame) (Transformer, error) {
	for _, in := range c.params.Inputs {
		if _, err := f.Vectors(in); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *concat) Kind() string { return kindConcatenate }

func (c *concat) Transform(f *data.Frame) (*data.Frame, error) {
	cols := make([]data.VectorColumn, len(c.params.Inputs))
	for i, in := range c.params.Inputs {
		col, err := f.Vectors(in)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}

	out := make(data.VectorColumn, f.Rows())
	parts := make([]data.Vector, len(cols))
	for r := range out {
		for i, col := range cols {
			parts[i] = col[r]
		}
		out[r] = data.Concat(parts...)
	}

	next := f.Clone()
	if err := next.Set(c.params.Output, out); err != nil {
		return nil, err
	}
	return next, nil
}

func (c *concat) Encode(*Tensors) (any, error) { return c.params, nil }

func decodeConcatenate(raw json.RawMessage, _ *Tensors) (Transformer, error) {
	c := &concat{}
	if err := json.Unmarshal(raw, &c.params); err != nil {
		return nil, err
	}
	return c, nil
}
