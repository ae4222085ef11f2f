// Package pipeline declares and fits chains of column transforms over a
// data.Frame.
//
// A Pipeline is an ordered recipe of Estimators. Fitting it walks the
// steps in order: each estimator is fitted on the frame produced by the
// previous step's transformer, and the resulting Transformers form a
// Model that can be applied to new data or persisted with modelfile.
package pipeline

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
)

var (
	ErrEmptyPipeline = errors.New("pipeline has no steps")
	ErrMissingInput  = errors.New("step input column is not produced by the source or an earlier step")
	ErrSchema        = errors.New("input frame does not match the model schema")
)

// Estimator is one declared step. Fit learns whatever state the step
// needs from the frame and returns the transformer that applies it.
type Estimator interface {
	Name() string
	Inputs() []string
	Outputs() []string
	Fit(f *data.Frame) (Transformer, error)
}

// Transformer is a fitted step. Transform must not modify its input frame.
type Transformer interface {
	// Kind identifies the step type in persisted models.
	Kind() string
	Transform(f *data.Frame) (*data.Frame, error)
	// Encode returns the JSON-serializable parameters of the step and
	// stores any weight tensors in ts.
	Encode(ts *Tensors) (any, error)
}

// Pipeline is an immutable, ordered list of estimators.
type Pipeline struct {
	steps []Estimator
}

// New creates a pipeline from steps.
func New(steps ...Estimator) *Pipeline {
	return &Pipeline{steps: append([]Estimator(nil), steps...)}
}

// Append returns a new pipeline with steps added after p's steps.
func (p *Pipeline) Append(steps ...Estimator) *Pipeline {
	out := make([]Estimator, 0, len(p.steps)+len(steps))
	out = append(out, p.steps...)
	out = append(out, steps...)
	return &Pipeline{steps: out}
}

// Steps returns the declared estimators in order.
func (p *Pipeline) Steps() []Estimator {
	return append([]Estimator(nil), p.steps...)
}

// Fit validates the column wiring against f's schema, then fits every
// step in order. f itself is not modified.
func (p *Pipeline) Fit(f *data.Frame) (*Model, error) {
	source := f.Schema()
	if err := p.Validate(source); err != nil {
		return nil, err
	}

	cur := f
	steps := make([]Transformer, 0, len(p.steps))
	for i, est := range p.steps {
		start := time.Now()
		t, err := est.Fit(cur)
		if err != nil {
			closeAll(steps)
			return nil, errors.Wrapf(err, "pipeline: fit step %d (%s)", i, est.Name())
		}
		steps = append(steps, t)
		if cur, err = t.Transform(cur); err != nil {
			closeAll(steps)
			return nil, errors.Wrapf(err, "pipeline: transform step %d (%s)", i, est.Name())
		}
		slog.Debug("pipeline step fitted", "step", est.Name(), "rows", cur.Rows(), "elapsed", time.Since(start))
	}
	return NewModel(source, steps...), nil
}

// Model is a fitted pipeline: the input schema it was trained on and its
// transformers in order.
type Model struct {
	schema data.Schema
	steps  []Transformer
}

// NewModel assembles a model from already fitted transformers.
func NewModel(schema data.Schema, steps ...Transformer) *Model {
	return &Model{schema: schema, steps: steps}
}

// Schema returns the input schema the model expects.
func (m *Model) Schema() data.Schema {
	out := make(data.Schema, len(m.schema))
	copy(out, m.schema)
	return out
}

// Steps returns the fitted transformers in order.
func (m *Model) Steps() []Transformer {
	return append([]Transformer(nil), m.steps...)
}

// Transform runs f through every step. f must contain the model's input
// columns with matching kinds.
func (m *Model) Transform(f *data.Frame) (*data.Frame, error) {
	have := f.Schema()
	for _, field := range m.schema {
		i := have.Index(field.Name)
		if i < 0 || have[i].Kind != field.Kind {
			return nil, errors.Wrapf(ErrSchema, "column %q (%s)", field.Name, field.Kind)
		}
	}

	cur := f
	for i, t := range m.steps {
		var err error
		if cur, err = t.Transform(cur); err != nil {
			return nil, errors.Wrapf(err, "pipeline: step %d (%s)", i, t.Kind())
		}
	}
	return cur, nil
}

// Close releases resources held by steps (ONNX sessions).
func (m *Model) Close() error {
	return closeAll(m.steps)
}

func closeAll(steps []Transformer) error {
	var first error
	for _, t := range steps {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
