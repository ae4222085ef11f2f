package pipeline

import "github.com/pkg/errors"

// Tensor is a named block of float32 weights.
type Tensor struct {
	Shape []int
	Data  []float32
}

// Tensors collects the weight tensors of a model's steps. Insertion order
// is kept so persisted files are byte-for-byte reproducible.
type Tensors struct {
	names []string
	m     map[string]Tensor
}

// NewTensors returns an empty tensor set.
func NewTensors() *Tensors {
	return &Tensors{m: make(map[string]Tensor)}
}

// Put stores a tensor. The product of shape must equal len(data).
func (ts *Tensors) Put(name string, shape []int, values []float32) error {
	if _, ok := ts.m[name]; ok {
		return errors.Errorf("tensor %q already stored", name)
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return errors.Errorf("tensor %q: negative dimension in %v", name, shape)
		}
		n *= d
	}
	if n != len(values) {
		return errors.Errorf("tensor %q: shape %v needs %d values, got %d", name, shape, n, len(values))
	}
	ts.names = append(ts.names, name)
	ts.m[name] = Tensor{Shape: append([]int(nil), shape...), Data: values}
	return nil
}

// Get returns a stored tensor.
func (ts *Tensors) Get(name string) (Tensor, error) {
	t, ok := ts.m[name]
	if !ok {
		return Tensor{}, errors.Errorf("tensor %q not found", name)
	}
	return t, nil
}

// Names lists tensor names in insertion order.
func (ts *Tensors) Names() []string {
	return append([]string(nil), ts.names...)
}
