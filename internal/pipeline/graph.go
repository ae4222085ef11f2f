package pipeline

import (
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
)

// Graph builds the column dependency graph of p over the source schema:
// column vertices feed step vertices, which produce new column vertices.
// A step that overwrites a column creates a new version of it, so the
// graph stays acyclic.
func (p *Pipeline) Graph(source data.Schema) (graph.Graph[string, string], error) {
	if len(p.steps) == 0 {
		return nil, ErrEmptyPipeline
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.Acyclic(), graph.PreventCycles())
	latest := make(map[string]string, len(source))

	for _, f := range source {
		v := "col:" + f.Name
		if err := g.AddVertex(v, graph.VertexAttribute("label", f.Name)); err != nil {
			return nil, errors.Wrapf(err, "pipeline: source column %q", f.Name)
		}
		latest[f.Name] = v
	}

	for i, st := range p.steps {
		sv := fmt.Sprintf("step:%d", i)
		err := g.AddVertex(sv,
			graph.VertexAttribute("label", st.Name()),
			graph.VertexAttribute("shape", "box"))
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline: step %d", i)
		}

		for _, in := range st.Inputs() {
			cv, ok := latest[in]
			if !ok {
				return nil, errors.Wrapf(ErrMissingInput, "step %d (%s) reads %q", i, st.Name(), in)
			}
			if err := g.AddEdge(cv, sv); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, errors.Wrapf(err, "pipeline: step %d input %q", i, in)
			}
		}

		for _, out := range st.Outputs() {
			cv := fmt.Sprintf("col:%s@%d", out, i)
			if err := g.AddVertex(cv, graph.VertexAttribute("label", out)); err != nil {
				return nil, errors.Wrapf(err, "pipeline: step %d output %q", i, out)
			}
			if err := g.AddEdge(sv, cv); err != nil {
				return nil, errors.Wrapf(err, "pipeline: step %d output %q", i, out)
			}
			latest[out] = cv
		}
	}
	return g, nil
}

// Validate checks that every step input is available when the step runs.
func (p *Pipeline) Validate(source data.Schema) error {
	_, err := p.Graph(source)
	return err
}

// WriteDOT renders the column graph in Graphviz DOT format.
func (p *Pipeline) WriteDOT(w io.Writer, source data.Schema) error {
	g, err := p.Graph(source)
	if err != nil {
		return err
	}
	return draw.DOT(g, w)
}
