package triage

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/engine"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/pipeline"
)

// Classifier predicts issue areas with a saved model.
type Classifier struct {
	mu        sync.Mutex // serializes inference; embedding steps hold an ONNX session
	model     *pipeline.Model
	predictor *engine.Predictor
	minScore  float32
}

// New loads a model and prepares it for classification.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	eng, err := engine.New(engine.DefaultOptions())
	if err != nil {
		return nil, errors.Wrap(err, "triage")
	}
	m, _, err := eng.Load(o.modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "triage")
	}
	pred, err := eng.NewPredictor(m)
	if err != nil {
		m.Close()
		return nil, errors.Wrap(err, "triage")
	}
	return &Classifier{model: m, predictor: pred, minScore: o.minScore}, nil
}

// Areas lists the labels the model can predict.
func (c *Classifier) Areas() []string {
	return c.predictor.Areas()
}

// Classify predicts the area of one issue.
func (c *Classifier) Classify(title, description string) (Result, error) {
	res, err := c.ClassifyBatch([]Issue{{Title: title, Description: description}})
	if err != nil {
		return Result{}, err
	}
	return res[0], nil
}

// ClassifyBatch predicts areas for several issues in one pass.
func (c *Classifier) ClassifyBatch(issues []Issue) ([]Result, error) {
	in := make([]model.Issue, len(issues))
	for i, is := range issues {
		in[i] = model.Issue{Title: is.Title, Description: is.Description}
	}

	c.mu.Lock()
	preds, err := c.predictor.PredictBatch(in)
	c.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "triage")
	}

	out := make([]Result, len(preds))
	for i, p := range preds {
		out[i] = Result{Area: p.Area, Confidence: p.Score, Scores: p.Scores}
		if p.Score < c.minScore {
			out[i].Area = Unclassified
		}
	}
	return out, nil
}

// Close releases model resources.
func (c *Classifier) Close() error {
	return c.model.Close()
}
