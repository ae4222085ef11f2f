package engine

import (
	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/engine/classifier"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/pipeline"
)

// ErrNotIssueModel is returned when a model does not accept issue records.
var ErrNotIssueModel = errors.New("engine: model does not take issue input")

// Predictor scores single issues with a fitted model.
type Predictor struct {
	model *pipeline.Model
}

// NewPredictor wraps m. The model must have been trained on the issue
// schema.
func (e *Engine) NewPredictor(m *pipeline.Model) (*Predictor, error) {
	if !m.Schema().Equal(data.IssueSchema) {
		return nil, errors.Wrapf(ErrNotIssueModel, "schema %v", m.Schema().Names())
	}
	return &Predictor{model: m}, nil
}

// Predict returns the predicted area of one issue. The issue's Area is
// ignored.
func (p *Predictor) Predict(issue model.Issue) (model.Prediction, error) {
	preds, err := p.PredictBatch([]model.Issue{issue})
	if err != nil {
		return model.Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch scores several issues in one pass through the model.
func (p *Predictor) PredictBatch(issues []model.Issue) ([]model.Prediction, error) {
	in := make([]model.Issue, len(issues))
	for i, is := range issues {
		is.Area = ""
		in[i] = is
	}
	out, err := p.model.Transform(data.FromIssues(in))
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}

	predicted, err := out.Text(classifier.PredictedLabelColumn)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	scores, err := out.Scores(classifier.ScoreColumn)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}
	labels, err := out.Keys(LabelColumn)
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}

	preds := make([]model.Prediction, len(in))
	for r := range preds {
		if len(scores[r]) != len(labels.Values) {
			return nil, errors.Errorf("predict: %d scores for %d labels", len(scores[r]), len(labels.Values))
		}
		pred := model.Prediction{
			Area:   predicted[r],
			Scores: make(map[string]float32, len(labels.Values)),
		}
		for i, area := range labels.Values {
			s := scores[r][i]
			pred.Scores[area] = s
			if area == pred.Area {
				pred.Score = s
			}
		}
		preds[r] = pred
	}
	return preds, nil
}

// Areas returns the labels the model can predict, in key order.
func (p *Predictor) Areas() []string {
	for _, st := range p.model.Steps() {
		if m, ok := st.(*classifier.Model); ok {
			return m.Labels()
		}
	}
	return nil
}
