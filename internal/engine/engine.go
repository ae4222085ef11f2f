// Package engine ties data loading, the feature pipeline, training,
// evaluation and persistence into one session object.
package engine

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/engine/classifier"
	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/featurizer"
	"github.com/crimson-sun/triage/internal/engine/metrics"
	"github.com/crimson-sun/triage/internal/engine/modelfile"
	"github.com/crimson-sun/triage/internal/pipeline"
)

// Column names produced by the issue pipeline.
const (
	LabelColumn                 = "Label"
	TitleFeaturizedColumn       = "TitleFeaturized"
	DescriptionFeaturizedColumn = "DescriptionFeaturized"
	EmbeddingColumn             = "TextEmbedding"
	FeaturesColumn              = "Features"
)

// Options configures an Engine.
type Options struct {
	Seed       int64
	HasHeader  bool
	Featurizer featurizer.Options
	Trainer    classifier.Options
	TopK       int

	// Embedding adds a dense sentence embedding of Title and Description
	// to the features when non-nil.
	Embedding *embedder.Config
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		HasHeader:  true,
		Featurizer: featurizer.DefaultOptions(),
		Trainer:    classifier.DefaultOptions(),
		TopK:       metrics.DefaultOptions().TopK,
	}
}

// Engine is a training session. It holds only configuration; data frames
// and fitted models are passed in and returned explicitly.
type Engine struct {
	opts Options
}

// New validates opts and creates an Engine. Options.Seed overrides the
// trainer seed.
func New(opts Options) (*Engine, error) {
	opts.Trainer.Seed = opts.Seed
	opts.Trainer.LabelColumn = LabelColumn
	opts.Trainer.FeatureColumn = FeaturesColumn
	if err := opts.Featurizer.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Trainer.Validate(); err != nil {
		return nil, err
	}
	if opts.TopK < 1 {
		return nil, errors.Errorf("engine: top-k %d < 1", opts.TopK)
	}
	return &Engine{opts: opts}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// LoadData reads an issue TSV file.
func (e *Engine) LoadData(path string) (*data.Frame, error) {
	f, err := data.LoadTSV(path, e.opts.HasHeader)
	if err != nil {
		return nil, err
	}
	slog.Info("data loaded", "path", path, "rows", f.Rows())
	return f, nil
}

// BuildPipeline declares the feature pipeline: Area is keyed into Label,
// Title and Description are featurized and concatenated into Features.
func (e *Engine) BuildPipeline() *pipeline.Pipeline {
	inputs := []string{TitleFeaturizedColumn, DescriptionFeaturizedColumn}
	steps := []pipeline.Estimator{
		pipeline.MapValueToKey(LabelColumn, "Area"),
		pipeline.FeaturizeText(TitleFeaturizedColumn, "Title", e.opts.Featurizer),
		pipeline.FeaturizeText(DescriptionFeaturizedColumn, "Description", e.opts.Featurizer),
	}
	if e.opts.Embedding != nil {
		steps = append(steps, pipeline.EmbedText(EmbeddingColumn, *e.opts.Embedding, "Title", "Description"))
		inputs = append(inputs, EmbeddingColumn)
	}
	steps = append(steps,
		pipeline.Concatenate(FeaturesColumn, inputs...),
		pipeline.CacheCheckpoint(),
	)
	return pipeline.New(steps...)
}

// Train appends the maximum entropy trainer and the PredictedLabel
// decoder to p and fits the whole chain on f.
func (e *Engine) Train(p *pipeline.Pipeline, f *data.Frame) (*pipeline.Model, error) {
	start := time.Now()
	full := p.Append(
		classifier.NewMaximumEntropy(e.opts.Trainer),
		pipeline.MapKeyToValue(classifier.PredictedLabelColumn),
	)
	m, err := full.Fit(f)
	if err != nil {
		return nil, errors.Wrap(err, "train")
	}
	slog.Info("model trained", "rows", f.Rows(), "steps", len(m.Steps()), "elapsed", time.Since(start))
	return m, nil
}

// Evaluate scores f with m and computes quality metrics. It does not
// persist anything.
func (e *Engine) Evaluate(m *pipeline.Model, f *data.Frame) (metrics.Metrics, error) {
	scored, err := m.Transform(f)
	if err != nil {
		return metrics.Metrics{}, errors.Wrap(err, "evaluate")
	}
	res, err := metrics.Evaluate(scored, metrics.Options{
		LabelColumn: LabelColumn,
		ScoreColumn: classifier.ScoreColumn,
		TopK:        e.opts.TopK,
	})
	if err != nil {
		return metrics.Metrics{}, errors.Wrap(err, "evaluate")
	}
	slog.Info("model evaluated",
		"rows", res.Rows,
		"skipped", res.Skipped,
		"micro_accuracy", res.MicroAccuracy,
		"macro_accuracy", res.MacroAccuracy)
	return res, nil
}

// Save writes m to path.
func (e *Engine) Save(path string, m *pipeline.Model) error {
	if err := modelfile.Save(path, m); err != nil {
		return err
	}
	slog.Info("model saved", "path", path)
	return nil
}

// Load reads a model saved by Save. The returned schema is the input
// layout the model expects.
func (e *Engine) Load(path string) (*pipeline.Model, data.Schema, error) {
	m, schema, err := modelfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("model loaded", "path", path, "steps", len(m.Steps()))
	return m, schema, nil
}
