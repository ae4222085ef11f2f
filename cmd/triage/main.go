package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/config"
	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/engine"
	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/engine/featurizer"
	"github.com/crimson-sun/triage/internal/history"
	"github.com/crimson-sun/triage/internal/logging"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/pipeline"
	"github.com/crimson-sun/triage/internal/report"
)

var (
	// smokeIssue is scored right after training.
	smokeIssue = model.Issue{
		Title:       "WebSockets communication is slow in my machine",
		Description: "The WebSockets communication used under the covers by SignalR looks like is going slow in my development machine..",
	}

	// sampleIssue is scored with the reloaded model.
	sampleIssue = model.Issue{
		Title:       "Entity Framework crashes",
		Description: "When connecting to the database, EF is crashing",
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	if err := run(context.Background(), cfg); err != nil {
		slog.Error("triage failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	started := time.Now()
	out := report.New(os.Stdout)

	eng, err := engine.New(engineOptions(cfg))
	if err != nil {
		return err
	}

	train, err := eng.LoadData(cfg.Data.TrainPath)
	if err != nil {
		return err
	}

	p := eng.BuildPipeline()
	if cfg.Model.GraphPath != "" {
		if err := writeGraph(cfg.Model.GraphPath, p, train); err != nil {
			return err
		}
	}

	trained, err := eng.Train(p, train)
	if err != nil {
		return err
	}
	defer trained.Close()

	smoke, err := predict(eng, trained, smokeIssue)
	if err != nil {
		return err
	}
	if err := out.TrainedPrediction(smoke); err != nil {
		return err
	}

	test, err := eng.LoadData(cfg.Data.TestPath)
	if err != nil {
		return err
	}
	m, err := eng.Evaluate(trained, test)
	if err != nil {
		return err
	}
	if err := out.Metrics(m); err != nil {
		return err
	}
	if err := out.PerClass(m); err != nil {
		return err
	}

	if err := eng.Save(cfg.Model.Path, trained); err != nil {
		return err
	}

	loaded, _, err := eng.Load(cfg.Model.Path)
	if err != nil {
		return err
	}
	defer loaded.Close()

	pred, err := predict(eng, loaded, sampleIssue)
	if err != nil {
		return err
	}
	if err := out.Prediction(pred); err != nil {
		return err
	}

	if cfg.History.DBPath == "" {
		return nil
	}
	return recordRun(ctx, cfg, history.Run{
		StartedAt:  started,
		FinishedAt: time.Now(),
		TrainPath:  cfg.Data.TrainPath,
		TestPath:   cfg.Data.TestPath,
		ModelPath:  cfg.Model.Path,
		Seed:       cfg.Train.Seed,
		Metrics:    m,
		Prediction: pred.Area,
	})
}

func engineOptions(cfg config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.Seed = cfg.Train.Seed
	opts.HasHeader = cfg.Data.HasHeader
	opts.TopK = cfg.Train.TopK
	opts.Featurizer = featurizer.Options{
		HashBits:   cfg.Featurizer.HashBits,
		WordNgrams: cfg.Featurizer.WordNgrams,
		CharNgrams: cfg.Featurizer.CharNgrams,
	}
	opts.Trainer.Epochs = cfg.Train.Epochs
	opts.Trainer.LearningRate = cfg.Train.LearningRate
	opts.Trainer.L2 = cfg.Train.L2
	if cfg.Embedding.Enabled() {
		opts.Embedding = &embedder.Config{
			ModelPath:   cfg.Embedding.ModelPath,
			VocabPath:   cfg.Embedding.VocabPath,
			LibraryPath: cfg.Embedding.LibraryPath,
			MaxSeqLen:   cfg.Embedding.MaxSeqLen,
		}
	}
	return opts
}

func predict(eng *engine.Engine, m *pipeline.Model, issue model.Issue) (model.Prediction, error) {
	pred, err := eng.NewPredictor(m)
	if err != nil {
		return model.Prediction{}, err
	}
	return pred.Predict(issue)
}

func writeGraph(path string, p *pipeline.Pipeline, train *data.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create graph file")
	}
	if err := p.WriteDOT(f, train.Schema()); err != nil {
		f.Close()
		return errors.Wrap(err, "write graph")
	}
	slog.Info("pipeline graph written", "path", path)
	return errors.Wrap(f.Close(), "close graph file")
}

func recordRun(ctx context.Context, cfg config.Config, run history.Run) error {
	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Record(ctx, run)
	if err != nil {
		return err
	}
	slog.Info("run recorded", "id", id, "db", cfg.History.DBPath)
	return nil
}
