package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when TRIAGE_CONFIG is unset.
const DefaultPath = "triage.yaml"

var ErrInvalid = errors.New("invalid configuration")

// Config holds all triage configuration.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Model      ModelConfig      `yaml:"model"`
	Train      TrainConfig      `yaml:"train"`
	Featurizer FeaturizerConfig `yaml:"featurizer"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	History    HistoryConfig    `yaml:"history"`
	Log        LogConfig        `yaml:"log"`
}

// DataConfig locates the labeled issue files.
type DataConfig struct {
	TrainPath string `yaml:"train_path"`
	TestPath  string `yaml:"test_path"`
	HasHeader bool   `yaml:"has_header"`
}

// ModelConfig controls model persistence.
type ModelConfig struct {
	Path      string `yaml:"path"`
	GraphPath string `yaml:"graph_path"` // pipeline DOT graph, written when set
}

// TrainConfig holds trainer and evaluation settings.
type TrainConfig struct {
	Seed         int64   `yaml:"seed"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	L2           float64 `yaml:"l2"`
	TopK         int     `yaml:"top_k"`
}

// FeaturizerConfig holds text featurization settings.
type FeaturizerConfig struct {
	HashBits   int `yaml:"hash_bits"`
	WordNgrams int `yaml:"word_ngrams"`
	CharNgrams int `yaml:"char_ngrams"`
}

// EmbeddingConfig enables the ONNX sentence embedding feature when
// ModelPath is set.
type EmbeddingConfig struct {
	ModelPath   string `yaml:"model_path"`
	VocabPath   string `yaml:"vocab_path"`
	LibraryPath string `yaml:"library_path"`
	MaxSeqLen   int    `yaml:"max_seq_len"`
}

// Enabled reports whether an embedding model is configured.
func (c EmbeddingConfig) Enabled() bool { return c.ModelPath != "" }

// HistoryConfig enables the run history database when DBPath is set.
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// LogConfig configures the slog default logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Data: DataConfig{
			TrainPath: "Data/issues_train.tsv",
			TestPath:  "Data/issues_test.tsv",
			HasHeader: true,
		},
		Model: ModelConfig{
			Path: "Models/model.bin",
		},
		Train: TrainConfig{
			Epochs:       20,
			LearningRate: 0.5,
			L2:           1e-4,
			TopK:         3,
		},
		Featurizer: FeaturizerConfig{
			HashBits:   16,
			WordNgrams: 2,
			CharNgrams: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load starts from Default, applies the YAML file named by TRIAGE_CONFIG
// (or triage.yaml, skipped if absent), then TRIAGE_* environment
// variables, and validates the result.
func Load() (Config, error) {
	cfg := Default()

	path := os.Getenv("TRIAGE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := loadFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string, required bool) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) && !required {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "config: read file")
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return errors.Wrapf(err, "config: parse %s", path)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.Data.TrainPath, "TRIAGE_TRAIN_PATH")
	envOverride(&cfg.Data.TestPath, "TRIAGE_TEST_PATH")
	envOverride(&cfg.Model.Path, "TRIAGE_MODEL_PATH")
	envOverride(&cfg.Model.GraphPath, "TRIAGE_GRAPH_PATH")
	envOverride(&cfg.Embedding.ModelPath, "TRIAGE_EMBED_MODEL_PATH")
	envOverride(&cfg.Embedding.VocabPath, "TRIAGE_EMBED_VOCAB_PATH")
	envOverride(&cfg.Embedding.LibraryPath, "TRIAGE_ONNX_LIBRARY")
	envOverride(&cfg.History.DBPath, "TRIAGE_HISTORY_DB")
	envOverride(&cfg.Log.Level, "TRIAGE_LOG_LEVEL")
	envOverride(&cfg.Log.Format, "TRIAGE_LOG_FORMAT")

	for _, err := range []error{
		envOverrideBool(&cfg.Data.HasHeader, "TRIAGE_HAS_HEADER"),
		envOverrideInt64(&cfg.Train.Seed, "TRIAGE_SEED"),
		envOverrideInt(&cfg.Train.Epochs, "TRIAGE_EPOCHS"),
		envOverrideFloat(&cfg.Train.LearningRate, "TRIAGE_LEARNING_RATE"),
		envOverrideFloat(&cfg.Train.L2, "TRIAGE_L2"),
		envOverrideInt(&cfg.Train.TopK, "TRIAGE_TOP_K"),
		envOverrideInt(&cfg.Featurizer.HashBits, "TRIAGE_HASH_BITS"),
		envOverrideInt(&cfg.Featurizer.WordNgrams, "TRIAGE_WORD_NGRAMS"),
		envOverrideInt(&cfg.Featurizer.CharNgrams, "TRIAGE_CHAR_NGRAMS"),
		envOverrideInt(&cfg.Embedding.MaxSeqLen, "TRIAGE_EMBED_MAX_SEQ_LEN"),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks paths and option ranges that can be checked without
// touching the filesystem.
func (c Config) Validate() error {
	switch {
	case c.Data.TrainPath == "" || c.Data.TestPath == "":
		return errors.Wrap(ErrInvalid, "train and test paths are required")
	case c.Model.Path == "":
		return errors.Wrap(ErrInvalid, "model path is required")
	case c.Train.Epochs < 1:
		return errors.Wrapf(ErrInvalid, "epochs %d < 1", c.Train.Epochs)
	case !(c.Train.LearningRate > 0):
		return errors.Wrapf(ErrInvalid, "learning rate %v must be positive", c.Train.LearningRate)
	case c.Train.L2 < 0:
		return errors.Wrapf(ErrInvalid, "l2 %v is negative", c.Train.L2)
	case c.Train.TopK < 1:
		return errors.Wrapf(ErrInvalid, "top_k %d < 1", c.Train.TopK)
	case c.Embedding.Enabled() && c.Embedding.VocabPath == "":
		return errors.Wrap(ErrInvalid, "embedding vocab path is required with an embedding model")
	case c.Featurizer.HashBits < 4 || c.Featurizer.HashBits > 24:
		return errors.Wrapf(ErrInvalid, "hash_bits %d out of range [4, 24]", c.Featurizer.HashBits)
	case c.Featurizer.WordNgrams < 0 || c.Featurizer.WordNgrams > 4:
		return errors.Wrapf(ErrInvalid, "word_ngrams %d out of range [0, 4]", c.Featurizer.WordNgrams)
	case c.Featurizer.CharNgrams < 0 || c.Featurizer.CharNgrams > 6:
		return errors.Wrapf(ErrInvalid, "char_ngrams %d out of range [0, 6]", c.Featurizer.CharNgrams)
	case c.Featurizer.WordNgrams == 0 && c.Featurizer.CharNgrams == 0:
		return errors.Wrap(ErrInvalid, "word and char n-grams both disabled")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Wrapf(ErrInvalid, "log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalid, "log format %q", c.Log.Format)
	}
	return nil
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "%s=%q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func envOverrideInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "%s=%q is not an integer", key, v)
	}
	*dst = n
	return nil
}

func envOverrideFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "%s=%q is not a number", key, v)
	}
	*dst = f
	return nil
}

func envOverrideBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "%s=%q is not a boolean", key, v)
	}
	*dst = b
	return nil
}
