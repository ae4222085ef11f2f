package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

var envKeys = []string{
	"TRIAGE_TRAIN_PATH", "TRIAGE_TEST_PATH", "TRIAGE_HAS_HEADER", "TRIAGE_MODEL_PATH",
	"TRIAGE_GRAPH_PATH", "TRIAGE_SEED", "TRIAGE_EPOCHS", "TRIAGE_LEARNING_RATE", "TRIAGE_L2",
	"TRIAGE_TOP_K", "TRIAGE_HASH_BITS", "TRIAGE_WORD_NGRAMS", "TRIAGE_CHAR_NGRAMS",
	"TRIAGE_EMBED_MODEL_PATH", "TRIAGE_EMBED_VOCAB_PATH", "TRIAGE_ONNX_LIBRARY",
	"TRIAGE_EMBED_MAX_SEQ_LEN", "TRIAGE_HISTORY_DB", "TRIAGE_LOG_LEVEL", "TRIAGE_LOG_FORMAT",
}

// clearEnv unsets every TRIAGE_* variable for the test and points
// TRIAGE_CONFIG at path ("" leaves it unset).
func clearEnv(t *testing.T, path string) {
	t.Helper()
	for _, key := range append(envKeys, "TRIAGE_CONFIG") {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	if path != "" {
		t.Setenv("TRIAGE_CONFIG", path)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "triage.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "")
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, want)
	}
	if cfg.Data.TrainPath != "Data/issues_train.tsv" || cfg.Model.Path != "Models/model.bin" {
		t.Fatalf("unexpected default paths: %+v", cfg)
	}
	if cfg.Embedding.Enabled() {
		t.Fatal("embedding should be disabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t, writeFile(t, `
data:
  train_path: /data/train.tsv
train:
  seed: 7
  epochs: 5
featurizer:
  hash_bits: 12
history:
  db_path: runs.db
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Data.TrainPath != "/data/train.tsv" {
		t.Fatalf("TrainPath = %q", cfg.Data.TrainPath)
	}
	if cfg.Data.TestPath != "Data/issues_test.tsv" {
		t.Fatalf("unset keys should keep defaults, TestPath = %q", cfg.Data.TestPath)
	}
	if cfg.Train.Seed != 7 || cfg.Train.Epochs != 5 || cfg.Featurizer.HashBits != 12 {
		t.Fatalf("file values not applied: %+v", cfg.Train)
	}
	if cfg.History.DBPath != "runs.db" {
		t.Fatalf("DBPath = %q", cfg.History.DBPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t, writeFile(t, "train:\n  seed: 7\n"))
	t.Setenv("TRIAGE_SEED", "11")
	t.Setenv("TRIAGE_LEARNING_RATE", "0.25")
	t.Setenv("TRIAGE_HAS_HEADER", "false")
	t.Setenv("TRIAGE_MODEL_PATH", "out/m.bin")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Train.Seed != 11 {
		t.Fatalf("Seed = %d, want 11", cfg.Train.Seed)
	}
	if cfg.Train.LearningRate != 0.25 {
		t.Fatalf("LearningRate = %v", cfg.Train.LearningRate)
	}
	if cfg.Data.HasHeader {
		t.Fatal("HasHeader should be false")
	}
	if cfg.Model.Path != "out/m.bin" {
		t.Fatalf("Model.Path = %q", cfg.Model.Path)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"bad integer", "", map[string]string{"TRIAGE_EPOCHS": "many"}},
		{"bad bool", "", map[string]string{"TRIAGE_HAS_HEADER": "sometimes"}},
		{"zero epochs", "train:\n  epochs: 0\n", nil},
		{"negative l2", "", map[string]string{"TRIAGE_L2": "-1"}},
		{"bad log format", "", map[string]string{"TRIAGE_LOG_FORMAT": "xml"}},
		{"embedding without vocab", "", map[string]string{"TRIAGE_EMBED_MODEL_PATH": "m.onnx"}},
		{"hash bits too large", "", map[string]string{"TRIAGE_HASH_BITS": "40"}},
		{"hash bits too small", "featurizer:\n  hash_bits: 2\n", nil},
		{"negative word ngrams", "", map[string]string{"TRIAGE_WORD_NGRAMS": "-1"}},
		{"char ngrams too large", "", map[string]string{"TRIAGE_CHAR_NGRAMS": "9"}},
		{"no ngrams", "featurizer:\n  word_ngrams: 0\n  char_ngrams: 0\n", nil},
		{"bad log level", "", map[string]string{"TRIAGE_LOG_LEVEL": "verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			clearEnv(t, path)
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t, filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing TRIAGE_CONFIG file")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t, writeFile(t, "train: [unclosed\n"))
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
