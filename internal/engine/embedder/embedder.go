// Package embedder produces dense sentence embeddings with a local ONNX
// sentence-transformer model. It backs the optional EmbedText pipeline
// step; the default pipeline does not need it.
package embedder

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// Embedder produces vector embeddings from text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// Config locates the model files. LibraryPath defaults to
// libonnxruntime.so next to the model.
type Config struct {
	ModelPath   string `json:"model_path"`
	VocabPath   string `json:"vocab_path"`
	LibraryPath string `json:"-"`
	MaxSeqLen   int    `json:"max_seq_len"`
	Threads     int    `json:"-"`
}

// ONNXEmbedder runs tokenize → encoder → mean pool → L2 normalize.
type ONNXEmbedder struct {
	session *onnxSession
	tok     *tokenizer
}

// New loads the vocabulary and the ONNX model.
func New(cfg Config) (*ONNXEmbedder, error) {
	v, err := loadVocab(cfg.VocabPath)
	if err != nil {
		return nil, errors.Wrap(err, "embedder")
	}

	lib := cfg.LibraryPath
	if lib == "" {
		lib = filepath.Join(filepath.Dir(cfg.ModelPath), "libonnxruntime.so")
	}
	sess, err := newONNXSession(cfg.ModelPath, lib, cfg.Threads)
	if err != nil {
		return nil, errors.Wrap(err, "embedder")
	}

	return &ONNXEmbedder{session: sess, tok: newTokenizer(v, cfg.MaxSeqLen)}, nil
}

// Dim returns the embedding dimensionality.
func (e *ONNXEmbedder) Dim() int { return int(e.session.embedDim) }

// Embed returns the unit-length embedding of text.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	out, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds several texts in one inference call.
func (e *ONNXEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	b := e.tok.encodeBatch(texts)
	hidden, err := e.session.infer(b)
	if err != nil {
		return nil, errors.Wrap(err, "embedder")
	}

	dim := e.session.embedDim
	pooled := meanPool(hidden, b.attentionMask, b.size, b.seqLen, dim)
	out := make([][]float32, b.size)
	for i := range out {
		vec := pooled[int64(i)*dim : int64(i+1)*dim : int64(i+1)*dim]
		l2Normalize(vec)
		out[i] = vec
	}
	return out, nil
}

// Close releases the ONNX session.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
