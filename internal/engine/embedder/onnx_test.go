package embedder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testModelPath = "../../../models/model_quantized.onnx"
	testVocabPath = "../../../models/vocab.txt"
)

func skipIfNoModel(t *testing.T) {
	t.Helper()
	for _, p := range []string{testModelPath, testVocabPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Skip("embedding model files not found in models/")
		}
	}
}

func TestONNXEmbed(t *testing.T) {
	skipIfNoModel(t)

	emb, err := New(Config{ModelPath: testModelPath, VocabPath: testVocabPath})
	require.NoError(t, err)
	defer emb.Close()

	vec, err := emb.Embed("WebSockets communication is slow in my machine")
	require.NoError(t, err)
	assert.Len(t, vec, emb.Dim())

	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestONNXEmbedBatchMatchesSingle(t *testing.T) {
	skipIfNoModel(t)

	emb, err := New(Config{ModelPath: testModelPath, VocabPath: testVocabPath})
	require.NoError(t, err)
	defer emb.Close()

	texts := []string{"Entity Framework crashes", "File.Copy throws on long paths"}
	batch, err := emb.EmbedBatch(texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for i, text := range texts {
		single, err := emb.Embed(text)
		require.NoError(t, err)
		assert.InDeltaSlice(t, single, batch[i], 1e-3)
	}
}
