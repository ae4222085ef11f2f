package embedder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// IDs: [PAD]=0 [UNK]=1 [CLS]=2 [SEP]=3 then the word pieces in order.
var testVocabLines = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"web", "##sock", "##ets", "is", "slow", ".", "entity", "framework", "crash", "##es",
}

func testTokenizer(t *testing.T, maxSeqLen int) *tokenizer {
	t.Helper()
	v, err := parseVocab(strings.NewReader(strings.Join(testVocabLines, "\n")))
	require.NoError(t, err)
	return newTokenizer(v, maxSeqLen)
}

func TestParseVocab(t *testing.T) {
	tok := testTokenizer(t, 0)
	assert.Equal(t, len(testVocabLines), tok.vocab.size())
	assert.Equal(t, int64(0), tok.vocab.padID)
	assert.Equal(t, int64(1), tok.vocab.unkID)
	assert.Equal(t, int64(2), tok.vocab.clsID)
	assert.Equal(t, int64(3), tok.vocab.sepID)
}

func TestParseVocabMissingSpecial(t *testing.T) {
	_, err := parseVocab(strings.NewReader("[PAD]\n[UNK]\n[CLS]\n"))
	assert.ErrorContains(t, err, "[SEP]")

	_, err = parseVocab(strings.NewReader(""))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	tok := testTokenizer(t, 0)

	tcs := []struct {
		name string
		text string
		want []int64
	}{
		{"wordpiece split", "WebSockets is slow.", []int64{2, 4, 5, 6, 7, 8, 9, 3}},
		{"continuation", "Entity Framework crashes", []int64{2, 10, 11, 12, 13, 3}},
		{"unknown word", "database", []int64{2, 1, 3}},
		{"empty", "", []int64{2, 3}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tok.encode(tc.text))
		})
	}
}

func TestEncodeTruncates(t *testing.T) {
	tok := testTokenizer(t, 5)

	ids := tok.encode("slow slow slow slow slow slow")

	assert.Equal(t, []int64{2, 8, 8, 8, 3}, ids)
}

func TestEncodeBatchPadsToLongest(t *testing.T) {
	tok := testTokenizer(t, 0)

	b := tok.encodeBatch([]string{"slow", "entity framework crashes"})

	require.Equal(t, int64(2), b.size)
	require.Equal(t, int64(6), b.seqLen)
	assert.Equal(t, []int64{2, 8, 3, 0, 0, 0, 2, 10, 11, 12, 13, 3}, b.inputIDs)
	assert.Equal(t, []int64{1, 1, 1, 0, 0, 0, 1, 1, 1, 1, 1, 1}, b.attentionMask)
	assert.Len(t, b.tokenTypeIDs, 12)
}

func TestEncodeBatchEmpty(t *testing.T) {
	b := testTokenizer(t, 0).encodeBatch(nil)
	assert.Equal(t, int64(0), b.size)
}
