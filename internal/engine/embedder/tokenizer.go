package embedder

import (
	"github.com/crimson-sun/triage/internal/engine/featurizer"
)

const (
	defaultMaxSeqLen = 256
	maxWordRunes     = 200
)

// batch is a padded batch of token sequences. All slices are flat
// [size * seqLen].
type batch struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	size          int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenization on top of
// featurizer.BasicTokens.
type tokenizer struct {
	vocab     *vocab
	maxSeqLen int
}

func newTokenizer(v *vocab, maxSeqLen int) *tokenizer {
	if maxSeqLen < 3 {
		maxSeqLen = defaultMaxSeqLen
	}
	return &tokenizer{vocab: v, maxSeqLen: maxSeqLen}
}

// encode returns [CLS] tokens... [SEP], truncated to maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	var pieces []string
	for _, tok := range featurizer.BasicTokens(text) {
		pieces = append(pieces, t.wordpiece(tok)...)
	}
	if limit := t.maxSeqLen - 2; len(pieces) > limit {
		pieces = pieces[:limit]
	}

	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.clsID)
	for _, p := range pieces {
		ids = append(ids, t.vocab.lookup(p))
	}
	return append(ids, t.vocab.sepID)
}

// encodeBatch encodes texts and pads them to the longest sequence.
func (t *tokenizer) encodeBatch(texts []string) batch {
	if len(texts) == 0 {
		return batch{}
	}

	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		seqs[i] = t.encode(text)
		if len(seqs[i]) > longest {
			longest = len(seqs[i])
		}
	}

	b := batch{size: int64(len(texts)), seqLen: int64(longest)}
	total := len(texts) * longest
	b.inputIDs = make([]int64, total)
	b.attentionMask = make([]int64, total)
	b.tokenTypeIDs = make([]int64, total)
	for i, seq := range seqs {
		off := i * longest
		for j, id := range seq {
			b.inputIDs[off+j] = id
			b.attentionMask[off+j] = 1
		}
		for j := len(seq); j < longest; j++ {
			b.inputIDs[off+j] = t.vocab.padID
		}
	}
	return b
}

// wordpiece splits one basic token into the longest matching vocabulary
// pieces, continuation pieces prefixed with "##". A token that cannot be
// fully covered becomes [UNK].
func (t *tokenizer) wordpiece(token string) []string {
	runes := []rune(token)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) > maxWordRunes {
		return []string{"[UNK]"}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		match := ""
		for ; end > start; end-- {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				match = sub
				break
			}
		}
		if match == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}
