// Package featurizer turns issue text into numeric feature vectors.
//
// The text featurizer follows the usual bag-of-n-grams recipe: word
// unigrams and bigrams plus character trigrams, hashed into a fixed-size
// space, term-frequency weighted and L2 normalized. Hashing keeps the
// featurizer stateless, so a persisted model only needs its options.
package featurizer

import (
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
)

const (
	bos = '\x02' // marks the start of the text for char n-grams
	eos = '\x03'
)

// ErrInvalidOptions is returned for out-of-range featurizer options.
var ErrInvalidOptions = errors.New("featurizer: invalid options")

// Options configures a TextFeaturizer.
type Options struct {
	HashBits   int `json:"hash_bits"`   // feature space is 2^HashBits wide
	WordNgrams int `json:"word_ngrams"` // longest word n-gram; 0 disables word features
	CharNgrams int `json:"char_ngrams"` // char n-gram length; 0 disables char features
}

// DefaultOptions mirrors the common text featurizer defaults:
// word 1-2 grams and char 3-grams.
func DefaultOptions() Options {
	return Options{HashBits: 16, WordNgrams: 2, CharNgrams: 3}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.HashBits < 4 || o.HashBits > 24 {
		return errors.Wrapf(ErrInvalidOptions, "hash_bits %d out of range [4, 24]", o.HashBits)
	}
	if o.WordNgrams < 0 || o.WordNgrams > 4 {
		return errors.Wrapf(ErrInvalidOptions, "word_ngrams %d out of range [0, 4]", o.WordNgrams)
	}
	if o.CharNgrams < 0 || o.CharNgrams > 6 {
		return errors.Wrapf(ErrInvalidOptions, "char_ngrams %d out of range [0, 6]", o.CharNgrams)
	}
	if o.WordNgrams == 0 && o.CharNgrams == 0 {
		return errors.Wrap(ErrInvalidOptions, "word and char n-grams both disabled")
	}
	return nil
}

// TextFeaturizer maps text to a sparse vector of dimension 2^HashBits.
// Word n-grams hash into the lower half, char n-grams into the upper half.
type TextFeaturizer struct {
	opts Options
	half uint64
}

// NewText creates a TextFeaturizer.
func NewText(opts Options) (*TextFeaturizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &TextFeaturizer{opts: opts, half: uint64(1) << (opts.HashBits - 1)}, nil
}

// Options returns the featurizer's configuration.
func (t *TextFeaturizer) Options() Options { return t.opts }

// Dim returns the output vector dimension.
func (t *TextFeaturizer) Dim() int { return 1 << t.opts.HashBits }

// Featurize converts text into an L2-normalized n-gram count vector.
// Empty text yields the zero vector.
func (t *TextFeaturizer) Featurize(text string) data.Vector {
	counts := make(map[int32]float32)

	if t.opts.WordNgrams > 0 {
		words := Words(text)
		for n := 1; n <= t.opts.WordNgrams; n++ {
			for i := 0; i+n <= len(words); i++ {
				gram := strings.Join(words[i:i+n], " ")
				counts[int32(xxhash.Sum64String(gram)%t.half)]++
			}
		}
	}

	if t.opts.CharNgrams > 0 {
		normalized := Normalize(text)
		if normalized != "" {
			runes := make([]rune, 0, len(normalized)+2)
			runes = append(runes, bos)
			runes = append(runes, []rune(normalized)...)
			runes = append(runes, eos)
			n := t.opts.CharNgrams
			for i := 0; i+n <= len(runes); i++ {
				h := xxhash.Sum64String(string(runes[i : i+n]))
				counts[int32(t.half+h%t.half)]++
			}
		}
	}

	return toVector(counts, t.Dim())
}

func toVector(counts map[int32]float32, dim int) data.Vector {
	indices := make([]int32, 0, len(counts))
	var sumSq float64
	for i, c := range counts {
		indices = append(indices, i)
		sumSq += float64(c) * float64(c)
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	values := make([]float32, len(indices))
	inv := 1.0
	if sumSq > 0 {
		inv = 1 / math.Sqrt(sumSq)
	}
	for j, i := range indices {
		values[j] = float32(float64(counts[i]) * inv)
	}
	return data.Vector{Dim: dim, Indices: indices, Values: values}
}
