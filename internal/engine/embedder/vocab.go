package embedder

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// vocab is a WordPiece vocabulary: one token per line, the line number
// (0-indexed) is the token ID.
type vocab struct {
	ids    map[string]int64
	tokens []string

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "vocab")
	}
	defer f.Close()

	v, err := parseVocab(f)
	if err != nil {
		return nil, errors.Wrapf(err, "vocab %s", path)
	}
	return v, nil
}

func parseVocab(r io.Reader) (*vocab, error) {
	v := &vocab{ids: make(map[string]int64, 32000)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tok := scanner.Text()
		v.ids[tok] = int64(len(v.tokens))
		v.tokens = append(v.tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read")
	}
	if len(v.tokens) == 0 {
		return nil, errors.New("empty vocabulary")
	}

	for _, s := range []struct {
		name string
		dest *int64
	}{
		{"[PAD]", &v.padID},
		{"[UNK]", &v.unkID},
		{"[CLS]", &v.clsID},
		{"[SEP]", &v.sepID},
	} {
		id, ok := v.ids[s.name]
		if !ok {
			return nil, errors.Errorf("missing special token %s", s.name)
		}
		*s.dest = id
	}
	return v, nil
}

func (v *vocab) lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unkID
}

func (v *vocab) contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) size() int { return len(v.tokens) }
