package featurizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicTokens(t *testing.T) {
	tcs := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Hello World", []string{"hello", "world"}},
		{"punctuation kept", "File.Copy() fails", []string{"file", ".", "copy", "(", ")", "fails"}},
		{"accents", "naïve café", []string{"naive", "cafe"}},
		{"cjk", "你好", []string{"你", "好"}},
		{"control chars", "a\x00b\tc", []string{"ab", "c"}},
		{"empty", "", nil},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BasicTokens(tc.in))
		})
	}
}

func TestWordsDropsPunctuation(t *testing.T) {
	assert.Equal(t, []string{"file", "copy", "fails"}, Words("File.Copy() fails!"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ef is crashing", Normalize("  EF\tis\n\ncrashing "))
}
