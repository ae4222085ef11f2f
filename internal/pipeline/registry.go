package pipeline

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknownKind is returned when decoding a step kind nobody registered.
var ErrUnknownKind = errors.New("unknown step kind")

// Decoder rebuilds a transformer from its persisted parameters.
type Decoder func(params json.RawMessage, ts *Tensors) (Transformer, error)

var registry = map[string]Decoder{}

// Register adds a decoder for a step kind. Packages that define
// transformers register them from init.
func Register(kind string, dec Decoder) {
	registry[kind] = dec
}

// Decode rebuilds a transformer of the given kind.
func Decode(kind string, params json.RawMessage, ts *Tensors) (Transformer, error) {
	dec, ok := registry[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	t, err := dec(params, ts)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", kind)
	}
	return t, nil
}

// Kinds returns the registered step kinds, sorted.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func init() {
	Register(kindValueToKey, decodeValueToKey)
	Register(kindKeyToValue, decodeKeyToValue)
	Register(kindFeaturizeText, decodeFeaturizeText)
	Register(kindEmbedText, decodeEmbedText)
	Register(kindConcatenate, decodeConcatenate)
	Register(kindCacheCheckpoint, decodeCacheCheckpoint)
}
