// Package modelfile saves and loads fitted pipelines.
//
// File layout (all integers little-endian):
//
//	[8 bytes]  header length N
//	[N bytes]  JSON header: format, version, input schema, steps, tensor table
//	[...]      float32 tensor data, tensors back to back
//
// Tensor offsets in the header are relative to the start of the data
// section, in the same spirit as safetensors.
package modelfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/data"
	_ "github.com/crimson-sun/triage/internal/engine/classifier" // registers maximum_entropy
	"github.com/crimson-sun/triage/internal/pipeline"
)

const (
	formatName = "triage-model"
	// Version is the current file format version.
	Version = 1

	dtypeF32 = "F32"
)

var (
	ErrCorrupt = errors.New("modelfile: corrupt or truncated model file")
	ErrVersion = errors.New("modelfile: unsupported model format")
)

type header struct {
	Format  string       `json:"format"`
	Version int          `json:"version"`
	Schema  data.Schema  `json:"schema"`
	Steps   []stepEntry  `json:"steps"`
	Tensors []tensorMeta `json:"tensors"`
}

type stepEntry struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params"`
}

type tensorMeta struct {
	Name        string `json:"name"`
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Encode serializes a model to bytes. Identical models encode to identical
// bytes.
func Encode(m *pipeline.Model) ([]byte, error) {
	ts := pipeline.NewTensors()
	h := header{Format: formatName, Version: Version, Schema: m.Schema()}

	for i, step := range m.Steps() {
		params, err := step.Encode(ts)
		if err != nil {
			return nil, errors.Wrapf(err, "modelfile: encode step %d (%s)", i, step.Kind())
		}
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrapf(err, "modelfile: marshal step %d (%s)", i, step.Kind())
		}
		h.Steps = append(h.Steps, stepEntry{Kind: step.Kind(), Params: raw})
	}

	offset := 0
	for _, name := range ts.Names() {
		t, _ := ts.Get(name)
		size := len(t.Data) * 4
		h.Tensors = append(h.Tensors, tensorMeta{
			Name:        name,
			Dtype:       dtypeF32,
			Shape:       t.Shape,
			DataOffsets: [2]int{offset, offset + size},
		})
		offset += size
	}

	hdr, err := json.Marshal(h)
	if err != nil {
		return nil, errors.Wrap(err, "modelfile: marshal header")
	}

	buf := make([]byte, 8+len(hdr)+offset)
	binary.LittleEndian.PutUint64(buf[:8], uint64(len(hdr)))
	copy(buf[8:], hdr)
	pos := 8 + len(hdr)
	for _, name := range ts.Names() {
		t, _ := ts.Get(name)
		for _, v := range t.Data {
			binary.LittleEndian.PutUint32(buf[pos:], math.Float32bits(v))
			pos += 4
		}
	}
	return buf, nil
}

// Save writes the model to path, replacing any existing file and creating
// the parent directory if needed.
func Save(path string, m *pipeline.Model) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "modelfile: create directory")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "modelfile: create")
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(b); err != nil {
		f.Close()
		return errors.Wrap(err, "modelfile: write")
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "modelfile: flush")
	}
	return errors.Wrap(f.Close(), "modelfile: close")
}

// Load reads a model and its input schema from path.
func Load(path string) (*pipeline.Model, data.Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "modelfile: read")
	}
	m, err := Decode(b)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "modelfile: %s", path)
	}
	return m, m.Schema(), nil
}

// Decode parses bytes produced by Encode.
func Decode(b []byte) (*pipeline.Model, error) {
	if len(b) < 8 {
		return nil, errors.Wrapf(ErrCorrupt, "file too small: %d bytes", len(b))
	}
	hdrLen := binary.LittleEndian.Uint64(b[:8])
	if hdrLen > uint64(len(b)-8) {
		return nil, errors.Wrapf(ErrCorrupt, "header length %d exceeds file size", hdrLen)
	}

	var h header
	dec := json.NewDecoder(bytes.NewReader(b[8 : 8+hdrLen]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&h); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "header: %v", err)
	}
	if h.Format != formatName || h.Version != Version {
		return nil, errors.Wrapf(ErrVersion, "%q version %d", h.Format, h.Version)
	}

	ts, err := readTensors(h.Tensors, b[8+hdrLen:])
	if err != nil {
		return nil, err
	}

	steps := make([]pipeline.Transformer, 0, len(h.Steps))
	for i, s := range h.Steps {
		t, err := pipeline.Decode(s.Kind, s.Params, ts)
		if err != nil {
			pipeline.NewModel(h.Schema, steps...).Close()
			if errors.Is(err, pipeline.ErrUnknownKind) {
				return nil, errors.Wrapf(ErrVersion, "step %d: %v", i, err)
			}
			return nil, errors.Wrapf(ErrCorrupt, "step %d: %v", i, err)
		}
		steps = append(steps, t)
	}
	return pipeline.NewModel(h.Schema, steps...), nil
}

func readTensors(metas []tensorMeta, payload []byte) (*pipeline.Tensors, error) {
	ts := pipeline.NewTensors()
	end := 0
	for _, meta := range metas {
		if meta.Dtype != dtypeF32 {
			return nil, errors.Wrapf(ErrVersion, "tensor %q has dtype %s", meta.Name, meta.Dtype)
		}
		n := 1
		for _, d := range meta.Shape {
			if d < 0 || (d > 0 && n > len(payload)/4/d) {
				return nil, errors.Wrapf(ErrCorrupt, "tensor %q: shape %v invalid for %d data bytes",
					meta.Name, meta.Shape, len(payload))
			}
			n *= d
		}
		start, stop := meta.DataOffsets[0], meta.DataOffsets[1]
		if start < 0 || stop < start || start != end || stop-start != n*4 || stop > len(payload) {
			return nil, errors.Wrapf(ErrCorrupt, "tensor %q: range [%d:%d] invalid for shape %v and %d data bytes",
				meta.Name, start, stop, meta.Shape, len(payload))
		}

		values := make([]float32, n)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[start+i*4:]))
		}
		if err := ts.Put(meta.Name, meta.Shape, values); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "%v", err)
		}
		end = stop
	}
	if end != len(payload) {
		return nil, errors.Wrapf(ErrCorrupt, "%d trailing bytes", len(payload)-end)
	}
	return ts, nil
}
