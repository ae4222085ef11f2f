package embedder

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// The ONNX Runtime environment is process-wide and may only be
// initialized once.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

var requiredInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// onnxSession wraps a DynamicAdvancedSession for a BERT-style encoder that
// emits per-token hidden states [batch, seq, dim].
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	outputName string
	embedDim   int64
}

func newONNXSession(modelPath, libPath string, threads int) (*onnxSession, error) {
	if err := initORT(libPath); err != nil {
		return nil, errors.Wrap(err, "onnx: initialize runtime")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "onnx: read model info")
	}
	if err := checkInputs(inputs); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, errors.New("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[2] <= 0 {
		return nil, errors.Errorf("onnx: expected [batch, seq, dim] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "onnx: session options")
	}
	defer opts.Destroy()
	if threads > 0 {
		if err := opts.SetIntraOpNumThreads(threads); err != nil {
			return nil, errors.Wrap(err, "onnx: intra-op threads")
		}
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, errors.Wrap(err, "onnx: inter-op threads")
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, requiredInputs, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "onnx: create session")
	}
	return &onnxSession{
		session:    session,
		outputName: outputs[0].Name,
		embedDim:   dims[2],
	}, nil
}

func checkInputs(inputs []ort.InputOutputInfo) error {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	for _, name := range requiredInputs {
		if !have[name] {
			return errors.Errorf("onnx: model missing input %q", name)
		}
	}
	return nil
}

// infer runs the encoder on a padded batch and returns the flat hidden
// states [size * seqLen * embedDim].
func (s *onnxSession) infer(b batch) ([]float32, error) {
	shape := ort.NewShape(b.size, b.seqLen)

	ids, err := ort.NewTensor(shape, b.inputIDs)
	if err != nil {
		return nil, errors.Wrap(err, "onnx: input_ids tensor")
	}
	defer ids.Destroy()

	mask, err := ort.NewTensor(shape, b.attentionMask)
	if err != nil {
		return nil, errors.Wrap(err, "onnx: attention_mask tensor")
	}
	defer mask.Destroy()

	types, err := ort.NewTensor(shape, b.tokenTypeIDs)
	if err != nil {
		return nil, errors.Wrap(err, "onnx: token_type_ids tensor")
	}
	defer types.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.size, b.seqLen, s.embedDim))
	if err != nil {
		return nil, errors.Wrap(err, "onnx: output tensor")
	}
	defer out.Destroy()

	if err := s.session.Run([]ort.Value{ids, mask, types}, []ort.Value{out}); err != nil {
		return nil, errors.Wrap(err, "onnx: run")
	}

	// The tensor's backing memory is freed on Destroy.
	src := out.GetData()
	hidden := make([]float32, len(src))
	copy(hidden, src)
	return hidden, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
