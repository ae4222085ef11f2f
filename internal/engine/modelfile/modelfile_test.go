package modelfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/triage/internal/data"
	"github.com/crimson-sun/triage/internal/engine/classifier"
	"github.com/crimson-sun/triage/internal/engine/featurizer"
	"github.com/crimson-sun/triage/internal/model"
	"github.com/crimson-sun/triage/internal/pipeline"
)

var issues = []model.Issue{
	{ID: "1", Area: "area-net", Title: "socket timeout", Description: "the tcp socket times out"},
	{ID: "2", Area: "area-io", Title: "file locked", Description: "cannot open file, it is locked"},
	{ID: "3", Area: "area-net", Title: "dns lookup slow", Description: "resolving hosts is slow"},
	{ID: "4", Area: "area-io", Title: "directory missing", Description: "path not found on disk"},
}

func fitModel(t *testing.T) *pipeline.Model {
	t.Helper()
	opts := featurizer.DefaultOptions()
	opts.HashBits = 10
	p := pipeline.New(
		pipeline.MapValueToKey("Label", "Area"),
		pipeline.FeaturizeText("TitleFeaturized", "Title", opts),
		pipeline.FeaturizeText("DescriptionFeaturized", "Description", opts),
		pipeline.Concatenate("Features", "TitleFeaturized", "DescriptionFeaturized"),
		pipeline.CacheCheckpoint(),
		classifier.NewMaximumEntropy(classifier.DefaultOptions()),
		pipeline.MapKeyToValue(classifier.PredictedLabelColumn),
	)
	m, err := p.Fit(data.FromIssues(issues))
	require.NoError(t, err)
	return m
}

func predictions(t *testing.T, m *pipeline.Model) []string {
	t.Helper()
	out, err := m.Transform(data.FromIssues(issues))
	require.NoError(t, err)
	pred, err := out.Text(classifier.PredictedLabelColumn)
	require.NoError(t, err)
	return pred
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := fitModel(t)
	path := filepath.Join(t.TempDir(), "Models", "model.bin")

	require.NoError(t, Save(path, m))
	loaded, schema, err := Load(path)
	require.NoError(t, err)

	assert.True(t, schema.Equal(data.IssueSchema))
	assert.Len(t, loaded.Steps(), len(m.Steps()))
	assert.Equal(t, predictions(t, m), predictions(t, loaded))
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("stale contents that are not a model"), 0o644))

	require.NoError(t, Save(path, fitModel(t)))
	_, _, err := Load(path)
	require.NoError(t, err)
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(fitModel(t))
	require.NoError(t, err)
	b, err := Encode(fitModel(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestDecodeCorrupt(t *testing.T) {
	b, err := Encode(fitModel(t))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short length", b[:4]},
		{"truncated header", b[:20]},
		{"truncated data", b[:len(b)-4]},
		{"trailing bytes", append(append([]byte(nil), b...), 0, 0, 0, 0)},
		{"garbage header", append([]byte{3, 0, 0, 0, 0, 0, 0, 0}, "{x}"...)},
		{"negative shape", frame([]byte(`{"format":"triage-model","version":1,"schema":[],"steps":[],` +
			`"tensors":[{"name":"w","dtype":"F32","shape":[-1],"data_offsets":[0,-4]}]}`))},
		{"negative offsets", append(frame([]byte(`{"format":"triage-model","version":1,"schema":[],"steps":[],` +
			`"tensors":[{"name":"w","dtype":"F32","shape":[1],"data_offsets":[-4,0]}]}`)), 0, 0, 0, 0)},
		{"huge shape", frame([]byte(`{"format":"triage-model","version":1,"schema":[],"steps":[],` +
			`"tensors":[{"name":"w","dtype":"F32","shape":[4611686018427387904,4],"data_offsets":[0,0]}]}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.data)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
		})
	}
}

func TestDecodeVersion(t *testing.T) {
	hdr := []byte(`{"format":"triage-model","version":99,"schema":[],"steps":[],"tensors":[]}`)
	_, err := Decode(frame(hdr))
	assert.True(t, errors.Is(err, ErrVersion), "got %v", err)

	hdr = []byte(`{"format":"triage-model","version":1,"schema":[],"steps":[{"kind":"mystery","params":{}}],"tensors":[]}`)
	_, err = Decode(frame(hdr))
	assert.True(t, errors.Is(err, ErrVersion), "got %v", err)
}

func frame(hdr []byte) []byte {
	b := make([]byte, 8, 8+len(hdr))
	binary.LittleEndian.PutUint64(b, uint64(len(hdr)))
	return append(b, hdr...)
}
