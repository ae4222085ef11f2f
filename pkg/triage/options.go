package triage

type options struct {
	modelPath string
	minScore  float32
}

// Option configures a Classifier.
type Option func(*options)

// WithModelPath sets the model file written by the triage command.
// Default: Models/model.bin.
func WithModelPath(path string) Option {
	return func(o *options) {
		o.modelPath = path
	}
}

// WithMinScore sets the probability below which a result is reported as
// Unclassified. Default: 0, which never rejects.
func WithMinScore(s float32) Option {
	return func(o *options) {
		o.minScore = s
	}
}

func defaultOptions() options {
	return options{modelPath: "Models/model.bin"}
}
