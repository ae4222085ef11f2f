package classifier

import "github.com/pkg/errors"

// Output columns written by the trained model.
const (
	ScoreColumn          = "Score"
	PredictedLabelColumn = "PredictedLabel"
)

// ErrInvalidOptions is returned for out-of-range trainer options.
var ErrInvalidOptions = errors.New("classifier: invalid options")

// Options configures the maximum entropy trainer.
type Options struct {
	LabelColumn   string
	FeatureColumn string
	Epochs        int
	LearningRate  float64
	L2            float64 // penalty on the summed loss, applied as decay once per epoch
	Seed          int64   // seeds the example shuffle
}

// DefaultOptions trains on the conventional Label/Features columns.
func DefaultOptions() Options {
	return Options{
		LabelColumn:   "Label",
		FeatureColumn: "Features",
		Epochs:        20,
		LearningRate:  0.5,
		L2:            1e-4,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	switch {
	case o.LabelColumn == "" || o.FeatureColumn == "":
		return errors.Wrap(ErrInvalidOptions, "label and feature columns are required")
	case o.Epochs < 1:
		return errors.Wrapf(ErrInvalidOptions, "epochs %d < 1", o.Epochs)
	case !(o.LearningRate > 0):
		return errors.Wrapf(ErrInvalidOptions, "learning rate %v must be positive", o.LearningRate)
	case o.L2 < 0:
		return errors.Wrapf(ErrInvalidOptions, "l2 %v is negative", o.L2)
	}
	return nil
}
