package model

// Prediction is the classifier's answer for one issue.
type Prediction struct {
	Area   string             // decoded predicted label
	Score  float32            // probability assigned to Area
	Scores map[string]float32 // probability per known area
}
