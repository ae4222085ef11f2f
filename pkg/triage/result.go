package triage

// Unclassified is the Area of results scoring below the minimum score.
const Unclassified = "UNCLASSIFIED"

// Result is the classification of one issue.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Result struct {
	Area       string             `json:"area"`
	Confidence float32            `json:"confidence"`       // probability of the best area
	Scores     map[string]float32 `json:"scores,omitempty"` // probability per known area
}

// Issue is one issue to classify.
type Issue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
