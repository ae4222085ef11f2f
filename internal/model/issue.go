package model

// Issue is a single GitHub issue as read from the TSV datasets.
// Area is empty for issues that have not been labeled yet.
type Issue struct {
	ID          string
	Area        string // area label, e.g. "area-System.Net"
	Title       string
	Description string
}
