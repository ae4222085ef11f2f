package data

import "github.com/pkg/errors"

// Kind is the type of values stored in a column.
type Kind int

const (
	KindText Kind = iota + 1
	KindKey
	KindVector
	KindScore
)

var kindNames = map[Kind]string{
	KindText:   "text",
	KindKey:    "key",
	KindVector: "vector",
	KindScore:  "score",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText encodes the kind by name so persisted schemas stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	s, ok := kindNames[k]
	if !ok {
		return nil, errors.Errorf("data: unknown column kind %d", int(k))
	}
	return []byte(s), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("data: unknown column kind %q", string(b))
}

// Field names and types one column.
type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Schema is the ordered list of columns in a frame.
type Schema []Field

// IssueSchema is the column layout of the issue TSV files.
var IssueSchema = Schema{
	{Name: "ID", Kind: KindText},
	{Name: "Area", Kind: KindText},
	{Name: "Title", Kind: KindText},
	{Name: "Description", Kind: KindText},
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether both schemas have the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}
