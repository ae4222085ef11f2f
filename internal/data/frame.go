package data

import "github.com/pkg/errors"

var (
	ErrNoColumn       = errors.New("column not found")
	ErrColumnKind     = errors.New("column has the wrong kind")
	ErrColumnLength   = errors.New("column length does not match frame rows")
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Column is one typed column of a Frame. Columns are treated as immutable
// once added to a frame; transforms add new columns instead of editing.
type Column interface {
	Kind() Kind
	Len() int
}

// TextColumn holds raw strings.
type TextColumn []string

func (c TextColumn) Kind() Kind { return KindText }
func (c TextColumn) Len() int   { return len(c) }

// KeyColumn holds categorical values encoded as keys. Key 0 means missing;
// key k (k >= 1) stands for Values[k-1].
type KeyColumn struct {
	Keys   []uint32
	Values []string
}

func (c *KeyColumn) Kind() Kind { return KindKey }
func (c *KeyColumn) Len() int   { return len(c.Keys) }

// Value decodes the key at row i. Missing keys decode to "".
func (c *KeyColumn) Value(i int) string {
	k := c.Keys[i]
	if k == 0 || int(k) > len(c.Values) {
		return ""
	}
	return c.Values[k-1]
}

// VectorColumn holds one feature vector per row.
type VectorColumn []Vector

func (c VectorColumn) Kind() Kind { return KindVector }
func (c VectorColumn) Len() int   { return len(c) }

// ScoreColumn holds one score per class per row.
type ScoreColumn [][]float32

func (c ScoreColumn) Kind() Kind { return KindScore }
func (c ScoreColumn) Len() int   { return len(c) }

// Frame is a column-oriented in-memory table.
type Frame struct {
	rows   int
	schema Schema
	cols   map[string]Column
}

// NewFrame creates an empty frame with the given number of rows.
func NewFrame(rows int) *Frame {
	return &Frame{rows: rows, cols: make(map[string]Column)}
}

// Rows returns the number of rows.
func (f *Frame) Rows() int { return f.rows }

// Schema returns a copy of the frame's column layout.
func (f *Frame) Schema() Schema {
	out := make(Schema, len(f.schema))
	copy(out, f.schema)
	return out
}

// Set adds a column, or replaces an existing column of the same name in
// place (keeping its position in the schema).
func (f *Frame) Set(name string, col Column) error {
	if col.Len() != f.rows {
		return errors.Wrapf(ErrColumnLength, "column %q has %d rows, frame has %d", name, col.Len(), f.rows)
	}
	if i := f.schema.Index(name); i >= 0 {
		f.schema[i].Kind = col.Kind()
	} else {
		f.schema = append(f.schema, Field{Name: name, Kind: col.Kind()})
	}
	f.cols[name] = col
	return nil
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Clone returns a frame sharing the same columns. Adding columns to the
// clone leaves f untouched.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		rows:   f.rows,
		schema: f.Schema(),
		cols:   make(map[string]Column, len(f.cols)),
	}
	for k, v := range f.cols {
		out.cols[k] = v
	}
	return out
}

func (f *Frame) lookup(name string, kind Kind) (Column, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoColumn, "%q", name)
	}
	if c.Kind() != kind {
		return nil, errors.Wrapf(ErrColumnKind, "%q is %s, want %s", name, c.Kind(), kind)
	}
	return c, nil
}

// Text returns the named text column.
func (f *Frame) Text(name string) (TextColumn, error) {
	c, err := f.lookup(name, KindText)
	if err != nil {
		return nil, err
	}
	return c.(TextColumn), nil
}

// Keys returns the named key column.
func (f *Frame) Keys(name string) (*KeyColumn, error) {
	c, err := f.lookup(name, KindKey)
	if err != nil {
		return nil, err
	}
	return c.(*KeyColumn), nil
}

// Vectors returns the named vector column.
func (f *Frame) Vectors(name string) (VectorColumn, error) {
	c, err := f.lookup(name, KindVector)
	if err != nil {
		return nil, err
	}
	return c.(VectorColumn), nil
}

// Scores returns the named score column.
func (f *Frame) Scores(name string) (ScoreColumn, error) {
	c, err := f.lookup(name, KindScore)
	if err != nil {
		return nil, err
	}
	return c.(ScoreColumn), nil
}
