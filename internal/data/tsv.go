package data

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/crimson-sun/triage/internal/model"
)

// LoadTSV reads an issue file (ID, Area, Title, Description, tab separated).
// With hasHeader set, the first row must name exactly those columns in that
// order. Any malformed row fails the whole load.
func LoadTSV(path string, hasHeader bool) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "data: open")
	}
	defer f.Close()

	frame, err := ReadTSV(f, hasHeader)
	if err != nil {
		return nil, errors.Wrapf(err, "data: %s", path)
	}
	return frame, nil
}

// maxLineSize bounds a single row; issue descriptions can be long.
const maxLineSize = 16 << 20

// ReadTSV is LoadTSV over an arbitrary reader. Fields are split on tabs
// only; quotes are ordinary characters.
func ReadTSV(r io.Reader, hasHeader bool) (*Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	cols := make([]TextColumn, len(IssueSchema))
	line := 0
	headerSeen := !hasHeader
	for sc.Scan() {
		line++
		text := sc.Text() // ScanLines drops a trailing \r
		if !headerSeen {
			headerSeen = true
			if err := checkHeader(splitRow(text, line == 1)); err != nil {
				return nil, err
			}
			continue
		}
		if text == "" {
			continue
		}
		rec := splitRow(text, line == 1)
		if len(rec) != len(IssueSchema) {
			return nil, errors.Wrapf(ErrSchemaMismatch, "line %d: want %d fields, got %d", line, len(IssueSchema), len(rec))
		}
		for i, v := range rec {
			cols[i] = append(cols[i], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read tsv: line %d", line+1)
	}
	if !headerSeen {
		return nil, errors.Wrap(ErrSchemaMismatch, "missing header row")
	}

	rows := len(cols[0])
	frame := NewFrame(rows)
	for i, field := range IssueSchema {
		col := cols[i]
		if col == nil {
			col = TextColumn{}
		}
		if err := frame.Set(field.Name, col); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func splitRow(text string, first bool) []string {
	if first {
		text = strings.TrimPrefix(text, "\ufeff")
	}
	return strings.Split(text, "\t")
}

func checkHeader(header []string) error {
	want := IssueSchema.Names()
	if len(header) != len(want) {
		return errors.Wrapf(ErrSchemaMismatch, "header has %d columns, want %d (%s)",
			len(header), len(want), strings.Join(want, ","))
	}
	for i, name := range want {
		if strings.TrimSpace(header[i]) != name {
			return errors.Wrapf(ErrSchemaMismatch, "header column %d is %q, want %q (expected %s)",
				i+1, header[i], name, strings.Join(want, ","))
		}
	}
	return nil
}

// FromIssues builds a frame with the issue schema from in-memory records.
func FromIssues(issues []model.Issue) *Frame {
	n := len(issues)
	ids := make(TextColumn, n)
	areas := make(TextColumn, n)
	titles := make(TextColumn, n)
	descs := make(TextColumn, n)
	for i, is := range issues {
		ids[i] = is.ID
		areas[i] = is.Area
		titles[i] = is.Title
		descs[i] = is.Description
	}
	frame := NewFrame(n)
	// Lengths match by construction.
	_ = frame.Set("ID", ids)
	_ = frame.Set("Area", areas)
	_ = frame.Set("Title", titles)
	_ = frame.Set("Description", descs)
	return frame
}

// Issues converts a frame with the issue schema back into records.
func Issues(f *Frame) ([]model.Issue, error) {
	ids, err := f.Text("ID")
	if err != nil {
		return nil, err
	}
	areas, err := f.Text("Area")
	if err != nil {
		return nil, err
	}
	titles, err := f.Text("Title")
	if err != nil {
		return nil, err
	}
	descs, err := f.Text("Description")
	if err != nil {
		return nil, err
	}
	out := make([]model.Issue, f.Rows())
	for i := range out {
		out[i] = model.Issue{ID: ids[i], Area: areas[i], Title: titles[i], Description: descs[i]}
	}
	return out, nil
}
