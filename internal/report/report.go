// Package report renders predictions and evaluation metrics for the
// console.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/triage/internal/engine/metrics"
	"github.com/crimson-sun/triage/internal/model"
)

// Printer writes human-readable results to w.
type Printer struct {
	w      io.Writer
	title  lipgloss.Style
	border lipgloss.Style
	muted  lipgloss.Style
}

// New creates a Printer. Colors are only emitted when w is a terminal.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true),
		border: r.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),
		muted: r.NewStyle().Faint(true),
	}
}

// TrainedPrediction prints the smoke-test prediction of a model that was
// just fitted.
func (p *Printer) TrainedPrediction(pred model.Prediction) error {
	_, err := fmt.Fprintf(p.w, "=============== Single Prediction just-trained-model - Result: %s ===============\n", pred.Area)
	return err
}

// Prediction prints the prediction of a reloaded model.
func (p *Printer) Prediction(pred model.Prediction) error {
	_, err := fmt.Fprintf(p.w, "=============== Single Prediction - Result: %s ===============\n", pred.Area)
	return err
}

// Metrics prints the evaluation summary block.
func (p *Printer) Metrics(m metrics.Metrics) error {
	lines := []string{
		p.title.Render("Metrics for Multi-class Classification model - Test Data"),
		"",
		"MicroAccuracy:    " + Number(m.MicroAccuracy, true),
		"MacroAccuracy:    " + Number(m.MacroAccuracy, true),
		"LogLoss:          " + Number(m.LogLoss, false),
		"LogLossReduction: " + Number(m.LogLossReduction, false),
	}
	if m.TopK > 0 {
		lines = append(lines, fmt.Sprintf("%-18s%s", fmt.Sprintf("Top%dAccuracy:", m.TopK), Number(m.TopKAccuracy, true)))
	}
	lines = append(lines, p.muted.Render(fmt.Sprintf("%d rows evaluated, %d skipped", m.Rows, m.Skipped)))

	_, err := fmt.Fprintln(p.w, p.border.Render(strings.Join(lines, "\n")))
	return err
}

// PerClass prints one line per class present in the evaluated data.
func (p *Printer) PerClass(m metrics.Metrics) error {
	classes := m.PerClass()
	if len(classes) == 0 {
		return nil
	}
	width := len("Area")
	for _, c := range classes {
		width = max(width, len(c.Label))
	}

	var sb strings.Builder
	sb.WriteString(p.title.Render(fmt.Sprintf("%-*s  %7s  %8s  %7s", width, "Area", "Support", "Accuracy", "LogLoss")))
	for _, c := range classes {
		fmt.Fprintf(&sb, "\n%-*s  %7d  %8s  %7s", width, c.Label, c.Support, Number(c.Accuracy, true), Number(c.LogLoss, true))
	}
	_, err := fmt.Fprintln(p.w, sb.String())
	return err
}

// Number formats v with at most three decimals and no trailing zeros.
// Without leadingZero the integer zero is dropped, so 0.25 renders as
// ".25" and 0 renders as "".
func Number(v float64, leadingZero bool) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	if leadingZero {
		return s
	}
	switch {
	case s == "0":
		return ""
	case strings.HasPrefix(s, "0."):
		return s[1:]
	case strings.HasPrefix(s, "-0."):
		return "-" + s[2:]
	}
	return s
}
