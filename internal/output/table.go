package output

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/Kavirubc/cofound/internal/outbox"
	"github.com/Kavirubc/cofound/pkg/models"
)

// Table provides table rendering utilities
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a new table with default styling
func NewTable(w io.Writer, headers []string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	return &Table{table: table, header: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added
func (t *Table) Len() int {
	return len(t.rows)
}

// Render outputs the table
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	if err := t.table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// HistoryTable renders swipe history rows, newest first as returned
func HistoryTable(w io.Writer, records []models.SwipeRecord) error {
	t := NewTable(w, []string{"Target", "Decision", "When"})
	for _, r := range records {
		t.AddRow(r.TargetUserID, DecisionLabel(r.Decision), r.Timestamp)
	}
	return t.Render()
}

// OutboxTable renders pending redeliveries
func OutboxTable(w io.Writer, entries []outbox.Entry, now time.Time) error {
	t := NewTable(w, []string{"Target", "Decision", "Attempts", "Next attempt", "Last error"})
	for _, e := range entries {
		next := "due"
		if e.NextAttemptAt.After(now) {
			next = "in " + e.NextAttemptAt.Sub(now).Round(time.Second).String()
		}
		t.AddRow(e.TargetID, DecisionLabel(e.Kind), fmt.Sprint(e.Attempts), next, e.LastError)
	}
	return t.Render()
}

// DecisionLabel names a decision the way the app's buttons do
func DecisionLabel(kind models.DecisionKind) string {
	switch kind {
	case models.Reject:
		return "pass"
	case models.Accept:
		return "interested"
	case models.SuperAccept:
		return "super"
	default:
		return kind.String()
	}
}
