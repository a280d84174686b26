package audit

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Exporter writes the session ledger and audit trail into an xlsx
// workbook, one sheet each.
type Exporter struct {
	store Store
}

// NewExporter creates an exporter over the store.
func NewExporter(store Store) *Exporter {
	return &Exporter{store: store}
}

// WriteXLSX streams the workbook to w.
func (e *Exporter) WriteXLSX(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSessions(ctx, f); err != nil {
		return err
	}
	if err := e.writeAudit(ctx, f); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) writeSessions(ctx context.Context, f *excelize.File) error {
	sessions, err := e.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	const sheet = "Sessions"
	f.SetSheetName("Sheet1", sheet)
	if err := writeRow(f, sheet, 1, []any{
		"ID", "Mentor", "Student", "Email", "Date", "Start", "End", "Status", "Cancelled at", "Reason",
	}); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end, _ := excelize.CoordinatesToCellName(10, 1)
		_ = f.SetCellStyle(sheet, "A1", end, style)
	}

	for i, s := range sessions {
		cancelled := ""
		if s.CancelledAt != nil {
			cancelled = s.CancelledAt.Format("2006-01-02 15:04")
		}
		if err := writeRow(f, sheet, i+2, []any{
			s.ID, s.MentorID, s.StudentName, s.StudentEmail,
			s.Date, s.StartTime, s.EndTime, s.Status, cancelled, s.CancellationReason,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeAudit(ctx context.Context, f *excelize.File) error {
	entries, err := e.store.ListAudit(ctx)
	if err != nil {
		return fmt.Errorf("load audit: %w", err)
	}

	const sheet = "Audit"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeRow(f, sheet, 1, []any{"Time", "Event", "Session", "Detail"}); err != nil {
		return err
	}
	for i, entry := range entries {
		if err := writeRow(f, sheet, i+2, []any{
			entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.EventType, entry.SessionID, entry.Detail,
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
