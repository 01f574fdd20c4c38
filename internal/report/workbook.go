package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	SheetEffectiveTime = "Effective Time"
	SheetNeglected     = "Neglected Clients"
	SheetOrderTrend    = "Order Trend"
	SheetZones         = "Zones"
)

// Sheets lists the workbook's sheets in tab order.
var Sheets = []string{SheetEffectiveTime, SheetNeglected, SheetOrderTrend, SheetZones}

type sheetWriter struct {
	f      *excelize.File
	header int
}

func (w *sheetWriter) table(sheet string, headers []string, rows [][]interface{}) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := w.f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := w.f.SetCellStyle(sheet, cell, cell, w.header); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return w.f.SetColWidth(sheet, "A", last, 18)
}

// Workbook renders d as an xlsx document.
func Workbook(d *Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetEffectiveTime); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, s := range Sheets[1:] {
		if _, err := f.NewSheet(s); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", s, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	w := &sheetWriter{f: f, header: header}

	var rows [][]interface{}
	for _, s := range d.EffectiveTime {
		rows = append(rows, []interface{}{s.RepID, s.TotalMinutes, s.Formatted, len(s.ByClient)})
	}
	if err := w.table(SheetEffectiveTime, []string{"Rep", "Minutes", "Effective Time", "Clients"}, rows); err != nil {
		return nil, fmt.Errorf("write %s: %w", SheetEffectiveTime, err)
	}

	rows = nil
	for _, n := range d.Neglected {
		last := ""
		if n.LastVisitAt != nil {
			last = n.LastVisitAt.Format("2006-01-02")
		}
		rows = append(rows, []interface{}{n.Name, n.Zone, n.OwnerID, n.DaysSince, last})
	}
	if err := w.table(SheetNeglected, []string{"Client", "Zone", "Owner", "Days Since Visit", "Last Visit"}, rows); err != nil {
		return nil, fmt.Errorf("write %s: %w", SheetNeglected, err)
	}

	rows = nil
	for _, t := range d.OrderTrend {
		rows = append(rows, []interface{}{t.Date, t.Count, t.Total})
	}
	if err := w.table(SheetOrderTrend, []string{"Date", "Orders", "Total"}, rows); err != nil {
		return nil, fmt.Errorf("write %s: %w", SheetOrderTrend, err)
	}

	rows = nil
	for _, z := range d.Zones {
		rows = append(rows, []interface{}{z.Zone, z.Visits})
	}
	if err := w.table(SheetZones, []string{"Zone", "Visits"}, rows); err != nil {
		return nil, fmt.Errorf("write %s: %w", SheetZones, err)
	}

	f.SetActiveSheet(0)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
