package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/pkg/errors"
)

const (
	SummarySheet = "Summary"
	OrdersSheet  = "Orders"
	timeLayout   = "2006-01-02 15:04"
)

func axis(col string, row int) string {
	return col + strconv.Itoa(row)
}

// WriteDailyExcel renders the report as an xlsx workbook with a summary sheet
// and an orders sheet holding one row per order line.
func WriteDailyExcel(w io.Writer, r *DailyReport) error {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SummarySheet)
	f.NewSheet(OrdersSheet)

	bold, err := f.NewStyle(`{"font":{"bold":true}}`)
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	money, err := f.NewStyle(`{"number_format":4}`)
	if err != nil {
		return errors.Wrap(err, "money style")
	}

	writeSummary(f, r, bold, money)
	writeOrders(f, r, bold, money)
	f.SetActiveSheet(1)
	return errors.Wrap(f.Write(w), "write workbook")
}

func writeSummary(f *excelize.File, r *DailyReport, bold, money int) {
	sh := SummarySheet
	f.SetCellValue(sh, "A1", fmt.Sprintf("Daily report %s", r.Date))
	f.MergeCell(sh, "A1", "D1")
	f.SetCellStyle(sh, "A1", "A1", bold)

	headers := []string{"Session", "Opened", "Closed", "Opening float", "Sales", "Surcharges", "Closing balance", "Auto closed"}
	cols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for i, h := range headers {
		f.SetCellValue(sh, axis(cols[i], 3), h)
	}
	f.SetCellStyle(sh, "A3", "H3", bold)
	f.SetColWidth(sh, "A", "H", 18)

	row := 4
	for _, s := range r.Sessions {
		f.SetCellValue(sh, axis("A", row), strconv.FormatInt(s.Session.ID, 10))
		f.SetCellValue(sh, axis("B", row), s.Session.OpenedAt.Format(timeLayout))
		if s.Session.ClosedAt != nil {
			f.SetCellValue(sh, axis("C", row), s.Session.ClosedAt.Format(timeLayout))
		}
		f.SetCellValue(sh, axis("D", row), s.Reconciliation.OpeningFloat.InexactFloat64())
		f.SetCellValue(sh, axis("E", row), s.Reconciliation.TotalSales.InexactFloat64())
		f.SetCellValue(sh, axis("F", row), s.Reconciliation.TotalSurcharge.InexactFloat64())
		f.SetCellValue(sh, axis("G", row), s.Reconciliation.ClosingBalance.InexactFloat64())
		f.SetCellValue(sh, axis("H", row), s.Session.AutoClosed)
		f.SetCellStyle(sh, axis("D", row), axis("G", row), money)
		row++
	}

	row++
	totals := []struct {
		label string
		value interface{}
	}{
		{"Opening total", r.OpeningTotal.InexactFloat64()},
		{"Sales", r.Sales.InexactFloat64()},
		{"Surcharges", r.Surcharges.InexactFloat64()},
		{"Net", r.Net.InexactFloat64()},
		{"Closing total", r.ClosingTotal.InexactFloat64()},
		{"Tickets", r.Tickets.Count},
		{"Average ticket", r.Tickets.Mean},
		{"Median ticket", r.Tickets.Median},
		{"Largest ticket", r.Tickets.Max},
	}
	for _, t := range totals {
		f.SetCellValue(sh, axis("A", row), t.label)
		f.SetCellValue(sh, axis("B", row), t.value)
		f.SetCellStyle(sh, axis("A", row), axis("A", row), bold)
		if t.label != "Tickets" {
			f.SetCellStyle(sh, axis("B", row), axis("B", row), money)
		}
		row++
	}
}

func writeOrders(f *excelize.File, r *DailyReport, bold, money int) {
	sh := OrdersSheet
	headers := []string{"Order", "Completed", "Type", "Table", "Product", "Qty", "Unit price", "Subtotal", "Surcharge", "Total"}
	cols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	for i, h := range headers {
		f.SetCellValue(sh, axis(cols[i], 1), h)
	}
	f.SetCellStyle(sh, "A1", "J1", bold)
	f.SetColWidth(sh, "A", "J", 16)

	row := 2
	for _, o := range r.Orders {
		f.SetCellValue(sh, axis("A", row), strconv.FormatInt(o.ID, 10))
		if o.CompletedAt != nil {
			f.SetCellValue(sh, axis("B", row), o.CompletedAt.Format(timeLayout))
		}
		f.SetCellValue(sh, axis("C", row), string(o.Type))
		if o.TableNumber != nil {
			f.SetCellValue(sh, axis("D", row), *o.TableNumber)
		}
		f.SetCellValue(sh, axis("I", row), o.Surcharge.InexactFloat64())
		f.SetCellValue(sh, axis("J", row), o.Total.InexactFloat64())
		f.SetCellStyle(sh, axis("I", row), axis("J", row), money)
		for _, l := range o.Lines {
			f.SetCellValue(sh, axis("E", row), l.ProductName)
			f.SetCellValue(sh, axis("F", row), l.Quantity)
			f.SetCellValue(sh, axis("G", row), l.UnitPrice.InexactFloat64())
			f.SetCellValue(sh, axis("H", row), l.Subtotal.InexactFloat64())
			f.SetCellStyle(sh, axis("G", row), axis("H", row), money)
			row++
		}
		if len(o.Lines) == 0 {
			row++
		}
	}
}
