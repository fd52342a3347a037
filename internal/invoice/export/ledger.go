package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/facturapro/facturapro/internal/invoice"
)

// ContentTypeXLSX is the MIME type of ledger spreadsheets.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const ledgerSheet = "Facturas"

var ledgerHeader = []any{"ID", "Fecha", "Empresa", "Cliente", "Moneda", "Subtotal", "ISV", "Total"}

// WriteLedger writes one spreadsheet row per invoice to w.
func WriteLedger(w io.Writer, docs []*invoice.Document) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fmt.Errorf("export: ledger sheet: %w", err)
	}
	if err := f.SetSheetRow(ledgerSheet, "A1", &ledgerHeader); err != nil {
		return fmt.Errorf("export: ledger header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(ledgerSheet, "A1", "H1", bold)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("export: ledger style: %w", err)
	}

	for i, d := range docs {
		t := d.Totals()
		row := []any{
			d.ID.String(),
			d.CreatedAt.Format("2006-01-02"),
			d.CompanyName,
			d.DisplayClient().Name,
			d.Currency.String(),
			t.Subtotal.InexactFloat64(),
			t.Tax.InexactFloat64(),
			t.Total.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &row); err != nil {
			return fmt.Errorf("export: ledger row %d: %w", i+2, err)
		}
		_ = f.SetCellStyle(ledgerSheet, fmt.Sprintf("F%d", i+2), fmt.Sprintf("H%d", i+2), amount)
	}
	_ = f.SetColWidth(ledgerSheet, "A", "A", 38)
	_ = f.SetColWidth(ledgerSheet, "C", "D", 30)

	return f.Write(w)
}
