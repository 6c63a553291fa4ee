package invoice

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rkgold/invoicer/internal/models"
	"github.com/rkgold/invoicer/internal/totals"
	"github.com/xuri/excelize/v2"
)

// XLSXFilename names the workbook artifact after the party and slip.
func XLSXFilename(req models.InvoiceRequest) string {
	party := strings.Join(strings.Fields(req.PartyName), "_")
	return fmt.Sprintf("RK_GOLD_%s_%s_%d.xlsx", party, req.SlipNumber, time.Now().UnixMilli())
}

// WriteXLSX renders the invoice as a two-sheet workbook: line items with
// a totals row, and the priced charge breakdown.
func WriteXLSX(w io.Writer, req models.InvoiceRequest) error {
	if err := Validate(req); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const itemsSheet = "Items"
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return err
	}

	header := []interface{}{
		"S.No", "Serial No", "Design", "GW", "SW", "BSW", "XL St",
		"Mina", "Moti", "Mozo", "Net W", "Melt %", "Fine W",
	}
	if err := setRow(f, itemsSheet, 1, header); err != nil {
		return err
	}

	row := 2
	for i, item := range req.Items {
		cells := []interface{}{
			i + 1, item.SerialNo, item.DesignNo,
			item.GrossWeight, item.StoneWeight, item.BigStoneWeight,
			item.XLStoneWeight, item.MinaWeight, item.MotiWeight,
			item.MozoWeight, item.NetWeight, item.Melting, item.FineWeight,
		}
		if err := setRow(f, itemsSheet, row, cells); err != nil {
			return err
		}
		row++
	}

	t := totals.Sum(req.Items)
	totalsRow := []interface{}{
		"TOTAL", "", "",
		t.GrossWeight, t.StoneWeight, t.BigStoneWeight, t.XLStoneWeight,
		t.MinaWeight, t.MotiWeight, t.MozoWeight, t.NetWeight, "", t.FineWeight,
	}
	if err := setRow(f, itemsSheet, row, totalsRow); err != nil {
		return err
	}

	breakdown := totals.Breakdown(t, req.Rates, req.OtherCharges)
	if !breakdown.Empty() {
		if err := writeChargesSheet(f, breakdown); err != nil {
			return err
		}
	}

	// Drop the default sheet so the workbook opens on the items.
	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if defaultSheet != itemsSheet {
		_ = f.DeleteSheet(defaultSheet)
	}
	if idx, err := f.GetSheetIndex(itemsSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	_, err := f.WriteTo(w)
	return err
}

func writeChargesSheet(f *excelize.File, b totals.ChargeBreakdown) error {
	const sheet = "Charges"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, []interface{}{"Type", "Weight (g)", "Rate", "Amount"}); err != nil {
		return err
	}
	row := 2
	for _, l := range b.StoneLines {
		if err := setRow(f, sheet, row, []interface{}{l.Label, l.Weight, l.Rate, l.Amount}); err != nil {
			return err
		}
		row++
	}
	for _, l := range b.OtherLines {
		if err := setRow(f, sheet, row, []interface{}{l.Label, "-", "-", l.Amount}); err != nil {
			return err
		}
		row++
	}
	return setRow(f, sheet, row, []interface{}{"Total Charges", "", "", b.GrandTotal})
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
