// Package invoice renders the session state into downloadable documents:
// a paginated PDF slip and an XLSX workbook.
package invoice

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rkgold/invoicer/internal/models"
	"github.com/rkgold/invoicer/internal/totals"
)

const (
	brandName = "RK GOLD"
	address   = "Shop no.41 Opp Shri Ji Mandir, Mittal Complex, LAKHERAPURA BHOPAL-462001"
	gmail     = "RKGOLDMP@GMAIL.COM"
	instagram = "@_RK_GOLD"
)

// ValidationError reports the form fields that block rendering.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "invalid invoice request: " + strings.Join(parts, "; ")
}

// Validate rejects an incomplete request before any document work begins.
func Validate(req models.InvoiceRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.PartyName) == "" {
		fields["party_name"] = "party name is required"
	}
	if strings.TrimSpace(req.SlipNumber) == "" {
		fields["slip_number"] = "slip number is required"
	}
	if len(req.Items) == 0 {
		fields["items"] = "no items scanned"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// PDFFilename names the artifact after the party and slip.
func PDFFilename(req models.InvoiceRequest) string {
	party := strings.Join(strings.Fields(req.PartyName), "_")
	return fmt.Sprintf("RK_GOLD_%s_%s_%d.pdf", party, req.SlipNumber, time.Now().UnixMilli())
}

// WritePDF renders the invoice as a landscape A4 PDF. Item images that
// fail to decode are skipped; their rows keep every other cell.
func WritePDF(w io.Writer, req models.InvoiceRequest) error {
	if err := Validate(req); err != nil {
		return err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()

	drawHeader(pdf, req, pageW)
	y := drawItemsTable(pdf, req, 50, pageW, pageH)

	t := totals.Sum(req.Items)
	breakdown := totals.Breakdown(t, req.Rates, req.OtherCharges)
	if !breakdown.Empty() {
		y = drawChargesTable(pdf, breakdown, y+10, pageH)
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(150, 140, 130)
	footer := "Generated by RK GOLD Jewellery Management System"
	pdf.Text(pageW/2-pdf.GetStringWidth(footer)/2, y+15, footer)

	return pdf.Output(w)
}

func drawHeader(pdf *gofpdf.Fpdf, req models.InvoiceRequest, pageW float64) {
	pdf.SetFillColor(30, 25, 22)
	pdf.Rect(0, 0, pageW, 45, "F")

	if len(req.Logo) > 0 {
		if name, opts, ok := registerImage(pdf, "logo", req.Logo); ok {
			pdf.ImageOptions(name, 10, 5, 35, 35, false, opts, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(205, 150, 125)
	pdf.Text(50, 20, brandName)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(180, 170, 160)
	pdf.Text(50, 28, address)

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(220, 200, 180)
	pdf.Text(pageW-65, 12, gmail)
	pdf.Text(pageW-65, 22, instagram)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(50, 38, "Party: "+req.PartyName)
	pdf.Text(160, 38, "Slip No: "+req.SlipNumber)
	pdf.Text(pageW-50, 38, "Date: "+time.Now().Format("02 Jan 2006"))
}

var itemColumns = []struct {
	label string
	width float64
}{
	{"S.No", 10},
	{"Design", 18},
	{"Image", 18},
	{"GW", 16},
	{"SW", 16},
	{"BSW", 16},
	{"XL St", 16},
	{"Mina", 16},
	{"Moti", 16},
	{"Mozo", 16},
	{"Net W", 16},
	{"Melt", 14},
	{"Fine W", 18},
}

const itemRowHeight = 18.0

func drawItemsTable(pdf *gofpdf.Fpdf, req models.InvoiceRequest, startY, pageW, pageH float64) float64 {
	left := 10.0
	y := startY
	drawItemsHeader(pdf, left, y)
	y += 8

	t := totals.Sum(req.Items)

	for i, item := range req.Items {
		if y+itemRowHeight > pageH-15 {
			pdf.AddPage()
			y = 15
			drawItemsHeader(pdf, left, y)
			y += 8
		}

		cells := []string{
			fmt.Sprintf("%d", i+1),
			item.DesignNo,
			"", // image cell
			weight(item.GrossWeight),
			weight(item.StoneWeight),
			weight(item.BigStoneWeight),
			weight(item.XLStoneWeight),
			weight(item.MinaWeight),
			weight(item.MotiWeight),
			weight(item.MozoWeight),
			weight(item.NetWeight),
			fmt.Sprintf("%g%%", item.Melting),
			weight(item.FineWeight),
		}
		drawItemsRow(pdf, left, y, itemRowHeight, cells, i%2 == 1)

		if item.ImageRef != "" {
			imgX := left + itemColumns[0].width + itemColumns[1].width + 1
			if name, opts, ok := registerImage(pdf, fmt.Sprintf("item-%d", i), decodeImageRef(item.ImageRef)); ok {
				pdf.ImageOptions(name, imgX, y+1, 16, 16, false, opts, 0, "")
			}
		}
		y += itemRowHeight
	}

	// Totals row stays on one page with at least one item row above it.
	if y+8 > pageH-15 {
		pdf.AddPage()
		y = 15
	}
	totalsCells := []string{
		"TOTAL", "", "",
		weight(t.GrossWeight),
		weight(t.StoneWeight),
		weight(t.BigStoneWeight),
		weight(t.XLStoneWeight),
		weight(t.MinaWeight),
		weight(t.MotiWeight),
		weight(t.MozoWeight),
		weight(t.NetWeight),
		"-",
		weight(t.FineWeight),
	}
	pdf.SetFillColor(45, 38, 35)
	pdf.SetTextColor(205, 150, 125)
	pdf.SetFont("Helvetica", "B", 7)
	x := left
	pdf.SetY(y)
	for c, col := range itemColumns {
		pdf.SetX(x)
		pdf.CellFormat(col.width, 8, totalsCells[c], "1", 0, "R", true, 0, "")
		x += col.width
	}
	return y + 8
}

func drawItemsHeader(pdf *gofpdf.Fpdf, left, y float64) {
	pdf.SetFillColor(45, 38, 35)
	pdf.SetTextColor(205, 150, 125)
	pdf.SetFont("Helvetica", "B", 7)
	pdf.SetY(y)
	x := left
	for _, col := range itemColumns {
		pdf.SetX(x)
		pdf.CellFormat(col.width, 8, col.label, "1", 0, "C", true, 0, "")
		x += col.width
	}
}

func drawItemsRow(pdf *gofpdf.Fpdf, left, y, h float64, cells []string, alternate bool) {
	if alternate {
		pdf.SetFillColor(250, 245, 240)
	} else {
		pdf.SetFillColor(255, 255, 255)
	}
	pdf.SetTextColor(40, 35, 30)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetY(y)
	x := left
	for c, col := range itemColumns {
		align := "R"
		if c == 0 || c == 2 || c == 11 {
			align = "C"
		}
		pdf.SetX(x)
		pdf.CellFormat(col.width, h, cells[c], "1", 0, align, true, 0, "")
		x += col.width
	}
}

func drawChargesTable(pdf *gofpdf.Fpdf, b totals.ChargeBreakdown, startY, pageH float64) float64 {
	rows := make([][]string, 0, len(b.StoneLines)+len(b.OtherLines)+1)
	for _, l := range b.StoneLines {
		rows = append(rows, []string{
			l.Label,
			weight(l.Weight) + " g",
			fmt.Sprintf("Rs. %.0f", l.Rate),
			fmt.Sprintf("Rs. %.2f", l.Amount),
		})
	}
	for _, l := range b.OtherLines {
		rows = append(rows, []string{l.Label, "-", "-", fmt.Sprintf("Rs. %.2f", l.Amount)})
	}
	rows = append(rows, []string{"Total Charges", "", "", fmt.Sprintf("Rs. %.2f", b.GrandTotal)})

	left := 10.0
	colW := 45.0
	y := startY

	needed := float64(len(rows)+1) * 8
	if y+needed > pageH-15 {
		pdf.AddPage()
		y = 15
	}

	pdf.SetFillColor(45, 38, 35)
	pdf.SetTextColor(205, 150, 125)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetY(y)
	for c, label := range []string{"Stone Type", "Weight", "Rate", "Amount"} {
		pdf.SetX(left + float64(c)*colW)
		pdf.CellFormat(colW, 8, label, "1", 0, "L", true, 0, "")
	}
	y += 8

	for i, row := range rows {
		last := i == len(rows)-1
		if last {
			pdf.SetFillColor(45, 38, 35)
			pdf.SetTextColor(205, 150, 125)
			pdf.SetFont("Helvetica", "B", 9)
		} else {
			pdf.SetFillColor(255, 255, 255)
			pdf.SetTextColor(40, 35, 30)
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.SetY(y)
		for c, cell := range row {
			align := "R"
			if c == 0 {
				align = "L"
			}
			pdf.SetX(left + float64(c)*colW)
			pdf.CellFormat(colW, 8, cell, "1", 0, align, true, 0, "")
		}
		y += 8
	}
	return y
}

func weight(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// decodeImageRef strips an optional data-URI prefix and base64 decodes.
// Returns nil when the reference is not decodable.
func decodeImageRef(ref string) []byte {
	if i := strings.IndexByte(ref, ','); i >= 0 && strings.HasPrefix(ref, "data:") {
		ref = ref[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		return nil
	}
	return data
}

// registerImage validates and registers image bytes with the document.
// Invalid or unsupported images return ok=false and are skipped by the
// caller; a bad product photo must not abort the whole invoice.
func registerImage(pdf *gofpdf.Fpdf, name string, data []byte) (string, gofpdf.ImageOptions, bool) {
	var opts gofpdf.ImageOptions
	if len(data) == 0 {
		return "", opts, false
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", opts, false
	}
	switch format {
	case "jpeg":
		opts.ImageType = "JPG"
	case "png":
		opts.ImageType = "PNG"
	default:
		return "", opts, false
	}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if info == nil || !pdf.Ok() {
		// Registration errors are sticky and would fail the whole
		// document on Output; clear and skip just this image.
		pdf.ClearError()
		return "", opts, false
	}
	return name, opts, true
}
