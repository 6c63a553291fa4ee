package invoice

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/rkgold/invoicer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRequest() models.InvoiceRequest {
	return models.InvoiceRequest{
		PartyName:  "Sharma Jewellers",
		SlipNumber: "S-41",
		Items: []models.Item{
			{
				ID: "1", SerialNo: "S100", DesignNo: "DSN42",
				GrossWeight: 5, StoneWeight: 1.2, BigStoneWeight: 0.3,
				MinaWeight: 0.1, MotiWeight: 0.05, MozoWeight: 0.02,
				NetWeight: 3.5, Melting: 84, FineWeight: 2.94,
			},
			{
				ID: "2", SerialNo: "S101", DesignNo: "DSN43",
				GrossWeight: 2, StoneWeight: 0.8, NetWeight: 1.5,
				Melting: 84, FineWeight: 1.26,
			},
		},
		Rates:        models.DefaultStoneRates(),
		OtherCharges: []models.OtherCharge{{ID: "c1", Name: "Hallmarking", Amount: 350}},
	}
}

func pngImageRef(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestValidateRejectsIncompleteRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.InvoiceRequest)
		field  string
	}{
		{"missing party", func(r *models.InvoiceRequest) { r.PartyName = "  " }, "party_name"},
		{"missing slip", func(r *models.InvoiceRequest) { r.SlipNumber = "" }, "slip_number"},
		{"no items", func(r *models.InvoiceRequest) { r.Items = nil }, "items"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleRequest()
			tt.mutate(&req)

			err := Validate(req)
			require.Error(t, err)
			verr, ok := err.(*ValidationError)
			require.True(t, ok)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestValidateAcceptsCompleteRequest(t *testing.T) {
	assert.NoError(t, Validate(sampleRequest()))
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, sampleRequest()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output is not a PDF")
	assert.Greater(t, buf.Len(), 1000)
}

func TestWritePDFWithImages(t *testing.T) {
	req := sampleRequest()
	req.Items[0].ImageRef = pngImageRef(t)

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, req))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFSkipsBadImages(t *testing.T) {
	req := sampleRequest()
	req.Items[0].ImageRef = "definitely-not-base64!!!"
	req.Items[1].ImageRef = base64.StdEncoding.EncodeToString([]byte("not an image"))

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, req))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFManyItemsPaginates(t *testing.T) {
	req := sampleRequest()
	base := req.Items[0]
	req.Items = nil
	for i := 0; i < 40; i++ {
		req.Items = append(req.Items, base)
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, req))
	// 40 rows at 18mm cannot fit one landscape A4 page. A single-page
	// document carries exactly one "/Type /Page" plus the "/Type /Pages"
	// tree node.
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("/Type /Page")), 2)
}

func TestWritePDFRejectsInvalidRequest(t *testing.T) {
	req := sampleRequest()
	req.Items = nil

	var buf bytes.Buffer
	err := WritePDF(&buf, req)
	require.Error(t, err)
	assert.Zero(t, buf.Len(), "no document work before validation")
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRequest()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	design, err := f.GetCellValue("Items", "C2")
	require.NoError(t, err)
	assert.Equal(t, "DSN42", design)

	total, err := f.GetCellValue("Items", "A4")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", total)

	chargeType, err := f.GetCellValue("Charges", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Small Stone", chargeType)
}

func TestWriteXLSXOmitsChargesSheetWhenEmpty(t *testing.T) {
	req := sampleRequest()
	req.Rates = models.StoneRates{}
	req.OtherCharges = nil
	// Zero out stone weights so no category is chargeable.
	for i := range req.Items {
		req.Items[i].StoneWeight = 0
		req.Items[i].BigStoneWeight = 0
		req.Items[i].MinaWeight = 0
		req.Items[i].MotiWeight = 0
		req.Items[i].MozoWeight = 0
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, req))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.NotContains(t, f.GetSheetList(), "Charges")
}

func TestFilenames(t *testing.T) {
	req := sampleRequest()

	pdf := PDFFilename(req)
	assert.True(t, strings.HasPrefix(pdf, "RK_GOLD_Sharma_Jewellers_S-41_"))
	assert.True(t, strings.HasSuffix(pdf, ".pdf"))

	xlsx := XLSXFilename(req)
	assert.True(t, strings.HasPrefix(xlsx, "RK_GOLD_Sharma_Jewellers_S-41_"))
	assert.True(t, strings.HasSuffix(xlsx, ".xlsx"))
}
