package totals

import (
	"testing"

	"github.com/rkgold/invoicer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumEmptyList(t *testing.T) {
	assert.Equal(t, models.MassTotals{}, Sum(nil))
	assert.Equal(t, models.MassTotals{}, Sum([]models.Item{}))
}

func TestSumAddsEveryField(t *testing.T) {
	items := []models.Item{
		{
			GrossWeight: 5, StoneWeight: 1.2, BigStoneWeight: 0.3,
			XLStoneWeight: 0.1, MinaWeight: 0.1, MotiWeight: 0.05,
			MozoWeight: 0.02, NetWeight: 3.5, FineWeight: 2.94,
		},
		{
			GrossWeight: 2, StoneWeight: 0.8, BigStoneWeight: 0.2,
			XLStoneWeight: 0.4, MinaWeight: 0.3, MotiWeight: 0.15,
			MozoWeight: 0.08, NetWeight: 1.5, FineWeight: 1.26,
		},
	}
	got := Sum(items)

	assert.InDelta(t, 7, got.GrossWeight, 1e-9)
	assert.InDelta(t, 2.0, got.StoneWeight, 1e-9)
	assert.InDelta(t, 0.5, got.BigStoneWeight, 1e-9)
	assert.InDelta(t, 0.5, got.XLStoneWeight, 1e-9)
	assert.InDelta(t, 0.4, got.MinaWeight, 1e-9)
	assert.InDelta(t, 0.2, got.MotiWeight, 1e-9)
	assert.InDelta(t, 0.1, got.MozoWeight, 1e-9)
	assert.InDelta(t, 5.0, got.NetWeight, 1e-9)
	assert.InDelta(t, 4.2, got.FineWeight, 1e-9)
}

func TestBreakdownOmitsZeroWeightCategories(t *testing.T) {
	totals := models.MassTotals{StoneWeight: 2.0}
	rates := models.StoneRates{Stone: 1200, BigStone: 600, XLStone: 9999}

	b := Breakdown(totals, rates, nil)

	require.Len(t, b.StoneLines, 1)
	assert.Equal(t, "Small Stone", b.StoneLines[0].Label)
	assert.InDelta(t, 2400.0, b.StoneLines[0].Amount, 1e-9)
	assert.InDelta(t, 2400.0, b.GrandTotal, 1e-9)
}

func TestBreakdownExcludesZeroAmountCharges(t *testing.T) {
	charges := []models.OtherCharge{
		{ID: "1", Name: "Hallmarking", Amount: 350},
		{ID: "2", Name: "Other Charges", Amount: 0},
		{ID: "3", Name: ""}, // trailing empty slot
	}
	b := Breakdown(models.MassTotals{}, models.StoneRates{}, charges)

	require.Len(t, b.OtherLines, 1)
	assert.Equal(t, "Hallmarking", b.OtherLines[0].Label)
	assert.InDelta(t, 350.0, b.GrandTotal, 1e-9)
}

func TestBreakdownGrandTotalCombinesSections(t *testing.T) {
	totals := models.MassTotals{StoneWeight: 2.0, MinaWeight: 0.5}
	rates := models.StoneRates{Stone: 1200, Mina: 2500}
	charges := []models.OtherCharge{{ID: "1", Name: "Polish", Amount: 100}}

	b := Breakdown(totals, rates, charges)

	require.Len(t, b.StoneLines, 2)
	require.Len(t, b.OtherLines, 1)
	assert.InDelta(t, 2*1200+0.5*2500+100, b.GrandTotal, 1e-9)
	assert.False(t, b.Empty())
}

func TestBreakdownNegativeRateProducesNegativeLine(t *testing.T) {
	totals := models.MassTotals{MozoWeight: 1.0}
	rates := models.StoneRates{Mozo: -50}

	b := Breakdown(totals, rates, nil)

	require.Len(t, b.StoneLines, 1)
	assert.InDelta(t, -50.0, b.StoneLines[0].Amount, 1e-9)
	assert.InDelta(t, -50.0, b.GrandTotal, 1e-9)
}

func TestBreakdownEmpty(t *testing.T) {
	b := Breakdown(models.MassTotals{}, models.DefaultStoneRates(), []models.OtherCharge{{ID: "1"}})
	assert.True(t, b.Empty())
	assert.Zero(t, b.GrandTotal)
}
