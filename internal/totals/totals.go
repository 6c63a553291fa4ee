// Package totals folds the session's item list into mass totals and a
// priced charge breakdown. Both computations run in full on every state
// change; lists are tens to low hundreds of items, so there is nothing to
// cache.
package totals

import "github.com/rkgold/invoicer/internal/models"

// ChargeLine is one priced row of the breakdown. Stone-category lines
// carry Weight and Rate; other-charge lines carry only Amount.
type ChargeLine struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Amount float64 `json:"amount"`
}

// ChargeBreakdown is the priced section of the invoice.
type ChargeBreakdown struct {
	StoneLines []ChargeLine `json:"stone_lines"`
	OtherLines []ChargeLine `json:"other_lines"`
	GrandTotal float64      `json:"grand_total"`
}

// Empty reports whether the breakdown has no priced lines at all, in which
// case the invoice omits the pricing section entirely.
func (b ChargeBreakdown) Empty() bool {
	return len(b.StoneLines) == 0 && len(b.OtherLines) == 0
}

// Sum adds up each mass field across all items. An empty list yields the
// zero value.
func Sum(items []models.Item) models.MassTotals {
	var t models.MassTotals
	for _, it := range items {
		t.GrossWeight += it.GrossWeight
		t.StoneWeight += it.StoneWeight
		t.BigStoneWeight += it.BigStoneWeight
		t.XLStoneWeight += it.XLStoneWeight
		t.MinaWeight += it.MinaWeight
		t.MotiWeight += it.MotiWeight
		t.MozoWeight += it.MozoWeight
		t.NetWeight += it.NetWeight
		t.FineWeight += it.FineWeight
	}
	return t
}

// Breakdown prices the stone categories against their configured rates and
// appends the non-zero other charges. Categories with zero summed weight
// and charges with zero amount are left out entirely, not shown as zero
// rows. Summation runs at full float precision; rounding is a display
// concern.
func Breakdown(t models.MassTotals, rates models.StoneRates, other []models.OtherCharge) ChargeBreakdown {
	categories := []struct {
		label  string
		weight float64
		rate   float64
	}{
		{"Small Stone", t.StoneWeight, rates.Stone},
		{"Big Stone", t.BigStoneWeight, rates.BigStone},
		{"XL Stone", t.XLStoneWeight, rates.XLStone},
		{"Mina", t.MinaWeight, rates.Mina},
		{"Moti", t.MotiWeight, rates.Moti},
		{"Mozo", t.MozoWeight, rates.Mozo},
	}

	var b ChargeBreakdown
	for _, c := range categories {
		if c.weight <= 0 {
			continue
		}
		amount := c.weight * c.rate
		b.StoneLines = append(b.StoneLines, ChargeLine{
			Label:  c.label,
			Weight: c.weight,
			Rate:   c.rate,
			Amount: amount,
		})
		b.GrandTotal += amount
	}

	for _, c := range other {
		if c.Amount <= 0 {
			continue
		}
		b.OtherLines = append(b.OtherLines, ChargeLine{Label: c.Name, Amount: c.Amount})
		b.GrandTotal += c.Amount
	}
	return b
}
