package models

// Item represents one scanned jewellery piece. Weights are in grams.
type Item struct {
	ID       string `json:"id"`
	SerialNo string `json:"serial_no"`
	DesignNo string `json:"design_no"`

	GrossWeight    float64 `json:"gross_weight"`
	StoneWeight    float64 `json:"stone_weight"`
	BigStoneWeight float64 `json:"big_stone_weight"`
	XLStoneWeight  float64 `json:"xl_stone_weight"`
	MinaWeight     float64 `json:"mina_weight"`
	MotiWeight     float64 `json:"moti_weight"`
	MozoWeight     float64 `json:"mozo_weight"`
	NetWeight      float64 `json:"net_weight"`

	// Melting is the metal purity in percent. FineWeight is derived from
	// NetWeight and Melting and must be recomputed when either changes.
	Melting    float64 `json:"melting"`
	FineWeight float64 `json:"fine_weight"`

	// ImageRef holds the base64-encoded product image, when one is known
	// for this design number. The design-keyed image map owns the data;
	// this is a display copy.
	ImageRef string `json:"image_ref,omitempty"`
}

// StoneRates holds the per-gram price for each stone category.
type StoneRates struct {
	Stone    float64 `json:"stone_rate"`
	BigStone float64 `json:"big_stone_rate"`
	XLStone  float64 `json:"xl_stone_rate"`
	Mina     float64 `json:"mina_rate"`
	Moti     float64 `json:"moti_rate"`
	Mozo     float64 `json:"mozo_rate"`
}

// DefaultStoneRates are the factory rates used until the operator edits them.
func DefaultStoneRates() StoneRates {
	return StoneRates{
		Stone:    1200,
		BigStone: 600,
		XLStone:  800,
		Mina:     2500,
		Moti:     1800,
		Mozo:     1500,
	}
}

// OtherCharge is a free-form named charge line on the invoice.
type OtherCharge struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Settings holds the operator-adjustable device settings.
type Settings struct {
	DefaultMelting float64 `json:"default_melting"`
}

// DefaultMelting is the purity applied to scans when no device setting exists.
const DefaultMelting = 84.0

// MassTotals is the per-field sum of a list of items.
type MassTotals struct {
	GrossWeight    float64 `json:"gross_weight"`
	StoneWeight    float64 `json:"stone_weight"`
	BigStoneWeight float64 `json:"big_stone_weight"`
	XLStoneWeight  float64 `json:"xl_stone_weight"`
	MinaWeight     float64 `json:"mina_weight"`
	MotiWeight     float64 `json:"moti_weight"`
	MozoWeight     float64 `json:"mozo_weight"`
	NetWeight      float64 `json:"net_weight"`
	FineWeight     float64 `json:"fine_weight"`
}

// InvoiceForm is the remembered party/slip pair for the next invoice.
type InvoiceForm struct {
	PartyName  string `json:"party_name"`
	SlipNumber string `json:"slip_number"`
}

// InvoiceRequest is everything the renderer needs for one document.
type InvoiceRequest struct {
	PartyName    string        `json:"party_name"`
	SlipNumber   string        `json:"slip_number"`
	Items        []Item        `json:"items"`
	Rates        StoneRates    `json:"rates"`
	OtherCharges []OtherCharge `json:"other_charges"`
	Logo         []byte        `json:"-"`
}
