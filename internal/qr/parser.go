package qr

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rkgold/invoicer/internal/models"
)

// Tag payload format, slash separated:
//
//	brand/factory/cz/s.no/design/extra/GW/SW/BSW/MINA/MOTI/MOZO/NET
//
// The first three fields and field 5 are vendor tags with no meaning
// downstream. Anything past field 12 is ignored so newer tag revisions
// keep scanning.
const minTagFields = 13

// Parse turns a raw tag payload into an Item. It returns false when the
// payload has fewer than 13 fields; it never fails on malformed numbers,
// which degrade to 0 field by field.
func Parse(payload string, defaultMelting float64) (*models.Item, bool) {
	parts := strings.Split(payload, "/")
	if len(parts) < minTagFields {
		return nil, false
	}

	net := parseWeight(parts[12])

	item := &models.Item{
		ID:             uuid.New().String(),
		SerialNo:       strings.TrimSpace(parts[3]),
		DesignNo:       strings.TrimSpace(parts[4]),
		GrossWeight:    parseWeight(parts[6]),
		StoneWeight:    parseWeight(parts[7]),
		BigStoneWeight: parseWeight(parts[8]),
		XLStoneWeight:  0, // not carried by the tag, manual edit only
		MinaWeight:     parseWeight(parts[9]),
		MotiWeight:     parseWeight(parts[10]),
		MozoWeight:     parseWeight(parts[11]),
		NetWeight:      net,
		Melting:        defaultMelting,
		FineWeight:     FineWeight(net, defaultMelting),
	}
	return item, true
}

// FineWeight computes net weight adjusted for purity, rounded to three
// decimal places, half away from zero.
func FineWeight(netWeight, melting float64) float64 {
	return math.Round(netWeight*melting/100*1000) / 1000
}

// parseWeight reads a tag weight field, best effort. Vendor tags carry
// blanks and stray text in unused slots; those become 0 rather than
// failing the whole record.
func parseWeight(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
