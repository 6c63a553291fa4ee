package qr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = "A/B/C/S100/DSN42/X/5.000/1.200/0.300/0.100/0.050/0.020/3.500"

func TestParseFullPayload(t *testing.T) {
	item, ok := Parse(samplePayload, 84)
	require.True(t, ok)

	assert.Equal(t, "S100", item.SerialNo)
	assert.Equal(t, "DSN42", item.DesignNo)
	assert.Equal(t, 5.000, item.GrossWeight)
	assert.Equal(t, 1.200, item.StoneWeight)
	assert.Equal(t, 0.300, item.BigStoneWeight)
	assert.Equal(t, 0.0, item.XLStoneWeight)
	assert.Equal(t, 0.100, item.MinaWeight)
	assert.Equal(t, 0.050, item.MotiWeight)
	assert.Equal(t, 0.020, item.MozoWeight)
	assert.Equal(t, 3.500, item.NetWeight)
	assert.Equal(t, 84.0, item.Melting)
	assert.Equal(t, 2.940, item.FineWeight)
	assert.NotEmpty(t, item.ID)
	assert.Empty(t, item.ImageRef)
}

func TestParseTooFewFields(t *testing.T) {
	for _, payload := range []string{
		"",
		"A/B/C",
		"A/B/C/S100/DSN42/X/5.000/1.200/0.300/0.100/0.050/0.020", // 12 fields
	} {
		item, ok := Parse(payload, 84)
		assert.False(t, ok, "payload %q", payload)
		assert.Nil(t, item)
	}
}

func TestParseMalformedNumbersDefaultToZero(t *testing.T) {
	payload := "A/B/C/S1/D1/X/abc//NaN/+Inf/ 12x /0.020/3.5"
	item, ok := Parse(payload, 84)
	require.True(t, ok)

	assert.Equal(t, 0.0, item.GrossWeight)
	assert.Equal(t, 0.0, item.StoneWeight)
	assert.Equal(t, 0.0, item.BigStoneWeight)
	assert.Equal(t, 0.0, item.MinaWeight)
	assert.Equal(t, 0.0, item.MotiWeight)
	assert.Equal(t, 0.020, item.MozoWeight)
	assert.Equal(t, 3.5, item.NetWeight)
}

func TestParseIgnoresTrailingFields(t *testing.T) {
	item, ok := Parse(samplePayload+"/future/vendor/extensions", 84)
	require.True(t, ok)
	assert.Equal(t, 3.500, item.NetWeight)
}

func TestParseTrimsIdentityFields(t *testing.T) {
	payload := "A/B/C/ S100 /  DSN42/X/1/0/0/0/0/0/1"
	item, ok := Parse(payload, 84)
	require.True(t, ok)
	assert.Equal(t, "S100", item.SerialNo)
	assert.Equal(t, "DSN42", item.DesignNo)
}

func TestParseMintsUniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		item, ok := Parse(samplePayload, 84)
		require.True(t, ok)
		require.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestFineWeight(t *testing.T) {
	tests := []struct {
		net, melting, want float64
	}{
		{3.500, 84, 2.940},
		{3.500, 75, 2.625},
		{0, 84, 0},
		{10, 100, 10},
		{0.0625, 100, 0.063}, // exact .5 at the third decimal rounds away from zero
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FineWeight(tt.net, tt.melting),
			"FineWeight(%v, %v)", tt.net, tt.melting)
	}
}

func TestFineWeightDeterministic(t *testing.T) {
	first := FineWeight(3.333, 91.6)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FineWeight(3.333, 91.6))
	}
}

func TestParseUsesSuppliedDefaultMelting(t *testing.T) {
	item, ok := Parse(samplePayload, 75)
	require.True(t, ok)
	assert.Equal(t, 75.0, item.Melting)
	assert.Equal(t, 2.625, item.FineWeight)
}

func TestParseDelimiterCount(t *testing.T) {
	// Exactly 13 fields is the minimum accepted.
	payload := strings.Repeat("/", 12)
	_, ok := Parse(payload, 84)
	assert.True(t, ok)
}
