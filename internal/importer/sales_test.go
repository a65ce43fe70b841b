package importer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

func TestParseSalesDecimalComma(t *testing.T) {
	records, err := ParseSales("Maria,Brincos,150,00\nJoão,Anéis,89,90", "r1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].Value.Equal(decimal.RequireFromString("150.0")))
	assert.Equal(t, models.CategoryEarrings, records[0].Category)
	assert.Equal(t, "Maria", records[0].Customer)

	assert.True(t, records[1].Value.Equal(decimal.RequireFromString("89.9")))
	assert.Equal(t, models.CategoryRings, records[1].Category)

	for _, r := range records {
		assert.Equal(t, SoldStatus, r.Status)
		assert.Equal(t, "r1", r.RepresentativeID)
	}
}

func TestParseSalesPlainValueAndBlankLines(t *testing.T) {
	records, err := ParseSales("\n  Carla, colares ,200 \n\n", "r1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.CategoryNecklaces, records[0].Category)
	assert.True(t, records[0].Value.Equal(decimal.NewFromInt(200)))
}

func TestParseSalesRejects(t *testing.T) {
	_, err := ParseSales("Maria,Brincos,150,00", "")
	assert.ErrorIs(t, err, ErrMissingRepresentative)

	_, err = ParseSales("  \n ", "r1")
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = ParseSales("Maria,Brincos,150,00\nJoão,Relógios,10", "r1")
	assert.ErrorIs(t, err, ErrInvalidLine)

	_, err = ParseSales("Maria,Brincos,abc", "r1")
	assert.ErrorIs(t, err, ErrInvalidLine)
}

func TestParseSalesThousandsSeparator(t *testing.T) {
	cases := map[string]string{
		"Ana,Pulseiras,1.150":        "1150",
		"Ana,Pulseiras,1.150,00":     "1150.00",
		"Ana,Pulseiras,R$ 12.000,50": "12000.50",
		"Ana,Pulseiras,150.5":        "150.5",
		"Ana,Pulseiras,1.15":         "1.15",
	}
	for line, want := range cases {
		records, err := ParseSales(line, "r1")
		require.NoError(t, err, line)
		require.Len(t, records, 1, line)
		assert.True(t, records[0].Value.Equal(decimal.RequireFromString(want)), "%s parsed as %s", line, records[0].Value)
	}
}
