package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

func TestDatasetDocumentRoundTrip(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	dataset := models.Dataset{
		Representatives: []models.Representative{{ID: "r1", Name: "Ana", MaletaStatus: models.MaletaInField}},
		Products:        []models.Product{{ID: "p1", Name: "Anel", Category: models.CategoryRings, Price: decimal.RequireFromString("89.90"), Stock: 3}},
		Movements: []models.Movement{{
			ID: "m1", RepresentativeID: "r1", ProductID: "p1", Type: models.MovementDelivered,
			Quantity: 2, Value: decimal.RequireFromString("89.90"), Timestamp: now,
		}},
	}

	doc, err := encodeDataset(dataset, now)
	require.NoError(t, err)
	assert.Equal(t, datasetDocumentID, doc.ID)
	assert.Contains(t, doc.Payload, `"reps"`)
	assert.Contains(t, doc.Payload, `"movs"`)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var stored datasetDocument
	require.NoError(t, bson.Unmarshal(raw, &stored))

	decoded, err := decodeDataset(stored)
	require.NoError(t, err)
	require.Len(t, decoded.Movements, 1)
	assert.True(t, decoded.Movements[0].Value.Equal(decimal.RequireFromString("89.9")))
	assert.Equal(t, "Ana", decoded.Representatives[0].Name)
}

func TestDecodeEmptyPayload(t *testing.T) {
	d, err := decodeDataset(datasetDocument{ID: datasetDocumentID})
	require.NoError(t, err)
	assert.Empty(t, d.Movements)

	_, err = decodeDataset(datasetDocument{Payload: "{not json"})
	assert.Error(t, err)
}

func TestRankingUpdate(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	filter, update, err := rankingUpdate("org", "s1", decimal.RequireFromString("2000.10"), decimal.RequireFromString("600.03"), now)
	require.NoError(t, err)

	assert.Equal(t, bson.M{"organizationId": "org", "sellerId": "s1"}, filter)
	inc := update["$inc"].(bson.M)
	require.IsType(t, primitive.Decimal128{}, inc["totalSales"])
	assert.Equal(t, "2000.10", inc["totalSales"].(primitive.Decimal128).String())
	assert.Equal(t, "600.03", inc["totalCommission"].(primitive.Decimal128).String())
	assert.Equal(t, 1, inc["settlements"])
	assert.Equal(t, bson.M{"updatedAt": now}, update["$set"])
}

func TestRankingDocumentEntry(t *testing.T) {
	sales, err := primitive.ParseDecimal128("7000.10")
	require.NoError(t, err)
	commission, err := primitive.ParseDecimal128("2600.04")
	require.NoError(t, err)

	doc := RankingDocument{OrganizationID: "org", SellerID: "s1", TotalSales: sales, TotalCommission: commission, Settlements: 2}
	e, err := doc.entry()
	require.NoError(t, err)
	assert.Equal(t, "s1", e.SellerID)
	assert.True(t, e.TotalSales.Equal(decimal.RequireFromString("7000.1")))
	assert.Equal(t, "2600.04", e.TotalCommission.String())
	assert.Equal(t, 2, e.Settlements)
}

func TestRankingDocumentEntryKeepsCents(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 10; i++ {
		total = total.Add(decimal.RequireFromString("0.10"))
	}
	stored, err := toDecimal128(total)
	require.NoError(t, err)

	back, err := fromDecimal128(stored)
	require.NoError(t, err)
	assert.True(t, back.Equal(decimal.NewFromInt(1)))

	_, err = fromDecimal128(primitive.NewDecimal128(0x7C00000000000000, 0))
	assert.Error(t, err, "NaN is not an amount")
}
