package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/maleta/internal/domain/models"
)

const (
	datasetCollection = "datasets"
	rankingCollection = "seller_ranking"
	datasetDocumentID = "current"
)

// datasetDocument stores the dataset as its JSON export so the stored blob
// and the export/import format never drift apart.
type datasetDocument struct {
	ID        string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// RankingDocument is the accumulated settlement result of one seller.
type RankingDocument struct {
	OrganizationID  string    `bson:"organizationId" json:"organizationId"`
	SellerID        string    `bson:"sellerId" json:"sellerId"`
	TotalSales      primitive.Decimal128 `bson:"totalSales" json:"totalSales"`
	TotalCommission primitive.Decimal128 `bson:"totalCommission" json:"totalCommission"`
	Settlements     int                  `bson:"settlements" json:"settlements"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (d RankingDocument) entry() (models.RankingEntry, error) {
	sales, err := fromDecimal128(d.TotalSales)
	if err != nil {
		return models.RankingEntry{}, fmt.Errorf("seller %s total sales: %w", d.SellerID, err)
	}
	commission, err := fromDecimal128(d.TotalCommission)
	if err != nil {
		return models.RankingEntry{}, fmt.Errorf("seller %s total commission: %w", d.SellerID, err)
	}
	return models.RankingEntry{
		OrganizationID:  d.OrganizationID,
		SellerID:        d.SellerID,
		TotalSales:      sales,
		TotalCommission: commission,
		Settlements:     d.Settlements,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode amount %s: %w", d, err)
	}
	return out, nil
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	coefficient, exp, err := d.BigInt()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(coefficient, int32(exp)), nil
}

// MongoDBRepository persists the dataset blob and the seller ranking.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
	}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Load reads the stored dataset. A fresh database yields an empty dataset.
func (r *MongoDBRepository) Load(ctx context.Context) (models.Dataset, error) {
	var doc datasetDocument
	err := r.collection(datasetCollection).FindOne(ctx, bson.M{"_id": datasetDocumentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Dataset{}, nil
	}
	if err != nil {
		return models.Dataset{}, fmt.Errorf("failed to load dataset: %w", err)
	}
	return decodeDataset(doc)
}

// Save replaces the stored dataset in a single write.
func (r *MongoDBRepository) Save(ctx context.Context, dataset models.Dataset) error {
	doc, err := encodeDataset(dataset, time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = r.collection(datasetCollection).ReplaceOne(ctx,
		bson.M{"_id": datasetDocumentID},
		doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

// RecordSettlement adds a settlement to the seller's ranking entry.
func (r *MongoDBRepository) RecordSettlement(ctx context.Context, organizationID, sellerID string, sales, commission decimal.Decimal) error {
	filter, update, err := rankingUpdate(organizationID, sellerID, sales, commission, time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = r.collection(rankingCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update ranking: %w", err)
	}
	return nil
}

// Ranking lists the organization's sellers ordered by total sales.
func (r *MongoDBRepository) Ranking(ctx context.Context, organizationID string) ([]models.RankingEntry, error) {
	cur, err := r.collection(rankingCollection).Find(ctx,
		bson.M{"organizationId": organizationID},
		options.Find().SetSort(bson.D{{Key: "totalSales", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking: %w", err)
	}

	var docs []RankingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode ranking: %w", err)
	}

	out := make([]models.RankingEntry, 0, len(docs))
	for _, d := range docs {
		e, err := d.entry()
		if err != nil {
			return nil, fmt.Errorf("failed to decode ranking: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func encodeDataset(dataset models.Dataset, now time.Time) (datasetDocument, error) {
	payload, err := json.Marshal(dataset)
	if err != nil {
		return datasetDocument{}, fmt.Errorf("failed to encode dataset: %w", err)
	}
	return datasetDocument{ID: datasetDocumentID, Payload: string(payload), UpdatedAt: now}, nil
}

func decodeDataset(doc datasetDocument) (models.Dataset, error) {
	var dataset models.Dataset
	if doc.Payload == "" {
		return dataset, nil
	}
	if err := json.Unmarshal([]byte(doc.Payload), &dataset); err != nil {
		return models.Dataset{}, fmt.Errorf("failed to decode dataset: %w", err)
	}
	return dataset, nil
}

// rankingUpdate builds the upsert for one settlement. Amounts are stored as
// Decimal128 so $inc stays exact and totals still sort server side.
func rankingUpdate(organizationID, sellerID string, sales, commission decimal.Decimal, now time.Time) (bson.M, bson.M, error) {
	salesValue, err := toDecimal128(sales)
	if err != nil {
		return nil, nil, err
	}
	commissionValue, err := toDecimal128(commission)
	if err != nil {
		return nil, nil, err
	}

	filter := bson.M{"organizationId": organizationID, "sellerId": sellerID}
	update := bson.M{
		"$inc": bson.M{
			"totalSales":      salesValue,
			"totalCommission": commissionValue,
			"settlements":     1,
		},
		"$set": bson.M{"updatedAt": now},
	}
	return filter, update, nil
}
