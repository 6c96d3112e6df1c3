package source

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/quantreplay/replay-engine/internal/quotation"
)

// QuotationSource is the read-only query interface the loader pulls
// windows through. It is intentionally narrow: one method, closed-interval
// semantics, an optional symbol allow-list.
type QuotationSource interface {
	// GetByTimeRange returns records with trade_time in [start, end]
	// (inclusive both ends), ordered by trade_time ascending. An empty
	// symbols slice means the whole market.
	GetByTimeRange(ctx context.Context, start, end time.Time, symbols []string) ([]quotation.Record, error)
}

// quotationDoc mirrors the Mongo document shape in both quotations
// collections.
type quotationDoc struct {
	WindCode     string    `bson:"wind_code"`
	TradeTime    time.Time `bson:"trade_time"`
	LatestPrice  float64   `bson:"latest_price"`
	AveragePrice float64   `bson:"average_price"`
	TotalVolume  float64   `bson:"total_volume"`
}

// MongoSource implements QuotationSource against the hot/cold collection
// split described in schema.go. Queries are issued with a bounded timeout
// per spec (30s), matching the 30s source-query budget.
type MongoSource struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoSource creates a MongoSource over db.
func NewMongoSource(db *mongo.Database) *MongoSource {
	return &MongoSource{db: db, timeout: 30 * time.Second}
}

// GetByTimeRange queries the hot collection, falling back to (and merging
// with) the cold collection whenever part of the window could have rolled
// off into cold storage. The cutover date is not known in advance, so
// both collections are always queried for correctness; the hot collection
// is expected to satisfy the vast majority of replay workloads, which
// query recent history.
func (m *MongoSource) GetByTimeRange(ctx context.Context, start, end time.Time, symbols []string) ([]quotation.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	filter := bson.M{
		"trade_time": bson.M{"$gte": start, "$lte": end},
	}
	if len(symbols) > 0 {
		filter["wind_code"] = bson.M{"$in": symbols}
	}

	hot, err := m.queryCollection(ctx, CollectionHot, filter)
	if err != nil {
		return nil, fmt.Errorf("query hot collection: %w", err)
	}
	cold, err := m.queryCollection(ctx, CollectionCold, filter)
	if err != nil {
		return nil, fmt.Errorf("query cold collection: %w", err)
	}

	merged := mergeByTradeTime(hot, cold)
	return merged, nil
}

func (m *MongoSource) queryCollection(ctx context.Context, collection string, filter bson.M) ([]quotation.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "trade_time", Value: 1}})

	cursor, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []quotationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	out := make([]quotation.Record, len(docs))
	for i, d := range docs {
		out[i] = quotation.Record{
			WindCode:     d.WindCode,
			TradeTime:    d.TradeTime,
			LatestPrice:  d.LatestPrice,
			AveragePrice: d.AveragePrice,
			TotalVolume:  d.TotalVolume,
		}
	}
	return out, nil
}

// mergeByTradeTime merges two already trade_time-ordered slices into one
// ordered slice; a simple two-pointer merge since both inputs are sorted.
func mergeByTradeTime(a, b []quotation.Record) []quotation.Record {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]quotation.Record, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if !a[i].TradeTime.After(b[j].TradeTime) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
