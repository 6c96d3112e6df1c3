package source

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names. quotations_hot holds recent, frequently-queried
// sessions; quotations_cold holds everything the archiver has rolled off
// into cheaper storage. GetByTimeRange always queries both and merges the
// results by trade time, transparently to the caller.
const (
	CollectionHot  = "quotations_hot"
	CollectionCold = "quotations_cold"
	CollectionRuns = "replay_runs"
)

// EnsureIndexes creates idempotent indexes on all collections the replay
// engine touches.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		collection string
		model      mongo.IndexModel
	}

	indexes := []idx{
		{
			collection: CollectionHot,
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "wind_code", Value: 1},
					{Key: "trade_time", Value: 1},
				},
			},
		},
		{
			collection: CollectionHot,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "trade_time", Value: 1}},
			},
		},
		{
			collection: CollectionCold,
			model: mongo.IndexModel{
				Keys: bson.D{
					{Key: "wind_code", Value: 1},
					{Key: "trade_time", Value: 1},
				},
			},
		},
		{
			collection: CollectionCold,
			model: mongo.IndexModel{
				Keys: bson.D{{Key: "trade_time", Value: 1}},
			},
		},
		{
			collection: CollectionRuns,
			model: mongo.IndexModel{
				Keys:    bson.D{{Key: "run_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for _, i := range indexes {
		_, err := db.Collection(i.collection).Indexes().CreateOne(ctx, i.model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", i.collection, err)
		}
	}

	log.Println("MongoDB indexes ensured")
	return nil
}
