package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gavelworks/auctionhouse/internal/search/domain"
)

const collectionName = "items"

type ItemRepo struct {
	collection *mongo.Collection
}

func NewItemRepo(db *mongo.Database) domain.ItemRepository {
	return &ItemRepo{collection: db.Collection(collectionName)}
}

func (r *ItemRepo) Upsert(ctx context.Context, item *domain.Item) error {
	item.UpdatedAt = time.Now().UTC()
	filter := bson.M{"_id": item.ID}
	update := bson.M{
		"$set": bson.M{
			"make":         item.Make,
			"model":        item.Model,
			"color":        item.Color,
			"mileage":      item.Mileage,
			"year":         item.Year,
			"reservePrice": item.ReservePrice,
			"seller":       item.Seller,
			"auctionEnd":   item.AuctionEnd,
			"createdAt":    item.CreatedAt,
			"updatedAt":    item.UpdatedAt,
		},
		// Created 重放不得覆盖 BidPlaced/Finished 已写入的字段
		"$setOnInsert": bson.M{
			"status":         item.Status,
			"currentHighBid": int64(0),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *ItemRepo) UpdateItemFields(ctx context.Context, id string, fields domain.ItemFields) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"make":      fields.Make,
			"model":     fields.Model,
			"color":     fields.Color,
			"mileage":   fields.Mileage,
			"year":      fields.Year,
			"updatedAt": time.Now().UTC(),
		},
		"$setOnInsert": bson.M{
			"status":         "Live",
			"currentHighBid": int64(0),
		},
	}
	// upsert：Updated 先于 Created 到达时落地部分记录
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *ItemRepo) ApplyOutcome(ctx context.Context, id string, itemSold bool, winner string, amount int64) error {
	set := bson.M{
		"updatedAt": time.Now().UTC(),
	}
	if itemSold {
		set["status"] = "Finished"
		set["winner"] = winner
		set["soldAmount"] = amount
	} else {
		set["status"] = "ReserveNotMet"
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *ItemRepo) UpdateHighBidIfGreater(ctx context.Context, id string, amount int64) error {
	filter := bson.M{"_id": id, "currentHighBid": bson.M{"$lt": amount}}
	update := bson.M{"$set": bson.M{"currentHighBid": amount, "updatedAt": time.Now().UTC()}}
	// 记录缺失或现值更高时 MatchedCount 为 0，直接跳过
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *ItemRepo) Search(ctx context.Context, q domain.SearchQuery) ([]*domain.Item, int64, error) {
	filter := bson.M{}

	if q.Term != "" {
		regex := primitive.Regex{Pattern: q.Term, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"make": regex},
			bson.M{"model": regex},
			bson.M{"color": regex},
		}
	}
	if q.Seller != "" {
		filter["seller"] = q.Seller
	}
	if q.Winner != "" {
		filter["winner"] = q.Winner
	}

	switch q.FilterBy {
	case "finished":
		filter["auctionEnd"] = bson.M{"$lt": time.Now().UTC()}
	case "endingSoon":
		filter["auctionEnd"] = bson.M{
			"$gt": time.Now().UTC(),
			"$lt": time.Now().UTC().Add(6 * time.Hour),
		}
	default:
		filter["auctionEnd"] = bson.M{"$gt": time.Now().UTC()}
	}

	var sort bson.D
	switch q.OrderBy {
	case "make":
		sort = bson.D{{Key: "make", Value: 1}, {Key: "model", Value: 1}}
	case "new":
		sort = bson.D{{Key: "createdAt", Value: -1}}
	default:
		sort = bson.D{{Key: "auctionEnd", Value: 1}}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(sort).
		SetSkip(int64((q.Page - 1) * q.PageSize)).
		SetLimit(int64(q.PageSize))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []*domain.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
