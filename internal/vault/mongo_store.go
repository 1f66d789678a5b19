package vault

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
)

type MongoItemStore struct {
	coll *mongo.Collection
}

type itemDoc struct {
	ID        string          `bson:"_id"`
	UserID    string          `bson:"user_id"`
	Label     string          `bson:"label,omitempty"`
	Category  string          `bson:"category,omitempty"`
	Envelope  crypto.Envelope `bson:"envelope"`
	CreatedAt time.Time       `bson:"created_at"`
}

func NewMongoItemStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoItemStore, error) {
	c := cli.Database(db).Collection(coll)
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	return &MongoItemStore{coll: c}, nil
}

func toDoc(it Item) itemDoc {
	return itemDoc{
		ID:        it.ID,
		UserID:    it.UserID,
		Label:     it.Label,
		Category:  it.Category,
		Envelope:  it.Envelope,
		CreatedAt: it.CreatedAt,
	}
}

func (d itemDoc) item() Item {
	return Item{
		ID:        d.ID,
		UserID:    d.UserID,
		Label:     d.Label,
		Category:  d.Category,
		Envelope:  d.Envelope,
		CreatedAt: d.CreatedAt,
	}
}

func (s *MongoItemStore) Insert(ctx context.Context, item Item) error {
	_, err := s.coll.InsertOne(ctx, toDoc(item))
	return err
}

func (s *MongoItemStore) FindByOwner(ctx context.Context, userID, id string) (Item, error) {
	var doc itemDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	return doc.item(), nil
}

func (s *MongoItemStore) ListByOwner(ctx context.Context, userID string) ([]Item, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Item
	for cur.Next(ctx) {
		var doc itemDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.item())
	}
	return out, cur.Err()
}

func (s *MongoItemStore) Replace(ctx context.Context, item Item) error {
	res, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": item.ID, "user_id": item.UserID},
		toDoc(item),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoItemStore) DeleteByOwner(ctx context.Context, userID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoItemStore) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
