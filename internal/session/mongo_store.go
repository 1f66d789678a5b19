package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	coll *mongo.Collection
}

type sessionDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	SID        string    `bson:"sid"`
	IP         string    `bson:"ip,omitempty"`
	UserAgent  string    `bson:"user_agent,omitempty"`
	Device     Device    `bson:"device"`
	CreatedAt  time.Time `bson:"created_at"`
	LastActive time.Time `bson:"last_active"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// NewMongoStore sets a unique index on sid and a TTL index on expires_at
// (expireAfterSeconds 0), so Mongo reaps dead sessions on its own. The TTL
// monitor runs on a coarse interval, so reads filter on expiry as well.
func NewMongoStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoStore, error) {
	c := cli.Database(db).Collection(coll)
	_, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "last_active", Value: -1}},
		},
	})
	if err != nil {
		return nil, err
	}
	return &MongoStore{coll: c}, nil
}

func (s *MongoStore) Create(ctx context.Context, userID string, meta Meta) (Record, error) {
	sid, err := NewSID()
	if err != nil {
		return Record{}, err
	}
	now := time.Now()
	doc := sessionDoc{
		ID:         uuid.NewString(),
		UserID:     userID,
		SID:        sid,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Device:     SummarizeUserAgent(meta.UserAgent),
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(Lifetime),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return Record{}, err
	}
	return doc.record(), nil
}

func (d sessionDoc) record() Record {
	return Record{
		ID:         d.ID,
		UserID:     d.UserID,
		SID:        d.SID,
		IP:         d.IP,
		UserAgent:  d.UserAgent,
		Device:     d.Device,
		CreatedAt:  d.CreatedAt,
		LastActive: d.LastActive,
		ExpiresAt:  d.ExpiresAt,
	}
}

func notExpired() bson.M {
	return bson.M{"$gt": time.Now()}
}

func (s *MongoStore) FindBySID(ctx context.Context, sid string) (Record, error) {
	var doc sessionDoc
	err := s.coll.FindOne(ctx, bson.M{"sid": sid, "expires_at": notExpired()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return doc.record(), nil
}

func (s *MongoStore) Exists(ctx context.Context, sid string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx,
		bson.M{"sid": sid, "expires_at": notExpired()},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"user_id": userID, "expires_at": notExpired()},
		options.Find().SetSort(bson.D{{Key: "last_active", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Record
	for cur.Next(ctx) {
		var doc sessionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.record())
	}
	return out, cur.Err()
}

func (s *MongoStore) Touch(ctx context.Context, sid string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"sid": sid, "expires_at": notExpired()},
		bson.M{"$set": bson.M{"last_active": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, sid string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"sid": sid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteByID(ctx context.Context, userID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
