package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tesnimSatouri/Secure-data-vault/internal/storage"
)

type MongoUserStore struct {
	coll *mongo.Collection
}

type userDoc struct {
	ID               string    `bson:"_id"`
	Email            string    `bson:"email"`
	Name             string    `bson:"name,omitempty"`
	PassHash         string    `bson:"pass_hash"`
	Verified         bool      `bson:"verified"`
	VerifyToken      string    `bson:"verify_token,omitempty"`
	VerifyExpires    time.Time `bson:"verify_expires,omitempty"`
	TwoFactorEnabled bool      `bson:"twofa_enabled"`
	TwoFactorCode    string    `bson:"twofa_code,omitempty"`
	TwoFactorExpires time.Time `bson:"twofa_expires,omitempty"`
	ResetToken       string    `bson:"reset_token,omitempty"`
	ResetExpires     time.Time `bson:"reset_expires,omitempty"`
	ConsentAccepted  bool      `bson:"consent_accepted"`
	ConsentAt        time.Time `bson:"consent_at,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
}

func NewMongoUserStore(ctx context.Context, cli *mongo.Client, db, coll string) (*MongoUserStore, error) {
	c := cli.Database(db).Collection(coll)
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &MongoUserStore{coll: c}, nil
}

func (s *MongoUserStore) Add(ctx context.Context, u *User) error {
	doc := userDoc{
		ID:               u.ID,
		Email:            NormalizeEmail(u.Email),
		Name:             u.Name,
		PassHash:         u.PassHash,
		Verified:         u.Verified,
		VerifyToken:      u.VerifyToken,
		VerifyExpires:    u.VerifyExpires,
		TwoFactorEnabled: u.TwoFactorEnabled,
		ConsentAccepted:  u.ConsentAccepted,
		ConsentAt:        u.ConsentAt,
		CreatedAt:        u.CreatedAt,
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if storage.IsDuplicateKey(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (s *MongoUserStore) FindByVerifyToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"verify_token": token})
}

func (s *MongoUserStore) FindByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"reset_token": token})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &User{
		ID:               doc.ID,
		Email:            doc.Email,
		Name:             doc.Name,
		PassHash:         doc.PassHash,
		Verified:         doc.Verified,
		VerifyToken:      doc.VerifyToken,
		VerifyExpires:    doc.VerifyExpires,
		TwoFactorEnabled: doc.TwoFactorEnabled,
		TwoFactorCode:    doc.TwoFactorCode,
		TwoFactorExpires: doc.TwoFactorExpires,
		ResetToken:       doc.ResetToken,
		ResetExpires:     doc.ResetExpires,
		ConsentAccepted:  doc.ConsentAccepted,
		ConsentAt:        doc.ConsentAt,
		CreatedAt:        doc.CreatedAt,
	}, nil
}

func (s *MongoUserStore) SetVerified(ctx context.Context, id string) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"verified": true},
		"$unset": bson.M{"verify_token": "", "verify_expires": ""},
	})
}

func (s *MongoUserStore) SetVerifyToken(ctx context.Context, id, token string, expires time.Time) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"verify_token": token, "verify_expires": expires}})
}

func (s *MongoUserStore) SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error {
	if enabled {
		return s.update(ctx, id, bson.M{"$set": bson.M{"twofa_enabled": true}})
	}
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"twofa_enabled": false},
		"$unset": bson.M{"twofa_code": "", "twofa_expires": ""},
	})
}

func (s *MongoUserStore) SetTwoFactorCode(ctx context.Context, id, code string, expires time.Time) error {
	if code == "" {
		return s.update(ctx, id, bson.M{"$unset": bson.M{"twofa_code": "", "twofa_expires": ""}})
	}
	return s.update(ctx, id, bson.M{"$set": bson.M{"twofa_code": code, "twofa_expires": expires}})
}

func (s *MongoUserStore) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	if token == "" {
		return s.update(ctx, id, bson.M{"$unset": bson.M{"reset_token": "", "reset_expires": ""}})
	}
	return s.update(ctx, id, bson.M{"$set": bson.M{"reset_token": token, "reset_expires": expires}})
}

func (s *MongoUserStore) UpdatePassword(ctx context.Context, id, newHash string) error {
	return s.update(ctx, id, bson.M{
		"$set":   bson.M{"pass_hash": newHash},
		"$unset": bson.M{"reset_token": "", "reset_expires": ""},
	})
}

func (s *MongoUserStore) UpdateName(ctx context.Context, id, name string) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"name": name}})
}

func (s *MongoUserStore) SetConsent(ctx context.Context, id string, accepted bool, at time.Time) error {
	set := bson.M{"consent_accepted": accepted}
	if accepted {
		set["consent_at"] = at
		return s.update(ctx, id, bson.M{"$set": set})
	}
	return s.update(ctx, id, bson.M{"$set": set, "$unset": bson.M{"consent_at": ""}})
}

func (s *MongoUserStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoUserStore) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
