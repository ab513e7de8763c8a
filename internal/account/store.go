package account

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"roastradar/internal/models"
)

// UserStore is the document-store surface the service depends on. Lookups
// return (nil, nil) when no document matches.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UsernameTakenByVerified(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, u *models.User) error
	ResetPending(ctx context.Context, email, passwordHash, code string, expiry time.Time) error
	MarkVerified(ctx context.Context, username string) error
	SetAcceptingMessages(ctx context.Context, id string, accepting bool) (*models.User, error)
	AppendMessage(ctx context.Context, id string, msg models.Message) error
	RemoveMessage(ctx context.Context, id, messageID string) (bool, error)
}

const opTimeout = 5 * time.Second

// MongoStore implements UserStore over a MongoDB collection.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var user models.User
	err := s.col.FindOne(ctxOp, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// FindByIdentifier matches either the username or the email.
func (s *MongoStore) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": identifier},
	}})
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) UsernameTakenByVerified(ctx context.Context, username string) (bool, error) {
	u, err := s.findOne(ctx, bson.M{"username": username, "isVerified": true})
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

func (s *MongoStore) Insert(ctx context.Context, u *models.User) error {
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.col.InsertOne(ctxOp, u)
	return err
}

// ResetPending overwrites the password and verification code of an existing
// unverified account, restarting its signup cycle.
func (s *MongoStore) ResetPending(ctx context.Context, email, passwordHash, code string, expiry time.Time) error {
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.col.UpdateOne(ctxOp, bson.M{"email": email}, bson.M{
		"$set": bson.M{
			"password":         passwordHash,
			"verifyCode":       code,
			"verifyCodeExpiry": expiry,
		},
	})
	return err
}

func (s *MongoStore) MarkVerified(ctx context.Context, username string) error {
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.col.UpdateOne(ctxOp, bson.M{"username": username}, bson.M{
		"$set": bson.M{"isVerified": true},
	})
	return err
}

// SetAcceptingMessages updates the flag atomically and returns the updated
// document, or (nil, nil) when the account no longer exists.
func (s *MongoStore) SetAcceptingMessages(ctx context.Context, id string, accepting bool) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err = s.col.FindOneAndUpdate(ctxOp,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"isAcceptingMessages": accepting}},
		opts,
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, id string, msg models.Message) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return mongo.ErrNoDocuments
	}
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err = s.col.UpdateOne(ctxOp, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"messages": msg},
	})
	return err
}

// RemoveMessage pulls the message with the given id from the owner's
// collection. It reports false when nothing was removed.
func (s *MongoStore) RemoveMessage(ctx context.Context, id, messageID string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	ctxOp, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := s.col.UpdateOne(ctxOp, bson.M{"_id": oid}, bson.M{
		"$pull": bson.M{"messages": bson.M{"_id": messageID}},
	})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
