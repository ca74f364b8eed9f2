// Package mongostore persists users and posts in MongoDB. User documents
// embed their subscriber ids as an ObjectID array.
package mongostore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type userDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Username    string               `bson:"username"`
	Password    string               `bson:"password"`
	Name        string               `bson:"name"`
	Nickname    string               `bson:"nickname"`
	Description string               `bson:"description"`
	Power       []string             `bson:"power"`
	IsActive    bool                 `bson:"isActive"`
	Avatar      string               `bson:"avatar"`
	Subscribers []primitive.ObjectID `bson:"subscribers"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d userDocument) toUser() types.User {
	subscribers := make([]string, 0, len(d.Subscribers))
	for _, id := range d.Subscribers {
		subscribers = append(subscribers, id.Hex())
	}
	return types.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.Password,
		Name:         d.Name,
		Nickname:     d.Nickname,
		Description:  d.Description,
		Power:        d.Power,
		IsActive:     d.IsActive,
		Avatar:       d.Avatar,
		Subscribers:  subscribers,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserRepository stores users as documents. Subscriber changes are single
// conditional updates ($push guarded by $ne, and $pull).
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique username index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.User{}, store.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []types.User{}, nil
	}

	users, err := r.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, nil)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]types.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	ordered := make([]types.User, 0, len(users))
	for _, oid := range oids {
		if user, ok := byID[oid.Hex()]; ok {
			ordered = append(ordered, user)
		}
	}
	return ordered, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	users, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, int(total), nil
}

func (r *UserRepository) Find(ctx context.Context, filter types.ProfileFilter) ([]types.User, error) {
	query := bson.M{}
	if filter.Nickname != "" {
		query["nickname"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Nickname), Options: "i"}
	}
	if filter.Power != "" {
		// A regex against an array field matches when any element matches.
		query["power"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Power), Options: "i"}
	}
	return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	doc := userDocument{
		ID:          primitive.NewObjectID(),
		Username:    user.Username,
		Password:    user.PasswordHash,
		Name:        user.Name,
		Nickname:    user.Nickname,
		Description: user.Description,
		Power:       nonNil(user.Power),
		IsActive:    user.IsActive,
		Avatar:      user.Avatar,
		Subscribers: []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, store.ErrConflict
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

// Update sets the profile fields only, so it never races with subscriber
// changes on the same document.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return types.User{}, store.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":        user.Name,
		"nickname":    user.Nickname,
		"description": user.Description,
		"power":       nonNil(user.Power),
		"isActive":    user.IsActive,
		"updatedAt":   time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, store.ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

// SetAvatar swaps the avatar field and returns the value it replaced.
func (r *UserRepository) SetAvatar(ctx context.Context, userID, avatar string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", store.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"avatar":    avatar,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"avatar": 1})

	var doc struct {
		Avatar string `bson:"avatar"`
	}
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return doc.Avatar, nil
}

// Delete removes the user document and pulls its id from every other
// user's subscriber array.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}

	_, err = r.collection.UpdateMany(ctx,
		bson.M{"subscribers": oid},
		bson.M{"$pull": bson.M{"subscribers": oid}},
	)
	return err
}

func (r *UserRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

func (r *UserRepository) AddSubscriber(ctx context.Context, userID, subscriberID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return store.ErrNotFound
	}
	sid, err := primitive.ObjectIDFromHex(subscriberID)
	if err != nil {
		return store.ErrNotFound
	}

	exists, err := r.exists(ctx, sid)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": uid, "subscribers": bson.M{"$ne": sid}},
		bson.M{"$push": bson.M{"subscribers": sid}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	exists, err = r.exists(ctx, uid)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrAlreadyMember
}

func (r *UserRepository) RemoveSubscriber(ctx context.Context, userID, subscriberID string) error {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return store.ErrNotFound
	}
	sid, err := primitive.ObjectIDFromHex(subscriberID)
	if err != nil {
		exists, err := r.exists(ctx, uid)
		if err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return nil
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$pull": bson.M{"subscribers": sid}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *UserRepository) exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, store.ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]types.User, error) {
	var findOpts []*options.FindOptions
	if opts != nil {
		findOpts = append(findOpts, opts)
	}

	cursor, err := r.collection.Find(ctx, filter, findOpts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]types.User, 0)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.toUser())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
