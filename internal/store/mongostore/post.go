package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/heroverse/apiserver/internal/store"
	"github.com/heroverse/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const postsCollection = "posts"

type postDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Author    primitive.ObjectID `bson:"author"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d postDocument) toPost() types.Post {
	return types.Post{
		ID:        d.ID.Hex(),
		AuthorID:  d.Author.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

// PostRepository stores posts with an ObjectID reference to their author.
type PostRepository struct {
	collection *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{collection: db.Collection(postsCollection)}
}

func (r *PostRepository) List(ctx context.Context, offset, limit int) ([]types.Post, int, error) {
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
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	posts := make([]types.Post, 0, limit)
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, err
		}
		posts = append(posts, doc.toPost())
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}
	return posts, int(total), nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (types.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return types.Post{}, store.ErrNotFound
	}

	var doc postDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.Post{}, store.ErrNotFound
		}
		return types.Post{}, err
	}
	return doc.toPost(), nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	author, err := primitive.ObjectIDFromHex(post.AuthorID)
	if err != nil {
		return types.Post{}, store.ErrNotFound
	}

	doc := postDocument{
		ID:        primitive.NewObjectID(),
		Author:    author,
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return types.Post{}, err
	}
	return doc.toPost(), nil
}
