package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/papyrus-app/papyrus/internal/document"
)

// Mongo implements Storage on a MongoDB database. Each catalog collection
// maps to a Mongo collection of the same name; identifiers are stored as
// string _id values. GetBatch issues one Find with an $in filter so the
// resolver's batching property holds at the wire level.
type Mongo struct {
	db *mongo.Database
}

// NewMongo wraps the given database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) GetByID(ctx context.Context, collection, id string) (document.Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage/mongo: find %s/%s: %w", collection, id, err)
	}
	return fromBSON(raw), nil
}

func (m *Mongo) GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	out := make(map[string]document.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := m.db.Collection(collection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("storage/mongo: batch find %s: %w", collection, err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("storage/mongo: decode %s: %w", collection, err)
		}
		doc := fromBSON(raw)
		if id := doc.ID(); id != "" {
			out[id] = doc
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("storage/mongo: batch cursor %s: %w", collection, err)
	}
	return out, nil
}

func (m *Mongo) Insert(ctx context.Context, collection string, doc document.Document) (string, error) {
	stored := doc.Clone()
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
		stored[document.FieldID] = id
	}
	if _, err := m.db.Collection(collection).InsertOne(ctx, stored); err != nil {
		return "", fmt.Errorf("storage/mongo: insert %s: %w", collection, err)
	}
	return id, nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, set document.Document) error {
	fields := bson.M{}
	for k, v := range set {
		if k == document.FieldID {
			continue
		}
		fields[k] = v
	}
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("storage/mongo: update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("storage/mongo: delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// fromBSON converts decoded bson values into the plain map/slice shapes the
// document package works with.
func fromBSON(raw bson.M) document.Document {
	out := make(document.Document, len(raw))
	for k, v := range raw {
		out[k] = fromBSONValue(v)
	}
	return out
}

func fromBSONValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSON(t)
	case bson.D:
		m := make(document.Document, len(t))
		for _, e := range t {
			m[e.Key] = fromBSONValue(e.Value)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromBSONValue(e)
		}
		return out
	default:
		return v
	}
}
