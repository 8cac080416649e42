// internal/app/store/entries/entrystore.go
package entries

import (
	"context"

	"github.com/dalemusser/badgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads entry documents. Entry creation goes through the validation
// engine, which owns the numbering and the log counters.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("entries")}
}

// GetByID returns the entry or mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Entry, error) {
	var e models.Entry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByLog returns the log's entries in creation order.
func (s *Store) ListByLog(ctx context.Context, logID primitive.ObjectID) ([]models.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"log_id": logID}, opts)
	if err != nil {
		return nil, err
	}
	var entries []models.Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ValidationFor returns creatorID's validation entry on the log, or
// mongo.ErrNoDocuments.
func (s *Store) ValidationFor(ctx context.Context, logID, creatorID primitive.ObjectID) (*models.Entry, error) {
	var e models.Entry
	err := s.c.FindOne(ctx, bson.M{
		"log_id":     logID,
		"creator_id": creatorID,
		"type":       models.EntryTypeValidation,
	}).Decode(&e)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
