package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type codeDocument struct {
	ID         string    `bson:"_id"`
	Subject    string    `bson:"subject"`
	Purpose    string    `bson:"purpose"`
	CodeHash   string    `bson:"code_hash"`
	ExpiresAt  time.Time `bson:"expires_at"`
	Attempts   int       `bson:"attempts"`
	Pending    int       `bson:"pending"`
	IsUsed     bool      `bson:"is_used"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
	Superseded []string  `bson:"superseded,omitempty"`
}

// settlePending decrements pending without going below zero. It is only
// valid inside an aggregation-pipeline update.
var settlePending = bson.M{"$max": bson.A{
	0,
	bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$pending", 0}}, 1}},
}}

// MongoCodeStore persists one document per code record. Conditional
// mutations use FindOneAndUpdate filtered on is_used=false; the ones that
// settle a reservation use pipeline updates.
type MongoCodeStore struct {
	collection *mongo.Collection
}

func NewMongoCodeStore(collection *mongo.Collection) *MongoCodeStore {
	return &MongoCodeStore{collection: collection}
}

// EnsureIndexes creates the (subject, purpose, created_at) lookup index.
func (s *MongoCodeStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "subject", Value: 1},
			{Key: "purpose", Value: 1},
			{Key: "is_used", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("subject_purpose_recency"),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoCodeStore) DeleteActive(ctx context.Context, subject string, purpose codes.Purpose) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{
		"subject": subject,
		"purpose": string(purpose),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoCodeStore) Create(ctx context.Context, record *codes.Record) error {
	if record == nil || record.ID == "" {
		return errors.New("code record requires an id")
	}

	if _, err := s.collection.InsertOne(ctx, toCodeDocument(record)); err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoCodeStore) FindLatestUnused(ctx context.Context, subject string, purpose codes.Purpose) (*codes.Record, error) {
	return s.findLatest(ctx, subject, purpose, false)
}

func (s *MongoCodeStore) FindLatestUsed(ctx context.Context, subject string, purpose codes.Purpose) (*codes.Record, error) {
	return s.findLatest(ctx, subject, purpose, true)
}

func (s *MongoCodeStore) findLatest(ctx context.Context, subject string, purpose codes.Purpose, used bool) (*codes.Record, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	var doc codeDocument
	err := s.collection.FindOne(ctx, bson.M{
		"subject": subject,
		"purpose": string(purpose),
		"is_used": used,
	}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, codes.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	return doc.toRecord(), nil
}

func (s *MongoCodeStore) ReserveAttempt(ctx context.Context, record *codes.Record, maxAttempts int) error {
	filter := bson.M{
		"_id":     record.ID,
		"is_used": false,
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$add": bson.A{"$attempts", bson.M{"$ifNull": bson.A{"$pending", 0}}}},
			maxAttempts,
		}},
	}
	err := s.collection.FindOneAndUpdate(ctx, filter, bson.M{"$inc": bson.M{"pending": 1}}).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	// Tell a spent budget apart from a record that is gone or used.
	err = s.collection.FindOne(ctx, bson.M{"_id": record.ID, "is_used": false}).Err()
	if err == nil {
		return codes.ErrAttemptsExhausted
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return codes.ErrRecordNotFound
	}
	return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
}

func (s *MongoCodeStore) ReleaseAttempt(ctx context.Context, record *codes.Record) error {
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": record.ID}, bson.A{
		bson.M{"$set": bson.M{"pending": settlePending}},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoCodeStore) IncrementAttempts(ctx context.Context, record *codes.Record, now time.Time) (*codes.Record, error) {
	return s.updateUnused(ctx, record.ID, bson.A{
		bson.M{"$set": bson.M{
			"attempts":   bson.M{"$add": bson.A{"$attempts", 1}},
			"pending":    settlePending,
			"updated_at": now,
		}},
	})
}

func (s *MongoCodeStore) MarkUsed(ctx context.Context, record *codes.Record, now time.Time) (*codes.Record, error) {
	return s.updateUnused(ctx, record.ID, bson.A{
		bson.M{"$set": bson.M{
			"is_used":    true,
			"pending":    settlePending,
			"updated_at": now,
		}},
	})
}

func (s *MongoCodeStore) updateUnused(ctx context.Context, id string, update bson.A) (*codes.Record, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc codeDocument
	err := s.collection.FindOneAndUpdate(ctx, bson.M{
		"_id":     id,
		"is_used": false,
	}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, codes.ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", codes.ErrStoreUnavailable, err)
	}

	return doc.toRecord(), nil
}

func toCodeDocument(record *codes.Record) codeDocument {
	return codeDocument{
		ID:         record.ID,
		Subject:    record.Subject,
		Purpose:    string(record.Purpose),
		CodeHash:   record.CodeHash,
		ExpiresAt:  record.ExpiresAt.UTC(),
		Attempts:   record.Attempts,
		IsUsed:     record.IsUsed,
		CreatedAt:  record.CreatedAt.UTC(),
		UpdatedAt:  record.UpdatedAt.UTC(),
		Superseded: record.Superseded,
	}
}

func (d codeDocument) toRecord() *codes.Record {
	return &codes.Record{
		ID:         d.ID,
		Subject:    d.Subject,
		Purpose:    codes.Purpose(d.Purpose),
		CodeHash:   d.CodeHash,
		ExpiresAt:  d.ExpiresAt,
		Attempts:   d.Attempts,
		IsUsed:     d.IsUsed,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		Superseded: d.Superseded,
	}
}
