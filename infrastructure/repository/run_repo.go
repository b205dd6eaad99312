package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"webharness-go/domain/run"
)

// RunCollection is the MongoDB collection holding run records.
const RunCollection = "runs"

// runDocument is the MongoDB document structure for run records.
// The ULID record id doubles as _id, so sorting on _id sorts by start time.
type runDocument struct {
	ID          string              `bson:"_id"`
	Flow        string              `bson:"flow"`
	LoggerID    string              `bson:"logger_id"`
	Outcome     string              `bson:"outcome"`
	Started     time.Time           `bson:"started"`
	Finished    time.Time           `bson:"finished"`
	Assertions  []assertionDocument `bson:"assertions,omitempty"`
	Attachments []string            `bson:"attachments,omitempty"`
	Error       string              `bson:"error,omitempty"`
}

type assertionDocument struct {
	Status     string `bson:"status"`
	Message    string `bson:"message"`
	StackTrace string `bson:"stack_trace,omitempty"`
}

// MongoRunRepository implements run.Repository using MongoDB.
type MongoRunRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoRunRepository creates a new MongoDB-based run repository.
func NewMongoRunRepository(db *MongoDB, logger *slog.Logger) *MongoRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoRunRepository{
		collection: db.Collection(RunCollection),
		logger:     logger,
	}
}

// Save upserts a record by ID.
func (r *MongoRunRepository) Save(ctx context.Context, rec *run.Record) error {
	doc := recordToDocument(rec)
	filter := bson.M{"_id": doc.ID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	r.logger.Debug("Run saved", "id", rec.ID, "flow", rec.Flow, "outcome", rec.Outcome)
	return nil
}

// Recent returns up to limit records, newest first.
func (r *MongoRunRepository) Recent(ctx context.Context, limit int) ([]*run.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find runs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}

	recs := make([]*run.Record, len(docs))
	for i := range docs {
		recs[i] = documentToRecord(&docs[i])
	}
	return recs, nil
}

func documentToRecord(doc *runDocument) *run.Record {
	rec := &run.Record{
		ID:          doc.ID,
		Flow:        doc.Flow,
		LoggerID:    doc.LoggerID,
		Outcome:     run.ParseOutcome(doc.Outcome),
		Started:     doc.Started,
		Finished:    doc.Finished,
		Attachments: doc.Attachments,
		Error:       doc.Error,
	}
	if len(doc.Assertions) > 0 {
		rec.Assertions = make([]run.Assertion, len(doc.Assertions))
		for i, a := range doc.Assertions {
			rec.Assertions[i] = run.Assertion{
				Status:     run.AssertionStatus(a.Status),
				Message:    a.Message,
				StackTrace: a.StackTrace,
			}
		}
	}
	return rec
}

func recordToDocument(rec *run.Record) *runDocument {
	doc := &runDocument{
		ID:          rec.ID,
		Flow:        rec.Flow,
		LoggerID:    rec.LoggerID,
		Outcome:     rec.Outcome.String(),
		Started:     rec.Started,
		Finished:    rec.Finished,
		Attachments: rec.Attachments,
		Error:       rec.Error,
	}
	if len(rec.Assertions) > 0 {
		doc.Assertions = make([]assertionDocument, len(rec.Assertions))
		for i, a := range rec.Assertions {
			doc.Assertions[i] = assertionDocument{
				Status:     string(a.Status),
				Message:    a.Message,
				StackTrace: a.StackTrace,
			}
		}
	}
	return doc
}

var _ run.Repository = (*MongoRunRepository)(nil)
