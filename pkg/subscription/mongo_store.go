package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lunaria/entitlement/pkg/tier"
)

const defaultRecordsCollection = "subscription_records"

// MongoStore is a MongoDB-backed RecordStore for deployments where the
// billing webhook consumer replicates subscription state into a document
// store instead of the primary database.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a RecordStore backed by the given database.
// Panics if db is nil to fail fast during initialization.
func NewMongoStore(db *mongo.Database) *MongoStore {
	if db == nil {
		panic("subscription: mongo database is required")
	}
	return &MongoStore{collection: db.Collection(defaultRecordsCollection)}
}

// recordDoc is the BSON shape of a stored record. User IDs are kept as
// canonical UUID strings so documents stay readable in shell tooling.
type recordDoc struct {
	UserID             string     `bson:"_id"`
	TierID             string     `bson:"tier_id"`
	Status             string     `bson:"status"`
	PeriodStart        time.Time  `bson:"period_start"`
	PeriodEnd          *time.Time `bson:"period_end,omitempty"`
	ProviderCustomerID string     `bson:"provider_customer_id,omitempty"`
	ProviderSubID      string     `bson:"provider_sub_id,omitempty"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
}

// Get retrieves the subscription record for a user.
func (s *MongoStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	var doc recordDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Join(ErrFailedToGetRecord, err)
	}

	parsedID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, errors.Join(ErrFailedToGetRecord, err)
	}

	return &Record{
		UserID:             parsedID,
		TierID:             tier.ID(doc.TierID),
		Status:             Status(doc.Status),
		PeriodStart:        doc.PeriodStart,
		PeriodEnd:          doc.PeriodEnd,
		ProviderCustomerID: doc.ProviderCustomerID,
		ProviderSubID:      doc.ProviderSubID,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

// Save upserts a record keyed by user ID.
func (s *MongoStore) Save(ctx context.Context, record *Record) error {
	if record == nil || record.UserID == uuid.Nil {
		return ErrInvalidRecord
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	doc := recordDoc{
		UserID:             record.UserID.String(),
		TierID:             string(record.TierID),
		Status:             string(record.Status),
		PeriodStart:        record.PeriodStart,
		PeriodEnd:          record.PeriodEnd,
		ProviderCustomerID: record.ProviderCustomerID,
		ProviderSubID:      record.ProviderSubID,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Join(ErrFailedToSaveRecord, err)
	}

	return nil
}
