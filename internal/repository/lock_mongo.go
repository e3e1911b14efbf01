package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alumnirel/eventlock/internal/model"
)

// DefaultLockCollection is the collection used when none is configured.
const DefaultLockCollection = "event_locks"

// lockDoc is the BSON shape of a lock record.
type lockDoc struct {
	ID             string     `bson:"_id"`
	Token          string     `bson:"token"`
	EventID        int64      `bson:"event_id"`
	CreatedBy      int64      `bson:"created_by"`
	ExpiresAt      time.Time  `bson:"expires_at"`
	IsRevoked      bool       `bson:"is_revoked"`
	UsageCount     int        `bson:"usage_count"`
	MaxUsage       *int       `bson:"max_usage"`
	LastAccessedAt *time.Time `bson:"last_accessed_at"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func (d *lockDoc) record() *model.LockRecord {
	return &model.LockRecord{
		ID:             d.ID,
		Token:          d.Token,
		EventID:        uint64(d.EventID),
		CreatedBy:      uint64(d.CreatedBy),
		ExpiresAt:      d.ExpiresAt.UTC(),
		IsRevoked:      d.IsRevoked,
		UsageCount:     d.UsageCount,
		MaxUsage:       d.MaxUsage,
		LastAccessedAt: d.LastAccessedAt,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}

// MongoLockRepo is the MongoDB implementation of LockStore.  Documents
// are keyed by the lock ID and carry a unique index on token.
type MongoLockRepo struct {
	coll *mongo.Collection
}

// NewMongoLockRepo binds the repository to db.Collection(name).
func NewMongoLockRepo(db *mongo.Database, name string) *MongoLockRepo {
	if name == "" {
		name = DefaultLockCollection
	}
	return &MongoLockRepo{coll: db.Collection(name)}
}

// EnsureIndexes creates the unique token index and the listing index.
func (r *MongoLockRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "is_revoked", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *MongoLockRepo) Create(ctx context.Context, rec *model.LockRecord) error {
	now := rec.CreatedAt.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	_, err := r.coll.InsertOne(ctx, lockDoc{
		ID:         rec.ID,
		Token:      rec.Token,
		EventID:    int64(rec.EventID),
		CreatedBy:  int64(rec.CreatedBy),
		ExpiresAt:  rec.ExpiresAt.UTC(),
		UsageCount: rec.UsageCount,
		MaxUsage:   rec.MaxUsage,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateToken
	}
	return err
}

func (r *MongoLockRepo) GetByToken(ctx context.Context, token string) (*model.LockRecord, error) {
	var d lockDoc
	err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrLockNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.record(), nil
}

// ConsumeIfValid relies on single-document update atomicity: the filter
// carries the whole validity predicate, so a document that stopped
// being valid between two racing updates no longer matches.
func (r *MongoLockRepo) ConsumeIfValid(ctx context.Context, token string, now time.Time) (int, bool, error) {
	now = now.UTC()
	filter := bson.M{
		"token":      token,
		"is_revoked": false,
		"expires_at": bson.M{"$gt": now},
		"$or": bson.A{
			bson.M{"max_usage": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$usage_count", "$max_usage"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"usage_count": 1},
		"$set": bson.M{"last_accessed_at": now, "updated_at": now},
	}
	var d lockDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return d.UsageCount, true, nil
}

func (r *MongoLockRepo) Revoke(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_revoked": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrLockNotFound
	}
	return nil
}

func (r *MongoLockRepo) ListActive(ctx context.Context) ([]*model.LockRecord, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"is_revoked": false},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.LockRecord
	for cur.Next(ctx) {
		var d lockDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.record())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
