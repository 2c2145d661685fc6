package sink

import (
	"context"
	stdErrors "errors"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	syncrafterrors "github.com/daliboradamec82/syncraft/v1/errors"
)

const (
	defaultMongoChunkSize = 1000
	defaultMongoOpTimeout = 10 * time.Second
)

// Mongo implements Sink on a MongoDB collection. Each delta becomes an
// unordered $inc UpdateOne on _id with no upsert, so documents that do
// not exist are skipped and counted as missed. Large batches are split
// into chunks submitted concurrently.
type Mongo struct {
	coll      *mongo.Collection
	chunkSize int
	timeout   time.Duration
}

// MongoOption configures a Mongo sink.
type MongoOption func(*Mongo)

// WithMongoChunkSize sets how many updates go into one BulkWrite call.
func WithMongoChunkSize(n int) MongoOption {
	return func(s *Mongo) { s.chunkSize = n }
}

// WithMongoTimeout sets the per-apply operation timeout.
func WithMongoTimeout(d time.Duration) MongoOption {
	return func(s *Mongo) { s.timeout = d }
}

// NewMongo returns a Mongo sink writing to coll.
func NewMongo(coll *mongo.Collection, opts ...MongoOption) *Mongo {
	s := &Mongo{coll: coll, chunkSize: defaultMongoChunkSize, timeout: defaultMongoOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply implements Sink.Apply.
func (s *Mongo) Apply(ctx context.Context, deltas []Delta) (Report, error) {
	if len(deltas) == 0 {
		return Report{}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	models := make([]mongo.WriteModel, len(deltas))
	for i, d := range deltas {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": d.EntityID}).
			SetUpdate(bson.M{"$inc": bson.M{d.FieldPath: d.Value}})
	}

	var matched atomic.Int64
	g, gctx := errgroup.WithContext(cctx)
	for start := 0; start < len(models); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(models) {
			end = len(models)
		}
		chunk := models[start:end]
		g.Go(func() error {
			res, err := s.coll.BulkWrite(gctx, chunk, options.BulkWrite().SetOrdered(false))
			if err != nil {
				return err
			}
			matched.Add(res.MatchedCount)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			err = syncrafterrors.ErrTimeout
		}
		return Report{}, err
	}

	m := matched.Load()
	return Report{Matched: m, Missed: int64(len(deltas)) - m}, nil
}
