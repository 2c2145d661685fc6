package sink

import (
	"context"
	stdErrors "errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncrafterrors "github.com/daliboradamec82/syncraft/v1/errors"
)

const (
	defaultGormTableName = "syncraft_counters"
	defaultGormBatchSize = 100
	defaultGormOpTimeout = 5 * time.Second
)

// counterRow is the relational shape of one counter: the dotted field
// path stays a plain string column, the entity id plus field form the
// primary key.
type counterRow struct {
	EntityID string `gorm:"primaryKey;column:entity_id"`
	Field    string `gorm:"primaryKey;column:field"`
	Value    int64  `gorm:"column:value"`
}

// Gorm implements Sink on a relational database. Unlike the document
// model, counter rows are owned by the sink itself and created on first
// flush, so every delta counts as matched. The upsert adds the incoming
// delta to the stored value (requires a dialect with ON CONFLICT ..
// excluded support, e.g. SQLite or PostgreSQL).
type Gorm struct {
	db        *gorm.DB
	tableName string
	timeout   time.Duration
}

// GormOption configures a Gorm sink.
type GormOption func(*Gorm)

// WithGormTableName sets the counter table name.
func WithGormTableName(name string) GormOption {
	return func(s *Gorm) { s.tableName = name }
}

// WithGormTimeout sets the per-apply operation timeout.
func WithGormTimeout(d time.Duration) GormOption {
	return func(s *Gorm) { s.timeout = d }
}

// NewGorm returns a Gorm sink using the provided DB connection, creating
// the counter table if it does not exist.
func NewGorm(db *gorm.DB, opts ...GormOption) *Gorm {
	s := &Gorm{db: db, tableName: defaultGormTableName, timeout: defaultGormOpTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if !db.Migrator().HasTable(s.tableName) {
		_ = db.Table(s.tableName).AutoMigrate(&counterRow{})
	}
	return s
}

// Apply implements Sink.Apply.
func (s *Gorm) Apply(ctx context.Context, deltas []Delta) (Report, error) {
	if len(deltas) == 0 {
		return Report{}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows := make([]counterRow, len(deltas))
	for i, d := range deltas {
		rows[i] = counterRow{EntityID: d.EntityID, Field: d.FieldPath, Value: d.Value}
	}

	err := s.db.WithContext(cctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(s.tableName).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "entity_id"}, {Name: "field"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value": gorm.Expr("value + excluded.value"),
			}),
		}).CreateInBatches(rows, defaultGormBatchSize).Error
	})
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) {
			err = syncrafterrors.ErrTimeout
		}
		return Report{}, err
	}
	return Report{Matched: int64(len(deltas))}, nil
}
