// Package store persists view seed records and the append-only change
// streams drained from projection cycles, and serves them back by cursor.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingEntityID   = errors.New("entity identifier is required")
	errMissingViewName   = errors.New("view name is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew    = "store.service.new"
	opSeedViews     = "store.seed_views"
	opAppendChanges = "store.append_changes"
	opListSeeds     = "store.list_seeds"
	opListChanges   = "store.list_changes"

	fieldEntityID = "entity_id"
	fieldViewName = "view_name"

	queryEntity           = "entity_id = ?"
	queryStream           = "entity_id = ? AND view_name = ?"
	queryStreamAfterSeq   = "entity_id = ? AND view_name = ? AND seq > ?"
	orderSeqAsc           = "seq ASC"
	orderViewNameAsc      = "view_name ASC"
	reasonMissingDatabase = "missing_database"
	reasonInvalidRecord   = "invalid_record"
	reasonInsertFailed    = "insert_failed"
	reasonIDFailed        = "id_generation_failed"
	reasonQueryFailed     = "query_failed"
)

// ServiceError carries a stable operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues identifiers for appended change records.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required to build a Service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns the view seed and change-stream tables.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// SeedViews persists seed records. Seeding is idempotent: a view instance is
// seeded exactly once and a replayed seed is a no-op.
func (s *Service) SeedViews(ctx context.Context, seeds []SeedRecord) error {
	if s.db == nil {
		s.logError(opSeedViews, reasonMissingDatabase, errMissingDatabase)
		return newServiceError(opSeedViews, reasonMissingDatabase, errMissingDatabase)
	}
	if len(seeds) == 0 {
		return nil
	}

	seededAt := s.clock().UTC().Unix()
	rows := make([]ViewInit, 0, len(seeds))
	for _, seed := range seeds {
		if seed.EntityID == "" {
			s.logError(opSeedViews, reasonInvalidRecord, errMissingEntityID, zap.String(fieldViewName, seed.ViewName))
			return newServiceError(opSeedViews, reasonInvalidRecord, errMissingEntityID)
		}
		if seed.ViewName == "" {
			s.logError(opSeedViews, reasonInvalidRecord, errMissingViewName, zap.String(fieldEntityID, seed.EntityID))
			return newServiceError(opSeedViews, reasonInvalidRecord, errMissingViewName)
		}
		rows = append(rows, ViewInit{
			EntityID:        seed.EntityID,
			ViewName:        seed.ViewName,
			ValueJSON:       seed.ValueJSON,
			ValueType:       seed.ValueType,
			SeededAtSeconds: seededAt,
		})
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		s.logError(opSeedViews, reasonInsertFailed, err, zap.String(fieldEntityID, seeds[0].EntityID))
		return newServiceError(opSeedViews, reasonInsertFailed, err)
	}
	return nil
}

// AppendChanges appends drained change records to their view streams inside
// one transaction and returns the assigned stream positions, in input order.
func (s *Service) AppendChanges(ctx context.Context, records []ChangeRecord) ([]AppendedChange, error) {
	if s.db == nil {
		s.logError(opAppendChanges, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opAppendChanges, reasonMissingDatabase, errMissingDatabase)
	}
	if len(records) == 0 {
		return nil, nil
	}

	appended := make([]AppendedChange, 0, len(records))
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appliedAt := s.clock().UTC().Unix()
		for _, record := range records {
			if record.EntityID == "" {
				s.logError(opAppendChanges, reasonInvalidRecord, errMissingEntityID, zap.String(fieldViewName, record.ViewName))
				return newServiceError(opAppendChanges, reasonInvalidRecord, errMissingEntityID)
			}
			if record.ViewName == "" {
				s.logError(opAppendChanges, reasonInvalidRecord, errMissingViewName, zap.String(fieldEntityID, record.EntityID))
				return newServiceError(opAppendChanges, reasonInvalidRecord, errMissingViewName)
			}

			changeID, err := s.idProvider.NewID()
			if err != nil {
				s.logError(opAppendChanges, reasonIDFailed, err,
					zap.String(fieldEntityID, record.EntityID),
					zap.String(fieldViewName, record.ViewName))
				return newServiceError(opAppendChanges, reasonIDFailed, err)
			}

			row := ViewChange{
				ChangeID:         changeID,
				EntityID:         record.EntityID,
				ViewName:         record.ViewName,
				Op:               record.Op,
				PayloadJSON:      record.PayloadJSON,
				AppliedAtSeconds: appliedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				s.logError(opAppendChanges, reasonInsertFailed, err,
					zap.String(fieldEntityID, record.EntityID),
					zap.String(fieldViewName, record.ViewName))
				return newServiceError(opAppendChanges, reasonInsertFailed, err)
			}

			appended = append(appended, AppendedChange{
				ChangeID: changeID,
				ViewName: record.ViewName,
				Seq:      row.Seq,
			})
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return appended, nil
}

// ListSeeds returns the stored seed records for an entity, ordered by view
// name.
func (s *Service) ListSeeds(ctx context.Context, entityID string) ([]StoredSeed, error) {
	if s.db == nil {
		s.logError(opListSeeds, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListSeeds, reasonMissingDatabase, errMissingDatabase)
	}
	if entityID == "" {
		s.logError(opListSeeds, reasonInvalidRecord, errMissingEntityID)
		return nil, newServiceError(opListSeeds, reasonInvalidRecord, errMissingEntityID)
	}

	var rows []ViewInit
	if err := s.db.WithContext(ctx).
		Where(queryEntity, entityID).
		Order(orderViewNameAsc).
		Find(&rows).Error; err != nil {
		s.logError(opListSeeds, reasonQueryFailed, err, zap.String(fieldEntityID, entityID))
		return nil, newServiceError(opListSeeds, reasonQueryFailed, err)
	}

	seeds := make([]StoredSeed, 0, len(rows))
	for _, row := range rows {
		seeds = append(seeds, StoredSeed{
			ViewName:        row.ViewName,
			ValueJSON:       row.ValueJSON,
			ValueType:       row.ValueType,
			SeededAtSeconds: row.SeededAtSeconds,
		})
	}
	return seeds, nil
}

// ListChanges returns a view's change records after the provided cursor,
// ordered by stream position. A zero cursor reads the stream from the start.
func (s *Service) ListChanges(ctx context.Context, entityID, viewName string, afterSeq int64) ([]StoredChange, error) {
	if s.db == nil {
		s.logError(opListChanges, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListChanges, reasonMissingDatabase, errMissingDatabase)
	}
	if entityID == "" {
		s.logError(opListChanges, reasonInvalidRecord, errMissingEntityID)
		return nil, newServiceError(opListChanges, reasonInvalidRecord, errMissingEntityID)
	}
	if viewName == "" {
		s.logError(opListChanges, reasonInvalidRecord, errMissingViewName, zap.String(fieldEntityID, entityID))
		return nil, newServiceError(opListChanges, reasonInvalidRecord, errMissingViewName)
	}

	query := s.db.WithContext(ctx)
	if afterSeq > 0 {
		query = query.Where(queryStreamAfterSeq, entityID, viewName, afterSeq)
	} else {
		query = query.Where(queryStream, entityID, viewName)
	}

	var rows []ViewChange
	if err := query.Order(orderSeqAsc).Find(&rows).Error; err != nil {
		s.logError(opListChanges, reasonQueryFailed, err,
			zap.String(fieldEntityID, entityID),
			zap.String(fieldViewName, viewName))
		return nil, newServiceError(opListChanges, reasonQueryFailed, err)
	}

	changes := make([]StoredChange, 0, len(rows))
	for _, row := range rows {
		changes = append(changes, StoredChange{
			Seq:              row.Seq,
			ChangeID:         row.ChangeID,
			Op:               row.Op,
			PayloadJSON:      row.PayloadJSON,
			AppliedAtSeconds: row.AppliedAtSeconds,
		})
	}
	return changes, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("view store error", attrs...)
}
