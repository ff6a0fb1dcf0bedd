// Package projector drives projection cycles: it hands incoming entity
// events to the registered view-group definition, drains every view exactly
// once per cycle, and forwards the drained records to the change store and
// the realtime notifier.
package projector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/facetworks/facet/internal/store"
	"github.com/facetworks/facet/internal/view"
	"go.uber.org/zap"
)

var (
	errMissingStore   = errors.New("change store is required")
	errMissingFactory = errors.New("definition factory is required")
	// ErrUnknownEntityKind indicates no definition is registered for the kind.
	ErrUnknownEntityKind = errors.New("projector: unknown entity kind")
	// ErrUnknownEntity indicates no projected instance exists for the entity.
	ErrUnknownEntity = errors.New("projector: unknown entity")
	// ErrEntityAlreadyProjected indicates a second init event for one entity.
	ErrEntityAlreadyProjected = errors.New("projector: entity already projected")
)

// Event is the journal record a projection cycle consumes.
type Event struct {
	EntityID    string
	Type        string
	Seq         uint64
	Timestamp   time.Time
	PayloadJSON []byte
}

// GroupProjector is an entity instance's view-group definition: the concrete
// views it owns, registered into a Group, plus the event appliers that
// mutate them.
type GroupProjector interface {
	// Group returns the registry holding the instance's views.
	Group() *view.Group
	// Apply projects one event onto the views. An error aborts the cycle;
	// none of the cycle's pending changes are persisted.
	Apply(event Event) error
}

// Factory builds a GroupProjector for a new entity instance from its init
// event.
type Factory func(initEvent Event) (GroupProjector, error)

// ChangeStore persists seed records and drained change records.
type ChangeStore interface {
	SeedViews(ctx context.Context, seeds []store.SeedRecord) error
	AppendChanges(ctx context.Context, records []store.ChangeRecord) ([]store.AppendedChange, error)
}

// Notifier receives a notification after each cycle that persisted changes.
type Notifier interface {
	NotifyChanges(entityID string, viewNames []string)
}

// RuntimeConfig describes the dependencies of a Runtime.
type RuntimeConfig struct {
	Store    ChangeStore
	Notifier Notifier
	Logger   *zap.Logger
}

// Runtime hosts projected entity instances and runs their projection cycles.
// It is single-writer per entity: the caller guarantees events for one
// entity arrive from one goroutine, in order.
type Runtime struct {
	store     ChangeStore
	notifier  Notifier
	logger    *zap.Logger
	factories map[string]Factory
	instances map[string]GroupProjector
}

// NewRuntime validates the configuration and returns a Runtime.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		logger:    logger,
		factories: make(map[string]Factory),
		instances: make(map[string]GroupProjector),
	}, nil
}

// RegisterKind registers the view-group definition for an entity kind.
// Registering one kind twice is a configuration error.
func (r *Runtime) RegisterKind(kind string, factory Factory) error {
	if kind == "" {
		return fmt.Errorf("projector: entity kind is required")
	}
	if factory == nil {
		return errMissingFactory
	}
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("projector: entity kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// ProjectInit builds the entity's view group from its init event, persists
// the seed records plus any changes the init cycle produced, and retains the
// instance for subsequent events.
func (r *Runtime) ProjectInit(ctx context.Context, kind string, event Event) error {
	factory, ok := r.factories[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntityKind, kind)
	}
	if _, exists := r.instances[event.EntityID]; exists {
		return fmt.Errorf("%w: %s", ErrEntityAlreadyProjected, event.EntityID)
	}

	instance, err := factory(event)
	if err != nil {
		r.logger.Error("view group construction failed",
			zap.String("entity_kind", kind),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return err
	}

	group := instance.Group()
	seeds, err := seedRecords(group)
	if err != nil {
		return err
	}
	if err := r.store.SeedViews(ctx, seeds); err != nil {
		r.logger.Error("view seeding failed",
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return err
	}

	if err := r.persistDrain(ctx, group); err != nil {
		return err
	}

	r.instances[event.EntityID] = instance
	r.logger.Info("entity projected",
		zap.String("entity_kind", kind),
		zap.String("entity_id", event.EntityID),
		zap.Int("views", len(group.Views())))
	return nil
}

// ProjectEvent runs one projection cycle: it applies the event to the
// entity's instance, drains every view exactly once, and persists the
// drained records. A failed apply discards the cycle's pending changes and
// persists nothing.
func (r *Runtime) ProjectEvent(ctx context.Context, event Event) error {
	instance, ok := r.instances[event.EntityID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, event.EntityID)
	}

	if err := instance.Apply(event); err != nil {
		discardDrain(instance.Group())
		r.logger.Warn("event projection failed",
			zap.String("entity_id", event.EntityID),
			zap.String("event_type", event.Type),
			zap.Uint64("event_seq", event.Seq),
			zap.Error(err))
		return err
	}

	return r.persistDrain(ctx, instance.Group())
}

// Release drops the in-memory instance for an entity. Its durable seed and
// change stream are unaffected; a stateless host releases after every pass.
func (r *Runtime) Release(entityID string) {
	delete(r.instances, entityID)
}

func (r *Runtime) persistDrain(ctx context.Context, group *view.Group) error {
	records, viewNames, err := drainRecords(group)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if _, err := r.store.AppendChanges(ctx, records); err != nil {
		r.logger.Error("change append failed",
			zap.String("entity_id", group.EntityID()),
			zap.Error(err))
		return err
	}
	if r.notifier != nil {
		r.notifier.NotifyChanges(group.EntityID(), viewNames)
	}
	return nil
}

func seedRecords(group *view.Group) ([]store.SeedRecord, error) {
	inits := group.InitValues()
	seeds := make([]store.SeedRecord, 0, len(inits))
	for _, init := range inits {
		valueJSON, err := json.Marshal(init.Value.Encoded())
		if err != nil {
			return nil, fmt.Errorf("projector: encoding seed for view %q: %w", init.Name, err)
		}
		seeds = append(seeds, store.SeedRecord{
			EntityID:  init.Key,
			ViewName:  init.Name,
			ValueJSON: string(valueJSON),
			ValueType: init.Value.TypeTag(),
		})
	}
	return seeds, nil
}

func drainRecords(group *view.Group) ([]store.ChangeRecord, []string, error) {
	var records []store.ChangeRecord
	var viewNames []string
	for _, v := range group.Views() {
		changes := v.Changes()
		if len(changes) == 0 {
			continue
		}
		viewNames = append(viewNames, v.Name())
		for _, change := range changes {
			payload, err := view.MarshalChange(change)
			if err != nil {
				return nil, nil, err
			}
			records = append(records, store.ChangeRecord{
				EntityID:    v.EntityID(),
				ViewName:    v.Name(),
				Op:          string(change.Kind()),
				PayloadJSON: string(payload),
			})
		}
	}
	return records, viewNames, nil
}

func discardDrain(group *view.Group) {
	for _, v := range group.Views() {
		v.Changes()
	}
}
