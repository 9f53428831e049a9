package etl

import (
	"context"
	"errors"
	"log/slog"

	"swapiexport/internal/metrics"
)

type StoreConfig struct {
	Logger *slog.Logger
	Source Source
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Source == nil {
		return errors.New("source is required")
	}
	return nil
}

// Store holds one table per fetched entity type. Keys keep the order in which
// they were first fetched; a re-fetch replaces the table in place.
type Store struct {
	log    *slog.Logger
	source Source
	order  []string
	tables map[string]*Table
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		log:    cfg.Logger,
		source: cfg.Source,
		tables: make(map[string]*Table),
	}, nil
}

// FetchEntity reads the entity from the source and stores it as a table.
// Nothing is stored when the source fails.
func (s *Store) FetchEntity(ctx context.Context, entity string) (*Table, error) {
	s.log.Info("store: fetching entity", "entity", entity)

	records, err := s.source.Fetch(ctx, entity)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(entity, errorKind(err)).Inc()
		return nil, err
	}

	t := NewTable(entity, records)
	if _, ok := s.tables[entity]; !ok {
		s.order = append(s.order, entity)
	}
	s.tables[entity] = t

	metrics.RecordsFetchedTotal.WithLabelValues(entity).Add(float64(t.Len()))
	s.log.Info("store: fetched entity", "entity", entity, "records", t.Len(), "columns", t.Columns)
	return t, nil
}

// ApplyFilter drops the given columns from a stored table and returns the
// names actually removed. An entity that was never fetched is a no-op.
func (s *Store) ApplyFilter(entity string, columns []string) []string {
	return s.ApplyTransforms(entity, &DropColumnsTransform{Columns: columns})
}

// ApplyTransforms runs transforms on a stored table in order.
func (s *Store) ApplyTransforms(entity string, ts ...TableTransform) []string {
	t, ok := s.tables[entity]
	if !ok {
		s.log.Warn("store: no data loaded for entity, skipping filter", "entity", entity)
		return nil
	}

	var removed []string
	for _, tr := range ts {
		removed = append(removed, tr.Apply(t)...)
	}
	s.log.Info("store: removed columns", "entity", entity, "columns", removed)
	return removed
}

// Table returns the stored table for an entity.
func (s *Store) Table(entity string) (*Table, bool) {
	t, ok := s.tables[entity]
	return t, ok
}

// Tables returns all tables in insertion order.
func (s *Store) Tables() []*Table {
	out := make([]*Table, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tables[name])
	}
	return out
}

func (s *Store) Len() int { return len(s.order) }

// Save writes every table to the destination. target only names it in logs
// and must already be redacted.
func (s *Store) Save(ctx context.Context, dest Destination, target string) error {
	s.log.Info("store: writing tables", "target", target, "tables", s.Len())
	if err := dest.Export(ctx, s.Tables()); err != nil {
		return err
	}
	s.log.Info("store: tables written", "target", target)
	return nil
}
