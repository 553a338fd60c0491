package store

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"

	"simexec/internal/schema"
	"simexec/pkg/exception"
)

const defaultBatchSize = 256

// Store persists execution reports of one session and serves reference data.
type Store struct {
	db        *gorm.DB
	session   uuid.UUID
	batchSize int
}

// New binds a store to a database. A nil session gets a fresh random id.
func New(db *gorm.DB, session uuid.UUID) (*Store, error) {
	if db == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "gorm db")
	}
	if session == uuid.Nil {
		session = uuid.New()
	}
	return &Store{db: db, session: session, batchSize: defaultBatchSize}, nil
}

// Session returns the id every report of this run is stored under.
func (s *Store) Session() uuid.UUID {
	return s.session
}

// Migrate creates or updates the tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&ReportRecord{}, &InstrumentRecord{}); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}

// SaveReports inserts reports in batches.
func (s *Store) SaveReports(ctx context.Context, reports []schema.ExecutionReport) error {
	if len(reports) == 0 {
		return nil
	}
	records := make([]ReportRecord, 0, len(reports))
	for _, r := range reports {
		records = append(records, NewReportRecord(s.session, r))
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, s.batchSize).Error; err != nil {
		return errors.Wrap(err, "save reports").With("session", s.session.String())
	}
	return nil
}

// Reports loads the reports of one order in report id order.
func (s *Store) Reports(ctx context.Context, orderID schema.OrderID) ([]ReportRecord, error) {
	var records []ReportRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND order_id = ?", s.session, uint64(orderID)).
		Order("report_id").
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load reports of order %d", orderID)
	}
	return records, nil
}

// SaveInstruments upserts reference data keyed by symbol.
func (s *Store) SaveInstruments(ctx context.Context, reg *schema.Registry) error {
	records := InstrumentRecords(reg)
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(&records).Error
}

// LoadRegistry builds a registry from the instruments table in id order.
func (s *Store) LoadRegistry(ctx context.Context) (*schema.Registry, error) {
	var records []InstrumentRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "load instruments")
	}
	return BuildRegistry(records)
}

// InstrumentRecords flattens a registry into rows.
func InstrumentRecords(reg *schema.Registry) []InstrumentRecord {
	if reg == nil {
		return nil
	}
	records := make([]InstrumentRecord, 0, reg.InstrumentCount())
	for i := range reg.InstrumentCount() {
		inst, ok := reg.InstrumentAt(i)
		if !ok {
			continue
		}
		venue, _ := reg.Venue(inst.VenueID)
		records = append(records, InstrumentRecord{
			ID:          uint32(inst.ID),
			Symbol:      inst.Symbol,
			Venue:       venue.Name,
			VenueSymbol: inst.VenueSymbol,
		})
	}
	return records
}

// BuildRegistry rebuilds a registry from rows. Rows must carry consecutive
// ids starting at 1 so instrument ids survive the round trip.
func BuildRegistry(records []InstrumentRecord) (*schema.Registry, error) {
	records = slices.Clone(records)
	slices.SortFunc(records, func(a, b InstrumentRecord) int {
		return int(a.ID) - int(b.ID)
	})

	reg := schema.NewRegistry()
	for i, rec := range records {
		venueID, ok := reg.VenueIDByName(rec.Venue)
		if !ok {
			var err error
			if venueID, err = reg.AddVenue(rec.Venue); err != nil {
				return nil, errors.Wrapf(err, "instrument %s", rec.Symbol)
			}
		}
		id, err := reg.AddInstrument(rec.Symbol, venueID, rec.VenueSymbol)
		if err != nil {
			return nil, errors.Wrapf(err, "instrument %s", rec.Symbol)
		}
		if uint32(id) != rec.ID {
			logs.Errorf("instrument id gap, symbol: %s, stored: %d, assigned: %d, index: %d", rec.Symbol, rec.ID, id, i)
			return nil, errors.Wrapf(exception.ErrInvalidConfig, "instrument %s: stored id %d, assigned %d", rec.Symbol, rec.ID, id)
		}
	}
	return reg, nil
}
