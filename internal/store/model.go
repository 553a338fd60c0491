package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"simexec/internal/schema"
)

// ReportRecord is one persisted execution report. Quantities and prices are
// stored as numerics so the database never sees binary float rounding.
type ReportRecord struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	SessionID    uuid.UUID       `gorm:"type:uuid;index:idx_report_session_order,priority:1"`
	ReportID     uint64          `gorm:"not null"`
	OrderID      uint64          `gorm:"index:idx_report_session_order,priority:2"`
	InstrumentID uint32          `gorm:"not null"`
	Side         string          `gorm:"size:16"`
	Type         string          `gorm:"size:16"`
	Status       string          `gorm:"size:16"`
	Reason       string          `gorm:"size:16"`
	LimitPrice   decimal.Decimal `gorm:"type:numeric(28,10)"`
	StopPrice    decimal.Decimal `gorm:"type:numeric(28,10)"`
	OrdQty       decimal.Decimal `gorm:"type:numeric(28,10)"`
	FilledQty    decimal.Decimal `gorm:"type:numeric(28,10)"`
	AvgPrice     decimal.Decimal `gorm:"type:numeric(28,10)"`
	LastQty      decimal.Decimal `gorm:"type:numeric(28,10)"`
	LastPrice    decimal.Decimal `gorm:"type:numeric(28,10)"`
	TransactTime time.Time
	Text         string
}

func (ReportRecord) TableName() string {
	return "execution_reports"
}

// InstrumentRecord is the reference data row an instrument registry is
// built from.
type InstrumentRecord struct {
	ID          uint32 `gorm:"primaryKey"`
	Symbol      string `gorm:"size:64;uniqueIndex"`
	Venue       string `gorm:"size:64;not null"`
	VenueSymbol string `gorm:"size:64"`
}

func (InstrumentRecord) TableName() string {
	return "instruments"
}

// NewReportRecord converts a report for persistence.
func NewReportRecord(session uuid.UUID, r schema.ExecutionReport) ReportRecord {
	return ReportRecord{
		SessionID:    session,
		ReportID:     uint64(r.ID),
		OrderID:      uint64(r.OrderID),
		InstrumentID: uint32(r.InstrumentID),
		Side:         r.Side.String(),
		Type:         r.Type.String(),
		Status:       r.Status.String(),
		Reason:       r.Reason.String(),
		LimitPrice:   decimal.NewFromFloat(r.LimitPrice),
		StopPrice:    decimal.NewFromFloat(r.StopPrice),
		OrdQty:       decimal.NewFromFloat(r.OrdQty),
		FilledQty:    decimal.NewFromFloat(r.FilledQty),
		AvgPrice:     decimal.NewFromFloat(r.AvgPrice),
		LastQty:      decimal.NewFromFloat(r.LastQty),
		LastPrice:    decimal.NewFromFloat(r.LastPrice),
		TransactTime: time.Unix(0, r.TransactTime).UTC(),
		Text:         r.Text,
	}
}

// Notional returns LastQty * LastPrice without float rounding.
func (r ReportRecord) Notional() decimal.Decimal {
	return r.LastQty.Mul(r.LastPrice)
}
