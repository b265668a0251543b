// Package worker refreshes exported report summaries when ledger events
// arrive.
package worker

import (
	"context"
	"errors"
	"fmt"

	"homeledger/internal/amqp"
	"homeledger/internal/core"
	"homeledger/internal/ledger"
	"homeledger/internal/log"
	"homeledger/internal/report"
	"homeledger/internal/sheets"
)

// MonthlyReporter builds the monthly summary exported for a period.
type MonthlyReporter interface {
	MonthlySummary(ctx context.Context, owner, propertyID int64, year, month int) (report.MonthlySummary, error)
}

// ReportExporter rewrites the summary of every property-month an event
// touched.
type ReportExporter struct {
	reports MonthlyReporter
	writer  sheets.SummaryWriter
	logger  *log.Logger
}

func NewReportExporter(reports MonthlyReporter, writer sheets.SummaryWriter, logger *log.Logger) *ReportExporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportExporter{
		reports: reports,
		writer:  writer,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes a single ledger event message from AMQP. A period
// whose property is gone or changed hands is skipped; any other failure is
// returned so the message is redelivered.
func (x *ReportExporter) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	ev := msg.Event
	x.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldMessageID, msg.MessageID,
		log.FieldEntity, ev.Entity,
		log.FieldRecordID, ev.ID,
		"type", ev.Type,
		"periods", len(ev.Periods))

	for _, p := range ev.Periods {
		if err := x.ExportPeriod(ctx, ev.OwnerID, p); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				x.logger.WarnContext(ctx, "Skipping export for unavailable property",
					log.FieldPropertyID, p.PropertyID,
					log.FieldYear, p.Year,
					log.FieldMonth, p.Month)
				continue
			}
			return err
		}
	}
	return nil
}

// ExportPeriod rebuilds and writes one property-month summary.
func (x *ReportExporter) ExportPeriod(ctx context.Context, owner int64, p ledger.Period) error {
	summary, err := x.reports.MonthlySummary(ctx, owner, p.PropertyID, p.Year, p.Month)
	if err != nil {
		return fmt.Errorf("build summary for property %d %04d-%02d: %w", p.PropertyID, p.Year, p.Month, err)
	}
	ref, err := x.writer.WriteMonthlySummary(ctx, summary)
	if err != nil {
		return fmt.Errorf("write summary for property %d %04d-%02d: %w", p.PropertyID, p.Year, p.Month, err)
	}
	x.logger.DebugContext(ctx, "Exported monthly summary",
		log.FieldPropertyID, p.PropertyID,
		log.FieldYear, p.Year,
		log.FieldMonth, p.Month,
		"sheets_ref", ref)
	return nil
}

// Backfill exports all twelve months of year for one property. It is used
// at startup to recover from events lost while the exporter was down.
func (x *ReportExporter) Backfill(ctx context.Context, owner, propertyID int64, year int) error {
	x.logger.InfoContext(ctx, "Backfilling exported summaries",
		log.FieldOwnerID, owner,
		log.FieldPropertyID, propertyID,
		log.FieldYear, year)

	exported := 0
	for month := 1; month <= 12; month++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := ledger.Period{PropertyID: propertyID, Year: year, Month: month}
		if err := x.ExportPeriod(ctx, owner, p); err != nil {
			return err
		}
		exported++
	}

	x.logger.InfoContext(ctx, "Backfill completed", log.FieldPropertyID, propertyID, "months", exported)
	return nil
}
