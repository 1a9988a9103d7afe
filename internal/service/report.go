package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/observability"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/resilience"
	"github.com/mbelgrano/deudores-bcra-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProgressFunc is invoked after each summarized CUIT.
type ProgressFunc func(done, total int, cuit string)

// Report aggregates per-CUIT summaries into batch reports. Identifiers are
// processed sequentially with a fixed delay between them to pace requests
// against the public registry.
type Report struct {
	fetcher  port.DebtorFetcher
	metrics  *observability.Metrics
	logger   *zap.Logger
	delay    time.Duration
	bulkhead *resilience.Bulkhead
}

// NewReport creates the report aggregation service.
func NewReport(
	fetcher port.DebtorFetcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	delay time.Duration,
	bulkhead *resilience.Bulkhead,
) *Report {
	return &Report{
		fetcher:  fetcher,
		metrics:  metrics,
		logger:   logger,
		delay:    delay,
		bulkhead: bulkhead,
	}
}

// Aggregate parses a comma-separated list of identifiers and produces one
// summary row per valid CUIT, in input order. Duplicates are processed as
// many times as they appear. Invalid identifiers are skipped with a warning;
// a list with zero valid identifiers aborts with *domain.ErrEmptyBatch.
//
// progress may be nil.
func (s *Report) Aggregate(ctx context.Context, listText string, progress ProgressFunc) (*domain.BatchReport, error) {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	ctx, span := tracer.Start(ctx, "Report.Aggregate")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("aggregate", time.Since(start))
	}()

	var (
		valid    []string
		warnings []string
	)
	for _, raw := range strings.Split(listText, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if !domain.ValidCUIT(id) {
			warnings = append(warnings, fmt.Sprintf("CUIT/CUIL/CDI inválido ignorado: %s", id))
			continue
		}
		valid = append(valid, id)
	}

	if len(valid) == 0 {
		s.metrics.IncrBatch("rejected")
		return nil, &domain.ErrEmptyBatch{}
	}

	span.SetAttributes(attribute.Int("batch.size", len(valid)))
	s.logger.Info("starting aggregation batch",
		zap.Int("identifiers", len(valid)),
		zap.Int("skipped", len(warnings)),
	)

	report := &domain.BatchReport{
		Rows:     make([]domain.SummaryRow, 0, len(valid)),
		Warnings: warnings,
	}

	for i, cuit := range valid {
		if i > 0 && s.delay > 0 {
			select {
			case <-ctx.Done():
				s.metrics.IncrBatch("rejected")
				return nil, ctx.Err()
			case <-time.After(s.delay):
			}
		}

		row, rowWarnings := s.summarize(ctx, cuit)
		report.Rows = append(report.Rows, row)
		report.Warnings = append(report.Warnings, rowWarnings...)

		if progress != nil {
			progress(i+1, len(valid), cuit)
		}
	}

	for _, row := range report.Rows {
		report.Stats.Total++
		if row.HasCurrentIrregularity {
			report.Stats.WithCurrentIrregularity++
		}
		if row.HadHistoricalIrregularity {
			report.Stats.WithHistoricalIrregularity++
		}
		if row.HasRejectedChecks {
			report.Stats.WithRejectedChecks++
		}
	}

	s.metrics.IncrBatch("completed")
	s.metrics.AddIdentifiers(len(valid))
	s.logger.Info("aggregation batch finished",
		zap.Int("rows", len(report.Rows)),
		zap.Int("warnings", len(report.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// summarize condenses the three categories for one CUIT into a single row.
// Fetch failures degrade to warnings with defaulted fields; the row is
// always produced.
func (s *Report) summarize(ctx context.Context, cuit string) (domain.SummaryRow, []string) {
	ctx, span := tracer.Start(ctx, "Report.summarize")
	defer span.End()
	span.SetAttributes(attribute.String("debtor.cuit", cuit))

	row := domain.SummaryRow{
		CUIT:             cuit,
		CurrentSituation: domain.NoDataLabel,
	}
	var warnings []string

	collect := func(cat string, err error) {
		s.metrics.IncrUpstreamRequest(cat, fetchOutcome(err))
		if err == nil {
			return
		}
		if w := categoryWarning(cat, cuit, err); w != "" {
			warnings = append(warnings, w)
		}
		if !isAbsence(err) {
			s.metrics.IncrUpstreamError(cat)
			s.logger.Error("summary category fetch failed",
				zap.String("category", cat),
				zap.String("cuit", cuit),
				zap.Error(err),
			)
		}
	}

	current, err := s.fetcher.GetCurrentDebts(ctx, cuit)
	collect(catCurrent, err)

	var currentPeriod string
	if len(current) > 0 {
		currentPeriod = current[0].Period
		row.Denomination = current[0].Denomination

		worst := 0
		entities := make(map[string]struct{}, len(current))
		counts := make(map[int]int)
		for _, r := range current {
			if r.Situation > worst {
				worst = r.Situation
			}
			row.TotalDebt += r.Amount
			entities[r.Entity] = struct{}{}
			counts[r.Situation]++
			if r.Irregular() {
				row.HasCurrentIrregularity = true
			}
		}
		row.CurrentSituation = domain.SituationLabel(worst)
		row.EntityCount = len(entities)
		row.SituationDetail = situationDetail(counts)
	}

	historical, err := s.fetcher.GetHistoricalDebts(ctx, cuit)
	collect(catHistorical, err)

	for _, r := range historical {
		// The historical endpoint repeats the current period; only
		// strictly older periods count as history.
		if r.Period == currentPeriod {
			continue
		}
		if row.Denomination == "" {
			row.Denomination = r.Denomination
		}
		if r.Irregular() {
			row.HadHistoricalIrregularity = true
		}
	}

	checks, err := s.fetcher.GetRejectedChecks(ctx, cuit)
	collect(catChecks, err)

	if len(checks) > 0 {
		row.HasRejectedChecks = true
		row.RejectedCheckCount = len(checks)
		if row.Denomination == "" {
			row.Denomination = checks[0].Denomination
		}
	}

	return row, warnings
}

// situationDetail renders per-grade row counts as "Sit.1: 2, Sit.3: 1",
// grades ascending.
func situationDetail(counts map[int]int) string {
	grades := make([]int, 0, len(counts))
	for g := range counts {
		grades = append(grades, g)
	}
	sort.Ints(grades)

	parts := make([]string, 0, len(grades))
	for _, g := range grades {
		parts = append(parts, fmt.Sprintf("Sit.%d: %d", g, counts[g]))
	}
	return strings.Join(parts, ", ")
}
