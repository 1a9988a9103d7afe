// Package service implements the use cases of the pipeline: single-debtor
// lookups and batch report aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/observability"
	"github.com/mbelgrano/deudores-bcra-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/deudores")

// invalidCUITMessage is the user-facing rejection for malformed identifiers.
const invalidCUITMessage = "El CUIT/CUIL/CDI debe contener exactamente 11 dígitos numéricos, sin guiones."

// Metric label values, aligned with the registry client's categories.
const (
	catCurrent    = "deudas"
	catHistorical = "historicas"
	catChecks     = "cheques"
)

// categoryNames maps a metric category to the Spanish label used in
// user-facing warnings.
var categoryNames = map[string]string{
	catCurrent:    "deudas",
	catHistorical: "deudas históricas",
	catChecks:     "cheques rechazados",
}

// Debtor serves single-CUIT lookups: the combined status and the three
// per-category views.
type Debtor struct {
	fetcher port.DebtorFetcher
	cache   port.Cache[*domain.DebtorStatus]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDebtor creates the debtor lookup service with all dependencies injected.
func NewDebtor(
	fetcher port.DebtorFetcher,
	cache port.Cache[*domain.DebtorStatus],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Debtor {
	return &Debtor{
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// GetStatus assembles the full picture for one CUIT: current debts,
// historical debts and rejected checks, fetched concurrently.
//
// Absence in any category is routine and leaves the corresponding slice nil.
// Fetch failures degrade to warnings instead of failing the whole lookup, so
// a flaky category never hides the others.
func (s *Debtor) GetStatus(ctx context.Context, cuit string) (*domain.DebtorStatus, error) {
	if !domain.ValidCUIT(cuit) {
		return nil, &domain.ErrValidation{Field: "cuit", Message: invalidCUITMessage}
	}

	ctx, span := tracer.Start(ctx, "Debtor.GetStatus")
	defer span.End()
	span.SetAttributes(attribute.String("debtor.cuit", cuit))

	cacheKey := fmt.Sprintf("debtor:%s", cuit)
	if cached, ok := s.cache.Get(cacheKey); ok {
		s.metrics.IncrCacheHit("debtor")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("debtor")

	var (
		current    []domain.DebtRecord
		historical []domain.DebtRecord
		checks     []domain.RejectedCheckRecord

		mu       sync.Mutex
		warnings []string
		degraded bool
	)

	collect := func(cat string, err error) {
		s.metrics.IncrUpstreamRequest(cat, fetchOutcome(err))
		if err == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if w := categoryWarning(cat, cuit, err); w != "" {
			warnings = append(warnings, w)
		}
		if !isAbsence(err) {
			s.metrics.IncrUpstreamError(cat)
			degraded = true
			s.logger.Error("debtor category fetch failed",
				zap.String("category", cat),
				zap.String("cuit", cuit),
				zap.Error(err),
			)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.fetcher.GetCurrentDebts(gCtx, cuit)
		current = rows
		collect(catCurrent, err)
		return nil
	})
	g.Go(func() error {
		rows, err := s.fetcher.GetHistoricalDebts(gCtx, cuit)
		historical = rows
		collect(catHistorical, err)
		return nil
	})
	g.Go(func() error {
		rows, err := s.fetcher.GetRejectedChecks(gCtx, cuit)
		checks = rows
		collect(catChecks, err)
		return nil
	})

	// Goroutines never return errors; Wait only joins them.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := &domain.DebtorStatus{
		CUIT:            cuit,
		Denomination:    denominationOf(current, historical, checks),
		HasIrregular:    anyIrregular(current),
		CurrentDebts:    current,
		HistoricalDebts: historical,
		RejectedChecks:  checks,
		Warnings:        warnings,
	}

	// Degraded lookups are not cached so the next request retries the
	// failed categories.
	if !degraded {
		s.cache.Set(cacheKey, status)
	}
	return status, nil
}

// GetCurrentDebts returns the flattened current debts for a CUIT.
// A registry 404 propagates as *domain.ErrNotFound.
func (s *Debtor) GetCurrentDebts(ctx context.Context, cuit string) ([]domain.DebtRecord, error) {
	if !domain.ValidCUIT(cuit) {
		return nil, &domain.ErrValidation{Field: "cuit", Message: invalidCUITMessage}
	}
	rows, err := s.fetcher.GetCurrentDebts(ctx, cuit)
	s.metrics.IncrUpstreamRequest(catCurrent, fetchOutcome(err))
	return rows, err
}

// GetHistoricalDebts returns the flattened historical debts for a CUIT.
func (s *Debtor) GetHistoricalDebts(ctx context.Context, cuit string) ([]domain.DebtRecord, error) {
	if !domain.ValidCUIT(cuit) {
		return nil, &domain.ErrValidation{Field: "cuit", Message: invalidCUITMessage}
	}
	rows, err := s.fetcher.GetHistoricalDebts(ctx, cuit)
	s.metrics.IncrUpstreamRequest(catHistorical, fetchOutcome(err))
	return rows, err
}

// GetRejectedChecks returns the flattened dishonored checks for a CUIT.
func (s *Debtor) GetRejectedChecks(ctx context.Context, cuit string) ([]domain.RejectedCheckRecord, error) {
	if !domain.ValidCUIT(cuit) {
		return nil, &domain.ErrValidation{Field: "cuit", Message: invalidCUITMessage}
	}
	rows, err := s.fetcher.GetRejectedChecks(ctx, cuit)
	s.metrics.IncrUpstreamRequest(catChecks, fetchOutcome(err))
	return rows, err
}

// fetchOutcome classifies a fetch error for the upstream request counter.
// A nil error covers both populated and structurally-empty responses; the
// caller cannot tell them apart here, so both count as ok.
func fetchOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case isNotFound(err):
		return observability.OutcomeNotFound
	default:
		return observability.OutcomeError
	}
}

// categoryWarning renders the user-facing warning for a failed category
// fetch. Missing rejected checks are routine and produce no warning.
func categoryWarning(cat, cuit string, err error) string {
	name := categoryNames[cat]
	if isNotFound(err) {
		if cat == catChecks {
			return ""
		}
		return fmt.Sprintf("No se encontró información de %s para el CUIT/CUIL/CDI: %s", name, cuit)
	}
	return fmt.Sprintf("Error al consultar %s para el CUIT/CUIL/CDI: %s", name, cuit)
}

func isNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}

// isAbsence reports whether err means "registry has nothing" rather than a
// real failure.
func isAbsence(err error) bool {
	return err == nil || isNotFound(err)
}

func anyIrregular(rows []domain.DebtRecord) bool {
	for _, r := range rows {
		if r.Irregular() {
			return true
		}
	}
	return false
}

// denominationOf picks the debtor's name from whichever category returned
// rows, preferring current debts.
func denominationOf(current, historical []domain.DebtRecord, checks []domain.RejectedCheckRecord) string {
	if len(current) > 0 {
		return current[0].Denomination
	}
	if len(historical) > 0 {
		return historical[0].Denomination
	}
	if len(checks) > 0 {
		return checks[0].Denomination
	}
	return ""
}
