package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/observability"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/resilience"
	"github.com/mbelgrano/deudores-bcra-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type fetchResult[T any] struct {
	rows []T
	err  error
}

type mockFetcher struct {
	current    map[string]fetchResult[domain.DebtRecord]
	historical map[string]fetchResult[domain.DebtRecord]
	checks     map[string]fetchResult[domain.RejectedCheckRecord]

	calls []string
}

func (m *mockFetcher) GetCurrentDebts(_ context.Context, cuit string) ([]domain.DebtRecord, error) {
	m.calls = append(m.calls, "deudas:"+cuit)
	r := m.current[cuit]
	return r.rows, r.err
}

func (m *mockFetcher) GetHistoricalDebts(_ context.Context, cuit string) ([]domain.DebtRecord, error) {
	m.calls = append(m.calls, "historicas:"+cuit)
	r := m.historical[cuit]
	return r.rows, r.err
}

func (m *mockFetcher) GetRejectedChecks(_ context.Context, cuit string) ([]domain.RejectedCheckRecord, error) {
	m.calls = append(m.calls, "cheques:"+cuit)
	r := m.checks[cuit]
	return r.rows, r.err
}

func newReportService(f *mockFetcher) *service.Report {
	return service.NewReport(f, observability.NewMetrics(), zap.NewNop(), 0, resilience.NewBulkhead(1))
}

func debtRow(cuit, denom, period string, situation int, amount float64, entity string) domain.DebtRecord {
	return domain.DebtRecord{
		CUIT:         cuit,
		Denomination: denom,
		Period:       period,
		Entity:       entity,
		Situation:    situation,
		Amount:       amount,
	}
}

// --- Tests ---

func TestAggregate_CleanDebtor(t *testing.T) {
	const cuit = "30500001235"
	f := &mockFetcher{
		current: map[string]fetchResult[domain.DebtRecord]{
			cuit: {rows: []domain.DebtRecord{
				debtRow(cuit, "ACME SA", "202405", 1, 150.5, "BANCO A"),
				debtRow(cuit, "ACME SA", "202405", 1, 49.5, "BANCO B"),
			}},
		},
		historical: map[string]fetchResult[domain.DebtRecord]{
			cuit: {rows: []domain.DebtRecord{
				debtRow(cuit, "ACME SA", "202405", 1, 150.5, "BANCO A"),
				debtRow(cuit, "ACME SA", "202404", 1, 120, "BANCO A"),
			}},
		},
		checks: map[string]fetchResult[domain.RejectedCheckRecord]{
			cuit: {err: &domain.ErrNotFound{Resource: "cheques", ID: cuit}},
		},
	}

	report, err := newReportService(f).Aggregate(context.Background(), cuit, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report.Rows))
	}

	row := report.Rows[0]
	if row.CurrentSituation != "1: Normal" {
		t.Errorf("expected situation '1: Normal', got %q", row.CurrentSituation)
	}
	if row.HasCurrentIrregularity || row.HadHistoricalIrregularity || row.HasRejectedChecks {
		t.Errorf("expected all flags false, got %+v", row)
	}
	if row.TotalDebt != 200 {
		t.Errorf("expected total debt 200, got %f", row.TotalDebt)
	}
	if row.EntityCount != 2 {
		t.Errorf("expected 2 entities, got %d", row.EntityCount)
	}
	if row.SituationDetail != "Sit.1: 2" {
		t.Errorf("expected detail 'Sit.1: 2', got %q", row.SituationDetail)
	}
	// A missing rejected-checks record is routine and must not warn.
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
}

func TestAggregate_HistoricalIrregularityExcludesCurrentPeriod(t *testing.T) {
	const cuit = "30500001235"
	f := &mockFetcher{
		current: map[string]fetchResult[domain.DebtRecord]{
			cuit: {rows: []domain.DebtRecord{
				debtRow(cuit, "ACME SA", "202405", 3, 100, "BANCO A"),
			}},
		},
		historical: map[string]fetchResult[domain.DebtRecord]{
			cuit: {rows: []domain.DebtRecord{
				// Same period as the current record: must not count as history.
				debtRow(cuit, "ACME SA", "202405", 3, 100, "BANCO A"),
				debtRow(cuit, "ACME SA", "202404", 1, 90, "BANCO A"),
			}},
		},
		checks: map[string]fetchResult[domain.RejectedCheckRecord]{},
	}

	report, err := newReportService(f).Aggregate(context.Background(), cuit, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	row := report.Rows[0]
	if !row.HasCurrentIrregularity {
		t.Error("expected current irregularity")
	}
	if row.HadHistoricalIrregularity {
		t.Error("current-period row leaked into historical irregularity")
	}
	if row.CurrentSituation != "3: Con problemas/Riesgo medio" {
		t.Errorf("unexpected situation label: %q", row.CurrentSituation)
	}
}

func TestAggregate_NoDataDebtor(t *testing.T) {
	const cuit = "20304050607"
	f := &mockFetcher{
		current: map[string]fetchResult[domain.DebtRecord]{
			cuit: {err: &domain.ErrNotFound{Resource: "deudas", ID: cuit}},
		},
		historical: map[string]fetchResult[domain.DebtRecord]{
			cuit: {err: &domain.ErrNotFound{Resource: "historicas", ID: cuit}},
		},
		checks: map[string]fetchResult[domain.RejectedCheckRecord]{
			cuit: {err: &domain.ErrNotFound{Resource: "cheques", ID: cuit}},
		},
	}

	report, err := newReportService(f).Aggregate(context.Background(), cuit, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	row := report.Rows[0]
	if row.CurrentSituation != domain.NoDataLabel {
		t.Errorf("expected %q, got %q", domain.NoDataLabel, row.CurrentSituation)
	}
	if row.TotalDebt != 0 || row.EntityCount != 0 || row.RejectedCheckCount != 0 {
		t.Errorf("expected zeroed row, got %+v", row)
	}
	// Debts and historical 404s warn; the checks 404 stays silent.
	if len(report.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", report.Warnings)
	}
}

func TestAggregate_FetchErrorDegradesToWarning(t *testing.T) {
	const cuit = "30500001235"
	f := &mockFetcher{
		current: map[string]fetchResult[domain.DebtRecord]{
			cuit: {err: &domain.ErrExternalService{Service: "bcra/deudas", Err: errors.New("boom")}},
		},
		historical: map[string]fetchResult[domain.DebtRecord]{},
		checks: map[string]fetchResult[domain.RejectedCheckRecord]{
			cuit: {rows: []domain.RejectedCheckRecord{
				{CUIT: cuit, Denomination: "ACME SA", Cause: "SIN FONDOS", Entity: 11, CheckNumber: 123},
			}},
		},
	}

	report, err := newReportService(f).Aggregate(context.Background(), cuit, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	row := report.Rows[0]
	if row.CurrentSituation != domain.NoDataLabel {
		t.Errorf("expected %q on fetch failure, got %q", domain.NoDataLabel, row.CurrentSituation)
	}
	if !row.HasRejectedChecks || row.RejectedCheckCount != 1 {
		t.Errorf("checks category should survive a debts failure, got %+v", row)
	}
	if row.Denomination != "ACME SA" {
		t.Errorf("expected denomination fallback from checks, got %q", row.Denomination)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "Error al consultar") {
		t.Errorf("expected a fetch-error warning, got %v", report.Warnings)
	}
}

func TestAggregate_OrderAndDuplicatesPreserved(t *testing.T) {
	a, b := "30500001235", "20304050607"
	f := &mockFetcher{
		current:    map[string]fetchResult[domain.DebtRecord]{},
		historical: map[string]fetchResult[domain.DebtRecord]{},
		checks:     map[string]fetchResult[domain.RejectedCheckRecord]{},
	}

	report, err := newReportService(f).Aggregate(context.Background(), b+", "+a+" ,"+b, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got := []string{report.Rows[0].CUIT, report.Rows[1].CUIT, report.Rows[2].CUIT}
	want := []string{b, a, b}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row order mismatch: got %v, want %v", got, want)
		}
	}
}

func TestAggregate_InvalidIdentifiersSkippedWithWarning(t *testing.T) {
	const valid = "30500001235"
	f := &mockFetcher{
		current:    map[string]fetchResult[domain.DebtRecord]{},
		historical: map[string]fetchResult[domain.DebtRecord]{},
		checks:     map[string]fetchResult[domain.RejectedCheckRecord]{},
	}

	report, err := newReportService(f).Aggregate(context.Background(), "30-50000123-5, "+valid+", abc", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].CUIT != valid {
		t.Fatalf("expected only the valid CUIT, got %+v", report.Rows)
	}
	if len(report.Warnings) != 2 {
		t.Errorf("expected 2 invalid-identifier warnings, got %v", report.Warnings)
	}
}

func TestAggregate_EmptyBatch(t *testing.T) {
	f := &mockFetcher{}
	svc := newReportService(f)

	for _, input := range []string{"", " , ,", "12345, not-a-cuit"} {
		_, err := svc.Aggregate(context.Background(), input, nil)
		var empty *domain.ErrEmptyBatch
		if !errors.As(err, &empty) {
			t.Errorf("input %q: expected ErrEmptyBatch, got %v", input, err)
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("empty batch must not hit the registry, got calls %v", f.calls)
	}
}

func TestAggregate_ProgressCallback(t *testing.T) {
	a, b := "30500001235", "20304050607"
	f := &mockFetcher{
		current:    map[string]fetchResult[domain.DebtRecord]{},
		historical: map[string]fetchResult[domain.DebtRecord]{},
		checks:     map[string]fetchResult[domain.RejectedCheckRecord]{},
	}

	var seen []string
	progress := func(done, total int, cuit string) {
		if total != 2 {
			t.Errorf("expected total 2, got %d", total)
		}
		seen = append(seen, cuit)
	}

	if _, err := newReportService(f).Aggregate(context.Background(), a+","+b, progress); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(seen) != 2 || seen[0] != a || seen[1] != b {
		t.Errorf("progress callback order mismatch: %v", seen)
	}
}

func TestAggregate_Stats(t *testing.T) {
	irregular, clean := "30500001235", "20304050607"
	f := &mockFetcher{
		current: map[string]fetchResult[domain.DebtRecord]{
			irregular: {rows: []domain.DebtRecord{
				debtRow(irregular, "MAL SA", "202405", 4, 10, "BANCO A"),
			}},
			clean: {rows: []domain.DebtRecord{
				debtRow(clean, "BIEN SA", "202405", 1, 10, "BANCO A"),
			}},
		},
		historical: map[string]fetchResult[domain.DebtRecord]{},
		checks: map[string]fetchResult[domain.RejectedCheckRecord]{
			irregular: {rows: []domain.RejectedCheckRecord{{CUIT: irregular, CheckNumber: 1}}},
		},
	}

	report, err := newReportService(f).Aggregate(context.Background(), irregular+","+clean, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	stats := report.Stats
	if stats.Total != 2 {
		t.Errorf("expected total 2, got %d", stats.Total)
	}
	if stats.WithCurrentIrregularity != 1 {
		t.Errorf("expected 1 current irregularity, got %d", stats.WithCurrentIrregularity)
	}
	if stats.WithRejectedChecks != 1 {
		t.Errorf("expected 1 with rejected checks, got %d", stats.WithRejectedChecks)
	}
}

func TestAggregate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &mockFetcher{
		current:    map[string]fetchResult[domain.DebtRecord]{},
		historical: map[string]fetchResult[domain.DebtRecord]{},
		checks:     map[string]fetchResult[domain.RejectedCheckRecord]{},
	}
	svc := service.NewReport(f, observability.NewMetrics(), zap.NewNop(), time.Hour, resilience.NewBulkhead(1))

	_, err := svc.Aggregate(ctx, "30500001235,20304050607", nil)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
