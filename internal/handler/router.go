// Package handler exposes the pipeline over HTTP: single-debtor lookups,
// batch report aggregation (JSON and CSV) and operational endpoints.
package handler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/observability"
	"github.com/mbelgrano/deudores-bcra-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(debtorSvc *service.Debtor, reportSvc *service.Report, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Single-debtor lookups
		r.Get("/debtors/{cuit}", getDebtorHandler(debtorSvc, logger))
		r.Get("/debtors/{cuit}/debts", getDebtsHandler(debtorSvc, logger))
		r.Get("/debtors/{cuit}/debts/historical", getHistoricalDebtsHandler(debtorSvc, logger))
		r.Get("/debtors/{cuit}/checks", getRejectedChecksHandler(debtorSvc, logger))

		// Batch reports
		r.Post("/reports", createReportHandler(reportSvc, logger))
		r.Post("/reports/csv", createReportCSVHandler(reportSvc, logger))

		// Pipeline counters
		r.Get("/metrics/pipeline", pipelineMetricsHandler(metrics))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// ============================================================
// Single-debtor lookups
// ============================================================

func getDebtorHandler(svc *service.Debtor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debtors/{cuit}")
		defer span.End()

		cuit := chi.URLParam(r, "cuit")
		span.SetAttributes(attribute.String("debtor.cuit", cuit))

		status, err := svc.GetStatus(ctx, cuit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func getDebtsHandler(svc *service.Debtor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debtors/{cuit}/debts")
		defer span.End()

		cuit := chi.URLParam(r, "cuit")
		rows, err := svc.GetCurrentDebts(ctx, cuit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if rows == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("sin datos de deudas para el CUIT/CUIL/CDI: %s", cuit))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cuit": cuit, "deudas": rows})
	}
}

func getHistoricalDebtsHandler(svc *service.Debtor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debtors/{cuit}/debts/historical")
		defer span.End()

		cuit := chi.URLParam(r, "cuit")
		rows, err := svc.GetHistoricalDebts(ctx, cuit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if rows == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("sin datos históricos para el CUIT/CUIL/CDI: %s", cuit))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cuit": cuit, "deudasHistoricas": rows})
	}
}

func getRejectedChecksHandler(svc *service.Debtor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/debtors/{cuit}/checks")
		defer span.End()

		cuit := chi.URLParam(r, "cuit")
		rows, err := svc.GetRejectedChecks(ctx, cuit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if rows == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("sin cheques rechazados para el CUIT/CUIL/CDI: %s", cuit))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cuit": cuit, "chequesRechazados": rows})
	}
}

// ============================================================
// Batch reports
// ============================================================

type reportRequest struct {
	CUITs string `json:"cuits"`
}

type reportResponse struct {
	ReportID    string              `json:"reportId"`
	GeneratedAt string              `json:"generatedAt"`
	Rows        []domain.SummaryRow `json:"rows"`
	Stats       domain.BatchStats   `json:"stats"`
	Warnings    []string            `json:"warnings,omitempty"`
}

func createReportHandler(svc *service.Report, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports")
		defer span.End()

		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		report, err := svc.Aggregate(ctx, req.CUITs, nil)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, reportResponse{
			ReportID:    uuid.New().String(),
			GeneratedAt: time.Now().Format(time.RFC3339),
			Rows:        report.Rows,
			Stats:       report.Stats,
			Warnings:    report.Warnings,
		})
	}
}

// csvHeader matches the column layout of the summary rows.
var csvHeader = []string{
	"cuit",
	"denominacion",
	"situacion_actual",
	"tiene_situacion_irregular",
	"tuvo_situacion_irregular",
	"tiene_cheques_rechazados",
	"deuda_total",
	"cantidad_entidades",
	"detalle_situaciones",
	"cantidad_cheques_rechazados",
}

func createReportCSVHandler(svc *service.Report, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/csv")
		defer span.End()

		var req reportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		report, err := svc.Aggregate(ctx, req.CUITs, nil)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		reportID := uuid.New().String()
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="deudores_%s.csv"`, reportID))
		w.WriteHeader(http.StatusOK)

		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			logger.Error("csv write failed", zap.Error(err))
			return
		}
		for _, row := range report.Rows {
			record := []string{
				row.CUIT,
				row.Denomination,
				row.CurrentSituation,
				siNo(row.HasCurrentIrregularity),
				siNo(row.HadHistoricalIrregularity),
				siNo(row.HasRejectedChecks),
				strconv.FormatFloat(row.TotalDebt, 'f', 2, 64),
				strconv.Itoa(row.EntityCount),
				row.SituationDetail,
				strconv.Itoa(row.RejectedCheckCount),
			}
			if err := cw.Write(record); err != nil {
				logger.Error("csv write failed", zap.Error(err))
				return
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			logger.Error("csv flush failed", zap.Error(err))
		}
	}
}

// siNo renders a flag the way the spreadsheet-facing columns expect it.
func siNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}

// ============================================================
// Pipeline counters
// ============================================================

func pipelineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
