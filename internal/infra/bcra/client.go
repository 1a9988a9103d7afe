// Package bcra provides the client for the BCRA Central de Deudores API and
// the flatteners that turn its nested responses into tabular records.
package bcra

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mbelgrano/deudores-bcra-go/internal/domain"
	"github.com/mbelgrano/deudores-bcra-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("bcra")

// Category identifies one of the three record categories the registry
// exposes.
type Category string

const (
	CategoryDebts      Category = "deudas"
	CategoryHistorical Category = "historicas"
	CategoryChecks     Category = "cheques"
)

// genericBadRequest is used when the registry answers 400 without a usable
// errorMessages entry.
const genericBadRequest = "Parámetro erróneo. Asegúrese de ingresar un CUIT/CUIL/CDI válido de 11 dígitos."

// NewHTTPClient builds the shared HTTP client for the registry. The BCRA
// endpoint serves a certificate the client does not validate, so TLS
// verification is disabled on the one process-wide transport when
// insecureSkipVerify is set.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport
	if insecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Client wraps HTTP calls to the Central de Deudores API.
// It implements port.DebtorFetcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
	quiet      map[Category]bool
}

// NewClient creates a registry client. A missing rejected-checks record is
// routine (most CUITs have none), so that category starts out quiet: its
// 404s are not logged as warnings.
func NewClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
		quiet:      map[Category]bool{CategoryChecks: true},
	}
}

// SetQuiet toggles 404 warning suppression for a category. The quiet set is
// read without locking on every request: call this during setup, before the
// client serves concurrent traffic.
func (c *Client) SetQuiet(cat Category, quiet bool) {
	c.quiet[cat] = quiet
}

// GetCurrentDebts fetches and flattens the current debts for a CUIT.
func (c *Client) GetCurrentDebts(ctx context.Context, cuit string) ([]domain.DebtRecord, error) {
	ctx, span := tracer.Start(ctx, "BCRAClient.GetCurrentDebts")
	defer span.End()
	span.SetAttributes(attribute.String("debtor.cuit", cuit))

	var resp DebtsResponse
	if err := c.doGet(ctx, CategoryDebts, fmt.Sprintf("%s/Deudas/%s", c.baseURL, cuit), cuit, &resp); err != nil {
		return nil, err
	}
	rows, err := FlattenDebts(&resp)
	return flattened(c, CategoryDebts, cuit, rows, err)
}

// GetHistoricalDebts fetches and flattens the last 24 reported periods for
// a CUIT.
func (c *Client) GetHistoricalDebts(ctx context.Context, cuit string) ([]domain.DebtRecord, error) {
	ctx, span := tracer.Start(ctx, "BCRAClient.GetHistoricalDebts")
	defer span.End()
	span.SetAttributes(attribute.String("debtor.cuit", cuit))

	var resp DebtsResponse
	if err := c.doGet(ctx, CategoryHistorical, fmt.Sprintf("%s/Deudas/Historicas/%s", c.baseURL, cuit), cuit, &resp); err != nil {
		return nil, err
	}
	rows, err := FlattenHistoricalDebts(&resp)
	return flattened(c, CategoryHistorical, cuit, rows, err)
}

// GetRejectedChecks fetches and flattens the dishonored checks for a CUIT.
func (c *Client) GetRejectedChecks(ctx context.Context, cuit string) ([]domain.RejectedCheckRecord, error) {
	ctx, span := tracer.Start(ctx, "BCRAClient.GetRejectedChecks")
	defer span.End()
	span.SetAttributes(attribute.String("debtor.cuit", cuit))

	var resp ChecksResponse
	if err := c.doGet(ctx, CategoryChecks, fmt.Sprintf("%s/Deudas/ChequesRechazados/%s", c.baseURL, cuit), cuit, &resp); err != nil {
		return nil, err
	}
	rows, err := FlattenRejectedChecks(&resp)
	return flattened(c, CategoryChecks, cuit, rows, err)
}

// flattened funnels a flattener result through common bad-payload logging.
func flattened[T any](c *Client, cat Category, cuit string, rows []T, err error) ([]T, error) {
	if err != nil {
		c.logger.Error("bcra: malformed payload",
			zap.String("category", string(cat)),
			zap.String("cuit", cuit),
			zap.Error(err),
		)
		return nil, err
	}
	return rows, nil
}

// doGet issues a single GET and classifies the response. Expected outcomes
// (404, 400) are resolved outside the breaker so only transport failures
// and 5xx-class statuses count against it.
func (c *Client) doGet(ctx context.Context, cat Category, url, cuit string, out any) error {
	var outcome error // 404 / 400 classification, breaker-neutral

	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return fmt.Errorf("decode %s response: %w", cat, err)
				}
				return nil
			case resp.StatusCode == http.StatusNotFound:
				outcome = &domain.ErrNotFound{Resource: string(cat), ID: cuit}
				return nil
			case resp.StatusCode == http.StatusBadRequest:
				outcome = &domain.ErrValidation{Field: "cuit", Message: badRequestMessage(resp.Body)}
				return nil
			default:
				return fmt.Errorf("registry API returned status %d", resp.StatusCode)
			}
		})
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "bcra"}
		}
		c.logger.Error("bcra: request failed",
			zap.String("category", string(cat)),
			zap.String("cuit", cuit),
			zap.Error(err),
		)
		return &domain.ErrExternalService{Service: "bcra/" + string(cat), Err: err}
	}

	var notFound *domain.ErrNotFound
	if errors.As(outcome, &notFound) && !c.quiet[cat] {
		c.logger.Warn("bcra: no data for CUIT",
			zap.String("category", string(cat)),
			zap.String("cuit", cuit),
		)
	}
	return outcome
}

// badRequestMessage extracts the server-supplied message from a 400 body,
// falling back to the generic 11-digit hint.
func badRequestMessage(body io.Reader) string {
	var payload struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && len(payload.ErrorMessages) > 0 {
		return payload.ErrorMessages[0]
	}
	return genericBadRequest
}
